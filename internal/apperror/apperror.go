package apperror

import (
	"errors"
	"net/http"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

type Code string

const (
	BadRequest Code = "BAD_REQUEST"
	NotFound   Code = "NOT_FOUND"
	Internal   Code = "INTERNAL"
	Conflict   Code = "CONFLICT"
	BadGateway Code = "BAD_GATEWAY"
)

type AppError struct {
	code    Code
	message string
}

func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

func (e *AppError) Error() string   { return e.message }
func (e *AppError) Code() Code      { return e.code }
func (e *AppError) Message() string { return e.message }

func (e *AppError) HTTPStatus() int {
	switch e.code {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case BadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromScraper maps core errors onto coded errors: bad input is the caller's
// fault, an upstream failure is a bad gateway. Other errors pass through
// unchanged so the transport reports them as internal.
func FromScraper(err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	var ve *scraper.ValidationError
	if errors.As(err, &ve) {
		return New(BadRequest, ve.Error())
	}
	var ee *scraper.EmptyResultError
	if errors.As(err, &ee) {
		return New(NotFound, ee.Error())
	}
	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		return New(BadGateway, err.Error())
	}
	return err
}
