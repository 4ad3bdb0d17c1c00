package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{BadRequest, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{BadGateway, http.StatusBadGateway},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestFromScraper(t *testing.T) {
	plain := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"validation", &scraper.ValidationError{Field: "symbol", Reason: "blank"}, BadRequest},
		{"empty", &scraper.EmptyResultError{Symbol: "OGDC"}, NotFound},
		{"fetch", &scraper.FetchError{Symbol: "OGDC", StatusCode: 503, Err: plain}, BadGateway},
		{"joined fetch", errors.Join(&scraper.FetchError{Symbol: "OGDC", Err: plain}), BadGateway},
		{"wrapped app", fmt.Errorf("get: %w", New(Conflict, "busy")), Conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ae *AppError
			if !errors.As(FromScraper(tt.err), &ae) {
				t.Fatalf("expected *AppError, got %v", FromScraper(tt.err))
			}
			if ae.Code() != tt.want {
				t.Errorf("got %s, want %s", ae.Code(), tt.want)
			}
		})
	}

	if got := FromScraper(plain); got != plain {
		t.Errorf("expected plain error to pass through, got %v", got)
	}
	if FromScraper(nil) != nil {
		t.Error("expected nil for nil")
	}
}
