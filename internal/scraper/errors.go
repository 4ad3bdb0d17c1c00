package scraper

import (
	"fmt"
	"strings"
)

// ValidationError reports a request rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchError reports the failure of one fetch unit or listing request.
type FetchError struct {
	Symbol     string
	Range      DateRange
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("fetch")
	if e.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(e.Symbol)
	}
	if !e.Range.From.IsZero() {
		b.WriteString(" ")
		b.WriteString(e.Range.String())
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmptyResultError reports a symbol for which every unit succeeded but no
// row fell inside the requested range.
type EmptyResultError struct {
	Symbol string
	Range  DateRange
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no data for %s in %s", e.Symbol, e.Range)
}

// FetchErrors returns every *FetchError contained in err, following joined
// and wrapped errors.
func FetchErrors(err error) []*FetchError {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FetchError); ok {
		return []*FetchError{fe}
	}
	var out []*FetchError
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			out = append(out, FetchErrors(e)...)
		}
	case interface{ Unwrap() error }:
		out = FetchErrors(x.Unwrap())
	}
	return out
}
