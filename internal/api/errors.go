package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend operation.
type Kind string

const (
	KindAnalysis    Kind = "ANALYSIS"
	KindGeneration  Kind = "GENERATION"
	KindPersistence Kind = "PERSISTENCE"
)

// Error is a transport or non-2xx failure from the template service. Detail
// carries the response body when one was received, or the transport error
// text when the request never completed (Status 0).
type Error struct {
	Kind   Kind
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.label(), e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.label(), e.Detail)
}

func (e *Error) label() string {
	switch e.Kind {
	case KindAnalysis:
		return "analysis failed"
	case KindGeneration:
		return "generation failed"
	default:
		return "request failed"
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
