// Package upstream classifies the outcome of calls to third-party HTTP APIs
// (HR directory, time records, LINE messaging) so callers can decide what to
// do with a failure instead of receiving a bare error or nothing.
package upstream

import (
	"context"
	"errors"
	"net"
	"net/url"
)

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeDisabled    Outcome = "disabled"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeMalformed   Outcome = "malformed_response"
)

// Result is the typed result of an outbound call.
type Result[T any] struct {
	Value      T
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

func OK[T any](value T, statusCode int) Result[T] {
	return Result[T]{Value: value, Outcome: OutcomeOK, StatusCode: statusCode}
}

func Disabled[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeDisabled}
}

func Fail[T any](outcome Outcome, statusCode int, err error) Result[T] {
	return Result[T]{Outcome: outcome, StatusCode: statusCode, Err: err}
}

// Classify maps a transport error to an outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeUnavailable
}
