package completion

import (
	"errors"
	"fmt"
)

// ErrEmptyResult means the endpoint answered successfully but the body held no
// usable candidate text. It is never retried.
var ErrEmptyResult = errors.New("completion: response contained no usable candidate")

// StatusError is a non-success answer from the endpoint. It is retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion: endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion: endpoint returned status %d: %s", e.StatusCode, e.Body)
}

type failureKind int

const (
	failureNone failureKind = iota
	failureEmpty
	failureServer
	failureTransport
)

func (k failureKind) label() string {
	switch k {
	case failureNone:
		return "success"
	case failureEmpty:
		return "empty"
	case failureServer:
		return "server_error"
	default:
		return "transport_error"
	}
}

// classify sorts a transport error into the retry taxonomy. Anything that is
// neither an empty result nor a status error is a transport failure.
func classify(err error) failureKind {
	if err == nil {
		return failureNone
	}
	if errors.Is(err, ErrEmptyResult) {
		return failureEmpty
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return failureServer
	}
	return failureTransport
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
