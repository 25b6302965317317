package fetcher

import (
	"errors"
	"fmt"
)

// APIError is a well-formed rejection from the ranking API, such as a
// window that has not been published yet or an unknown event. It is always
// an expected, recoverable outcome: the caller leaves no ingestion record
// and lets the next scheduled run try again.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ranking api rejected request: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// IsExpected reports whether err is a structured rejection from the remote
// service rather than a transport, parse, or programming fault.
func IsExpected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
