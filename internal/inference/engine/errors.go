package engine

import (
	"fmt"

	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
)

// UpstreamError is a failed call to a model or embedding backend. It matches
// errors.Is(err, apperr.ErrUpstream).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream error"
	}
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s upstream error: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s upstream error: status=%d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s upstream error", e.Provider)
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{apperr.ErrUpstream}
	}
	return []error{apperr.ErrUpstream, e.Err}
}
