package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
)

// Classify maps an error to an HTTP status, a stable code and the message
// that is safe to show the caller. Unclassified errors are reported as
// internal without their text.
func Classify(err error) (int, string, string) {
	var upstream *engine.UpstreamError
	code := apperr.CodeOf(err)
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest, orDefault(code, "invalid_request"), err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, orDefault(code, "not_found"), err.Error()
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, orDefault(code, "unauthorized"), "missing or invalid credentials"
	case errors.As(err, &upstream), errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway, "upstream_error", "model backend request failed"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

// RespondAppError writes the JSON error envelope for err.
func RespondAppError(c *gin.Context, err error) {
	status, code, msg := Classify(err)
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
