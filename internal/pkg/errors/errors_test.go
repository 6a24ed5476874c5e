package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("build snapshot: %w", NotFound("job_not_found", "job %q", "job-1"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "job_not_found", CodeOf(err))
	assert.Contains(t, err.Error(), `job "job-1"`)
}

func TestUpstreamKeepsCause(t *testing.T) {
	err := Upstream("upstream_error", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, "", CodeOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}
