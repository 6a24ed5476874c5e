package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_DUR", "45")
	assert.Equal(t, 45*time.Second, Duration("X_DUR", time.Second))

	t.Setenv("X_DUR", "2m")
	assert.Equal(t, 2*time.Minute, Duration("X_DUR", time.Second))

	t.Setenv("X_DUR", "nope")
	assert.Equal(t, time.Second, Duration("X_DUR", time.Second))
}

func TestOptionalFloatAndBool(t *testing.T) {
	assert.Nil(t, OptionalFloat("X_UNSET_FLOAT"))

	t.Setenv("X_FLOAT", "0.9")
	v := OptionalFloat("X_FLOAT")
	if assert.NotNil(t, v) {
		assert.InDelta(t, 0.9, *v, 1e-9)
	}

	t.Setenv("X_BOOL", "off")
	assert.False(t, Bool("X_BOOL", true))
	assert.True(t, Bool("X_UNSET_BOOL", true))
}
