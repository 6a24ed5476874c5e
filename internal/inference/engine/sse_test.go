package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperr "github.com/yungbote/jobassist-backend/internal/pkg/errors"
)

func TestReadSSE(t *testing.T) {
	body := strings.Join([]string{
		": keepalive",
		"event: delta",
		"data: one",
		"",
		"data: two",
		"data: lines",
		"",
		"data: tail",
	}, "\n")

	var events, datas []string
	err := ReadSSE(strings.NewReader(body), func(ev, data string) error {
		events = append(events, ev)
		datas = append(datas, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"delta", "", ""}, events)
	assert.Equal(t, []string{"one", "two\nlines", "tail"}, datas)
}

func plainDecode(_ string, data string) (string, bool, error) {
	switch data {
	case "[DONE]":
		return "", true, nil
	case "boom":
		return "", false, errors.New("exploded")
	case "skip":
		return "", false, nil
	}
	return data, false, nil
}

func TestPumpDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	body := io.NopCloser(strings.NewReader("data: a\n\ndata: skip\n\ndata: b\n\ndata: [DONE]\n\ndata: never\n\n"))
	text, err := Collect(Pump(context.Background(), "test", body, plainDecode))
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestPumpMidStreamErrorIsUpstream(t *testing.T) {
	defer goleak.VerifyNone(t)

	body := io.NopCloser(strings.NewReader("data: a\n\ndata: boom\n\n"))
	text, err := Collect(Pump(context.Background(), "test", body, plainDecode))
	require.Error(t, err)
	assert.Equal(t, "a", text)
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "test", upstream.Provider)
}

func TestPumpStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	ch := Pump(ctx, "test", pr, plainDecode)

	go func() {
		_, _ = pw.Write([]byte("data: first\n\n"))
	}()

	first := <-ch
	assert.Equal(t, "first", first.Delta)

	cancel()

	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	_ = pw.Close()
}
