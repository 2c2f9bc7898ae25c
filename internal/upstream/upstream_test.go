package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorExtraction(t *testing.T) {
	err := fmt.Errorf("transcribe: %w", &Error{Provider: "deepgram", StatusCode: 401, Body: `{"err_code":"INVALID_AUTH"}`})

	assert.Equal(t, 401, StatusCode(err))
	assert.Equal(t, `{"err_code":"INVALID_AUTH"}`, Body(err))
	assert.Equal(t, "transcribe: deepgram returned status 401", err.Error())

	assert.Equal(t, 0, StatusCode(errors.New("plain")))
	assert.Empty(t, Body(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := &Error{Provider: "openai", Cause: cause}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "openai request failed")
}

func TestMissingCredential(t *testing.T) {
	err := MissingCredential("deepgram", "DEEPGRAM_API_KEY")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "DEEPGRAM_API_KEY")
}

func TestGuardRateLimit(t *testing.T) {
	g := NewGuard(0.001, 2, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		release, err := g.Acquire(ctx)
		require.NoError(t, err)
		release()
	}

	_, err := g.Acquire(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGuardConcurrency(t *testing.T) {
	g := NewGuard(1000, 1000, 1)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}
