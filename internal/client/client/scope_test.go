package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestScope_SupersededRequestIsCanceled(t *testing.T) {
	var s RequestScope

	first, releaseFirst := s.Begin(context.Background())
	second, releaseSecond := s.Begin(context.Background())

	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, second.Err())

	// releasing a superseded request must not drop the current one
	releaseFirst()
	s.Cancel()
	assert.ErrorIs(t, second.Err(), context.Canceled)

	releaseSecond()
	s.Cancel()
}

func TestRequestScope_ReleaseCancelsOwnContext(t *testing.T) {
	var s RequestScope

	ctx, release := s.Begin(context.Background())
	release()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
