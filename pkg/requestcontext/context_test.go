package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "harvestcert/pkg/domain"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Caller(ctx).IsNil())
	assert.Empty(t, RequestID(ctx))

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx = WithTime(WithRequestID(WithCaller(ctx, "bob"), "req-1"), fixed)

	assert.Equal(t, id.Identity("bob"), Caller(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}

func TestNowFallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}
