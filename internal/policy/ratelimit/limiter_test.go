package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitsBetweenRequests(t *testing.T) {
	t.Parallel()
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://medlineplus.gov/druginfo/meds/a1.html"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://medlineplus.gov/druginfo/meds/a2.html"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	t.Parallel()
	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example/1"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()
	l := New(Config{})
	ctx := context.Background()

	start := time.Now()
	for range 50 {
		require.NoError(t, l.Wait(ctx, "https://medlineplus.gov/x"))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	t.Parallel()
	l := New(Config{RPS: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://medlineplus.gov/x"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://medlineplus.gov/y"))
}

func TestHostOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "medlineplus.gov", hostOf("https://medlineplus.gov/druginfo/meds/a1.html"))
	assert.Equal(t, "unknown", hostOf("::bad"))
	assert.Equal(t, "unknown", hostOf("relative/path"))
}
