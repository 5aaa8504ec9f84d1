package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimitersForgetIdleClients(t *testing.T) {
	t.Parallel()
	l := newIPLimiters(0.001, 1)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("10.0.0.1", now))
	assert.False(t, l.allow("10.0.0.1", now.Add(time.Second)))
	assert.True(t, l.allow("10.0.0.2", now.Add(time.Second)))
	assert.Equal(t, 2, l.len())

	// 10.0.0.2 stays active, 10.0.0.1 goes quiet.
	later := now.Add(limiterIdle / 2)
	assert.False(t, l.allow("10.0.0.2", later))
	later = now.Add(limiterIdle + 2*time.Minute)
	assert.True(t, l.allow("10.0.0.3", later))
	assert.Equal(t, 2, l.len())

	// A forgotten client starts over with a full bucket.
	assert.True(t, l.allow("10.0.0.1", later))
}
