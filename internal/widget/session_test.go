package widget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type gaugeStub struct{ last int }

func (g *gaugeStub) SetActiveSessions(n int) { g.last = n }

func TestSessionsExpireIdleEntries(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	gauge := &gaugeStub{}
	s := NewSessions(10*time.Minute, gauge)
	s.now = func() time.Time { return now }

	a := s.Add(nil, nil)
	b := s.Add(nil, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, gauge.last)

	now = now.Add(8 * time.Minute)
	_, ok := s.Get(a.ID)
	assert.True(t, ok, "get refreshes last use")

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, gauge.last)
	_, ok = s.Get(b.ID)
	assert.False(t, ok)

	now = now.Add(11 * time.Minute)
	_, ok = s.Get(a.ID)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestSessionsRunStopsWithContext(t *testing.T) {
	s := NewSessions(0, nil)
	s.Add(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, s.Len(), "zero ttl never expires")
}
