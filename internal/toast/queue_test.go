package toast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestQueue_EvictsOldest(t *testing.T) {
	q := NewQueue(nil)

	var added []Toast
	for i := range 6 {
		added = append(added, q.Add(fmt.Sprintf("toast %d", i), Info, 0))
		assert.LessOrEqual(t, q.Len(), MaxToasts)
	}

	list := q.List()
	require.Len(t, list, MaxToasts)
	assert.Equal(t, added[1].ID, list[0].ID, "first toast evicted")
	assert.Equal(t, added[5].ID, list[4].ID)
}

func TestQueue_Defaults(t *testing.T) {
	q := NewQueue(nil)
	tt := q.Add("saved", "", 0)

	assert.Equal(t, DefaultDuration, tt.Duration)
	assert.Equal(t, Info, tt.Type)
	assert.Len(t, tt.ID, 36)
	assert.NotEqual(t, tt.ID, q.Add("again", Success, 0).ID)
}

func TestQueue_Expire(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	q := NewQueue(clock.now)

	short := q.Add("short", Warning, time.Second)
	long := q.Add("long", Error, 10*time.Second)

	clock.advance(500 * time.Millisecond)
	assert.Equal(t, 0, q.Expire())
	assert.InDelta(t, 0.5, short.Remaining(clock.now()), 0.001)

	clock.advance(time.Second)
	assert.Equal(t, 1, q.Expire())

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, long.ID, list[0].ID)
	assert.InDelta(t, 0.85, long.Remaining(clock.now()), 0.001)
}

func TestQueue_Dismiss(t *testing.T) {
	q := NewQueue(nil)
	a := q.Add("a", Info, 0)
	b := q.Add("b", Info, 0)

	assert.True(t, q.Dismiss(a.ID))
	assert.False(t, q.Dismiss(a.ID))
	assert.Equal(t, []string{b.ID}, ids(q.List()))
}

func TestQueue_ListIsACopy(t *testing.T) {
	q := NewQueue(nil)
	q.Add("a", Info, 0)
	list := q.List()
	list[0].Message = "mutated"
	assert.Equal(t, "a", q.List()[0].Message)
}

func TestRemaining_Bounds(t *testing.T) {
	now := time.Now()
	tt := Toast{Duration: time.Second, CreatedAt: now}
	assert.Equal(t, 1.0, tt.Remaining(now.Add(-time.Second)))
	assert.Equal(t, 0.0, tt.Remaining(now.Add(2*time.Second)))
	assert.True(t, tt.Expired(now.Add(time.Second)))
}

func ids(ts []Toast) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
