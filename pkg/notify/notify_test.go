package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeed_AutoDismiss(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFeed(3 * time.Second).WithClock(func() time.Time { return now })

	f.Notify("first")
	now = now.Add(2 * time.Second)
	f.Notify("second")

	active := f.Active()
	assert.Len(t, active, 2)

	now = now.Add(1500 * time.Millisecond)
	active = f.Active()
	if assert.Len(t, active, 1) {
		assert.Equal(t, "second", active[0].Message)
	}

	now = now.Add(time.Hour)
	assert.Empty(t, f.Active())
	assert.Len(t, f.History(), 2)

	f.Clear()
	assert.Empty(t, f.History())
}

func TestFanout(t *testing.T) {
	var a, b []string
	sink := Fanout{
		SinkFunc(func(m string) { a = append(a, m) }),
		nil,
		SinkFunc(func(m string) { b = append(b, m) }),
	}

	sink.Notify("cop2: STOP SNIFFING GLUE")
	Discard.Notify("ignored")

	assert.Equal(t, []string{"cop2: STOP SNIFFING GLUE"}, a)
	assert.Equal(t, a, b)
}
