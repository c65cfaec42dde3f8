package logsink

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendSetsTimestamp(t *testing.T) {
	t.Parallel()

	s := New(10)
	before := time.Now()
	s.Append("hello")

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Text)
	assert.False(t, entries[0].Time.Before(before))
}

func TestAppendEntryKeepsTimestamp(t *testing.T) {
	t.Parallel()

	s := New(10)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.AppendEntry(Entry{Text: "stamped", Time: ts})

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ts, entries[0].Time)
}

func TestCapEvictsOldest(t *testing.T) {
	t.Parallel()

	s := New(3)
	for i := range 5 {
		s.Append(fmt.Sprintf("line %d", i))
	}

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "line 2", entries[0].Text)
	assert.Equal(t, "line 4", entries[2].Text)
}

func TestSubscribersSeeAppendOrder(t *testing.T) {
	t.Parallel()

	s := New(10)
	var seen []string
	s.Subscribe(func(e Entry) { seen = append(seen, e.Text) })

	s.Append("a")
	s.Append("b")

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSubscriberMayAppend(t *testing.T) {
	t.Parallel()

	s := New(10)
	first := true
	s.Subscribe(func(e Entry) {
		if first {
			first = false
			s.Append("echo")
		}
	})

	s.Append("ping")
	assert.Equal(t, 2, s.Len())
}
