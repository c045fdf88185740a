package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantSetIsIdempotent(t *testing.T) {
	s := NewParticipantSet()
	s.Upsert("agent-1")
	s.Upsert("agent-1")
	assert.Equal(t, []string{"agent-1"}, s.Snapshot())

	s.Remove("agent-1")
	s.Remove("agent-1")
	assert.Empty(t, s.Snapshot())
}

func TestParticipantSetSnapshotSorted(t *testing.T) {
	s := NewParticipantSet()
	s.Upsert("b")
	s.Upsert("a")
	s.Upsert("c")
	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}
