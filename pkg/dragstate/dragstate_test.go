package dragstate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetAndClear(t *testing.T) {
	s := New()

	_, active := s.Current()
	assert.False(t, active)

	id := uuid.New()
	s.Set(id)
	got, active := s.Current()
	assert.True(t, active)
	assert.Equal(t, id, got)

	s.Clear()
	got, active = s.Current()
	assert.False(t, active)
	assert.Equal(t, uuid.Nil, got)
}

func TestListenersObserveTransitions(t *testing.T) {
	s := New()

	type event struct {
		id     uuid.UUID
		active bool
	}
	var seen []event
	s.Subscribe(func(cellId uuid.UUID, active bool) {
		seen = append(seen, event{cellId, active})
	})

	id := uuid.New()
	s.Set(id)
	s.Clear()

	assert.Equal(t, []event{{id, true}, {id, false}}, seen,
		"clear reports the cell the drag was on")
}
