package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

func TestSession_EntityIDUnknownUntilJoin(t *testing.T) {
	s := New(uuid.New(), "Steve", protocol.V1_17, nil)
	assert.Equal(t, UnknownEntityID, s.EntityID())

	s.SetEntityID(77)
	assert.Equal(t, int32(77), s.EntityID())
}

func TestSession_UnknownEntityIDIsNotASentinel(t *testing.T) {
	assert.NotEqual(t, protocol.DetachHoldingID, UnknownEntityID)
	assert.Less(t, UnknownEntityID, protocol.DetachHoldingID)
}

func TestSession_Vehicle(t *testing.T) {
	s := New(uuid.New(), "Steve", protocol.V1_17, nil)
	_, riding := s.Vehicle()
	assert.False(t, riding)

	s.SetVehicle(5)
	id, riding := s.Vehicle()
	assert.True(t, riding)
	assert.Equal(t, int32(5), id)

	assert.False(t, s.LeaveVehicle(6), "not riding that vehicle")
	assert.True(t, s.LeaveVehicle(5))
	assert.False(t, s.LeaveVehicle(5), "already left")
	_, riding = s.Vehicle()
	assert.False(t, riding)
}

func TestSession_SendPacketSilently(t *testing.T) {
	var sent []protocol.Packet
	s := New(uuid.New(), "Alex", protocol.V1_8, func(p protocol.Packet) error {
		sent = append(sent, p)
		return nil
	})

	require.NoError(t, s.SendPacketSilently(&protocol.JoinGame{EntityID: 1}))
	assert.Len(t, sent, 1)

	closed := New(uuid.New(), "Gone", protocol.V1_8, nil)
	assert.ErrorIs(t, closed.SendPacketSilently(&protocol.JoinGame{}), ErrClosed)
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	first := New(id, "Steve", protocol.V1_17, nil)
	assert.Nil(t, r.Add(first))
	assert.Equal(t, 1, r.Len())

	second := New(id, "Steve", protocol.V1_17, nil)
	assert.Same(t, first, r.Add(second), "reconnect replaces the previous session")

	// A stale session closing must not evict its replacement.
	r.Remove(first)
	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Same(t, second, got)

	r.Remove(second)
	assert.Equal(t, 0, r.Len())
}
