// Package session tracks the viewers whose outbound traffic is being inspected.
package session

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

// UnknownEntityID is reported before the viewer's join packet was seen. It
// differs from every id and sentinel a packet carries.
const UnknownEntityID int32 = math.MinInt32

// ErrClosed is returned when sending to a session whose connection is gone.
var ErrClosed = errors.New("session closed")

// Viewer is the receiving side of an outbound packet.
type Viewer interface {
	EntityID() int32
	UUID() uuid.UUID
	Name() string
	Version() protocol.Version
	// SendPacketSilently delivers a packet to the client without passing it
	// back through the interception pipeline.
	SendPacketSilently(p protocol.Packet) error

	// Vehicle is the vehicle the viewer rides according to its own packets.
	Vehicle() (int32, bool)
	SetVehicle(id int32)
	// LeaveVehicle forgets the vehicle if it is id and reports whether it was.
	LeaveVehicle(id int32) bool
}

// SendFunc writes a packet to the viewer's client.
type SendFunc func(protocol.Packet) error

// Session is a connected viewer.
type Session struct {
	id       uuid.UUID
	name     string
	version  protocol.Version
	entityID atomic.Int32
	send     SendFunc

	mu      sync.Mutex
	vehicle int32
	riding  bool
}

func New(id uuid.UUID, name string, version protocol.Version, send SendFunc) *Session {
	s := &Session{id: id, name: name, version: version, send: send}
	s.entityID.Store(UnknownEntityID)
	return s
}

func (s *Session) EntityID() int32          { return s.entityID.Load() }
func (s *Session) UUID() uuid.UUID          { return s.id }
func (s *Session) Name() string             { return s.name }
func (s *Session) Version() protocol.Version { return s.version }

// SetEntityID records the viewer's own entity id from its join packet.
func (s *Session) SetEntityID(id int32) {
	s.entityID.Store(id)
}

func (s *Session) Vehicle() (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicle, s.riding
}

func (s *Session) SetVehicle(id int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicle, s.riding = id, true
}

func (s *Session) LeaveVehicle(id int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.riding || s.vehicle != id {
		return false
	}
	s.vehicle, s.riding = 0, false
	return true
}

func (s *Session) SendPacketSilently(p protocol.Packet) error {
	if s.send == nil {
		return ErrClosed
	}
	return s.send(p)
}

// Registry holds the sessions currently connected.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers s, returning the session it replaced, if any.
func (r *Registry) Add(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.id]
	r.sessions[s.id] = s
	return prev
}

// Remove unregisters s if it is still the current session for its uuid.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.id]; ok && cur == s {
		delete(r.sessions, s.id)
	}
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
