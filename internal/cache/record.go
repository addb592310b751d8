package cache

import (
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
	"github.com/google/uuid"
)

// Kind is the closed set of record variants.
type Kind uint8

const (
	KindLiving Kind = iota
	KindWolf
	KindRidable
	KindPlayer
)

func (k Kind) String() string {
	switch k {
	case KindLiving:
		return "living"
	case KindWolf:
		return "wolf"
	case KindRidable:
		return "ridable"
	case KindPlayer:
		return "player"
	}
	return "unknown"
}

// DefaultVehicleHealth is reported for vehicles whose health was never observed.
const DefaultVehicleHealth float32 = 0.5

// WolfData is the payload of KindWolf records.
type WolfData struct {
	Tamed bool
	Owner uuid.UUID // uuid.Nil when unowned
}

// OwnedBy reports whether the wolf is tamed by the given player.
func (w WolfData) OwnedBy(id uuid.UUID) bool {
	return w.Tamed && w.Owner != uuid.Nil && w.Owner == id
}

// Record is the cached state of one entity. The passenger relation is only
// changed through EntityCache.SetPassenger and ClearPassenger so the reverse
// index stays in sync.
type Record struct {
	Kind Kind
	Type protocol.EntityType

	// Wolf is meaningful only when Kind is KindWolf.
	Wolf WolfData

	passenger   int32
	mounted     bool
	health      float32
	healthKnown bool
}

// NewRecord builds a record of the variant matching the entity type.
func NewRecord(t protocol.EntityType) Record {
	return Record{Kind: Classify(t), Type: t}
}

// NewPlayerRecord builds the record created for join packets.
func NewPlayerRecord() Record {
	return Record{Kind: KindPlayer, Type: protocol.TypePlayer}
}

// Classify maps an entity type to its record variant.
func Classify(t protocol.EntityType) Kind {
	switch {
	case t == protocol.TypeWolf:
		return KindWolf
	case t == protocol.TypePlayer:
		return KindPlayer
	case t.IsRidable():
		return KindRidable
	default:
		return KindLiving
	}
}

// Passenger returns the id of the entity riding this one.
func (r Record) Passenger() (int32, bool) {
	return r.passenger, r.mounted
}

// Health returns the last observed real health, or DefaultVehicleHealth.
func (r Record) Health() float32 {
	if !r.healthKnown {
		return DefaultVehicleHealth
	}
	return r.health
}

// SetHealth records the real health value seen in outbound metadata.
func (r *Record) SetHealth(h float32) {
	r.health = h
	r.healthKnown = true
}
