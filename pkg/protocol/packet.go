package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PacketType names a server-bound-to-client play packet.
type PacketType string

const (
	TypeJoinGame          PacketType = "join_game"
	TypeSpawnLivingEntity PacketType = "spawn_living_entity"
	TypeSpawnEntity       PacketType = "spawn_entity"
	TypeEntityMetadata    PacketType = "entity_metadata"
	TypeSetPassengers     PacketType = "set_passengers"
	TypeAttachEntity      PacketType = "attach_entity"
	TypeDestroyEntities   PacketType = "destroy_entities"
)

// ErrUnknownPacket is returned by Decode for packet types this module does not inspect.
var ErrUnknownPacket = errors.New("unknown packet type")

// Packet is a decoded outbound packet.
type Packet interface {
	PacketType() PacketType
}

// JoinGame announces the viewer's own entity id.
type JoinGame struct {
	EntityID int32 `json:"entityId"`
}

type SpawnLivingEntity struct {
	EntityID   int32      `json:"entityId"`
	EntityType EntityType `json:"entityType"`
}

// SpawnEntity spawns any entity type; only living ones are tracked.
type SpawnEntity struct {
	EntityID   int32      `json:"entityId"`
	EntityType EntityType `json:"entityType"`
}

type EntityMetadata struct {
	EntityID int32   `json:"entityId"`
	Fields   []Field `json:"fields"`
}

type SetPassengers struct {
	VehicleID  int32   `json:"vehicleId"`
	Passengers []int32 `json:"passengers"`
}

// AttachEntity is the pre-1.9 mount packet. HoldingID is DetachHoldingID
// when the attached entity dismounts. Leash attaches share the packet and
// set Leash.
type AttachEntity struct {
	AttachedID int32 `json:"attachedId"`
	HoldingID  int32 `json:"holdingId"`
	Leash      bool  `json:"leash,omitempty"`
}

// DetachHoldingID is the holding id sent on dismount.
const DetachHoldingID int32 = -1

type DestroyEntities struct {
	EntityIDs []int32 `json:"entityIds"`
}

func (*JoinGame) PacketType() PacketType          { return TypeJoinGame }
func (*SpawnLivingEntity) PacketType() PacketType { return TypeSpawnLivingEntity }
func (*SpawnEntity) PacketType() PacketType       { return TypeSpawnEntity }
func (*EntityMetadata) PacketType() PacketType    { return TypeEntityMetadata }
func (*SetPassengers) PacketType() PacketType     { return TypeSetPassengers }
func (*AttachEntity) PacketType() PacketType      { return TypeAttachEntity }
func (*DestroyEntities) PacketType() PacketType   { return TypeDestroyEntities }

// Decode parses the JSON body of a packet of the given type.
func Decode(t PacketType, data []byte) (Packet, error) {
	var p Packet
	switch t {
	case TypeJoinGame:
		p = &JoinGame{}
	case TypeSpawnLivingEntity:
		p = &SpawnLivingEntity{}
	case TypeSpawnEntity:
		p = &SpawnEntity{}
	case TypeEntityMetadata:
		p = &EntityMetadata{}
	case TypeSetPassengers:
		p = &SetPassengers{}
	case TypeAttachEntity:
		p = &AttachEntity{}
	case TypeDestroyEntities:
		p = &DestroyEntities{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPacket, t)
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return p, nil
}
