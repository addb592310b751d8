package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

// Message type constants matching the bridge protocol.
const (
	TypeHello   = "hello"   // proxy -> filter, first message on a connection
	TypePacket  = "packet"  // proxy -> filter, an outbound packet to inspect
	TypeForward = "forward" // filter -> proxy, the packet to deliver
	TypeInject  = "inject"  // filter -> proxy, a synthetic packet to deliver
	TypeAck     = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the filter's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload identifies the viewer a connection carries traffic for.
type HelloPayload struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// PacketPayload carries one packet. Seq is echoed on the matching forward
// and is zero on injected packets. Data is the packet body understood by
// protocol.Decode; packet types the filter does not know are forwarded
// as-is.
type PacketPayload struct {
	Seq        uint64              `json:"seq"`
	PacketType protocol.PacketType `json:"packetType"`
	Data       json.RawMessage     `json:"data"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// EncodePacket wraps p into a PacketPayload.
func EncodePacket(seq uint64, p protocol.Packet) (PacketPayload, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return PacketPayload{}, fmt.Errorf("marshal %s packet: %w", p.PacketType(), err)
	}
	return PacketPayload{Seq: seq, PacketType: p.PacketType(), Data: data}, nil
}
