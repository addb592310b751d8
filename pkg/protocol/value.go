package protocol

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Kind identifies the concrete wire representation carried by a metadata value.
type Kind uint8

const (
	KindByte Kind = iota
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBool
	KindString
	KindOptUUID
)

var kindNames = map[Kind]string{
	KindByte:    "byte",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBool:    "bool",
	KindString:  "string",
	KindOptUUID: "optuuid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a kind by its wire name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown value kind %q", name)
}

// Numeric reports whether the kind carries an integer or floating point number.
func (k Kind) Numeric() bool {
	switch k {
	case KindByte, KindShort, KindInt, KindLong, KindFloat, KindDouble:
		return true
	default:
		return false
	}
}

// Value is a metadata value tagged with its own kind. Integers are held in i,
// floats in f, so rewriting a value never changes its wire representation.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	u    uuid.UUID
}

func Byte(v int8) Value         { return Value{kind: KindByte, i: int64(v)} }
func Short(v int16) Value       { return Value{kind: KindShort, i: int64(v)} }
func Int(v int32) Value         { return Value{kind: KindInt, i: int64(v)} }
func Long(v int64) Value        { return Value{kind: KindLong, i: v} }
func Float(v float32) Value     { return Value{kind: KindFloat, f: float64(v)} }
func Double(v float64) Value    { return Value{kind: KindDouble, f: v} }
func String(v string) Value     { return Value{kind: KindString, s: v} }
func OptUUID(v uuid.UUID) Value { return Value{kind: KindOptUUID, u: v} }

func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Kind returns the wire representation of the value.
func (v Value) Kind() Kind { return v.kind }

// Int64 returns the value as an integer. Floats are truncated.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindFloat, KindDouble:
		return int64(v.f)
	default:
		return v.i
	}
}

// Float32 returns the value as a float. Non-numeric kinds yield 0.
func (v Value) Float32() float32 {
	switch v.kind {
	case KindByte, KindShort, KindInt, KindLong:
		return float32(v.i)
	case KindFloat, KindDouble:
		return float32(v.f)
	default:
		return 0
	}
}

// Str returns the string payload of a KindString value.
func (v Value) Str() string { return v.s }

// UUID returns the identity carried by an optional uuid value. An absent
// optional is encoded as uuid.Nil.
func (v Value) UUID() (uuid.UUID, bool) {
	switch v.kind {
	case KindOptUUID:
		return v.u, v.u != uuid.Nil
	case KindString:
		id, err := uuid.Parse(v.s)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}

// WithNumber re-encodes n in the value's own kind. Non-numeric values are
// returned unchanged.
func (v Value) WithNumber(n float64) Value {
	switch v.kind {
	case KindByte:
		return Byte(int8(n))
	case KindShort:
		return Short(int16(n))
	case KindInt:
		return Int(int32(n))
	case KindLong:
		return Long(int64(n))
	case KindFloat:
		return Float(float32(n))
	case KindDouble:
		return Double(n)
	case KindBool, KindString, KindOptUUID:
		return v
	}
	return v
}

type wireValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindByte, KindShort, KindInt, KindLong:
		payload = v.i
	case KindFloat, KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("metadata %s value is not finite", v.kind)
		}
		payload = v.f
	case KindBool:
		payload = v.i != 0
	case KindString:
		payload = v.s
	case KindOptUUID:
		if v.u == uuid.Nil {
			payload = nil
		} else {
			payload = v.u.String()
		}
	default:
		return nil, fmt.Errorf("cannot encode metadata %s", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Kind: v.kind.String(), Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseKind(w.Kind)
	if err != nil {
		return err
	}

	switch kind {
	case KindByte, KindShort, KindInt, KindLong:
		var n int64
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		*v = Value{kind: kind, i: n}
	case KindFloat, KindDouble:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		if kind == KindFloat {
			f = float64(float32(f))
		}
		*v = Value{kind: kind, f: f}
	case KindBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		*v = Bool(b)
	case KindString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		*v = String(s)
	case KindOptUUID:
		var s *string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		if s == nil {
			*v = OptUUID(uuid.Nil)
			return nil
		}
		id, err := uuid.Parse(*s)
		if err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		*v = OptUUID(id)
	}
	return nil
}

// Field is one indexed metadata slot.
type Field struct {
	Index uint8 `json:"index"`
	Value Value `json:"value"`
}
