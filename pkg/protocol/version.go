package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a game release in the 1.x line.
type Version struct {
	Minor int
	Patch int
}

var (
	V1_8  = Version{Minor: 8}
	V1_9  = Version{Minor: 9}
	V1_10 = Version{Minor: 10}
	V1_14 = Version{Minor: 14}
	V1_15 = Version{Minor: 15}
	V1_17 = Version{Minor: 17}
)

// ParseVersion parses "1.20.4" style release names.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "1" {
		return Version{}, fmt.Errorf("invalid game version %q", s)
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 8 {
		return Version{}, fmt.Errorf("invalid game version %q", s)
	}

	v := Version{Minor: minor}
	if len(parts) == 3 {
		v.Patch, err = strconv.Atoi(parts[2])
		if err != nil || v.Patch < 0 {
			return Version{}, fmt.Errorf("invalid game version %q", s)
		}
	}
	return v, nil
}

func (v Version) String() string {
	if v.Patch == 0 {
		return fmt.Sprintf("1.%d", v.Minor)
	}
	return fmt.Sprintf("1.%d.%d", v.Minor, v.Patch)
}

// AtLeast reports whether v is the same release as o or newer.
func (v Version) AtLeast(o Version) bool {
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Patch >= o.Patch
}

// SupportsHealthTextures reports whether the client renders damage textures
// for iron golems, which makes the stepped golem health meaningful.
func (v Version) SupportsHealthTextures() bool {
	return v.AtLeast(V1_15)
}

// MetadataIndices holds the metadata slot numbers for one protocol range.
type MetadataIndices struct {
	AirTicks   uint8
	Health     uint8
	Absorption uint8
	XP         uint8
	TameFlags  uint8
	Owner      uint8
}

// IndicesFor returns the metadata layout used by the given version.
func IndicesFor(v Version) MetadataIndices {
	switch {
	case v.AtLeast(V1_17):
		return MetadataIndices{AirTicks: 1, Health: 9, Absorption: 15, XP: 16, TameFlags: 17, Owner: 18}
	case v.AtLeast(V1_15):
		return MetadataIndices{AirTicks: 1, Health: 8, Absorption: 14, XP: 15, TameFlags: 16, Owner: 17}
	case v.AtLeast(V1_14):
		return MetadataIndices{AirTicks: 1, Health: 8, Absorption: 13, XP: 14, TameFlags: 15, Owner: 16}
	case v.AtLeast(V1_10):
		return MetadataIndices{AirTicks: 1, Health: 7, Absorption: 11, XP: 12, TameFlags: 13, Owner: 14}
	case v.AtLeast(V1_9):
		return MetadataIndices{AirTicks: 1, Health: 6, Absorption: 10, XP: 11, TameFlags: 12, Owner: 13}
	default:
		return MetadataIndices{AirTicks: 1, Health: 6, Absorption: 17, XP: 18, TameFlags: 16, Owner: 17}
	}
}

// TamedBit is set in the tameable flags byte once a wolf has an owner.
const TamedBit = 0x04
