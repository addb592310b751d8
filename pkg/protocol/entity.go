package protocol

// EntityType is the namespaced registry name of an entity type, e.g. "minecraft:wolf".
type EntityType string

const (
	TypePlayer      EntityType = "minecraft:player"
	TypeWolf        EntityType = "minecraft:wolf"
	TypeIronGolem   EntityType = "minecraft:iron_golem"
	TypeWither      EntityType = "minecraft:wither"
	TypeEnderDragon EntityType = "minecraft:ender_dragon"
)

var livingTypes = newTypeSet(
	"allay", "armadillo", "armor_stand", "axolotl", "bat", "bee", "blaze", "bogged",
	"breeze", "camel", "cat", "cave_spider", "chicken", "cod", "cow", "creaking",
	"creeper", "dolphin", "donkey", "drowned", "elder_guardian", "ender_dragon",
	"enderman", "endermite", "evoker", "fox", "frog", "ghast", "giant", "glow_squid",
	"goat", "guardian", "hoglin", "horse", "husk", "illusioner", "iron_golem", "llama",
	"magma_cube", "mooshroom", "mule", "ocelot", "panda", "parrot", "phantom", "pig",
	"piglin", "piglin_brute", "pillager", "player", "polar_bear", "pufferfish",
	"rabbit", "ravager", "salmon", "sheep", "shulker", "silverfish", "skeleton",
	"skeleton_horse", "slime", "sniffer", "snow_golem", "spider", "squid", "stray",
	"strider", "tadpole", "trader_llama", "tropical_fish", "turtle", "vex", "villager",
	"vindicator", "wandering_trader", "warden", "witch", "wither", "wither_skeleton",
	"wolf", "zoglin", "zombie", "zombie_horse", "zombie_villager", "zombified_piglin",
)

// Entities a player can ride and steer.
var ridableTypes = newTypeSet(
	"camel", "donkey", "horse", "llama", "mule", "pig", "skeleton_horse", "strider",
	"trader_llama", "zombie_horse",
)

func newTypeSet(names ...string) map[EntityType]struct{} {
	set := make(map[EntityType]struct{}, len(names))
	for _, n := range names {
		set[EntityType("minecraft:"+n)] = struct{}{}
	}
	return set
}

// IsLiving reports whether the type is a living entity carrying health metadata.
func (t EntityType) IsLiving() bool {
	_, ok := livingTypes[t]
	return ok
}

// IsRidable reports whether the type can carry a steering passenger.
func (t EntityType) IsRidable() bool {
	_, ok := ridableTypes[t]
	return ok
}

// IsBoss reports whether the type shows a boss bar; its health is never hidden.
func (t EntityType) IsBoss() bool {
	return t == TypeWither || t == TypeEnderDragon
}
