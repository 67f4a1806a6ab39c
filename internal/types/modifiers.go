package types

import "strings"

// Modifiers is a set of declaration modifiers.
type Modifiers uint16

const (
	ModStatic Modifiers = 1 << iota
	ModAbstract
	ModPartial
	ModAsync
	ModVirtual
	ModOverride
	ModSealed
	ModReadonly
	ModConst
	ModExtern
	ModExported
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModStatic, "static"},
	{ModAbstract, "abstract"},
	{ModPartial, "partial"},
	{ModAsync, "async"},
	{ModVirtual, "virtual"},
	{ModOverride, "override"},
	{ModSealed, "sealed"},
	{ModReadonly, "readonly"},
	{ModConst, "const"},
	{ModExtern, "extern"},
	{ModExported, "exported"},
}

// ParseModifier maps a source keyword to its modifier. Java's "final" maps to
// sealed; unknown keywords return 0.
func ParseModifier(keyword string) Modifiers {
	switch keyword {
	case "final":
		return ModSealed
	case "default":
		return ModVirtual
	}
	for _, m := range modifierNames {
		if m.name == keyword {
			return m.mod
		}
	}
	return 0
}

func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod != 0
}

// Names lists the modifiers in declaration order.
func (m Modifiers) Names() []string {
	var names []string
	for _, entry := range modifierNames {
		if m.Has(entry.mod) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (m Modifiers) String() string {
	return strings.Join(m.Names(), " ")
}
