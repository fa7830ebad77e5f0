package osm2zoning

import (
	"github.com/paulmach/osm"
)

type TransitMode uint16

const (
	MODE_BUS = TransitMode(iota + 1)
	MODE_TRAM
	MODE_TRAIN
	MODE_SUBWAY
	MODE_LIGHT_RAIL
	MODE_FERRY
)

func (iotaIdx TransitMode) String() string {
	return [...]string{"bus", "tram", "train", "subway", "light_rail", "ferry"}[iotaIdx-1]
}

type ModeCategory uint16

const (
	CATEGORY_ROAD = ModeCategory(iota + 1)
	CATEGORY_RAIL
	CATEGORY_WATER
)

func (iotaIdx ModeCategory) String() string {
	return [...]string{"road", "rail", "water"}[iotaIdx-1]
}

// Category returns broad infrastructure category for given transit mode
func (mode TransitMode) Category() ModeCategory {
	switch mode {
	case MODE_BUS:
		return CATEGORY_ROAD
	case MODE_TRAM, MODE_TRAIN, MODE_SUBWAY, MODE_LIGHT_RAIL:
		return CATEGORY_RAIL
	case MODE_FERRY:
		return CATEGORY_WATER
	default:
		panic("Should not happen!")
	}
}

var (
	// Per-mode access tags on stops and platforms, e.g. `bus=yes`
	modeAccessTags = map[string]TransitMode{
		"bus":        MODE_BUS,
		"trolleybus": MODE_BUS,
		"share_taxi": MODE_BUS,
		"tram":       MODE_TRAM,
		"train":      MODE_TRAIN,
		"subway":     MODE_SUBWAY,
		"light_rail": MODE_LIGHT_RAIL,
		"ferry":      MODE_FERRY,
	}

	// Railway track values mapped to the mode running on such track
	railwayTrackModes = map[string]TransitMode{
		"rail":         MODE_TRAIN,
		"narrow_gauge": MODE_TRAIN,
		"tram":         MODE_TRAM,
		"subway":       MODE_SUBWAY,
		"light_rail":   MODE_LIGHT_RAIL,
	}

	// Mode-ish tag values which are recognized but have no supported mode mapping.
	// Entities carrying only these must not become transfer zones, but their
	// identifiers are still valid references inside stop area relations.
	unsupportedModeValues = map[string]struct{}{
		"monorail":  {},
		"funicular": {},
		"aerialway": {},
		"cable_car": {},
		"gondola":   {},
		"miniature": {},
	}
)

// modesFromAccessTags collects transit modes from explicit per-mode access tags (`bus=yes` and alike)
func modesFromAccessTags(tags osm.Tags) []TransitMode {
	modes := []TransitMode{}
	for _, tagValue := range []string{"bus", "trolleybus", "share_taxi", "tram", "train", "subway", "light_rail", "ferry"} {
		value := tags.Find(tagValue)
		if value != "yes" && value != "designated" {
			continue
		}
		modes = appendModeUnique(modes, modeAccessTags[tagValue])
	}
	return modes
}

// hasUnsupportedModeTags reports whether entity carries recognized mode tags outside of the supported set
func hasUnsupportedModeTags(tags osm.Tags) bool {
	if _, ok := unsupportedModeValues[tags.Find("railway")]; ok {
		return true
	}
	if _, ok := unsupportedModeValues[tags.Find("station")]; ok {
		return true
	}
	for value := range unsupportedModeValues {
		if tags.Find(value) == "yes" {
			return true
		}
	}
	return false
}

func appendModeUnique(modes []TransitMode, mode TransitMode) []TransitMode {
	for _, existing := range modes {
		if existing == mode {
			return modes
		}
	}
	return append(modes, mode)
}

// modesOverlap reports whether two mode sets share at least one exact mode
func modesOverlap(first, second []TransitMode) bool {
	for _, a := range first {
		for _, b := range second {
			if a == b {
				return true
			}
		}
	}
	return false
}

// categoriesOverlap reports whether two mode sets share at least one broad category (road/rail/water)
func categoriesOverlap(first, second []TransitMode) bool {
	for _, a := range first {
		for _, b := range second {
			if a.Category() == b.Category() {
				return true
			}
		}
	}
	return false
}

// mergeModes returns union of two mode sets preserving order of the first one
func mergeModes(first, second []TransitMode) []TransitMode {
	merged := make([]TransitMode, len(first))
	copy(merged, first)
	for _, mode := range second {
		merged = appendModeUnique(merged, mode)
	}
	return merged
}

// containsRailMode reports whether any mode of the set runs on rail infrastructure
func containsRailMode(modes []TransitMode) bool {
	for _, mode := range modes {
		if mode.Category() == CATEGORY_RAIL {
			return true
		}
	}
	return false
}

// parseModeNames maps textual mode names (configuration surface) to transit modes
func parseModeNames(names []string) []TransitMode {
	modes := []TransitMode{}
	for _, name := range names {
		if mode, ok := modeAccessTags[name]; ok {
			modes = appendModeUnique(modes, mode)
		}
	}
	return modes
}
