package osm2zoning

var (
	// Values of `public_transport` key (role/relation based tagging scheme)
	ptv2WaitingAreaValues = map[string]struct{}{
		"platform": {},
	}

	ptv2StopPositionValues = map[string]struct{}{
		"stop_position": {},
	}

	ptv2StationValues = map[string]struct{}{
		"station": {},
	}

	ptv2StopAreaValues = map[string]struct{}{
		"stop_area":       {},
		"stop_area_group": {},
	}

	// Values of `highway` key marking waiting areas in the legacy point-based scheme
	ptv1HighwayWaitingAreaValues = map[string]struct{}{
		"bus_stop": {},
		"platform": {},
	}

	// Values of `railway` key marking waiting areas in the legacy point-based scheme
	ptv1RailwayWaitingAreaValues = map[string]struct{}{
		"platform": {},
		"halt":     {},
	}

	// Legacy values of `railway` key placed on the track itself, i.e. potential stop positions
	ptv1RailwayStopValues = map[string]struct{}{
		"tram_stop": {},
		"stop":      {},
	}

	ptv1StationValues = map[string]struct{}{
		"station": {},
	}

	// Values of `amenity` key marking waiting areas (water based transit)
	ptv1AmenityWaitingAreaValues = map[string]struct{}{
		"ferry_terminal": {},
	}

	// Relation roles referring to a waiting area
	platformRoles = map[string]struct{}{
		"platform":            {},
		"platform_entry_only": {},
		"platform_exit_only":  {},
	}

	// Relation roles referring to a stop position
	stopRoles = map[string]struct{}{
		"stop":            {},
		"stop_entry_only": {},
		"stop_exit_only":  {},
	}

	// Keys carrying platform reference codes, in lookup priority order.
	// A single value may hold several codes separated by `;`.
	refKeysPriority = []string{"ref", "loc_ref", "local_ref"}

	// Highway values of ways the bus mode may run on
	busHighwayValues = map[string]struct{}{
		"motorway":       {},
		"motorway_link":  {},
		"trunk":          {},
		"trunk_link":     {},
		"primary":        {},
		"primary_link":   {},
		"secondary":      {},
		"secondary_link": {},
		"tertiary":       {},
		"tertiary_link":  {},
		"residential":    {},
		"unclassified":   {},
		"service":        {},
		"busway":         {},
		"living_street":  {},
		"road":           {},
	}

	// See ref.: https://wiki.openstreetmap.org/wiki/Key:oneway
	onewayYesValues = map[string]struct{}{
		"yes": {},
		"1":   {},
	}

	onewayReversedValues = map[string]struct{}{
		"-1": {},
	}

	junctionOnewayValues = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}
)

const (
	relationTypePublicTransport = "public_transport"
	relationTypeMultiPolygon    = "multipolygon"
	relationRoleOuter           = "outer"
)
