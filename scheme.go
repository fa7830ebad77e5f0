package osm2zoning

import (
	"github.com/paulmach/osm"
)

// TaggingScheme marks which of the two competing public transport tagging
// generations an entity matches. The newer role/relation based scheme wins
// whenever both are present, so a single entity resolves to exactly one
// scheme per run.
type TaggingScheme uint16

const (
	SCHEME_NONE = TaggingScheme(iota)
	SCHEME_PTV1
	SCHEME_PTV2
)

func (iotaIdx TaggingScheme) String() string {
	return [...]string{"none", "ptv1", "ptv2"}[iotaIdx]
}

// TransitEntityType is the functional role an entity plays regardless of scheme
type TransitEntityType uint16

const (
	ENTITY_IRRELEVANT = TransitEntityType(iota)
	ENTITY_WAITING_AREA
	ENTITY_STOP_POSITION
	ENTITY_STATION
	ENTITY_STOP_AREA
)

func (iotaIdx TransitEntityType) String() string {
	return [...]string{"irrelevant", "waiting_area", "stop_position", "station", "stop_area"}[iotaIdx]
}

// classifyPoint determines scheme and functional role for a point entity
func classifyPoint(tags osm.Tags) (TaggingScheme, TransitEntityType) {
	publicTransport := tags.Find("public_transport")
	if publicTransport != "" {
		if _, ok := ptv2WaitingAreaValues[publicTransport]; ok {
			return SCHEME_PTV2, ENTITY_WAITING_AREA
		}
		if _, ok := ptv2StopPositionValues[publicTransport]; ok {
			return SCHEME_PTV2, ENTITY_STOP_POSITION
		}
		if _, ok := ptv2StationValues[publicTransport]; ok {
			return SCHEME_PTV2, ENTITY_STATION
		}
		return SCHEME_NONE, ENTITY_IRRELEVANT
	}
	if _, ok := ptv1HighwayWaitingAreaValues[tags.Find("highway")]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	railway := tags.Find("railway")
	if _, ok := ptv1RailwayWaitingAreaValues[railway]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	if _, ok := ptv1RailwayStopValues[railway]; ok {
		return SCHEME_PTV1, ENTITY_STOP_POSITION
	}
	if _, ok := ptv1StationValues[railway]; ok {
		return SCHEME_PTV1, ENTITY_STATION
	}
	if _, ok := ptv1AmenityWaitingAreaValues[tags.Find("amenity")]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	return SCHEME_NONE, ENTITY_IRRELEVANT
}

// classifyWay determines scheme and functional role for a way entity.
// Stop positions can not be ways, so the legacy track-bound values do not apply.
func classifyWay(tags osm.Tags) (TaggingScheme, TransitEntityType) {
	publicTransport := tags.Find("public_transport")
	if publicTransport != "" {
		if _, ok := ptv2WaitingAreaValues[publicTransport]; ok {
			return SCHEME_PTV2, ENTITY_WAITING_AREA
		}
		if _, ok := ptv2StationValues[publicTransport]; ok {
			return SCHEME_PTV2, ENTITY_STATION
		}
		return SCHEME_NONE, ENTITY_IRRELEVANT
	}
	if _, ok := ptv1HighwayWaitingAreaValues[tags.Find("highway")]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	railway := tags.Find("railway")
	if _, ok := ptv1RailwayWaitingAreaValues[railway]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	if _, ok := ptv1StationValues[railway]; ok {
		return SCHEME_PTV1, ENTITY_STATION
	}
	if _, ok := ptv1AmenityWaitingAreaValues[tags.Find("amenity")]; ok {
		return SCHEME_PTV1, ENTITY_WAITING_AREA
	}
	return SCHEME_NONE, ENTITY_IRRELEVANT
}

// classifyRelation determines whether a relation groups transfer zones
// (stop area) or models a platform as a polygon
func classifyRelation(tags osm.Tags) (TaggingScheme, TransitEntityType) {
	relationType := tags.Find("type")
	if relationType == relationTypePublicTransport {
		if _, ok := ptv2StopAreaValues[tags.Find("public_transport")]; ok {
			return SCHEME_PTV2, ENTITY_STOP_AREA
		}
		return SCHEME_NONE, ENTITY_IRRELEVANT
	}
	if relationType == relationTypeMultiPolygon {
		if _, ok := ptv2WaitingAreaValues[tags.Find("public_transport")]; ok {
			return SCHEME_PTV2, ENTITY_WAITING_AREA
		}
	}
	return SCHEME_NONE, ENTITY_IRRELEVANT
}
