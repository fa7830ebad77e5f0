package osm2zoning

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestClassifyPointNewSchemeWins(t *testing.T) {
	// Both schemes present on one point: the role based scheme decides and
	// the point gets exactly one functional role
	tags := osm.Tags{
		{Key: "highway", Value: "bus_stop"},
		{Key: "public_transport", Value: "stop_position"},
	}
	scheme, entityType := classifyPoint(tags)
	if scheme != SCHEME_PTV2 {
		t.Errorf("Scheme must be %s, but got %s", SCHEME_PTV2, scheme)
	}
	if entityType != ENTITY_STOP_POSITION {
		t.Errorf("Entity type must be %s, but got %s", ENTITY_STOP_POSITION, entityType)
	}
}

func TestClassifyPointLegacy(t *testing.T) {
	cases := []struct {
		tags       osm.Tags
		scheme     TaggingScheme
		entityType TransitEntityType
	}{
		{osm.Tags{{Key: "highway", Value: "bus_stop"}}, SCHEME_PTV1, ENTITY_WAITING_AREA},
		{osm.Tags{{Key: "railway", Value: "halt"}}, SCHEME_PTV1, ENTITY_WAITING_AREA},
		{osm.Tags{{Key: "railway", Value: "tram_stop"}}, SCHEME_PTV1, ENTITY_STOP_POSITION},
		{osm.Tags{{Key: "railway", Value: "station"}}, SCHEME_PTV1, ENTITY_STATION},
		{osm.Tags{{Key: "amenity", Value: "ferry_terminal"}}, SCHEME_PTV1, ENTITY_WAITING_AREA},
		{osm.Tags{{Key: "highway", Value: "residential"}}, SCHEME_NONE, ENTITY_IRRELEVANT},
	}
	for i, c := range cases {
		scheme, entityType := classifyPoint(c.tags)
		if scheme != c.scheme {
			t.Errorf("Case %d: scheme must be %s, but got %s", i, c.scheme, scheme)
		}
		if entityType != c.entityType {
			t.Errorf("Case %d: entity type must be %s, but got %s", i, c.entityType, entityType)
		}
	}
}

func TestClassifyPointUnknownNewSchemeValue(t *testing.T) {
	// An unknown value under the new scheme key must not fall through to the
	// legacy interpretation
	tags := osm.Tags{
		{Key: "public_transport", Value: "pole"},
		{Key: "highway", Value: "bus_stop"},
	}
	scheme, entityType := classifyPoint(tags)
	if scheme != SCHEME_NONE {
		t.Errorf("Scheme must be %s, but got %s", SCHEME_NONE, scheme)
	}
	if entityType != ENTITY_IRRELEVANT {
		t.Errorf("Entity type must be %s, but got %s", ENTITY_IRRELEVANT, entityType)
	}
}

func TestClassifyWay(t *testing.T) {
	scheme, entityType := classifyWay(osm.Tags{{Key: "public_transport", Value: "platform"}})
	if scheme != SCHEME_PTV2 || entityType != ENTITY_WAITING_AREA {
		t.Errorf("Platform way must be (%s, %s), but got (%s, %s)", SCHEME_PTV2, ENTITY_WAITING_AREA, scheme, entityType)
	}
	// Track bound legacy values never apply to ways
	scheme, entityType = classifyWay(osm.Tags{{Key: "railway", Value: "tram_stop"}})
	if scheme != SCHEME_NONE || entityType != ENTITY_IRRELEVANT {
		t.Errorf("Tram stop way must stay irrelevant, but got (%s, %s)", scheme, entityType)
	}
}

func TestClassifyRelation(t *testing.T) {
	scheme, entityType := classifyRelation(osm.Tags{
		{Key: "type", Value: "public_transport"},
		{Key: "public_transport", Value: "stop_area"},
	})
	if scheme != SCHEME_PTV2 || entityType != ENTITY_STOP_AREA {
		t.Errorf("Stop area relation must be (%s, %s), but got (%s, %s)", SCHEME_PTV2, ENTITY_STOP_AREA, scheme, entityType)
	}
	scheme, entityType = classifyRelation(osm.Tags{
		{Key: "type", Value: "multipolygon"},
		{Key: "public_transport", Value: "platform"},
	})
	if scheme != SCHEME_PTV2 || entityType != ENTITY_WAITING_AREA {
		t.Errorf("Platform polygon relation must be (%s, %s), but got (%s, %s)", SCHEME_PTV2, ENTITY_WAITING_AREA, scheme, entityType)
	}
	_, entityType = classifyRelation(osm.Tags{{Key: "type", Value: "route"}})
	if entityType != ENTITY_IRRELEVANT {
		t.Errorf("Route relation must stay irrelevant, but got %s", entityType)
	}
}
