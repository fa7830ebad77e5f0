package osm2zoning

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func newTestStopAreaResolver(data *rawZoningData) (*stopAreaResolver, *ZoneStore, *GroupStore) {
	zones := NewZoneStore()
	groups := NewGroupStore()
	extractor := &waitingAreaExtractor{
		settings: NewSettings(),
		zones:    zones,
		bounds:   data.bounds,
	}
	resolver := newStopAreaResolver(NewSettings(), zones, groups, extractor, data, false)
	return resolver, zones, groups
}

func TestStopAreaGroupsPlatformsAndStops(t *testing.T) {
	platform := &rawPoint{
		id:         1,
		tags:       osm.Tags{{Key: "public_transport", Value: "platform"}, {Key: "bus", Value: "yes"}},
		geom:       orb.Point{37.64, 55.75},
		entityType: ENTITY_WAITING_AREA,
	}
	stop := &rawPoint{
		id:         2,
		tags:       osm.Tags{{Key: "public_transport", Value: "stop_position"}},
		geom:       orb.Point{37.6401, 55.75},
		entityType: ENTITY_STOP_POSITION,
	}
	data := &rawZoningData{
		transitPoints: []*rawPoint{platform, stop},
		nodeCoords:    map[osm.NodeID]orb.Point{1: platform.geom, 2: stop.geom},
		bounds:        NewBoundaryFilter(nil),
	}
	resolver, zones, groups := newTestStopAreaResolver(data)

	// Platform members reference already extracted zones
	zone, err := resolver.extractor.extractFromPoint(platform, 0)
	if err != nil {
		t.Error(err)
		return
	}

	relation := &rawRelation{
		id:   100,
		tags: osm.Tags{{Key: "name", Value: "Central"}},
		members: []rawMember{
			{kind: KIND_POINT, id: 1, role: "platform"},
			{kind: KIND_POINT, id: 2, role: "stop"},
		},
		entityType: ENTITY_STOP_AREA,
	}
	group, err := resolver.process(relation)
	if err != nil {
		t.Error(err)
		return
	}
	if group.name != "Central" {
		t.Errorf("Group name must be 'Central', but got '%s'", group.name)
	}
	if len(group.zones) != 1 || group.zones[0] != zone {
		t.Errorf("Group must hold the platform zone")
	}
	if resolver.groupOfStop[2] != group {
		t.Errorf("Stop member must be recorded as owned by the group")
	}
	if groups.Len() != 1 {
		t.Errorf("Store must hold 1 group, but got %d", groups.Len())
	}
	if zones.Len() != 1 {
		t.Errorf("Processing must not create extra zones, store holds %d", zones.Len())
	}
}

func TestStopAreaSalvagesMistaggedStopMember(t *testing.T) {
	// A station under stop role contributes its name; a waiting area under
	// stop role is attached as platform
	station := &rawPoint{
		id:         1,
		tags:       osm.Tags{{Key: "railway", Value: "station"}, {Key: "name", Value: "Terminal"}},
		geom:       orb.Point{37.64, 55.75},
		entityType: ENTITY_STATION,
	}
	waitingArea := &rawPoint{
		id:         2,
		tags:       osm.Tags{{Key: "highway", Value: "bus_stop"}},
		geom:       orb.Point{37.6401, 55.75},
		entityType: ENTITY_WAITING_AREA,
	}
	data := &rawZoningData{
		transitPoints: []*rawPoint{station, waitingArea},
		nodeCoords:    map[osm.NodeID]orb.Point{1: station.geom, 2: waitingArea.geom},
		bounds:        NewBoundaryFilter(nil),
	}
	resolver, zones, _ := newTestStopAreaResolver(data)

	relation := &rawRelation{
		id: 100,
		members: []rawMember{
			{kind: KIND_POINT, id: 1, role: "stop"},
			{kind: KIND_POINT, id: 2, role: "stop"},
		},
		entityType: ENTITY_STOP_AREA,
	}
	group, err := resolver.process(relation)
	if err != nil {
		t.Error(err)
		return
	}
	if group.stationName != "Terminal" {
		t.Errorf("Station name must be salvaged as 'Terminal', but got '%s'", group.stationName)
	}
	if group.name != "Terminal" {
		t.Errorf("Unnamed group must adopt the station name, but got '%s'", group.name)
	}
	if len(group.zones) != 1 {
		t.Errorf("Mis-tagged waiting area must be attached as platform, group holds %d zones", len(group.zones))
		return
	}
	if group.zones[0].ref != (SourceRef{Kind: KIND_POINT, ID: 2}) {
		t.Errorf("Attached zone must originate from point 2, but got %s", group.zones[0].ref)
	}
	if zones.Len() != 1 {
		t.Errorf("Salvage must extract exactly 1 zone, store holds %d", zones.Len())
	}
}

func TestStopAreaClassifiesRolelessMembers(t *testing.T) {
	platform := &rawPoint{
		id:         1,
		tags:       osm.Tags{{Key: "public_transport", Value: "platform"}, {Key: "tram", Value: "yes"}},
		geom:       orb.Point{37.64, 55.75},
		entityType: ENTITY_WAITING_AREA,
	}
	data := &rawZoningData{
		transitPoints: []*rawPoint{platform},
		nodeCoords:    map[osm.NodeID]orb.Point{1: platform.geom},
		bounds:        NewBoundaryFilter(nil),
	}
	resolver, _, _ := newTestStopAreaResolver(data)

	relation := &rawRelation{
		id: 100,
		members: []rawMember{
			{kind: KIND_POINT, id: 1, role: ""},
		},
		entityType: ENTITY_STOP_AREA,
	}
	group, err := resolver.process(relation)
	if err != nil {
		t.Error(err)
		return
	}
	if len(group.zones) != 1 {
		t.Errorf("Roleless waiting area member must be attached by its own tags, group holds %d zones", len(group.zones))
	}
}

func TestStopAreaDiscardWarningSuppressedForUnsupported(t *testing.T) {
	data := &rawZoningData{
		nodeCoords: map[osm.NodeID]orb.Point{},
		bounds:     NewBoundaryFilter(nil),
	}
	resolver, zones, _ := newTestStopAreaResolver(data)
	unsupportedRef := SourceRef{Kind: KIND_POINT, ID: 7}
	zones.MarkUnsupported(unsupportedRef)

	relation := &rawRelation{
		id: 100,
		members: []rawMember{
			{kind: KIND_POINT, id: 7, role: "platform"},
			{kind: KIND_POINT, id: 8, role: "platform"},
		},
		entityType: ENTITY_STOP_AREA,
	}
	if _, err := resolver.process(relation); err != nil {
		t.Error(err)
		return
	}
	// The unsupported member must not land in the discarded registry, the
	// genuinely unresolvable one must, exactly once
	if !zones.MarkDiscarded(unsupportedRef) {
		t.Errorf("Unsupported member must not be recorded as discarded")
	}
	if zones.MarkDiscarded(SourceRef{Kind: KIND_POINT, ID: 8}) {
		t.Errorf("Unresolvable member must be recorded as discarded during processing")
	}
}
