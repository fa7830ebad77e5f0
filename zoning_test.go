package osm2zoning

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestZoneStoreAddAndNear(t *testing.T) {
	store := NewZoneStore()
	first := &TransferZone{
		ref:    SourceRef{Kind: KIND_POINT, ID: 1},
		geom:   orb.Point{37.64, 55.75},
		center: orb.Point{37.64, 55.75},
		name:   "First",
	}
	second := &TransferZone{
		ref:    SourceRef{Kind: KIND_WAY, ID: 1},
		geom:   orb.Point{37.6401, 55.75},
		center: orb.Point{37.6401, 55.75},
		name:   "Second",
	}
	far := &TransferZone{
		ref:    SourceRef{Kind: KIND_POINT, ID: 2},
		geom:   orb.Point{37.7, 55.75},
		center: orb.Point{37.7, 55.75},
		name:   "Far",
	}
	for _, zone := range []*TransferZone{first, second, far} {
		if err := store.Add(zone); err != nil {
			t.Error(err)
			return
		}
	}
	if err := store.Add(first); err == nil {
		t.Errorf("Adding the same identity twice must fail")
	}

	// 37.6401 is roughly 6 meters away at this latitude
	near := store.Near(orb.Point{37.64, 55.75}, 25.0)
	if len(near) != 2 {
		t.Errorf("2 zones must be within 25 meters, but got %d", len(near))
		return
	}
	// Points sort before ways
	if near[0] != first || near[1] != second {
		t.Errorf("Zones must come ordered by (kind, id), but got %s, %s", near[0].ref, near[1].ref)
	}
}

func TestZoneStoreRemoveDetachesFromIndexesAndGroups(t *testing.T) {
	store := NewZoneStore()
	zone := &TransferZone{
		ref:    SourceRef{Kind: KIND_POINT, ID: 1},
		geom:   orb.Point{37.64, 55.75},
		center: orb.Point{37.64, 55.75},
	}
	if err := store.Add(zone); err != nil {
		t.Error(err)
		return
	}
	group := &TransferZoneGroup{ref: SourceRef{Kind: KIND_RELATION, ID: 10}}
	group.AddZone(zone)

	store.Remove(zone)
	if _, ok := store.ByRef(zone.ref); ok {
		t.Errorf("Removed zone must not be resolvable by identity")
	}
	if found := store.Near(zone.center, 25.0); len(found) != 0 {
		t.Errorf("Removed zone must not be found spatially, but got %d", len(found))
	}
	if len(group.zones) != 0 {
		t.Errorf("Removed zone must detach from its group, but group still holds %d", len(group.zones))
	}
}

func TestGroupAddZoneOnce(t *testing.T) {
	group := &TransferZoneGroup{ref: SourceRef{Kind: KIND_RELATION, ID: 10}}
	zone := &TransferZone{ref: SourceRef{Kind: KIND_POINT, ID: 1}}
	group.AddZone(zone)
	group.AddZone(zone)
	if len(group.zones) != 1 {
		t.Errorf("Group must hold the zone once, but got %d entries", len(group.zones))
	}
	if len(zone.groups) != 1 {
		t.Errorf("Zone must reference the group once, but got %d entries", len(zone.groups))
	}
}

func TestConnectoidStoreAddOrExtend(t *testing.T) {
	net, _, target, link := buildStraightLink(false)
	forward, _ := net.linkDirectedSegments(link)
	store := NewConnectoidStore()
	zone := &TransferZone{ref: SourceRef{Kind: KIND_POINT, ID: 1}}

	created, isNew := store.AddOrExtend(zone, forward, target, []TransitMode{MODE_BUS})
	if !isNew {
		t.Errorf("First registration must create a connectoid")
	}
	extended, isNew := store.AddOrExtend(zone, forward, target, []TransitMode{MODE_TRAM})
	if isNew {
		t.Errorf("Second registration for the same (segment, zone) pair must extend, not create")
	}
	if extended.ID != created.ID {
		t.Errorf("Extension must return the original connectoid %d, but got %d", created.ID, extended.ID)
	}
	if len(extended.modes) != 2 {
		t.Errorf("Extended connectoid must carry 2 modes, but got %d", len(extended.modes))
	}
	if store.Len() != 1 {
		t.Errorf("Store must hold 1 connectoid, but got %d", store.Len())
	}
	if !store.ZoneHasConnectoids(zone.ref) {
		t.Errorf("Zone must report as connected")
	}
	if found := store.AtLocation(target.geom); len(found) != 1 {
		t.Errorf("1 connectoid must sit at the access location, but got %d", len(found))
	}
}

func TestConnectoidStoreRewire(t *testing.T) {
	net, _, target, link := buildStraightLink(false)
	forward, _ := net.linkDirectedSegments(link)
	store := NewConnectoidStore()
	zone := &TransferZone{ref: SourceRef{Kind: KIND_POINT, ID: 1}}
	connectoid, _ := store.AddOrExtend(zone, forward, target, []TransitMode{MODE_BUS})

	result, err := net.SplitLinkAt(link.ID, orb.Point{37.645, 55.75}, 0)
	if err != nil {
		t.Error(err)
		return
	}
	store.Rewire(result.Rewires)

	newForward, _ := net.linkDirectedSegments(result.SecondLink)
	if connectoid.segmentID != newForward.ID {
		t.Errorf("Rewired connectoid must reference segment %d, but got %d", newForward.ID, connectoid.segmentID)
	}
	if connectoid.accessNodeID != target.ID {
		t.Errorf("Rewire must keep access node %d, but got %d", target.ID, connectoid.accessNodeID)
	}
	// Dedupe index must follow the rewire
	again, isNew := store.AddOrExtend(zone, newForward, target, []TransitMode{MODE_BUS})
	if isNew || again.ID != connectoid.ID {
		t.Errorf("Rewired (segment, zone) pair must dedupe against the existing connectoid")
	}
}

func TestConnectoidStoreRemoveForZone(t *testing.T) {
	net, _, target, link := buildStraightLink(false)
	forward, backward := net.linkDirectedSegments(link)
	store := NewConnectoidStore()
	zone := &TransferZone{ref: SourceRef{Kind: KIND_POINT, ID: 1}}
	other := &TransferZone{ref: SourceRef{Kind: KIND_POINT, ID: 2}}
	store.AddOrExtend(zone, forward, target, []TransitMode{MODE_BUS})
	store.AddOrExtend(zone, backward, target, []TransitMode{MODE_BUS})
	store.AddOrExtend(other, forward, target, []TransitMode{MODE_BUS})

	store.RemoveForZone(zone.ref, net)
	if store.ZoneHasConnectoids(zone.ref) {
		t.Errorf("Removed zone must not report as connected")
	}
	if store.Len() != 1 {
		t.Errorf("Store must keep the other zone's connectoid, but holds %d", store.Len())
	}
	if found := store.AtLocation(target.geom); len(found) != 1 {
		t.Errorf("Location index must keep the other zone's connectoid, but got %d", len(found))
	}
}
