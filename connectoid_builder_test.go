package osm2zoning

import (
	"testing"

	"github.com/paulmach/orb"
)

func newTestBuilder(settings *ZoningSettings, net *Network) (*connectoidBuilder, *ZoneStore, *ConnectoidStore) {
	zones := NewZoneStore()
	connectoids := NewConnectoidStore()
	builder := newConnectoidBuilder(settings, net, zones, connectoids, false)
	return builder, zones, connectoids
}

func TestCreateConnectoidsSplitPreservesFarEnd(t *testing.T) {
	// A connectoid anchored at the far end of a link must keep its access node
	// and swap to the replacement segment when a later stop splits that link
	net, _, target, link := buildStraightLink(false)
	builder, zones, connectoids := newTestBuilder(NewSettings(), net)

	zoneAtEnd := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 10}, orb.Point{37.65, 55.7499}, "End", nil, []TransitMode{MODE_BUS})
	if err := builder.createConnectoids(zoneAtEnd, target.geom, 102, []TransitMode{MODE_BUS}); err != nil {
		t.Error(err)
		return
	}
	endConnectoids := connectoids.ByZone(zoneAtEnd.ref)
	if len(endConnectoids) != 1 {
		t.Errorf("Far end zone must get 1 connectoid, but got %d", len(endConnectoids))
		return
	}
	oldForward, _ := net.linkDirectedSegments(link)
	if endConnectoids[0].segmentID != oldForward.ID {
		t.Errorf("Far end connectoid must sit on the forward segment %d, but got %d", oldForward.ID, endConnectoids[0].segmentID)
	}

	zoneAtMiddle := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 11}, orb.Point{37.645, 55.7499}, "Middle", nil, []TransitMode{MODE_BUS})
	if err := builder.createConnectoids(zoneAtMiddle, orb.Point{37.645, 55.75}, 555, []TransitMode{MODE_BUS}); err != nil {
		t.Error(err)
		return
	}

	// Link was split: the far end connectoid must now reference the second
	// replacement link, same access node
	if _, ok := net.Link(link.ID); ok {
		t.Errorf("Original link %d must be gone after the split", link.ID)
	}
	rewired := connectoids.ByZone(zoneAtEnd.ref)[0]
	if rewired.accessNodeID != target.ID {
		t.Errorf("Rewired connectoid must keep access node %d, but got %d", target.ID, rewired.accessNodeID)
	}
	segment, ok := net.Segment(rewired.segmentID)
	if !ok {
		t.Errorf("Rewired connectoid must reference a live segment")
		return
	}
	if segment.downstreamNodeID != target.ID {
		t.Errorf("Rewired segment must still enter node %d, but enters %d", target.ID, segment.downstreamNodeID)
	}

	// The middle zone connects to both directions entering the split node
	middleConnectoids := connectoids.ByZone(zoneAtMiddle.ref)
	if len(middleConnectoids) != 2 {
		t.Errorf("Middle zone on a bidirectional link must get 2 connectoids, but got %d", len(middleConnectoids))
	}
}

func TestCreateConnectoidsOnewayWrongSideFallback(t *testing.T) {
	// When the side of road heuristic would discard every candidate the
	// unfiltered set is kept: a connection is always preferred over none
	net, _, _, _ := buildStraightLink(true)
	builder, zones, connectoids := newTestBuilder(NewSettings(WithCountry("DE")), net)

	north := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 10}, orb.Point{37.645, 55.7501}, "North", nil, []TransitMode{MODE_BUS})
	if err := builder.createConnectoids(north, orb.Point{37.645, 55.75}, 0, []TransitMode{MODE_BUS}); err != nil {
		t.Error(err)
		return
	}
	if len(connectoids.ByZone(north.ref)) != 1 {
		t.Errorf("Wrong side zone must still get its only possible connectoid")
	}
}

func TestCreateConnectoidsContraflowBothDirections(t *testing.T) {
	// Buses run both ways on the one-way street: the far side zone connects
	// to both travel directions instead of relying on the empty filter fallback
	net := NewNetwork()
	source := net.AddNode(101, orb.Point{37.64, 55.75})
	target := net.AddNode(102, orb.Point{37.65, 55.75})
	net.AddLinkWithContraflow(
		1001,
		orb.LineString{{37.64, 55.75}, {37.65, 55.75}},
		source.ID,
		target.ID,
		[]TransitMode{MODE_BUS},
		[]TransitMode{MODE_BUS},
	)
	builder, zones, connectoids := newTestBuilder(NewSettings(WithCountry("DE")), net)

	north := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 10}, orb.Point{37.645, 55.7501}, "North", nil, []TransitMode{MODE_BUS})
	if err := builder.createConnectoids(north, orb.Point{37.645, 55.75}, 0, []TransitMode{MODE_BUS}); err != nil {
		t.Error(err)
		return
	}
	created := connectoids.ByZone(north.ref)
	if len(created) != 2 {
		t.Errorf("Contraflow street must connect the far side zone in both directions, but got %d connectoids", len(created))
		return
	}
	forwardSeen, backwardSeen := false, false
	for _, connectoid := range created {
		segment, ok := net.Segment(connectoid.segmentID)
		if !ok {
			t.Errorf("Connectoid must reference a live segment")
			return
		}
		if segment.forward {
			forwardSeen = true
		} else {
			backwardSeen = true
		}
		if len(connectoid.modes) != 1 || connectoid.modes[0] != MODE_BUS {
			t.Errorf("Connectoid modes must be [bus], but got %v", connectoid.modes)
		}
	}
	if !forwardSeen || !backwardSeen {
		t.Errorf("Both travel directions must be connected")
	}
}

func TestCreateConnectoidsModeMismatch(t *testing.T) {
	net := NewNetwork()
	source := net.AddNode(101, orb.Point{37.64, 55.75})
	target := net.AddNode(102, orb.Point{37.65, 55.75})
	net.AddLink(1001, orb.LineString{{37.64, 55.75}, {37.65, 55.75}}, source.ID, target.ID, []TransitMode{MODE_TRAM}, false)
	builder, zones, _ := newTestBuilder(NewSettings(), net)

	zone := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 10}, orb.Point{37.65, 55.7499}, "", nil, []TransitMode{MODE_BUS})
	err := builder.createConnectoids(zone, target.geom, 102, []TransitMode{MODE_BUS})
	if err == nil {
		t.Errorf("Bus zone on a tram only link must fail to connect")
	}
}

func TestCreateConnectoidsAccessWayOverride(t *testing.T) {
	// The nominated access way beats the mode filter; registered modes fall
	// back to the segment's own permissions when the intersection is empty
	net := NewNetwork()
	source := net.AddNode(101, orb.Point{37.64, 55.75})
	target := net.AddNode(102, orb.Point{37.65, 55.75})
	net.AddLink(1001, orb.LineString{{37.64, 55.75}, {37.65, 55.75}}, source.ID, target.ID, []TransitMode{MODE_TRAM}, false)

	zoneRef := SourceRef{Kind: KIND_POINT, ID: 10}
	settings := NewSettings(WithWaitingAreaAccessWayOverride(zoneRef, 1001))
	builder, zones, connectoids := newTestBuilder(settings, net)

	zone := addPointZone(t, zones, zoneRef, orb.Point{37.65, 55.7499}, "", nil, []TransitMode{MODE_BUS})
	if err := builder.createConnectoids(zone, target.geom, 102, []TransitMode{MODE_BUS}); err != nil {
		t.Error(err)
		return
	}
	created := connectoids.ByZone(zoneRef)
	if len(created) != 1 {
		t.Errorf("Override must produce 1 connectoid, but got %d", len(created))
		return
	}
	if len(created[0].modes) != 1 || created[0].modes[0] != MODE_TRAM {
		t.Errorf("Connectoid modes must fall back to segment modes [tram], but got %v", created[0].modes)
	}
}

func TestConnectZoneDirectly(t *testing.T) {
	net, _, _, _ := buildStraightLink(false)
	builder, zones, connectoids := newTestBuilder(NewSettings(), net)

	// Zone 11 meters south of the street, never claimed by any stop
	zone := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 10}, orb.Point{37.645, 55.7499}, "", nil, []TransitMode{MODE_BUS})
	if err := builder.connectZoneDirectly(zone); err != nil {
		t.Error(err)
		return
	}
	created := connectoids.ByZone(zone.ref)
	if len(created) == 0 {
		t.Errorf("Direct connection must produce connectoids")
		return
	}
	node, ok := net.Node(created[0].accessNodeID)
	if !ok {
		t.Errorf("Connectoid must reference a live access node")
		return
	}
	correctAccess := orb.Point{37.645, 55.75}
	if distanceMeters(node.geom, correctAccess) > 0.1 {
		t.Errorf("Access node must sit at the projection %v, but got %v", correctAccess, node.geom)
	}

	far := addPointZone(t, zones, SourceRef{Kind: KIND_POINT, ID: 11}, orb.Point{37.7, 55.75}, "", nil, []TransitMode{MODE_BUS})
	if err := builder.connectZoneDirectly(far); err == nil {
		t.Errorf("Zone kilometers away from any link must fail to connect")
	}
}
