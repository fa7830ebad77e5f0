package osm2zoning

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// connectoidBuilder turns a (waiting area, access location) pair into
// connectoids. It owns all structural network mutation: resolving the access
// node may split a link, and every affected index must be consistent again
// before the next stop position is processed.
type connectoidBuilder struct {
	settings    *ZoningSettings
	net         *Network
	zones       *ZoneStore
	connectoids *ConnectoidStore
	verbose     bool
}

func newConnectoidBuilder(settings *ZoningSettings, net *Network, zones *ZoneStore, connectoids *ConnectoidStore, verbose bool) *connectoidBuilder {
	return &connectoidBuilder{
		settings:    settings,
		net:         net,
		zones:       zones,
		connectoids: connectoids,
		verbose:     verbose,
	}
}

// resolveAccessNode obtains the graph node at given location: reused when it
// already exists, otherwise created by splitting the single link the location
// is internal to. A location internal to more than one link is a structural
// violation aborting this entity only.
func (builder *connectoidBuilder) resolveAccessNode(pt orb.Point, osmNodeID osm.NodeID) (*NetworkNode, error) {
	if node, ok := builder.net.NodeAt(pt); ok {
		return node, nil
	}
	links := builder.net.LinksAtInternalLocation(pt)
	if len(links) == 0 {
		return nil, errors.Errorf("No network link found at access location %v", pt)
	}
	if len(links) > 1 {
		return nil, errors.Errorf("Access location %v is internal to %d links, expected exactly one", pt, len(links))
	}
	result, err := builder.net.SplitLinkAt(links[0].ID, pt, osmNodeID)
	if err != nil {
		return nil, errors.Wrap(err, "Can't split link for access node")
	}
	// Reattach every pre-existing connectoid anchored on the split link
	// before anything else touches the network
	builder.connectoids.Rewire(result.Rewires)
	return result.Node, nil
}

// createConnectoids creates or extends connectoids binding the zone to every
// surviving access segment entering the resolved node
func (builder *connectoidBuilder) createConnectoids(zone *TransferZone, accessPt orb.Point, accessOSMNode osm.NodeID, modes []TransitMode) error {
	node, err := builder.resolveAccessNode(accessPt, accessOSMNode)
	if err != nil {
		return err
	}
	candidates := builder.net.SegmentsEntering(node)
	if len(candidates) == 0 {
		return errors.Errorf("No segments enter access node at %v for zone %s", node.geom, zone.ref)
	}

	final := []*LinkSegment{}
	if wayID, ok := builder.settings.WaitingAreaToAccessWayOverrides[zone.ref]; ok {
		// User nominated access way: beats every automatic filter
		for _, segment := range candidates {
			if link, ok := builder.net.Link(segment.linkID); ok && link.osmWayID == wayID {
				final = append(final, segment)
			}
		}
		if len(final) == 0 && builder.verbose {
			fmt.Printf("[WARNING]: Access way override %d for zone %s matches no segment at %v, falling back to heuristics\n", wayID, zone.ref, node.geom)
		}
	}

	if len(final) == 0 {
		modeFiltered := []*LinkSegment{}
		for _, segment := range candidates {
			if len(modes) == 0 || modesOverlap(segment.allowedModes, modes) {
				modeFiltered = append(modeFiltered, segment)
			}
		}
		if len(modeFiltered) == 0 {
			return errors.Errorf("No mode compatible segment enters access node at %v for zone %s", node.geom, zone.ref)
		}
		// A zone coinciding with the infrastructure gives no directional
		// hint: connect every incoming direction
		if zone.hasPointGeometry() && zone.center == node.geom {
			final = modeFiltered
		} else {
			for _, segment := range modeFiltered {
				if builder.segmentSideEligible(zone, segment) {
					final = append(final, segment)
				}
			}
			// Default heuristic must never eliminate every candidate
			if len(final) == 0 {
				final = modeFiltered
			}
		}
	}

	for _, segment := range final {
		registerModes := modeIntersection(modes, segment.allowedModes)
		if len(registerModes) == 0 {
			registerModes = segment.allowedModes
		}
		builder.connectoids.AddOrExtend(zone, segment, node, registerModes)
	}
	return nil
}

// connectZoneDirectly creates connectoids for a waiting area that never saw a
// stop position, using the closest point of the nearest mode compatible link
// as access location
func (builder *connectoidBuilder) connectZoneDirectly(zone *TransferZone) error {
	radius := builder.settings.StopToWaitingAreaRadiusMeters
	for _, mode := range zone.modes {
		if mode == MODE_FERRY {
			radius = builder.settings.FerryStopToRouteRadiusMeters
		}
	}
	var bestLink *NetworkLink
	var bestPoint orb.Point
	bestDistance := radius
	for _, link := range builder.net.LinksNear(zone.center, radius) {
		if len(zone.modes) > 0 && !modesOverlap(link.allowedModes, zone.modes) {
			continue
		}
		_, _, closest, distance := projectPointOnLine(link.geom, zone.center)
		if bestLink == nil || distance < bestDistance {
			if distance <= radius {
				bestLink = link
				bestPoint = closest
				bestDistance = distance
			}
		}
	}
	if bestLink == nil {
		return errors.Errorf("No mode compatible link within %d meters of waiting area %s", int(radius), zone.ref)
	}
	return builder.createConnectoids(zone, bestPoint, 0, zone.modes)
}

// segmentSideEligible applies the side of road test to one entering segment:
// on a one-way link a zone requiring crossing opposing traffic is discarded
// per the country's driving side. Rail is exempt.
func (builder *connectoidBuilder) segmentSideEligible(zone *TransferZone, segment *LinkSegment) bool {
	if containsRailMode(segment.allowedModes) || containsRailMode(zone.modes) {
		return true
	}
	link, ok := builder.net.Link(segment.linkID)
	if !ok || !link.onewayFor(zone.modes) || len(link.geom) < 2 {
		return true
	}
	// Entering direction: forward segments run along the geometry, backward
	// segments against it
	var a, b orb.Point
	if segment.forward {
		a = link.geom[len(link.geom)-2]
		b = link.geom[len(link.geom)-1]
	} else {
		a = link.geom[1]
		b = link.geom[0]
	}
	expected := -1 // right hand driving: no crossing when the zone is right of travel
	if builder.settings.drivingSide() == DRIVE_LEFT {
		expected = 1
	}
	side := sideOfSegment(a, b, zone.center)
	return side == 0 || side == expected
}

func modeIntersection(first, second []TransitMode) []TransitMode {
	intersection := []TransitMode{}
	for _, a := range first {
		for _, b := range second {
			if a == b {
				intersection = appendModeUnique(intersection, a)
			}
		}
	}
	return intersection
}
