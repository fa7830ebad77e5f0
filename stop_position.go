package osm2zoning

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// stopPosition is a point on the network where a vehicle actually stops,
// together with everything known about it before matching
type stopPosition struct {
	id    osm.NodeID
	tags  osm.Tags
	geom  orb.Point
	modes []TransitMode
	group *TransferZoneGroup
}

// stopPositionResolver pairs every stop position with the waiting area(s) it
// serves via a strict cascading match order, stopping at the first non-empty
// mode-compatible result
type stopPositionResolver struct {
	settings  *ZoningSettings
	zones     *ZoneStore
	net       *Network
	extractor *waitingAreaExtractor

	// Point shaped zones placed on infrastructure serve exactly one stop;
	// area shaped zones may serve several
	committed map[SourceRef]osm.NodeID

	verbose bool
}

func newStopPositionResolver(settings *ZoningSettings, zones *ZoneStore, net *Network, extractor *waitingAreaExtractor, verbose bool) *stopPositionResolver {
	return &stopPositionResolver{
		settings:  settings,
		zones:     zones,
		net:       net,
		extractor: extractor,
		committed: make(map[SourceRef]osm.NodeID),
		verbose:   verbose,
	}
}

// searchRadius returns the configured search radius applicable to the stop's modes
func (resolver *stopPositionResolver) searchRadius(modes []TransitMode) float64 {
	for _, mode := range modes {
		if mode == MODE_FERRY {
			return resolver.settings.FerryStopToRouteRadiusMeters
		}
	}
	return resolver.settings.StopToWaitingAreaRadiusMeters
}

// zoneModeCompatible checks mode compatibility between a zone and a stop.
// Pseudo compatibility (same broad road/rail/water category) is allowed only
// once a non-geometric signal already gives confidence. Zones flagged for
// mode salvage carry no information and stay compatible.
func zoneModeCompatible(zone *TransferZone, modes []TransitMode, allowPseudo bool) bool {
	if len(zone.modes) == 0 || len(modes) == 0 {
		return true
	}
	if modesOverlap(zone.modes, modes) {
		return true
	}
	return allowPseudo && categoriesOverlap(zone.modes, modes)
}

// zoneDistance returns meters between the stop location and the zone shape
func zoneDistance(zone *TransferZone, pt orb.Point) float64 {
	switch shape := zone.geom.(type) {
	case orb.LineString:
		_, _, _, distance := projectPointOnLine(shape, pt)
		return distance
	case orb.Ring:
		_, _, _, distance := projectPointOnLine(orb.LineString(shape), pt)
		return distance
	default:
		return distanceMeters(zone.center, pt)
	}
}

// candidatePool is the group's zones when the owning group is known,
// otherwise a spatial search around the stop
func (resolver *stopPositionResolver) candidatePool(stop *stopPosition) []*TransferZone {
	if stop.group != nil && len(stop.group.zones) > 0 {
		pool := make([]*TransferZone, len(stop.group.zones))
		copy(pool, stop.group.zones)
		sort.Slice(pool, func(i, j int) bool { return lessSourceRef(pool[i].ref, pool[j].ref) })
		return pool
	}
	return resolver.zones.Near(stop.geom, resolver.searchRadius(stop.modes))
}

// resolve runs the cascade. A stop resolves to at most one match set per
// run; the result is usually a single zone, more only via multiple platform
// reference codes on one point.
func (resolver *stopPositionResolver) resolve(stop *stopPosition) ([]*TransferZone, error) {
	matched := resolver.matchByOverride(stop)
	if len(matched) == 0 {
		matched = resolver.matchByRefCode(stop)
	}
	if len(matched) == 0 {
		matched = resolver.matchByName(stop)
	}
	if len(matched) == 0 {
		matched = resolver.matchBySpatialFallback(stop)
	}
	if len(matched) == 0 {
		zone, err := resolver.matchSelfAsWaitingArea(stop)
		if err != nil {
			return nil, err
		}
		if zone != nil {
			matched = []*TransferZone{zone}
		}
	}
	for _, zone := range matched {
		if zone.hasPointGeometry() {
			if _, ok := resolver.committed[zone.ref]; !ok {
				resolver.committed[zone.ref] = stop.id
			}
		}
	}
	return matched, nil
}

// matchByOverride applies the explicit user mapping: unconditional when
// present and resolvable, beating every automatic check
func (resolver *stopPositionResolver) matchByOverride(stop *stopPosition) []*TransferZone {
	ref, ok := resolver.settings.StopToWaitingAreaOverrides[stop.id]
	if !ok {
		return nil
	}
	if zone, ok := resolver.zones.ByRef(ref); ok {
		return []*TransferZone{zone}
	}
	if resolver.verbose {
		fmt.Printf("[WARNING]: Stop position %d override points at unknown waiting area %s\n", stop.id, ref)
	}
	return nil
}

// matchByRefCode searches the candidate pool for identical platform
// reference codes; on multiple matches for one code the geographically
// closest wins, while distinct codes on the same point resolve independently
func (resolver *stopPositionResolver) matchByRefCode(stop *stopPosition) []*TransferZone {
	codes := parsePlatformRefs(stop.tags)
	if len(codes) == 0 {
		return nil
	}
	pool := resolver.candidatePool(stop)
	matched := []*TransferZone{}
	for _, code := range codes {
		var best *TransferZone
		bestDistance := 0.0
		for _, zone := range pool {
			if !zone.hasPlatformRef(code) {
				continue
			}
			if !zoneModeCompatible(zone, stop.modes, true) {
				continue
			}
			distance := zoneDistance(zone, stop.geom)
			if best == nil || distance < bestDistance {
				best = zone
				bestDistance = distance
			}
		}
		if best == nil {
			continue
		}
		if resolver.verbose && bestDistance > resolver.searchRadius(stop.modes) {
			fmt.Printf("[WARNING]: Stop position %d matched waiting area %s by ref '%s' at %d meters\n", stop.id, best.ref, code, int(bestDistance))
		}
		duplicate := false
		for _, existing := range matched {
			if existing == best {
				duplicate = true
			}
		}
		if !duplicate {
			matched = append(matched, best)
		}
	}
	return matched
}

// matchByName matches on exact name equality filtered to pseudo mode
// compatibility, then pruned by side of road and distance
func (resolver *stopPositionResolver) matchByName(stop *stopPosition) []*TransferZone {
	name := stop.tags.Find("name")
	if name == "" {
		return nil
	}
	pool := resolver.candidatePool(stop)
	candidates := []*TransferZone{}
	for _, zone := range pool {
		if zone.name != name {
			continue
		}
		if !zoneModeCompatible(zone, stop.modes, true) {
			continue
		}
		candidates = append(candidates, zone)
	}
	candidates = resolver.pruneByDrivingSide(stop, candidates)
	var best *TransferZone
	bestDistance := 0.0
	for _, zone := range candidates {
		distance := zoneDistance(zone, stop.geom)
		if distance > resolver.searchRadius(stop.modes) {
			continue
		}
		if best == nil || distance < bestDistance {
			best = zone
			bestDistance = distance
		}
	}
	if best == nil {
		return nil
	}
	return []*TransferZone{best}
}

// matchBySpatialFallback selects the closest mode compatible zone within the
// configured radius which is not already exclusively committed to another stop
func (resolver *stopPositionResolver) matchBySpatialFallback(stop *stopPosition) []*TransferZone {
	candidates := []*TransferZone{}
	for _, zone := range resolver.zones.Near(stop.geom, resolver.searchRadius(stop.modes)) {
		if !zoneModeCompatible(zone, stop.modes, false) {
			continue
		}
		if zone.hasPointGeometry() {
			if committedTo, ok := resolver.committed[zone.ref]; ok && committedTo != stop.id {
				continue
			}
		}
		candidates = append(candidates, zone)
	}
	candidates = resolver.pruneByDrivingSide(stop, candidates)
	var best *TransferZone
	bestDistance := 0.0
	for _, zone := range candidates {
		distance := zoneDistance(zone, stop.geom)
		if best == nil || distance < bestDistance {
			best = zone
			bestDistance = distance
		}
	}
	if best == nil {
		return nil
	}
	return []*TransferZone{best}
}

// matchSelfAsWaitingArea creates a zone for the stop point itself when no
// distinct waiting area exists but the point carries legacy point based tags
// on usable infrastructure. Repeated salvage is idempotent.
func (resolver *stopPositionResolver) matchSelfAsWaitingArea(stop *stopPosition) (*TransferZone, error) {
	if _, ok := defaultWaitingAreaMode(stop.tags); !ok {
		return nil, nil
	}
	pt := &rawPoint{
		id:         stop.id,
		tags:       stop.tags,
		geom:       stop.geom,
		scheme:     SCHEME_PTV1,
		entityType: ENTITY_WAITING_AREA,
	}
	zone, err := resolver.extractor.extractFromPoint(pt, 0)
	if err != nil {
		return nil, err
	}
	if zone != nil && len(zone.modes) == 0 && len(stop.modes) > 0 {
		zone.modes = mergeModes(zone.modes, stop.modes)
		zone.needsModeSalvage = false
	}
	if zone != nil && stop.group != nil {
		stop.group.AddZone(zone)
	}
	return zone, nil
}

// stopLink returns the single link the stop position sits on, or nil when
// the location is a junction of several links (side filtering is skipped then)
func (resolver *stopPositionResolver) stopLink(stop *stopPosition) *NetworkLink {
	if node, ok := resolver.net.NodeAt(stop.geom); ok {
		distinct := map[NetworkLinkID]*NetworkLink{}
		for _, segment := range resolver.net.SegmentsEntering(node) {
			if link, ok := resolver.net.Link(segment.linkID); ok {
				distinct[link.ID] = link
			}
		}
		for _, segmentID := range node.outcomingSegments {
			if segment, ok := resolver.net.Segment(segmentID); ok {
				if link, ok := resolver.net.Link(segment.linkID); ok {
					distinct[link.ID] = link
				}
			}
		}
		if len(distinct) == 1 {
			for _, link := range distinct {
				return link
			}
		}
		return nil
	}
	links := resolver.net.LinksAtInternalLocation(stop.geom)
	if len(links) == 1 {
		return links[0]
	}
	return nil
}

// pruneByDrivingSide discards candidates which would require crossing
// opposing traffic on a one-way segment, per the configured country's
// driving side. Rail based stops are exempt.
func (resolver *stopPositionResolver) pruneByDrivingSide(stop *stopPosition, candidates []*TransferZone) []*TransferZone {
	if len(candidates) == 0 || containsRailMode(stop.modes) {
		return candidates
	}
	link := resolver.stopLink(stop)
	if link == nil || !link.onewayFor(stop.modes) || len(link.geom) < 2 {
		return candidates
	}
	segmentIdx, _, _, _ := projectPointOnLine(link.geom, stop.geom)
	a := link.geom[segmentIdx]
	b := link.geom[segmentIdx+1]

	expected := -1 // right hand driving: waiting areas sit right of travel direction
	if resolver.settings.drivingSide() == DRIVE_LEFT {
		expected = 1
	}
	kept := []*TransferZone{}
	for _, zone := range candidates {
		side := sideOfSegment(a, b, zone.center)
		if side == 0 || side == expected {
			kept = append(kept, zone)
		}
	}
	return kept
}
