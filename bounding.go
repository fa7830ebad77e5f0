package osm2zoning

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
)

// boundaryWarnSuppressMeters is how close to the bounding polygon edge an
// unresolvable reference may sit before its discard warning is suppressed,
// since truncation is expected there
const boundaryWarnSuppressMeters = 50.0

// BoundaryFilter tracks spatial eligibility against an optional bounding
// polygon and pre-registers raw points needed by later phases even when they
// carry no transit tag themselves
type BoundaryFilter struct {
	polygon orb.Ring

	// Points required later: constituent points of transit-relevant ways
	requiredPoints map[osm.NodeID]struct{}
	// Outer boundary ways of polygon-modelled platform relations, retained so
	// their geometry survives despite carrying no transit tag by themselves
	retainedOuterWays map[osm.WayID]int64
}

func NewBoundaryFilter(polygon orb.Ring) *BoundaryFilter {
	return &BoundaryFilter{
		polygon:           polygon,
		requiredPoints:    make(map[osm.NodeID]struct{}),
		retainedOuterWays: make(map[osm.WayID]int64),
	}
}

// RequirePoints pre-registers raw points whose coordinates later phases need
func (filter *BoundaryFilter) RequirePoints(ids []osm.NodeID) {
	for _, id := range ids {
		filter.requiredPoints[id] = struct{}{}
	}
}

func (filter *BoundaryFilter) PointRequired(id osm.NodeID) bool {
	_, ok := filter.requiredPoints[id]
	return ok
}

// RetainOuterWay flags the outer boundary way of a polygon-modelled platform
// relation so its geometry is kept for the relation's transfer zone
func (filter *BoundaryFilter) RetainOuterWay(wayID osm.WayID, relationID int64) {
	filter.retainedOuterWays[wayID] = relationID
}

// RetainedPlatformRelation reports the platform relation an outer way was retained for
func (filter *BoundaryFilter) RetainedPlatformRelation(wayID osm.WayID) (int64, bool) {
	relationID, ok := filter.retainedOuterWays[wayID]
	return relationID, ok
}

// OuterWayForRelation returns the retained outer way of given platform relation
func (filter *BoundaryFilter) OuterWayForRelation(relationID int64) (osm.WayID, bool) {
	best := osm.WayID(0)
	found := false
	for wayID, retainedFor := range filter.retainedOuterWays {
		if retainedFor != relationID {
			continue
		}
		// Lowest way id wins for determinism; a platform rarely has more than one outer way
		if !found || wayID < best {
			best = wayID
			found = true
		}
	}
	return best, found
}

// PointEligible reports whether given location falls inside the bounding
// polygon. Without a polygon everything is eligible.
func (filter *BoundaryFilter) PointEligible(pt orb.Point) bool {
	if filter.polygon == nil {
		return true
	}
	return planar.RingContains(filter.polygon, pt)
}

// LineEligible reports whether at least one point of given line falls inside
// the bounding polygon, i.e. partially covered geometry stays eligible
func (filter *BoundaryFilter) LineEligible(line orb.LineString) bool {
	if filter.polygon == nil {
		return true
	}
	for _, pt := range line {
		if planar.RingContains(filter.polygon, pt) {
			return true
		}
	}
	return false
}

// NearBoundary reports whether given location lies close to the bounding
// polygon edge, where unresolvable references are expected due to truncation
func (filter *BoundaryFilter) NearBoundary(pt orb.Point) bool {
	if filter.polygon == nil {
		return false
	}
	_, _, _, distance := projectPointOnLine(orb.LineString(filter.polygon), pt)
	return distance <= boundaryWarnSuppressMeters
}
