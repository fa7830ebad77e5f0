package osm2zoning

import (
	"fmt"

	"github.com/paulmach/osm"
)

// stopAreaResolver processes grouping relations into transfer zone groups,
// attaching already extracted waiting areas by membership and salvaging
// wrongly tagged roles. An unresolvable member is logged and skipped, never
// aborting the whole relation.
type stopAreaResolver struct {
	settings  *ZoningSettings
	zones     *ZoneStore
	groups    *GroupStore
	extractor *waitingAreaExtractor
	data      *rawZoningData

	pointsByID map[osm.NodeID]*rawPoint
	waysByID   map[osm.WayID]*rawWay

	// Owning group per stop position member, consumed by the stop position
	// resolution phase to narrow its candidate pool
	groupOfStop map[osm.NodeID]*TransferZoneGroup

	verbose bool
}

func newStopAreaResolver(settings *ZoningSettings, zones *ZoneStore, groups *GroupStore, extractor *waitingAreaExtractor, data *rawZoningData, verbose bool) *stopAreaResolver {
	resolver := &stopAreaResolver{
		settings:    settings,
		zones:       zones,
		groups:      groups,
		extractor:   extractor,
		data:        data,
		pointsByID:  make(map[osm.NodeID]*rawPoint),
		waysByID:    make(map[osm.WayID]*rawWay),
		groupOfStop: make(map[osm.NodeID]*TransferZoneGroup),
		verbose:     verbose,
	}
	for _, pt := range data.transitPoints {
		resolver.pointsByID[pt.id] = pt
	}
	for _, way := range data.transitWays {
		resolver.waysByID[way.id] = way
	}
	return resolver
}

// process converts one grouping relation into a transfer zone group
func (resolver *stopAreaResolver) process(relation *rawRelation) (*TransferZoneGroup, error) {
	group := &TransferZoneGroup{
		ref:  relation.sourceRef(),
		name: relation.tags.Find("name"),
	}
	resolver.groups.Add(group)

	for _, member := range relation.members {
		if _, ok := platformRoles[member.role]; ok {
			resolver.attachPlatformMember(group, member)
			continue
		}
		if _, ok := stopRoles[member.role]; ok {
			resolver.handleStopMember(group, member)
			continue
		}
		resolver.handleUnknownRoleMember(group, member)
	}
	return group, nil
}

// attachPlatformMember attaches the member's transfer zone to the group
func (resolver *stopAreaResolver) attachPlatformMember(group *TransferZoneGroup, member rawMember) {
	ref := member.sourceRef()
	if zone, ok := resolver.zones.ByRef(ref); ok {
		group.AddZone(zone)
		return
	}
	// Platform modelled as polygon relation: the zone lives under the
	// relation's identity while the member references its outer way
	if member.kind == KIND_WAY {
		if relationID, ok := resolver.data.bounds.RetainedPlatformRelation(osm.WayID(member.id)); ok {
			if zone, ok := resolver.zones.ByRef(SourceRef{Kind: KIND_RELATION, ID: relationID}); ok {
				group.AddZone(zone)
				return
			}
		}
	}
	resolver.warnDiscardedMember(group, member, "platform")
}

// handleStopMember verifies a stop role member really is a resolvable stop
// position; mis-tagged members are salvaged as station or platform from what
// else is known, otherwise left untouched for the stop position phase
func (resolver *stopAreaResolver) handleStopMember(group *TransferZoneGroup, member rawMember) {
	if member.kind != KIND_POINT {
		resolver.warnDiscardedMember(group, member, "stop")
		return
	}
	pointID := osm.NodeID(member.id)
	pt, known := resolver.pointsByID[pointID]
	if known && pt.entityType == ENTITY_STOP_POSITION {
		resolver.groupOfStop[pointID] = group
		return
	}
	if !known {
		// Nothing known about it: leave it for the stop position phase,
		// which will warn if it stays unresolved
		resolver.groupOfStop[pointID] = group
		return
	}
	// Mis-tagged role: salvage from what the member actually is
	switch pt.entityType {
	case ENTITY_STATION:
		resolver.recordStationName(group, pt.tags.Find("name"))
		if resolver.verbose {
			fmt.Printf("[WARNING]: Stop role member %s of %s is a station, salvaged its name\n", member.sourceRef(), group.ref)
		}
	case ENTITY_WAITING_AREA:
		zone, err := resolver.extractor.extractFromPoint(pt, 0)
		if err == nil && zone != nil {
			group.AddZone(zone)
			if resolver.verbose {
				fmt.Printf("[WARNING]: Stop role member %s of %s is a waiting area, salvaged as platform\n", member.sourceRef(), group.ref)
			}
		}
	default:
		resolver.groupOfStop[pointID] = group
	}
}

// handleUnknownRoleMember classifies a member without role by its own tags
func (resolver *stopAreaResolver) handleUnknownRoleMember(group *TransferZoneGroup, member rawMember) {
	switch member.kind {
	case KIND_POINT:
		pt, known := resolver.pointsByID[osm.NodeID(member.id)]
		if !known {
			resolver.warnDiscardedMember(group, member, "roleless")
			return
		}
		switch pt.entityType {
		case ENTITY_STATION:
			resolver.recordStationName(group, pt.tags.Find("name"))
		case ENTITY_WAITING_AREA:
			zone, err := resolver.extractor.extractFromPoint(pt, 0)
			if err == nil && zone != nil {
				group.AddZone(zone)
			}
		case ENTITY_STOP_POSITION:
			resolver.groupOfStop[pt.id] = group
		default:
			resolver.logSkippedMember(group, member)
		}
	case KIND_WAY:
		way, known := resolver.waysByID[osm.WayID(member.id)]
		if !known {
			resolver.warnDiscardedMember(group, member, "roleless")
			return
		}
		switch way.entityType {
		case ENTITY_STATION:
			resolver.recordStationName(group, way.tags.Find("name"))
		case ENTITY_WAITING_AREA:
			zone, err := resolver.extractor.extractFromWay(way, resolver.data, 0)
			if err == nil && zone != nil {
				group.AddZone(zone)
			}
		default:
			resolver.logSkippedMember(group, member)
		}
	default:
		resolver.logSkippedMember(group, member)
	}
}

// recordStationName propagates a station name onto the group
func (resolver *stopAreaResolver) recordStationName(group *TransferZoneGroup, name string) {
	if name == "" {
		return
	}
	if group.stationName == "" {
		group.stationName = name
	}
	if group.name == "" {
		group.name = name
	}
}

// warnDiscardedMember logs an unresolvable reference once; references known
// to be valid but unsupported, or located near the bounding polygon edge
// where truncation is expected, stay silent
func (resolver *stopAreaResolver) warnDiscardedMember(group *TransferZoneGroup, member rawMember, role string) {
	ref := member.sourceRef()
	if resolver.zones.IsUnsupported(ref) {
		return
	}
	if member.kind == KIND_POINT {
		if pt, ok := resolver.data.coord(osm.NodeID(member.id)); ok && resolver.data.bounds.NearBoundary(pt) {
			return
		}
	}
	if !resolver.zones.MarkDiscarded(ref) {
		return
	}
	if resolver.verbose {
		fmt.Printf("[WARNING]: Discarding unresolvable %s member %s of stop area %s\n", role, ref, group.ref)
	}
}

func (resolver *stopAreaResolver) logSkippedMember(group *TransferZoneGroup, member rawMember) {
	if resolver.verbose {
		fmt.Printf("Skipping stop area %s member %s: unrelated infrastructure\n", group.ref, member.sourceRef())
	}
}
