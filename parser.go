package osm2zoning

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ZoningParser runs the full transfer zoning pipeline over one raw entity
// file: eligibility scan, waiting area extraction and grouping, then stop
// position and connectoid resolution once the full zone population is known.
type ZoningParser struct {
	filename string
	settings *ZoningSettings
	verbose  bool
}

func NewZoningParser(filename string, options ...func(*ZoningParser)) *ZoningParser {
	parser := &ZoningParser{
		filename: filename,
		settings: NewSettings(),
		verbose:  false,
	}
	for _, option := range options {
		option(parser)
	}
	return parser
}

func WithSettings(settings *ZoningSettings) func(*ZoningParser) {
	return func(parser *ZoningParser) {
		parser.settings = settings
	}
}

func WithVerbose(verbose bool) func(*ZoningParser) {
	return func(parser *ZoningParser) {
		parser.verbose = verbose
	}
}

// Zoning is the populated result: transfer zones, their groups, connectoids
// and the (possibly split-modified) reference network
type Zoning struct {
	Zones       *ZoneStore
	Groups      *GroupStore
	Connectoids *ConnectoidStore
	Net         *Network
}

// Run executes the strictly sequential phases. A later phase assumes every
// earlier phase completed over the entire input, because matching needs the
// full candidate population.
func (parser *ZoningParser) Run() (*Zoning, error) {
	settings := parser.settings
	verbose := parser.verbose

	data, err := readZoningData(parser.filename, settings.BoundingPolygon, verbose)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read raw entities")
	}

	net := buildNetwork(data, settings, verbose)

	zones := NewZoneStore()
	groups := NewGroupStore()
	connectoids := NewConnectoidStore()
	extractor := &waitingAreaExtractor{
		settings: settings,
		zones:    zones,
		bounds:   data.bounds,
		verbose:  verbose,
	}

	parser.extractWaitingAreas(data, extractor)

	areaResolver := newStopAreaResolver(settings, zones, groups, extractor, data, verbose)
	parser.resolveStopAreas(data, areaResolver)

	parser.propagateStationNames(data, groups)
	parser.salvageZoneModes(zones, net, settings, verbose)

	stopResolver := newStopPositionResolver(settings, zones, net, extractor, verbose)
	builder := newConnectoidBuilder(settings, net, zones, connectoids, verbose)
	parser.resolveStopPositions(data, net, areaResolver, stopResolver, builder)
	parser.connectRemainingZones(zones, connectoids, builder)

	if settings.RemoveDanglingZones {
		removed := removeDanglingZones(zones, connectoids, verbose)
		if verbose {
			fmt.Printf("Removed %d dangling waiting areas\n", removed)
		}
	}
	if settings.RemoveDanglingGroups {
		removed := removeDanglingGroups(groups, verbose)
		if verbose {
			fmt.Printf("Removed %d dangling stop areas\n", removed)
		}
	}

	if verbose {
		fmt.Printf("Number of transfer zones: %d\n", zones.Len())
		fmt.Printf("Number of transfer zone groups: %d\n", groups.Len())
		fmt.Printf("Number of connectoids: %d\n", connectoids.Len())
	}

	return &Zoning{
		Zones:       zones,
		Groups:      groups,
		Connectoids: connectoids,
		Net:         net,
	}, nil
}

// extractWaitingAreas converts every classified waiting area entity into a
// transfer zone, in ascending id order per kind for deterministic output
func (parser *ZoningParser) extractWaitingAreas(data *rawZoningData, extractor *waitingAreaExtractor) {
	if parser.verbose {
		fmt.Printf("\tExtracting waiting areas... ")
	}
	st := time.Now()

	ways := make([]*rawWay, len(data.transitWays))
	copy(ways, data.transitWays)
	sort.Slice(ways, func(i, j int) bool { return ways[i].id < ways[j].id })
	for _, way := range ways {
		if way.entityType != ENTITY_WAITING_AREA {
			continue
		}
		if _, err := extractor.extractFromWay(way, data, 0); err != nil {
			fmt.Printf("[WARNING]: Skipping waiting area way %d: %s\n", way.id, err.Error())
		}
	}

	relations := make([]*rawRelation, len(data.platformRelations))
	copy(relations, data.platformRelations)
	sort.Slice(relations, func(i, j int) bool { return relations[i].id < relations[j].id })
	for _, relation := range relations {
		if _, err := extractor.extractFromPlatformRelation(relation, data); err != nil {
			fmt.Printf("[WARNING]: Skipping platform relation %d: %s\n", relation.id, err.Error())
		}
	}

	points := make([]*rawPoint, len(data.transitPoints))
	copy(points, data.transitPoints)
	sort.Slice(points, func(i, j int) bool { return points[i].id < points[j].id })
	for _, pt := range points {
		if pt.entityType != ENTITY_WAITING_AREA {
			continue
		}
		if _, err := extractor.extractFromPoint(pt, 0); err != nil {
			fmt.Printf("[WARNING]: Skipping waiting area point %d: %s\n", pt.id, err.Error())
		}
	}

	if parser.verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}
}

func (parser *ZoningParser) resolveStopAreas(data *rawZoningData, areaResolver *stopAreaResolver) {
	if parser.verbose {
		fmt.Printf("\tResolving stop areas... ")
	}
	st := time.Now()
	relations := make([]*rawRelation, len(data.stopAreaRelations))
	copy(relations, data.stopAreaRelations)
	sort.Slice(relations, func(i, j int) bool { return relations[i].id < relations[j].id })
	for _, relation := range relations {
		if _, err := areaResolver.process(relation); err != nil {
			fmt.Printf("[WARNING]: Skipping stop area relation %d: %s\n", relation.id, err.Error())
		}
	}
	if parser.verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}
}

// propagateStationNames pushes names of standalone station entities onto the
// nearest unnamed group within the configured station radius
func (parser *ZoningParser) propagateStationNames(data *rawZoningData, groups *GroupStore) {
	for _, pt := range data.transitPoints {
		if pt.entityType != ENTITY_STATION {
			continue
		}
		name := pt.tags.Find("name")
		if name == "" {
			continue
		}
		radius := parser.settings.StationToWaitingAreaRadiusMeters
		if containsRailMode(modesFromAccessTags(pt.tags)) || pt.tags.Find("railway") != "" {
			// Rail stations may sit between parallel tracks, further from their platforms
			radius = parser.settings.StationToParallelTracksMeters
		}
		var best *TransferZoneGroup
		bestDistance := radius
		for _, group := range groups.All() {
			if group.stationName != "" {
				continue
			}
			for _, zone := range group.zones {
				distance := distanceMeters(zone.center, pt.geom)
				if distance <= bestDistance {
					best = group
					bestDistance = distance
				}
			}
		}
		if best != nil {
			best.stationName = name
			if best.name == "" {
				best.name = name
			}
		}
	}
}

// salvageZoneModes fills in modes of zones flagged at extraction time:
// first from fellow group members, then from nearby infrastructure
func (parser *ZoningParser) salvageZoneModes(zones *ZoneStore, net *Network, settings *ZoningSettings, verbose bool) {
	for _, zone := range zones.All() {
		if !zone.needsModeSalvage {
			continue
		}
		salvaged := []TransitMode{}
		for _, group := range zone.groups {
			for _, sibling := range group.zones {
				if sibling != zone {
					salvaged = mergeModes(salvaged, sibling.modes)
				}
			}
		}
		if len(salvaged) == 0 {
			for _, link := range net.LinksNear(zone.center, settings.StopToWaitingAreaRadiusMeters) {
				_, _, _, distance := projectPointOnLine(link.geom, zone.center)
				if distance <= settings.StopToWaitingAreaRadiusMeters {
					salvaged = mergeModes(salvaged, link.allowedModes)
				}
			}
		}
		if len(salvaged) > 0 {
			zone.modes = salvaged
			zone.needsModeSalvage = false
		} else if verbose {
			fmt.Printf("[WARNING]: Could not salvage modes for waiting area %s\n", zone.ref)
		}
	}
}

// stopEligibleModes derives the modes a stop position serves: explicit user
// override first, then per-mode access tags, then the legacy value, then the
// infrastructure it sits on
func (parser *ZoningParser) stopEligibleModes(pt *rawPoint, net *Network) []TransitMode {
	if override, ok := parser.settings.ModeAccessOverrides[pt.id]; ok {
		return override
	}
	modes := modesFromAccessTags(pt.tags)
	if len(modes) > 0 {
		return modes
	}
	if mode, ok := defaultWaitingAreaMode(pt.tags); ok {
		return []TransitMode{mode}
	}
	if node, ok := net.NodeAt(pt.geom); ok {
		for _, segment := range net.SegmentsEntering(node) {
			modes = mergeModes(modes, segment.allowedModes)
		}
		return modes
	}
	for _, link := range net.LinksAtInternalLocation(pt.geom) {
		modes = mergeModes(modes, link.allowedModes)
	}
	return modes
}

// resolveStopPositions walks every stop position in ascending id order; the
// network may be structurally mutated (link splits) while iterating, so each
// stop is fully processed, indexes repaired, before the next one starts
func (parser *ZoningParser) resolveStopPositions(data *rawZoningData, net *Network, areaResolver *stopAreaResolver, stopResolver *stopPositionResolver, builder *connectoidBuilder) {
	if parser.verbose {
		fmt.Printf("\tResolving stop positions... ")
	}
	st := time.Now()

	points := make([]*rawPoint, len(data.transitPoints))
	copy(points, data.transitPoints)
	sort.Slice(points, func(i, j int) bool { return points[i].id < points[j].id })

	resolved := 0
	unmatched := 0
	for _, pt := range points {
		if pt.entityType != ENTITY_STOP_POSITION {
			continue
		}
		if _, excluded := parser.settings.ExcludedPoints[pt.id]; excluded {
			continue
		}
		if !data.bounds.PointEligible(pt.geom) {
			continue
		}
		stop := &stopPosition{
			id:    pt.id,
			tags:  pt.tags,
			geom:  pt.geom,
			modes: parser.stopEligibleModes(pt, net),
			group: areaResolver.groupOfStop[pt.id],
		}
		matched, err := stopResolver.resolve(stop)
		if err != nil {
			fmt.Printf("[WARNING]: Skipping stop position %d: %s\n", pt.id, err.Error())
			continue
		}
		if len(matched) == 0 {
			unmatched++
			if parser.verbose && !data.bounds.NearBoundary(pt.geom) {
				fmt.Printf("[WARNING]: No waiting area found for stop position %d\n", pt.id)
			}
			continue
		}
		for _, zone := range matched {
			connectModes := stop.modes
			if len(connectModes) == 0 {
				connectModes = zone.modes
			}
			if err := builder.createConnectoids(zone, stop.geom, pt.id, connectModes); err != nil {
				fmt.Printf("[WARNING]: Can't connect stop position %d to waiting area %s: %s\n", pt.id, zone.ref, err.Error())
				continue
			}
			if stop.group != nil {
				stop.group.AddZone(zone)
			}
		}
		resolved++
	}

	if parser.verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
		fmt.Printf("Number of resolved stop positions: %d\n", resolved)
		fmt.Printf("Number of unmatched stop positions: %d\n", unmatched)
	}
}

// connectRemainingZones creates connectoids directly at the nearest mode
// compatible link for waiting areas no stop position claimed
func (parser *ZoningParser) connectRemainingZones(zones *ZoneStore, connectoids *ConnectoidStore, builder *connectoidBuilder) {
	for _, zone := range zones.All() {
		if connectoids.ZoneHasConnectoids(zone.ref) {
			continue
		}
		if err := builder.connectZoneDirectly(zone); err != nil {
			if parser.verbose {
				fmt.Printf("[WARNING]: Waiting area %s stays without access: %s\n", zone.ref, err.Error())
			}
		}
	}
}
