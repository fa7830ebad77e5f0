package osm2zoning

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// waitingAreaExtractor converts classified raw entities into transfer zones.
// Connectoid creation is deferred: the correct access point often can not be
// known until every zone and stop position has been seen.
type waitingAreaExtractor struct {
	settings *ZoningSettings
	zones    *ZoneStore
	bounds   *BoundaryFilter
	verbose  bool
}

// parsePlatformRefs collects platform reference codes from the prioritized
// key list; one entity may expose several codes as a `;` separated list
func parsePlatformRefs(tags osm.Tags) []string {
	for _, key := range refKeysPriority {
		value := tags.Find(key)
		if value == "" {
			continue
		}
		codes := []string{}
		for _, code := range strings.Split(value, ";") {
			code = strings.TrimSpace(code)
			if code != "" {
				codes = append(codes, code)
			}
		}
		if len(codes) > 0 {
			return codes
		}
	}
	return nil
}

// defaultWaitingAreaMode infers a mode from the legacy tagging when no
// explicit per-mode access tags are present
func defaultWaitingAreaMode(tags osm.Tags) (TransitMode, bool) {
	if tags.Find("highway") == "bus_stop" {
		return MODE_BUS, true
	}
	railway := tags.Find("railway")
	if railway == "tram_stop" {
		return MODE_TRAM, true
	}
	if _, ok := ptv1RailwayWaitingAreaValues[railway]; ok {
		return MODE_TRAIN, true
	}
	if _, ok := ptv1StationValues[railway]; ok {
		// A generic station narrowed down to an unsupported system
		// (`station=monorail` and alike) must not pass as a train station
		if _, narrower := unsupportedModeValues[tags.Find("station")]; !narrower {
			return MODE_TRAIN, true
		}
	}
	if tags.Find("amenity") == "ferry_terminal" {
		return MODE_FERRY, true
	}
	if tags.Find("highway") == "platform" {
		return MODE_BUS, true
	}
	return 0, false
}

// waitingAreaModes derives the eligible access modes of a waiting area.
// An entity is unsupported only when none of its recognized mode tags map to
// a supported mode: `bus=yes` next to `monorail=yes` still gives a bus zone.
// Missing mode info altogether is a common non-fatal tagging gap: the zone is
// still created, flagged for later salvage.
func waitingAreaModes(tags osm.Tags, defaultMode TransitMode) (modes []TransitMode, needsSalvage bool, unsupported bool) {
	modes = modesFromAccessTags(tags)
	if len(modes) > 0 {
		return modes, false, false
	}
	if mode, ok := defaultWaitingAreaMode(tags); ok {
		return []TransitMode{mode}, false, false
	}
	if hasUnsupportedModeTags(tags) {
		return nil, false, true
	}
	if defaultMode != 0 {
		return []TransitMode{defaultMode}, false, false
	}
	return nil, true, false
}

func newTransferZone(ref SourceRef, geomShape orb.Geometry, center orb.Point, tags osm.Tags, modes []TransitMode, needsSalvage bool) *TransferZone {
	return &TransferZone{
		ref:              ref,
		geom:             geomShape,
		center:           center,
		name:             tags.Find("name"),
		platformRefs:     parsePlatformRefs(tags),
		modes:            modes,
		needsModeSalvage: needsSalvage,
	}
}

// shapeEligible keeps any shape at least partially covered by the bounding
// region; only pure points are judged by their single location
func (extractor *waitingAreaExtractor) shapeEligible(geomShape orb.Geometry, center orb.Point) bool {
	switch shape := geomShape.(type) {
	case orb.LineString:
		return extractor.bounds.LineEligible(shape)
	case orb.Ring:
		return extractor.bounds.LineEligible(orb.LineString(shape))
	default:
		return extractor.bounds.PointEligible(center)
	}
}

// extractFromPoint converts a classified point into a transfer zone
func (extractor *waitingAreaExtractor) extractFromPoint(pt *rawPoint, defaultMode TransitMode) (*TransferZone, error) {
	ref := pt.sourceRef()
	if _, excluded := extractor.settings.ExcludedPoints[pt.id]; excluded {
		return nil, nil
	}
	if !extractor.bounds.PointEligible(pt.geom) {
		return nil, nil
	}
	if existing, ok := extractor.zones.ByRef(ref); ok {
		return existing, nil
	}
	modes, needsSalvage, unsupported := waitingAreaModes(pt.tags, defaultMode)
	if unsupported {
		extractor.zones.MarkUnsupported(ref)
		return nil, nil
	}
	zone := newTransferZone(ref, pt.geom, pt.geom, pt.tags, modes, needsSalvage)
	if err := extractor.zones.Add(zone); err != nil {
		return nil, err
	}
	if needsSalvage && extractor.verbose {
		fmt.Printf("[WARNING]: No mode info on waiting area %s, flagged for salvage\n", ref)
	}
	return zone, nil
}

// wayGeometry assembles the way shape from whatever constituent points
// survived bounding box truncation: a partial shape is used without warning
// as long as at least one point exists
func wayGeometry(way *rawWay, data *rawZoningData) (orb.Geometry, orb.Point, bool) {
	line := orb.LineString{}
	for _, nodeID := range way.nodes {
		if pt, ok := data.coord(nodeID); ok {
			line = append(line, pt)
		}
	}
	if len(line) == 0 {
		return nil, orb.Point{}, false
	}
	if len(line) == 1 {
		return line[0], line[0], true
	}
	closed := len(way.nodes) >= 4 && way.nodes[0] == way.nodes[len(way.nodes)-1]
	center := findCentroid(line)
	if closed && len(line) >= 4 && line[0] == line[len(line)-1] {
		return orb.Ring(line), center, true
	}
	return line, center, true
}

// extractFromWay converts a classified way into a transfer zone
func (extractor *waitingAreaExtractor) extractFromWay(way *rawWay, data *rawZoningData, defaultMode TransitMode) (*TransferZone, error) {
	ref := way.sourceRef()
	if _, excluded := extractor.settings.ExcludedWays[way.id]; excluded {
		return nil, nil
	}
	if existing, ok := extractor.zones.ByRef(ref); ok {
		return existing, nil
	}
	geomShape, center, ok := wayGeometry(way, data)
	if !ok {
		// Every constituent point fell outside the bounding region
		return nil, nil
	}
	if !extractor.shapeEligible(geomShape, center) {
		return nil, nil
	}
	modes, needsSalvage, unsupported := waitingAreaModes(way.tags, defaultMode)
	if unsupported {
		extractor.zones.MarkUnsupported(ref)
		return nil, nil
	}
	zone := newTransferZone(ref, geomShape, center, way.tags, modes, needsSalvage)
	if err := extractor.zones.Add(zone); err != nil {
		return nil, err
	}
	if needsSalvage && extractor.verbose {
		fmt.Printf("[WARNING]: No mode info on waiting area %s, flagged for salvage\n", ref)
	}
	return zone, nil
}

// extractFromPlatformRelation converts a polygon modelled platform relation
// into a transfer zone using the previously retained outer boundary way
func (extractor *waitingAreaExtractor) extractFromPlatformRelation(relation *rawRelation, data *rawZoningData) (*TransferZone, error) {
	ref := relation.sourceRef()
	if existing, ok := extractor.zones.ByRef(ref); ok {
		return existing, nil
	}
	outerWayID, ok := extractor.bounds.OuterWayForRelation(relation.id)
	if !ok {
		return nil, errors.Errorf("Platform relation %d has no outer boundary way", relation.id)
	}
	outerWay, ok := data.outerWays[outerWayID]
	if !ok {
		// Outer way fell outside the read region entirely
		return nil, nil
	}
	geomShape, center, ok := wayGeometry(outerWay, data)
	if !ok {
		return nil, nil
	}
	if !extractor.shapeEligible(geomShape, center) {
		return nil, nil
	}
	modes, needsSalvage, unsupported := waitingAreaModes(relation.tags, 0)
	if unsupported {
		extractor.zones.MarkUnsupported(ref)
		return nil, nil
	}
	zone := newTransferZone(ref, geomShape, center, relation.tags, modes, needsSalvage)
	if err := extractor.zones.Add(zone); err != nil {
		return nil, err
	}
	return zone, nil
}
