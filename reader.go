package osm2zoning

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// newScanner prepares correct scanner for given opened file guessing by extension
func newScanner(filename string, file *os.File) (OSMScanner, error) {
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(context.Background(), file), nil
	case ".pbf", ".osm.pbf":
		return osmpbf.New(context.Background(), file, 4), nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
	}
}

type rawPoint struct {
	id         osm.NodeID
	tags       osm.Tags
	geom       orb.Point
	scheme     TaggingScheme
	entityType TransitEntityType
}

func (pt *rawPoint) sourceRef() SourceRef {
	return SourceRef{Kind: KIND_POINT, ID: int64(pt.id)}
}

type rawWay struct {
	id              osm.WayID
	tags            osm.Tags
	nodes           []osm.NodeID
	scheme          TaggingScheme
	entityType      TransitEntityType
	networkModes    []TransitMode
	oneway          bool
	onewayReversed  bool
	contraflowModes []TransitMode
}

func (way *rawWay) sourceRef() SourceRef {
	return SourceRef{Kind: KIND_WAY, ID: int64(way.id)}
}

type rawMember struct {
	kind EntityKind
	id   int64
	role string
}

func (member *rawMember) sourceRef() SourceRef {
	return SourceRef{Kind: member.kind, ID: member.id}
}

type rawRelation struct {
	id         int64
	tags       osm.Tags
	members    []rawMember
	entityType TransitEntityType
}

func (relation *rawRelation) sourceRef() SourceRef {
	return SourceRef{Kind: KIND_RELATION, ID: relation.id}
}

// rawZoningData is the immutable snapshot one full read of the entity stream
// produces; later phases only consume it
type rawZoningData struct {
	networkWays       []*rawWay
	transitWays       []*rawWay
	outerWays         map[osm.WayID]*rawWay
	stopAreaRelations []*rawRelation
	platformRelations []*rawRelation
	transitPoints     []*rawPoint
	nodeCoords        map[osm.NodeID]orb.Point
	bounds            *BoundaryFilter
}

func (data *rawZoningData) coord(id osm.NodeID) (orb.Point, bool) {
	pt, ok := data.nodeCoords[id]
	return pt, ok
}

func memberKind(memberType osm.Type) EntityKind {
	switch memberType {
	case osm.TypeWay:
		return KIND_WAY
	case osm.TypeRelation:
		return KIND_RELATION
	default:
		return KIND_POINT
	}
}

// wayNetworkModes derives the transit modes the way's infrastructure can
// carry alongside effective oneway flags. A oneway street may still allow
// buses against the flow (`oneway:bus=no` / `oneway:psv=no`): such modes are
// reported separately so the network keeps a contraflow segment for them.
func wayNetworkModes(tags osm.Tags) (modes []TransitMode, oneway bool, reversed bool, contraflow []TransitMode) {
	modes = []TransitMode{}
	if _, ok := busHighwayValues[tags.Find("highway")]; ok {
		modes = appendModeUnique(modes, MODE_BUS)
	}
	if mode, ok := railwayTrackModes[tags.Find("railway")]; ok {
		modes = appendModeUnique(modes, mode)
	}
	if tags.Find("route") == "ferry" {
		modes = appendModeUnique(modes, MODE_FERRY)
	}
	if len(modes) == 0 {
		return nil, false, false, nil
	}

	onewayText := tags.Find("oneway")
	if _, ok := onewayYesValues[onewayText]; ok {
		oneway = true
	} else if _, ok := onewayReversedValues[onewayText]; ok {
		oneway = true
		reversed = true
	} else if onewayText == "" {
		if _, ok := junctionOnewayValues[tags.Find("junction")]; ok {
			oneway = true
		}
	}
	if oneway {
		for _, key := range []string{"oneway:bus", "oneway:psv"} {
			if tags.Find(key) == "no" {
				contraflow = appendModeUnique(contraflow, MODE_BUS)
			}
		}
	}
	return modes, oneway, reversed, contraflow
}

// readZoningData scans the entity stream three times (relations, ways,
// nodes), seeking the file back to start between scans so that re-reads stay
// deterministic across phases
func readZoningData(filename string, boundingPolygon orb.Ring, verbose bool) (*rawZoningData, error) {
	if verbose {
		fmt.Printf("Opening file: '%s'...\n", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data := &rawZoningData{
		networkWays:       []*rawWay{},
		transitWays:       []*rawWay{},
		outerWays:         make(map[osm.WayID]*rawWay),
		stopAreaRelations: []*rawRelation{},
		platformRelations: []*rawRelation{},
		transitPoints:     []*rawPoint{},
		nodeCoords:        make(map[osm.NodeID]orb.Point),
		bounds:            NewBoundaryFilter(boundingPolygon),
	}

	/* Process relations */
	if verbose {
		fmt.Printf("\tProcessing relations... ")
	}
	st := time.Now()
	{
		scannerRelations, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerRelations.Close()
		for scannerRelations.Scan() {
			obj := scannerRelations.Object()
			if obj.ObjectID().Type() != "relation" {
				continue
			}
			relation := obj.(*osm.Relation)
			_, entityType := classifyRelation(relation.Tags)
			if entityType == ENTITY_IRRELEVANT {
				continue
			}
			prepared := &rawRelation{
				id:         int64(relation.ID),
				tags:       make(osm.Tags, len(relation.Tags)),
				members:    make([]rawMember, 0, len(relation.Members)),
				entityType: entityType,
			}
			copy(prepared.tags, relation.Tags)
			for _, member := range relation.Members {
				prepared.members = append(prepared.members, rawMember{
					kind: memberKind(member.Type),
					id:   member.Ref,
					role: member.Role,
				})
			}
			switch entityType {
			case ENTITY_STOP_AREA:
				data.stopAreaRelations = append(data.stopAreaRelations, prepared)
			case ENTITY_WAITING_AREA:
				// Polygon modelled platform: flag its outer boundary way so
				// the way's geometry survives despite carrying no transit tag
				data.platformRelations = append(data.platformRelations, prepared)
				for _, member := range prepared.members {
					if member.kind == KIND_WAY && member.role == relationRoleOuter {
						data.bounds.RetainOuterWay(osm.WayID(member.id), prepared.id)
					}
				}
			}
		}
		err = scannerRelations.Err()
		if err != nil {
			return nil, err
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after relations scanning")
	}

	/* Process ways */
	if verbose {
		fmt.Printf("\tProcessing ways... ")
	}
	st = time.Now()
	{
		scannerWays, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			scheme, entityType := classifyWay(way.Tags)
			networkModes, oneway, reversed, contraflow := wayNetworkModes(way.Tags)
			_, retainedOuter := data.bounds.RetainedPlatformRelation(way.ID)
			if entityType == ENTITY_IRRELEVANT && len(networkModes) == 0 && !retainedOuter {
				continue
			}
			prepared := &rawWay{
				id:              way.ID,
				tags:            make(osm.Tags, len(way.Tags)),
				nodes:           make([]osm.NodeID, 0, len(way.Nodes)),
				scheme:          scheme,
				entityType:      entityType,
				networkModes:    networkModes,
				oneway:          oneway,
				onewayReversed:  reversed,
				contraflowModes: contraflow,
			}
			copy(prepared.tags, way.Tags)
			for _, node := range way.Nodes {
				prepared.nodes = append(prepared.nodes, node.ID)
			}
			// Pre-register constituent points so the nodes scan keeps their coordinates
			data.bounds.RequirePoints(prepared.nodes)
			if len(networkModes) > 0 {
				data.networkWays = append(data.networkWays, prepared)
			}
			if entityType != ENTITY_IRRELEVANT {
				data.transitWays = append(data.transitWays, prepared)
			}
			if retainedOuter {
				data.outerWays[way.ID] = prepared
			}
		}
		err = scannerWays.Err()
		if err != nil {
			return nil, err
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	if verbose {
		fmt.Printf("\tProcessing nodes... ")
	}
	st = time.Now()
	{
		scannerNodes, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if data.bounds.PointRequired(node.ID) {
				data.nodeCoords[node.ID] = orb.Point{node.Lon, node.Lat}
			}
			scheme, entityType := classifyPoint(node.Tags)
			if entityType == ENTITY_IRRELEVANT {
				continue
			}
			prepared := &rawPoint{
				id:         node.ID,
				tags:       make(osm.Tags, len(node.Tags)),
				geom:       orb.Point{node.Lon, node.Lat},
				scheme:     scheme,
				entityType: entityType,
			}
			copy(prepared.tags, node.Tags)
			data.transitPoints = append(data.transitPoints, prepared)
			data.nodeCoords[node.ID] = prepared.geom
		}
		err = scannerNodes.Err()
		if err != nil {
			return nil, err
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}

	if verbose {
		fmt.Printf("Number of network ways: %d\n", len(data.networkWays))
		fmt.Printf("Number of transit ways: %d\n", len(data.transitWays))
		fmt.Printf("Number of transit points: %d\n", len(data.transitPoints))
		fmt.Printf("Number of stop area relations: %d\n", len(data.stopAreaRelations))
		fmt.Printf("Number of platform relations: %d\n", len(data.platformRelations))
	}
	return data, nil
}
