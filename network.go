package osm2zoning

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/tidwall/rtree"
)

/* Nodes stuff */

type NetworkNodeID int

type NetworkNode struct {
	ID                NetworkNodeID
	osmNodeID         osm.NodeID
	geom              orb.Point
	incomingSegments  []LinkSegmentID
	outcomingSegments []LinkSegmentID
}

/* Links stuff */

type NetworkLinkID int

type NetworkLink struct {
	ID           NetworkLinkID
	osmWayID     osm.WayID
	geom         orb.LineString
	lengthMeters float64
	sourceNodeID NetworkNodeID
	targetNodeID NetworkNodeID
	segments     []LinkSegmentID
	allowedModes []TransitMode
	oneway       bool
	// Modes still allowed against the geometry direction of a oneway link
	contraflowModes []TransitMode
}

// onewayFor reports whether the link is effectively one-way for any of the
// given modes: a contraflow permission lifts the restriction for its modes
func (link *NetworkLink) onewayFor(modes []TransitMode) bool {
	if !link.oneway {
		return false
	}
	if len(modes) == 0 || len(link.contraflowModes) == 0 {
		return true
	}
	return !modesOverlap(modes, link.contraflowModes)
}

/* Directed link segments stuff */

type LinkSegmentID int

type LinkSegment struct {
	ID               LinkSegmentID
	linkID           NetworkLinkID
	upstreamNodeID   NetworkNodeID
	downstreamNodeID NetworkNodeID
	allowedModes     []TransitMode
	forward          bool
}

// Network is the reference transport network the zoning is built against.
// Zoning code creates nodes via link splitting but never edits segment mode permissions.
type Network struct {
	nodes          map[NetworkNodeID]*NetworkNode
	links          map[NetworkLinkID]*NetworkLink
	segments       map[LinkSegmentID]*LinkSegment
	nodeByOSMID    map[osm.NodeID]NetworkNodeID
	nodeByLocation map[orb.Point]NetworkNodeID
	linkIndex      *rtree.RTree

	lastNodeID    NetworkNodeID
	lastLinkID    NetworkLinkID
	lastSegmentID LinkSegmentID
}

func NewNetwork() *Network {
	return &Network{
		nodes:          make(map[NetworkNodeID]*NetworkNode),
		links:          make(map[NetworkLinkID]*NetworkLink),
		segments:       make(map[LinkSegmentID]*LinkSegment),
		nodeByOSMID:    make(map[osm.NodeID]NetworkNodeID),
		nodeByLocation: make(map[orb.Point]NetworkNodeID),
		linkIndex:      &rtree.RTree{},
	}
}

// AddNode registers a node for given OSM node identifier (zero when the node
// does not originate from a raw point) reusing an existing node at the very
// same location
func (net *Network) AddNode(osmNodeID osm.NodeID, pt orb.Point) *NetworkNode {
	if nodeID, ok := net.nodeByLocation[pt]; ok {
		node := net.nodes[nodeID]
		if node.osmNodeID == 0 && osmNodeID != 0 {
			node.osmNodeID = osmNodeID
			net.nodeByOSMID[osmNodeID] = node.ID
		}
		return node
	}
	net.lastNodeID++
	node := &NetworkNode{
		ID:                net.lastNodeID,
		osmNodeID:         osmNodeID,
		geom:              pt,
		incomingSegments:  make([]LinkSegmentID, 0),
		outcomingSegments: make([]LinkSegmentID, 0),
	}
	net.nodes[node.ID] = node
	net.nodeByLocation[pt] = node.ID
	if osmNodeID != 0 {
		net.nodeByOSMID[osmNodeID] = node.ID
	}
	return node
}

// AddLink registers a link between two known nodes and generates its directed
// segments: one for oneway links, two otherwise
func (net *Network) AddLink(osmWayID osm.WayID, geomLine orb.LineString, sourceNodeID, targetNodeID NetworkNodeID, allowedModes []TransitMode, oneway bool) *NetworkLink {
	return net.addLinkDirected(osmWayID, geomLine, sourceNodeID, targetNodeID, allowedModes, oneway, nil)
}

// AddLinkWithContraflow registers a one-way link which given modes may still
// travel against: the backward segment exists but carries only those modes
func (net *Network) AddLinkWithContraflow(osmWayID osm.WayID, geomLine orb.LineString, sourceNodeID, targetNodeID NetworkNodeID, allowedModes, contraflowModes []TransitMode) *NetworkLink {
	return net.addLinkDirected(osmWayID, geomLine, sourceNodeID, targetNodeID, allowedModes, true, contraflowModes)
}

func (net *Network) addLinkDirected(osmWayID osm.WayID, geomLine orb.LineString, sourceNodeID, targetNodeID NetworkNodeID, allowedModes []TransitMode, oneway bool, contraflowModes []TransitMode) *NetworkLink {
	net.lastLinkID++
	link := &NetworkLink{
		ID:              net.lastLinkID,
		osmWayID:        osmWayID,
		geom:            geomLine,
		lengthMeters:    geo.LengthHaversign(geomLine),
		sourceNodeID:    sourceNodeID,
		targetNodeID:    targetNodeID,
		segments:        make([]LinkSegmentID, 0, 2),
		allowedModes:    make([]TransitMode, len(allowedModes)),
		oneway:          oneway,
		contraflowModes: modeIntersection(contraflowModes, allowedModes),
	}
	copy(link.allowedModes, allowedModes)
	net.links[link.ID] = link

	net.addSegment(link, sourceNodeID, targetNodeID, link.allowedModes, true)
	if !oneway {
		net.addSegment(link, targetNodeID, sourceNodeID, link.allowedModes, false)
	} else if len(link.contraflowModes) > 0 {
		net.addSegment(link, targetNodeID, sourceNodeID, link.contraflowModes, false)
	}

	bound := geomLine.Bound()
	net.linkIndex.Insert([2]float64{bound.Min.Lon(), bound.Min.Lat()}, [2]float64{bound.Max.Lon(), bound.Max.Lat()}, link.ID)
	return link
}

func (net *Network) addSegment(link *NetworkLink, upstreamNodeID, downstreamNodeID NetworkNodeID, allowedModes []TransitMode, forward bool) *LinkSegment {
	net.lastSegmentID++
	segment := &LinkSegment{
		ID:               net.lastSegmentID,
		linkID:           link.ID,
		upstreamNodeID:   upstreamNodeID,
		downstreamNodeID: downstreamNodeID,
		allowedModes:     allowedModes,
		forward:          forward,
	}
	net.segments[segment.ID] = segment
	link.segments = append(link.segments, segment.ID)
	net.nodes[downstreamNodeID].incomingSegments = append(net.nodes[downstreamNodeID].incomingSegments, segment.ID)
	net.nodes[upstreamNodeID].outcomingSegments = append(net.nodes[upstreamNodeID].outcomingSegments, segment.ID)
	return segment
}

// NodeAt returns the node located exactly at given point
func (net *Network) NodeAt(pt orb.Point) (*NetworkNode, bool) {
	nodeID, ok := net.nodeByLocation[pt]
	if !ok {
		return nil, false
	}
	return net.nodes[nodeID], true
}

// NodeByOSMID returns the node originating from given raw point
func (net *Network) NodeByOSMID(osmNodeID osm.NodeID) (*NetworkNode, bool) {
	nodeID, ok := net.nodeByOSMID[osmNodeID]
	if !ok {
		return nil, false
	}
	return net.nodes[nodeID], true
}

// LinksNear returns links whose bounding boxes fall within given radius around
// given point, ordered by identifier for deterministic downstream processing
func (net *Network) LinksNear(pt orb.Point, radiusMeters float64) []*NetworkLink {
	bound := paddedBound(pt, radiusMeters)
	found := []*NetworkLink{}
	net.linkIndex.Search(
		[2]float64{bound.Min.Lon(), bound.Min.Lat()},
		[2]float64{bound.Max.Lon(), bound.Max.Lat()},
		func(min, max [2]float64, data interface{}) bool {
			if linkID, ok := data.(NetworkLinkID); ok {
				if link, ok := net.links[linkID]; ok {
					found = append(found, link)
				}
			}
			return true
		},
	)
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found
}

// LinksAtInternalLocation returns links for which given point is internal to
// the geometry, i.e. lies on the link but is neither its source nor its target
func (net *Network) LinksAtInternalLocation(pt orb.Point) []*NetworkLink {
	candidates := net.LinksNear(pt, 5.0)
	found := []*NetworkLink{}
	for _, link := range candidates {
		if len(link.geom) == 0 || pt == link.geom[0] || pt == link.geom[len(link.geom)-1] {
			continue
		}
		if lineContainsInteriorPoint(link.geom, pt) {
			found = append(found, link)
			continue
		}
		segmentIdx, fraction, _, dist := projectPointOnLine(link.geom, pt)
		if dist < 0.001 {
			onStart := segmentIdx == 0 && fraction == 0.0
			onEnd := segmentIdx == len(link.geom)-2 && fraction == 1.0
			if !onStart && !onEnd {
				found = append(found, link)
			}
		}
	}
	return found
}

// SegmentsEntering returns directed segments whose downstream node is the given one
func (net *Network) SegmentsEntering(node *NetworkNode) []*LinkSegment {
	segments := make([]*LinkSegment, 0, len(node.incomingSegments))
	for _, segmentID := range node.incomingSegments {
		segments = append(segments, net.segments[segmentID])
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].ID < segments[j].ID })
	return segments
}

// SegmentRewire maps a segment removed by a link split to its replacement.
// Matching key for the caller is the original downstream node identity: a
// consumer anchored on OldSegment keeps its access node and merely swaps the
// segment reference.
type SegmentRewire struct {
	OldSegment     LinkSegmentID
	DownstreamNode NetworkNodeID
	NewSegment     LinkSegmentID
}

// LinkSplitResult describes the outcome of splitting a link at an internal location
type LinkSplitResult struct {
	Node       *NetworkNode
	FirstLink  *NetworkLink
	SecondLink *NetworkLink
	Rewires    []SegmentRewire
}

// SplitLinkAt breaks given link at given internal location, producing a new
// node and two replacement links. All indexes (link spatial index, location
// lookups, node segment lists) are consistent upon return; the rewire records
// must be applied by the caller to any external segment references before any
// further network access.
func (net *Network) SplitLinkAt(linkID NetworkLinkID, pt orb.Point, osmNodeID osm.NodeID) (*LinkSplitResult, error) {
	link, ok := net.links[linkID]
	if !ok {
		return nil, errors.Errorf("Can't split unknown link %d", linkID)
	}
	if len(link.geom) < 2 {
		return nil, errors.Errorf("Link %d has degenerate geometry", linkID)
	}
	// Splitting at an endpoint is a no-op: reuse the existing node
	if pt == link.geom[0] {
		return &LinkSplitResult{Node: net.nodes[link.sourceNodeID]}, nil
	}
	if pt == link.geom[len(link.geom)-1] {
		return &LinkSplitResult{Node: net.nodes[link.targetNodeID]}, nil
	}

	var firstGeom, secondGeom orb.LineString
	if lineContainsInteriorPoint(link.geom, pt) {
		idx := 0
		for i := 1; i < len(link.geom)-1; i++ {
			if link.geom[i] == pt {
				idx = i
				break
			}
		}
		firstGeom = append(orb.LineString{}, link.geom[:idx+1]...)
		secondGeom = append(orb.LineString{}, link.geom[idx:]...)
	} else {
		segmentIdx, _, closest, dist := projectPointOnLine(link.geom, pt)
		if dist > 1.0 {
			return nil, errors.Errorf("Location %v is too far (%f m) from link %d to split it", pt, dist, linkID)
		}
		firstGeom = append(orb.LineString{}, link.geom[:segmentIdx+1]...)
		firstGeom = append(firstGeom, closest)
		secondGeom = orb.LineString{closest}
		secondGeom = append(secondGeom, link.geom[segmentIdx+1:]...)
		pt = closest
	}

	node := net.AddNode(osmNodeID, pt)

	oldForward, oldBackward := net.linkDirectedSegments(link)
	net.removeLink(link)

	firstLink := net.addLinkDirected(link.osmWayID, firstGeom, link.sourceNodeID, node.ID, link.allowedModes, link.oneway, link.contraflowModes)
	secondLink := net.addLinkDirected(link.osmWayID, secondGeom, node.ID, link.targetNodeID, link.allowedModes, link.oneway, link.contraflowModes)

	rewires := []SegmentRewire{}
	if oldForward != nil {
		newForward, _ := net.linkDirectedSegments(secondLink)
		rewires = append(rewires, SegmentRewire{
			OldSegment:     oldForward.ID,
			DownstreamNode: link.targetNodeID,
			NewSegment:     newForward.ID,
		})
	}
	if oldBackward != nil {
		_, newBackward := net.linkDirectedSegments(firstLink)
		rewires = append(rewires, SegmentRewire{
			OldSegment:     oldBackward.ID,
			DownstreamNode: link.sourceNodeID,
			NewSegment:     newBackward.ID,
		})
	}

	return &LinkSplitResult{
		Node:       node,
		FirstLink:  firstLink,
		SecondLink: secondLink,
		Rewires:    rewires,
	}, nil
}

func (net *Network) linkDirectedSegments(link *NetworkLink) (forward *LinkSegment, backward *LinkSegment) {
	for _, segmentID := range link.segments {
		segment := net.segments[segmentID]
		if segment.forward {
			forward = segment
		} else {
			backward = segment
		}
	}
	return forward, backward
}

func (net *Network) removeLink(link *NetworkLink) {
	for _, segmentID := range link.segments {
		segment := net.segments[segmentID]
		downstream := net.nodes[segment.downstreamNodeID]
		downstream.incomingSegments = removeSegmentID(downstream.incomingSegments, segmentID)
		upstream := net.nodes[segment.upstreamNodeID]
		upstream.outcomingSegments = removeSegmentID(upstream.outcomingSegments, segmentID)
		delete(net.segments, segmentID)
	}
	bound := link.geom.Bound()
	net.linkIndex.Delete([2]float64{bound.Min.Lon(), bound.Min.Lat()}, [2]float64{bound.Max.Lon(), bound.Max.Lat()}, link.ID)
	delete(net.links, link.ID)
}

func removeSegmentID(segments []LinkSegmentID, segmentID LinkSegmentID) []LinkSegmentID {
	filtered := segments[:0]
	for _, candidate := range segments {
		if candidate != segmentID {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// Link returns link by its identifier
func (net *Network) Link(linkID NetworkLinkID) (*NetworkLink, bool) {
	link, ok := net.links[linkID]
	return link, ok
}

// Segment returns directed segment by its identifier
func (net *Network) Segment(segmentID LinkSegmentID) (*LinkSegment, bool) {
	segment, ok := net.segments[segmentID]
	return segment, ok
}

// Node returns node by its identifier
func (net *Network) Node(nodeID NetworkNodeID) (*NetworkNode, bool) {
	node, ok := net.nodes[nodeID]
	return node, ok
}

// Nodes returns every node ordered by identifier
func (net *Network) Nodes() []*NetworkNode {
	nodes := make([]*NetworkNode, 0, len(net.nodes))
	for _, node := range net.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Links returns every link ordered by identifier
func (net *Network) Links() []*NetworkLink {
	links := make([]*NetworkLink, 0, len(net.links))
	for _, link := range net.links {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links
}

// NodesNum reports the current number of nodes
func (net *Network) NodesNum() int {
	return len(net.nodes)
}

// LinksNum reports the current number of links
func (net *Network) LinksNum() int {
	return len(net.links)
}
