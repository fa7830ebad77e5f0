package osm2zoning

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// buildNetwork assembles the reference network from scanned ways: ways are
// cut into links at nodes shared by more than one way (and at endpoints), the
// same way the raw stream is segmented into routable edges
func buildNetwork(data *rawZoningData, settings *ZoningSettings, verbose bool) *Network {
	if verbose {
		fmt.Printf("\tBuilding reference network... ")
	}
	st := time.Now()
	net := NewNetwork()

	// Count node usage to find cut locations
	useCount := make(map[osm.NodeID]int)
	for _, way := range data.networkWays {
		if _, excluded := settings.ExcludedWays[way.id]; excluded {
			continue
		}
		for i, nodeID := range way.nodes {
			if _, ok := data.coord(nodeID); !ok {
				continue
			}
			if i == 0 || i == len(way.nodes)-1 {
				useCount[nodeID] += 2
			} else {
				useCount[nodeID]++
			}
		}
	}

	truncatedWays := 0
	for _, way := range data.networkWays {
		if _, excluded := settings.ExcludedWays[way.id]; excluded {
			continue
		}
		nodeIDs := way.nodes
		if way.onewayReversed {
			nodeIDs = make([]osm.NodeID, len(way.nodes))
			for i, nodeID := range way.nodes {
				nodeIDs[len(way.nodes)-i-1] = nodeID
			}
		}

		var sourceOSMID osm.NodeID
		geometry := orb.LineString{}
		truncated := false
		for _, nodeID := range nodeIDs {
			pt, ok := data.coord(nodeID)
			if !ok {
				// Bounding box truncation: flush what we have and restart after the gap
				truncated = true
				if len(geometry) >= 2 {
					addNetworkLink(net, way, sourceOSMID, nodeID, geometry, data)
				}
				geometry = orb.LineString{}
				continue
			}
			if len(geometry) == 0 {
				sourceOSMID = nodeID
				geometry = append(geometry, pt)
				continue
			}
			geometry = append(geometry, pt)
			if useCount[nodeID] > 1 {
				addNetworkLink(net, way, sourceOSMID, nodeID, geometry, data)
				sourceOSMID = nodeID
				geometry = orb.LineString{pt}
			}
		}
		if len(geometry) >= 2 {
			lastID := nodeIDs[len(nodeIDs)-1]
			addNetworkLink(net, way, sourceOSMID, lastID, geometry, data)
		}
		if truncated {
			truncatedWays++
		}
	}

	if verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
		fmt.Printf("Number of network nodes: %d\n", len(net.nodes))
		fmt.Printf("Number of network links: %d\n", len(net.links))
		if truncatedWays > 0 {
			fmt.Printf("Number of ways with missing constituent points: %d\n", truncatedWays)
		}
	}
	return net
}

func addNetworkLink(net *Network, way *rawWay, sourceOSMID, targetOSMID osm.NodeID, geometry orb.LineString, data *rawZoningData) {
	sourcePt := geometry[0]
	targetPt := geometry[len(geometry)-1]
	if _, ok := data.coord(targetOSMID); !ok {
		// The gap node itself never becomes a graph node
		targetOSMID = 0
	}
	sourceNode := net.AddNode(sourceOSMID, sourcePt)
	targetNode := net.AddNode(targetOSMID, targetPt)
	geomCopy := make(orb.LineString, len(geometry))
	copy(geomCopy, geometry)
	if way.oneway && len(way.contraflowModes) > 0 {
		net.AddLinkWithContraflow(way.id, geomCopy, sourceNode.ID, targetNode.ID, way.networkModes, way.contraflowModes)
	} else {
		net.AddLink(way.id, geomCopy, sourceNode.ID, targetNode.ID, way.networkModes, way.oneway)
	}
}
