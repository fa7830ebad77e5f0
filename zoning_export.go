package osm2zoning

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV saves the zoning result as a set of CSV files sharing the given
// base name: transfer zones, groups, connectoids and the reference network
func (zoning *Zoning) ExportToCSV(fname string) error {

	fnameParts := strings.Split(fname, ".csv")
	fnameZones := fmt.Sprintf(fnameParts[0] + "_zones.csv")
	fnameGroups := fmt.Sprintf(fnameParts[0] + "_groups.csv")
	fnameConnectoids := fmt.Sprintf(fnameParts[0] + "_connectoids.csv")
	fnameNodes := fmt.Sprintf(fnameParts[0] + "_network_nodes.csv")
	fnameLinks := fmt.Sprintf(fnameParts[0] + "_network_links.csv")

	err := zoning.exportZonesToCSV(fnameZones)
	if err != nil {
		return errors.Wrap(err, "Can't export transfer zones")
	}

	err = zoning.exportGroupsToCSV(fnameGroups)
	if err != nil {
		return errors.Wrap(err, "Can't export transfer zone groups")
	}

	err = zoning.exportConnectoidsToCSV(fnameConnectoids)
	if err != nil {
		return errors.Wrap(err, "Can't export connectoids")
	}

	err = zoning.Net.exportNodesToCSV(fnameNodes)
	if err != nil {
		return errors.Wrap(err, "Can't export network nodes")
	}

	err = zoning.Net.exportLinksToCSV(fnameLinks)
	if err != nil {
		return errors.Wrap(err, "Can't export network links")
	}

	return nil
}

func joinModes(modes []TransitMode) string {
	names := make([]string, len(modes))
	for i, mode := range modes {
		names[i] = fmt.Sprintf("%s", mode)
	}
	return strings.Join(names, ",")
}

func (zoning *Zoning) exportZonesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "name", "modes", "platform_refs", "groups", "longitude", "latitude", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, zone := range zoning.Zones.All() {
		groupRefs := make([]string, len(zone.groups))
		for i, group := range zone.groups {
			groupRefs[i] = group.ref.String()
		}
		err = writer.Write([]string{
			zone.ref.String(),
			zone.name,
			joinModes(zone.modes),
			strings.Join(zone.platformRefs, ","),
			strings.Join(groupRefs, ","),
			fmt.Sprintf("%f", zone.center[0]),
			fmt.Sprintf("%f", zone.center[1]),
			fmt.Sprintf("%s", wkt.MarshalString(zone.geom)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write transfer zone")
		}
	}
	return nil
}

func (zoning *Zoning) exportGroupsToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "name", "station_name", "zones"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, group := range zoning.Groups.All() {
		zoneRefs := make([]string, len(group.zones))
		for i, zone := range group.zones {
			zoneRefs[i] = zone.ref.String()
		}
		err = writer.Write([]string{
			group.ref.String(),
			group.name,
			group.stationName,
			strings.Join(zoneRefs, ","),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write transfer zone group")
		}
	}
	return nil
}

func (zoning *Zoning) exportConnectoidsToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "zone", "segment_id", "access_node", "osm_node_id", "modes", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, connectoid := range zoning.Connectoids.All() {
		longitude := ""
		latitude := ""
		osmNodeID := int64(0)
		if node, ok := zoning.Net.Node(connectoid.accessNodeID); ok {
			longitude = fmt.Sprintf("%f", node.geom[0])
			latitude = fmt.Sprintf("%f", node.geom[1])
			osmNodeID = int64(node.osmNodeID)
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", connectoid.ID),
			connectoid.zone.ref.String(),
			fmt.Sprintf("%d", connectoid.segmentID),
			fmt.Sprintf("%d", connectoid.accessNodeID),
			fmt.Sprintf("%d", osmNodeID),
			joinModes(connectoid.modes),
			longitude,
			latitude,
		})
		if err != nil {
			return errors.Wrap(err, "Can't write connectoid")
		}
	}
	return nil
}

func (net *Network) exportNodesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "osm_node_id", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, node := range net.Nodes() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", node.ID),
			fmt.Sprintf("%d", node.osmNodeID),
			fmt.Sprintf("%f", node.geom[0]),
			fmt.Sprintf("%f", node.geom[1]),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write network node")
		}
	}
	return nil
}

func (net *Network) exportLinksToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "source_node", "target_node", "osm_way_id", "allowed_modes", "oneway", "length_meters", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, link := range net.Links() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", link.ID),
			fmt.Sprintf("%d", link.sourceNodeID),
			fmt.Sprintf("%d", link.targetNodeID),
			fmt.Sprintf("%d", link.osmWayID),
			joinModes(link.allowedModes),
			fmt.Sprintf("%t", link.oneway),
			fmt.Sprintf("%f", link.lengthMeters),
			fmt.Sprintf("%s", wkt.MarshalString(link.geom)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write network link")
		}
	}
	return nil
}
