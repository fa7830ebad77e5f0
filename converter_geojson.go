package osm2zoning

import (
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(line orb.LineString) string {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i][0], line[i][1]}
	}
	b, err := geojson.NewLineStringGeometry(pts2d).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt[0], pt[1]}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// zoneFeature builds the feature for one transfer zone from whatever shape it carries
func zoneFeature(zone *TransferZone) *geojson.Feature {
	var feature *geojson.Feature
	switch shape := zone.geom.(type) {
	case orb.LineString:
		pts2d := make([][]float64, len(shape))
		for i := range shape {
			pts2d[i] = []float64{shape[i][0], shape[i][1]}
		}
		feature = geojson.NewLineStringFeature(pts2d)
	case orb.Ring:
		pts2d := make([][]float64, len(shape))
		for i := range shape {
			pts2d[i] = []float64{shape[i][0], shape[i][1]}
		}
		feature = geojson.NewPolygonFeature([][][]float64{pts2d})
	default:
		feature = geojson.NewPointFeature([]float64{zone.center[0], zone.center[1]})
	}
	feature.SetProperty("id", zone.ref.String())
	feature.SetProperty("feature_type", "transfer_zone")
	feature.SetProperty("name", zone.name)
	feature.SetProperty("modes", joinModes(zone.modes))
	groupRefs := make([]string, len(zone.groups))
	for i, group := range zone.groups {
		groupRefs[i] = group.ref.String()
	}
	feature.SetProperty("groups", groupRefs)
	return feature
}

// ExportToGeoJSON saves the zoning result as a single GeoJSON feature
// collection: zone shapes, connectoid access points and network links
func (zoning *Zoning) ExportToGeoJSON(fname string) error {
	collection := geojson.NewFeatureCollection()

	for _, zone := range zoning.Zones.All() {
		collection.AddFeature(zoneFeature(zone))
	}

	for _, connectoid := range zoning.Connectoids.All() {
		node, ok := zoning.Net.Node(connectoid.accessNodeID)
		if !ok {
			continue
		}
		feature := geojson.NewPointFeature([]float64{node.geom[0], node.geom[1]})
		feature.SetProperty("id", int(connectoid.ID))
		feature.SetProperty("feature_type", "connectoid")
		feature.SetProperty("zone", connectoid.zone.ref.String())
		feature.SetProperty("segment_id", int(connectoid.segmentID))
		feature.SetProperty("modes", joinModes(connectoid.modes))
		collection.AddFeature(feature)
	}

	for _, link := range zoning.Net.Links() {
		pts2d := make([][]float64, len(link.geom))
		for i := range link.geom {
			pts2d[i] = []float64{link.geom[i][0], link.geom[i][1]}
		}
		feature := geojson.NewLineStringFeature(pts2d)
		feature.SetProperty("id", int(link.ID))
		feature.SetProperty("feature_type", "network_link")
		feature.SetProperty("osm_way_id", int64(link.osmWayID))
		feature.SetProperty("modes", joinModes(link.allowedModes))
		feature.SetProperty("oneway", link.oneway)
		collection.AddFeature(feature)
	}

	b, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	err = os.WriteFile(fname, b, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't write file")
	}
	return nil
}
