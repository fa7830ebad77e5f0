package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/TrafficPLANit/osm2zoning"
)

var (
	osmFileName  = flag.String("file", "my_region.osm.pbf", "Filename of *.osm.pbf or *.osm file")
	out          = flag.String("out", "my_zoning.csv", "Filename of 'Comma-Separated Values' (CSV) formatted file. E.g.: if file name is 'map.csv' then files 'map_zones.csv', 'map_groups.csv', 'map_connectoids.csv', 'map_network_nodes.csv' and 'map_network_links.csv' will be produced")
	configName   = flag.String("config", "", "Filename of optional YAML settings file (radii, overrides, exclusions)")
	country      = flag.String("country", "", "Two-letter country code determining the driving side (side of road filtering)")
	geomFormat   = flag.String("geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")
	keepDangling = flag.Bool("keep-dangling", false, "Keep waiting areas and groups without any access connectoid")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {

	flag.Parse()

	var settings *osm2zoning.ZoningSettings
	if *configName != "" {
		loaded, err := osm2zoning.LoadSettingsFromFile(*configName)
		if err != nil {
			fmt.Println(err)
			return
		}
		settings = loaded
		if *country != "" {
			settings.CountryCode = *country
		}
	} else {
		options := []func(*osm2zoning.ZoningSettings){}
		if *country != "" {
			options = append(options, osm2zoning.WithCountry(*country))
		}
		if *keepDangling {
			options = append(options, osm2zoning.WithKeepDanglingZones())
		}
		settings = osm2zoning.NewSettings(options...)
	}

	parser := osm2zoning.NewZoningParser(
		*osmFileName,
		osm2zoning.WithSettings(settings),
		osm2zoning.WithVerbose(*verbose),
	)
	zoning, err := parser.Run()
	if err != nil {
		fmt.Println(err)
		return
	}

	if strings.ToLower(*geomFormat) == "geojson" {
		fnamePart := strings.Split(*out, ".csv")
		err = zoning.ExportToGeoJSON(fnamePart[0] + ".geojson")
	} else {
		err = zoning.ExportToCSV(*out)
	}
	if err != nil {
		fmt.Println(err)
		return
	}
}
