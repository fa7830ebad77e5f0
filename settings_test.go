package osm2zoning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
)

func TestDefaultSettings(t *testing.T) {
	settings := NewSettings()
	if settings.StopToWaitingAreaRadiusMeters != 25.0 {
		t.Errorf("Stop to waiting area radius must default to 25, but got %f", settings.StopToWaitingAreaRadiusMeters)
	}
	if settings.StationToWaitingAreaRadiusMeters != 35.0 {
		t.Errorf("Station to waiting area radius must default to 35, but got %f", settings.StationToWaitingAreaRadiusMeters)
	}
	if settings.StationToParallelTracksMeters != 60.0 {
		t.Errorf("Station to parallel tracks radius must default to 60, but got %f", settings.StationToParallelTracksMeters)
	}
	if settings.FerryStopToRouteRadiusMeters != 300.0 {
		t.Errorf("Ferry stop to route radius must default to 300, but got %f", settings.FerryStopToRouteRadiusMeters)
	}
	if !settings.RemoveDanglingZones || !settings.RemoveDanglingGroups {
		t.Errorf("Dangling cleanup must be enabled by default")
	}
	if settings.drivingSide() != DRIVE_RIGHT {
		t.Errorf("Driving side must default to right")
	}
}

func TestDrivingSideForCountry(t *testing.T) {
	if drivingSideForCountry("DE") != DRIVE_RIGHT {
		t.Errorf("Germany must drive on the right")
	}
	if drivingSideForCountry("AU") != DRIVE_LEFT {
		t.Errorf("Australia must drive on the left")
	}
	if drivingSideForCountry("gb") != DRIVE_LEFT {
		t.Errorf("Country code lookup must be case insensitive")
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	content := `country: AU
stopToWaitingAreaMeters: 40
keepDanglingZones: true
boundingPolygon:
  - [37.63, 55.74]
  - [37.66, 55.74]
  - [37.66, 55.76]
  - [37.63, 55.76]
excludedPoints:
  - 42
stopToWaitingAreaOverrides:
  - stop: 7
    kind: way
    id: 21
waitingAreaAccessWays:
  - kind: point
    id: 5
    way: 31
modeAccessOverrides:
  - stop: 9
    modes: [bus, tram]
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Error(err)
		return
	}
	settings, err := LoadSettingsFromFile(path)
	if err != nil {
		t.Error(err)
		return
	}
	if settings.CountryCode != "AU" {
		t.Errorf("Country must be AU, but got '%s'", settings.CountryCode)
	}
	if settings.StopToWaitingAreaRadiusMeters != 40.0 {
		t.Errorf("Stop to waiting area radius must be 40, but got %f", settings.StopToWaitingAreaRadiusMeters)
	}
	// Omitted radii keep defaults
	if settings.FerryStopToRouteRadiusMeters != 300.0 {
		t.Errorf("Omitted ferry radius must keep default 300, but got %f", settings.FerryStopToRouteRadiusMeters)
	}
	if settings.RemoveDanglingZones {
		t.Errorf("Dangling zone cleanup must be disabled by the file")
	}
	// The open polygon from the file must be closed
	if len(settings.BoundingPolygon) != 5 {
		t.Errorf("Bounding polygon must be closed to 5 points, but got %d", len(settings.BoundingPolygon))
	}
	if _, ok := settings.ExcludedPoints[osm.NodeID(42)]; !ok {
		t.Errorf("Point 42 must be excluded")
	}
	override, ok := settings.StopToWaitingAreaOverrides[osm.NodeID(7)]
	if !ok || override != (SourceRef{Kind: KIND_WAY, ID: 21}) {
		t.Errorf("Stop 7 must map to way/21, but got %v", override)
	}
	way, ok := settings.WaitingAreaToAccessWayOverrides[SourceRef{Kind: KIND_POINT, ID: 5}]
	if !ok || way != osm.WayID(31) {
		t.Errorf("Waiting area point/5 must map to access way 31, but got %d", way)
	}
	modes, ok := settings.ModeAccessOverrides[osm.NodeID(9)]
	if !ok || len(modes) != 2 || modes[0] != MODE_BUS || modes[1] != MODE_TRAM {
		t.Errorf("Stop 9 modes must be [bus tram], but got %v", modes)
	}
}

func TestLoadSettingsValidation(t *testing.T) {
	content := `country: AUS
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Error(err)
		return
	}
	if _, err := LoadSettingsFromFile(path); err == nil {
		t.Errorf("Three letter country code must fail validation")
	}
}
