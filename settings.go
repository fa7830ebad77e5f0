package osm2zoning

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"gopkg.in/yaml.v3"
)

const (
	defaultStopToWaitingAreaRadiusMeters    = 25.0
	defaultStationToWaitingAreaRadiusMeters = 35.0
	defaultStationToParallelTracksMeters    = 60.0
	defaultFerryStopToRouteRadiusMeters     = 300.0
)

// ZoningSettings drives the transfer zone extraction: search radii, country,
// per-entity exclusions and user overrides which always beat the heuristics
type ZoningSettings struct {
	CountryCode                      string
	StopToWaitingAreaRadiusMeters    float64
	StationToWaitingAreaRadiusMeters float64
	StationToParallelTracksMeters    float64
	FerryStopToRouteRadiusMeters     float64
	RemoveDanglingZones              bool
	RemoveDanglingGroups             bool

	// Optional bounding polygon: entities fully outside are ineligible
	BoundingPolygon orb.Ring

	// Entities excluded from processing altogether
	ExcludedPoints map[osm.NodeID]struct{}
	ExcludedWays   map[osm.WayID]struct{}

	// Explicit stop position -> waiting area mapping
	StopToWaitingAreaOverrides map[osm.NodeID]SourceRef
	// Explicit waiting area -> access way mapping
	WaitingAreaToAccessWayOverrides map[SourceRef]osm.WayID
	// Explicit eligible modes per stop position, replacing tag-derived ones
	ModeAccessOverrides map[osm.NodeID][]TransitMode
}

func defaultSettings() *ZoningSettings {
	return &ZoningSettings{
		CountryCode:                      "",
		StopToWaitingAreaRadiusMeters:    defaultStopToWaitingAreaRadiusMeters,
		StationToWaitingAreaRadiusMeters: defaultStationToWaitingAreaRadiusMeters,
		StationToParallelTracksMeters:    defaultStationToParallelTracksMeters,
		FerryStopToRouteRadiusMeters:     defaultFerryStopToRouteRadiusMeters,
		RemoveDanglingZones:              true,
		RemoveDanglingGroups:             true,
		ExcludedPoints:                   make(map[osm.NodeID]struct{}),
		ExcludedWays:                     make(map[osm.WayID]struct{}),
		StopToWaitingAreaOverrides:       make(map[osm.NodeID]SourceRef),
		WaitingAreaToAccessWayOverrides:  make(map[SourceRef]osm.WayID),
		ModeAccessOverrides:              make(map[osm.NodeID][]TransitMode),
	}
}

func NewSettings(options ...func(*ZoningSettings)) *ZoningSettings {
	settings := defaultSettings()
	for _, option := range options {
		option(settings)
	}
	return settings
}

func WithCountry(countryCode string) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.CountryCode = countryCode
	}
}

func WithStopToWaitingAreaRadius(radiusMeters float64) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.StopToWaitingAreaRadiusMeters = radiusMeters
	}
}

func WithBoundingPolygon(ring orb.Ring) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.BoundingPolygon = ring
	}
}

func WithExcludedPoints(ids []osm.NodeID) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		for _, id := range ids {
			settings.ExcludedPoints[id] = struct{}{}
		}
	}
}

func WithExcludedWays(ids []osm.WayID) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		for _, id := range ids {
			settings.ExcludedWays[id] = struct{}{}
		}
	}
}

func WithStopToWaitingAreaOverride(stopID osm.NodeID, waitingArea SourceRef) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.StopToWaitingAreaOverrides[stopID] = waitingArea
	}
}

func WithWaitingAreaAccessWayOverride(waitingArea SourceRef, wayID osm.WayID) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.WaitingAreaToAccessWayOverrides[waitingArea] = wayID
	}
}

func WithModeAccessOverride(stopID osm.NodeID, modes []TransitMode) func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.ModeAccessOverrides[stopID] = modes
	}
}

func WithKeepDanglingZones() func(*ZoningSettings) {
	return func(settings *ZoningSettings) {
		settings.RemoveDanglingZones = false
		settings.RemoveDanglingGroups = false
	}
}

// drivingSide resolves configured country to the side vehicles keep to
func (settings *ZoningSettings) drivingSide() DrivingSide {
	return drivingSideForCountry(settings.CountryCode)
}

/* YAML configuration file surface */

type settingsFileOverride struct {
	Stop        int64  `yaml:"stop" validate:"required"`
	WaitingKind string `yaml:"kind" validate:"required,oneof=point way relation"`
	WaitingID   int64  `yaml:"id" validate:"required"`
}

type settingsFileAccessWay struct {
	WaitingKind string `yaml:"kind" validate:"required,oneof=point way relation"`
	WaitingID   int64  `yaml:"id" validate:"required"`
	Way         int64  `yaml:"way" validate:"required"`
}

type settingsFileModeAccess struct {
	Stop  int64    `yaml:"stop" validate:"required"`
	Modes []string `yaml:"modes" validate:"required,min=1"`
}

type settingsFile struct {
	Country                    string                   `yaml:"country" validate:"omitempty,len=2"`
	StopToWaitingAreaMeters    float64                  `yaml:"stopToWaitingAreaMeters" validate:"gte=0"`
	StationToWaitingAreaMeters float64                  `yaml:"stationToWaitingAreaMeters" validate:"gte=0"`
	StationToParallelTracks    float64                  `yaml:"stationToParallelTracksMeters" validate:"gte=0"`
	FerryStopToRouteMeters     float64                  `yaml:"ferryStopToRouteMeters" validate:"gte=0"`
	KeepDanglingZones          bool                     `yaml:"keepDanglingZones"`
	KeepDanglingGroups         bool                     `yaml:"keepDanglingGroups"`
	BoundingPolygon            [][2]float64             `yaml:"boundingPolygon" validate:"omitempty,min=3"`
	ExcludedPoints             []int64                  `yaml:"excludedPoints"`
	ExcludedWays               []int64                  `yaml:"excludedWays"`
	StopToWaitingAreaOverrides []settingsFileOverride   `yaml:"stopToWaitingAreaOverrides" validate:"dive"`
	WaitingAreaAccessWays      []settingsFileAccessWay  `yaml:"waitingAreaAccessWays" validate:"dive"`
	ModeAccessOverrides        []settingsFileModeAccess `yaml:"modeAccessOverrides" validate:"dive"`
}

func kindFromName(name string) EntityKind {
	switch name {
	case "way":
		return KIND_WAY
	case "relation":
		return KIND_RELATION
	default:
		return KIND_POINT
	}
}

// LoadSettingsFromFile reads and validates YAML settings, applying defaults
// for omitted radii
func LoadSettingsFromFile(path string) (*ZoningSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fileContent settingsFile
	if err := yaml.Unmarshal(data, &fileContent); err != nil {
		return nil, err
	}
	v := validator.New()
	if err := v.Struct(fileContent); err != nil {
		return nil, err
	}

	settings := defaultSettings()
	settings.CountryCode = fileContent.Country
	if fileContent.StopToWaitingAreaMeters > 0 {
		settings.StopToWaitingAreaRadiusMeters = fileContent.StopToWaitingAreaMeters
	}
	if fileContent.StationToWaitingAreaMeters > 0 {
		settings.StationToWaitingAreaRadiusMeters = fileContent.StationToWaitingAreaMeters
	}
	if fileContent.StationToParallelTracks > 0 {
		settings.StationToParallelTracksMeters = fileContent.StationToParallelTracks
	}
	if fileContent.FerryStopToRouteMeters > 0 {
		settings.FerryStopToRouteRadiusMeters = fileContent.FerryStopToRouteMeters
	}
	settings.RemoveDanglingZones = !fileContent.KeepDanglingZones
	settings.RemoveDanglingGroups = !fileContent.KeepDanglingGroups
	if len(fileContent.BoundingPolygon) > 0 {
		ring := make(orb.Ring, 0, len(fileContent.BoundingPolygon))
		for _, coordinate := range fileContent.BoundingPolygon {
			ring = append(ring, orb.Point{coordinate[0], coordinate[1]})
		}
		// Close the ring if the file left it open
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		settings.BoundingPolygon = ring
	}
	for _, id := range fileContent.ExcludedPoints {
		settings.ExcludedPoints[osm.NodeID(id)] = struct{}{}
	}
	for _, id := range fileContent.ExcludedWays {
		settings.ExcludedWays[osm.WayID(id)] = struct{}{}
	}
	for _, override := range fileContent.StopToWaitingAreaOverrides {
		settings.StopToWaitingAreaOverrides[osm.NodeID(override.Stop)] = SourceRef{Kind: kindFromName(override.WaitingKind), ID: override.WaitingID}
	}
	for _, accessWay := range fileContent.WaitingAreaAccessWays {
		settings.WaitingAreaToAccessWayOverrides[SourceRef{Kind: kindFromName(accessWay.WaitingKind), ID: accessWay.WaitingID}] = osm.WayID(accessWay.Way)
	}
	for _, modeAccess := range fileContent.ModeAccessOverrides {
		settings.ModeAccessOverrides[osm.NodeID(modeAccess.Stop)] = parseModeNames(modeAccess.Modes)
	}
	return settings, nil
}
