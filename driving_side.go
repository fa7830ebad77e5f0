package osm2zoning

import (
	"strings"
)

type DrivingSide uint16

const (
	DRIVE_RIGHT = DrivingSide(iota + 1)
	DRIVE_LEFT
)

func (iotaIdx DrivingSide) String() string {
	return [...]string{"right", "left"}[iotaIdx-1]
}

// Countries driving on the left hand side (ISO 3166-1 alpha-2)
var leftHandDriveCountries = map[string]struct{}{
	"AU": {},
	"BD": {},
	"BN": {},
	"BT": {},
	"BW": {},
	"CY": {},
	"GB": {},
	"HK": {},
	"ID": {},
	"IE": {},
	"IN": {},
	"JM": {},
	"JP": {},
	"KE": {},
	"LK": {},
	"MT": {},
	"MU": {},
	"MY": {},
	"MZ": {},
	"NA": {},
	"NP": {},
	"NZ": {},
	"PG": {},
	"PK": {},
	"SG": {},
	"TH": {},
	"TZ": {},
	"UG": {},
	"ZA": {},
	"ZM": {},
	"ZW": {},
}

// drivingSideForCountry returns driving side for given ISO 3166-1 alpha-2 country code.
// Unknown or empty codes fall back to right hand side driving.
func drivingSideForCountry(countryCode string) DrivingSide {
	if _, ok := leftHandDriveCountries[strings.ToUpper(countryCode)]; ok {
		return DRIVE_LEFT
	}
	return DRIVE_RIGHT
}
