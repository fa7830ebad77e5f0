package osm2zoning

import (
	"fmt"
)

// removeDanglingZones drops every transfer zone left without a single
// connectoid. Running it twice removes nothing further.
func removeDanglingZones(zones *ZoneStore, connectoids *ConnectoidStore, verbose bool) int {
	removed := 0
	for _, zone := range zones.All() {
		if connectoids.ZoneHasConnectoids(zone.ref) {
			continue
		}
		zones.Remove(zone)
		removed++
		if verbose {
			fmt.Printf("Removing dangling waiting area %s ('%s')\n", zone.ref, zone.name)
		}
	}
	return removed
}

// removeDanglingGroups drops every transfer zone group left without zones
func removeDanglingGroups(groups *GroupStore, verbose bool) int {
	removed := 0
	for _, group := range groups.All() {
		if len(group.zones) > 0 {
			continue
		}
		groups.Remove(group)
		removed++
		if verbose {
			fmt.Printf("Removing dangling stop area %s ('%s')\n", group.ref, group.name)
		}
	}
	return removed
}
