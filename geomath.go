package osm2zoning

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadius        = 6370.986884258304
	pi180              = math.Pi / 180.0
	pi180Rev           = 180.0 / math.Pi
	metersPerDegreeLat = 111132.954
)

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers)
func greatCircleDistance(p, q orb.Point) float64 {
	lat1 := degreesToRadians(p.Lat())
	lon1 := degreesToRadians(p.Lon())
	lat2 := degreesToRadians(q.Lat())
	lon2 := degreesToRadians(q.Lon())
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	ans := c * earthRadius
	return ans
}

// distanceMeters returns distance between two geo-points (meters)
func distanceMeters(p, q orb.Point) float64 {
	return greatCircleDistance(p, q) * 1000.0
}

// findCentroid returns center point for given line (not middle point)
func findCentroid(line orb.LineString) orb.Point {
	totalPoints := len(line)
	if totalPoints == 1 {
		return line[0]
	}
	x, y, z := 0.0, 0.0, 0.0
	for i := 0; i < totalPoints; i++ {
		longitude := degreesToRadians(line[i].Lon())
		latitude := degreesToRadians(line[i].Lat())
		c1 := math.Cos(latitude)
		x += c1 * math.Cos(longitude)
		y += c1 * math.Sin(longitude)
		z += math.Sin(latitude)
	}

	x /= float64(totalPoints)
	y /= float64(totalPoints)
	z /= float64(totalPoints)

	centralLongitude := math.Atan2(y, x)
	centralSquareRoot := math.Sqrt(x*x + y*y)
	centralLatitude := math.Atan2(z, centralSquareRoot)

	return orb.Point{radiansTodegrees(centralLongitude), radiansTodegrees(centralLatitude)}
}

// pointOnSegmentByFraction returns a point on given segment assuming knowledge about fraction
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p.Lon() + (fraction * q.Lon()),
		(1-fraction)*p.Lat() + (fraction * q.Lat()),
	}
}

// projectPointOnLine returns the closest point of given line to given point
// alongside the index of the line segment the projection falls on, the
// fraction along that segment and the distance in meters.
// Note: projection itself is Euclidean (Lon == X, Lat == Y), distance is spherical
func projectPointOnLine(line orb.LineString, p orb.Point) (segmentIdx int, fraction float64, closest orb.Point, distance float64) {
	if len(line) == 0 {
		return 0, 0.0, orb.Point{}, math.MaxFloat64
	}
	if len(line) == 1 {
		return 0, 0.0, line[0], distanceMeters(line[0], p)
	}
	best := math.MaxFloat64
	for i := 1; i < len(line); i++ {
		a := line[i-1]
		b := line[i]
		abx := b.Lon() - a.Lon()
		aby := b.Lat() - a.Lat()
		apx := p.Lon() - a.Lon()
		apy := p.Lat() - a.Lat()
		lenSquared := abx*abx + aby*aby
		t := 0.0
		if lenSquared > 0 {
			t = (apx*abx + apy*aby) / lenSquared
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		candidate := pointOnSegmentByFraction(a, b, t)
		dist := distanceMeters(candidate, p)
		if dist < best {
			best = dist
			segmentIdx = i - 1
			fraction = t
			closest = candidate
		}
	}
	return segmentIdx, fraction, closest, best
}

// sideOfSegment returns +1 when point lies left of directed segment a->b,
// -1 when it lies right and 0 when collinear (Euclidean plane)
func sideOfSegment(a, b, p orb.Point) int {
	cross := (b.Lon()-a.Lon())*(p.Lat()-a.Lat()) - (b.Lat()-a.Lat())*(p.Lon()-a.Lon())
	if cross > 0 {
		return 1
	}
	if cross < 0 {
		return -1
	}
	return 0
}

// paddedBound returns bounding box around given point padded by given amount of meters
func paddedBound(p orb.Point, meters float64) orb.Bound {
	latPad := meters / metersPerDegreeLat
	lonScale := math.Cos(degreesToRadians(p.Lat()))
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonPad := meters / (metersPerDegreeLat * lonScale)
	return orb.Bound{
		Min: orb.Point{p.Lon() - lonPad, p.Lat() - latPad},
		Max: orb.Point{p.Lon() + lonPad, p.Lat() + latPad},
	}
}

// lineContainsInteriorPoint reports whether given point equals one of line's
// interior (non endpoint) vertices
func lineContainsInteriorPoint(line orb.LineString, p orb.Point) bool {
	for i := 1; i < len(line)-1; i++ {
		if line[i] == p {
			return true
		}
	}
	return false
}
