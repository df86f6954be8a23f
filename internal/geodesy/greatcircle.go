package geodesy

import (
	"math"
	"slices"
)

// GreatCirclePath samples the great circle from start to end with numPoints
// steps, returning numPoints+1 points. The first and last points are start and
// end exactly. Coordinates are never wrapped here; callers that draw the path
// run SplitAtDateLine afterwards.
func GreatCirclePath(start, end Point, numPoints int) []Point {
	if numPoints < 1 {
		numPoints = DefaultPathPoints
	}
	path := make([]Point, numPoints+1)

	d := centralAngle(start.Lat, start.Lon, end.Lat, end.Lon)
	if d == 0 {
		for i := range path {
			path[i] = start
		}
		return path
	}

	lat1, lon1 := radians(start.Lat), radians(start.Lon)
	lat2, lon2 := radians(end.Lat), radians(end.Lon)
	sinD := math.Sin(d)
	// Antipodal endpoints have no unique great circle.
	antipodal := math.Abs(sinD) < 1e-12

	for i := 0; i <= numPoints; i++ {
		switch i {
		case 0:
			path[i] = start
			continue
		case numPoints:
			path[i] = end
			continue
		}
		f := float64(i) / float64(numPoints)
		if antipodal {
			path[i] = Point{
				Lat: start.Lat + (end.Lat-start.Lat)*f,
				Lon: start.Lon + (end.Lon-start.Lon)*f,
			}
			continue
		}
		a := math.Sin((1-f)*d) / sinD
		b := math.Sin(f*d) / sinD
		x := a*math.Cos(lat1)*math.Cos(lon1) + b*math.Cos(lat2)*math.Cos(lon2)
		y := a*math.Cos(lat1)*math.Sin(lon1) + b*math.Cos(lat2)*math.Sin(lon2)
		z := a*math.Sin(lat1) + b*math.Sin(lat2)
		path[i] = Point{
			Lat: degrees(math.Atan2(z, math.Hypot(x, y))),
			Lon: degrees(math.Atan2(y, x)),
		}
	}
	return path
}

// SplitAtDateLine cuts path wherever two consecutive longitudes differ by more
// than 180 degrees. The point after the jump opens the next segment; together
// the segments hold every input point exactly once, in order.
func SplitAtDateLine(path []Point) [][]Point {
	if len(path) == 0 {
		return nil
	}
	var segments [][]Point
	from := 0
	for i := 1; i < len(path); i++ {
		if math.Abs(path[i].Lon-path[i-1].Lon) > 180 {
			segments = append(segments, slices.Clone(path[from:i]))
			from = i
		}
	}
	return append(segments, slices.Clone(path[from:]))
}

// InterpolatePath returns the position at fraction f (0..1) of the path's
// index range together with the bearing of the segment it lies on. Across a
// date-line jump the position snaps to the nearer sample instead of sweeping
// the globe.
func InterpolatePath(path []Point, f float64) (Point, float64) {
	n := len(path)
	if n == 0 {
		return Point{}, 0
	}
	if n == 1 {
		return path[0], 0
	}
	pos := Clamp(f, 0, 1) * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return path[n-1], Bearing(path[n-2], path[n-1])
	}
	p0, p1 := path[i], path[i+1]
	frac := pos - float64(i)
	brng := Bearing(p0, p1)
	if math.Abs(p1.Lon-p0.Lon) > 180 {
		if frac < 0.5 {
			return p0, brng
		}
		return p1, brng
	}
	return Point{
		Lat: p0.Lat + (p1.Lat-p0.Lat)*frac,
		Lon: p0.Lon + (p1.Lon-p0.Lon)*frac,
	}, brng
}
