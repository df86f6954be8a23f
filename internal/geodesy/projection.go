package geodesy

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

var toWebMercator = wgs84.EPSG().Transform(4326, 3857)

// WebMercator projects p to EPSG:3857 metres, the plane tile maps draw in.
func WebMercator(p Point) (x, y float64) {
	x, y, _ = toWebMercator(p.Lon, p.Lat, 0)
	return x, y
}

// TrailGeometry converts date-line split segments into a MultiLineString
// (x=lon, y=lat). A line needs two distinct points, so segments that collapse
// to a single position are left out.
func TrailGeometry(segments [][]Point) geom.MultiLineString {
	lines := make([]geom.LineString, 0, len(segments))
	for _, seg := range segments {
		if distinctPoints(seg) < 2 {
			continue
		}
		flat := make([]float64, 0, len(seg)*2)
		for _, p := range seg {
			flat = append(flat, p.Lon, p.Lat)
		}
		ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
		if err != nil {
			continue
		}
		lines = append(lines, ls)
	}
	return geom.NewMultiLineString(lines)
}

// distinctPoints counts distinct positions in seg, stopping at two.
func distinctPoints(seg []Point) int {
	if len(seg) == 0 {
		return 0
	}
	for _, p := range seg[1:] {
		if p != seg[0] {
			return 2
		}
	}
	return 1
}
