package raster

import (
	"fmt"
	"sync"

	"github.com/ctessum/geom/proj"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// CRS is an EPSG code. Zero means the raster carried no recognizable
// coordinate system.
type CRS int

const (
	WGS84       CRS = 4326
	WebMercator CRS = 3857
)

const (
	datumWGS84 = "+datum=WGS84"
	datumNAD83 = "+ellps=GRS80 +towgs84=0,0,0,0,0,0,0"
)

// Geographic systems; all of them are longitude/latitude in degrees.
var geographic = map[CRS]string{
	4326: "+proj=longlat " + datumWGS84 + " +no_defs",
	4269: "+proj=longlat " + datumNAD83 + " +no_defs",
	4258: "+proj=longlat " + datumNAD83 + " +no_defs",
	4283: "+proj=longlat " + datumNAD83 + " +no_defs",
	4617: "+proj=longlat " + datumNAD83 + " +no_defs",
}

// Projected systems GCBM tiles and inventories are commonly delivered in.
var projected = map[CRS]string{
	3857: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
	// NAD83 / Canada Atlas Lambert, and its CSRS variant.
	3978: "+proj=lcc +lat_1=49 +lat_2=77 +lat_0=49 +lon_0=-95 +x_0=0 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
	3979: "+proj=lcc +lat_1=49 +lat_2=77 +lat_0=49 +lon_0=-95 +x_0=0 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
	// NAD83 / Statistics Canada Lambert.
	3347: "+proj=lcc +lat_1=49 +lat_2=77 +lat_0=63.390675 +lon_0=-91.86666666666666 +x_0=6200000 +y_0=3000000 " + datumNAD83 + " +units=m +no_defs",
	// NAD83 / BC Albers.
	3005: "+proj=aea +lat_1=50 +lat_2=58.5 +lat_0=45 +lon_0=-126 +x_0=1000000 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
	// NAD83 / Conus Albers.
	5070: "+proj=aea +lat_1=29.5 +lat_2=45.5 +lat_0=23 +lon_0=-96 +x_0=0 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
	// NAD83 / Alberta 10-TM (Forest) and (Resource).
	3400: "+proj=tmerc +lat_0=0 +lon_0=-115 +k=0.9992 +x_0=500000 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
	3401: "+proj=tmerc +lat_0=0 +lon_0=-115 +k=0.9992 +x_0=0 +y_0=0 " + datumNAD83 + " +units=m +no_defs",
}

func (c CRS) String() string {
	if c == 0 {
		return "unknown"
	}
	return fmt.Sprintf("EPSG:%d", int(c))
}

// IsGeographic reports whether coordinates are longitude/latitude degrees.
func (c CRS) IsGeographic() bool {
	_, ok := geographic[c]
	return ok
}

// utmZone returns the zone and hemisphere for WGS84 (326zz/327zz) and NAD83
// (269zz) UTM codes.
func (c CRS) utmZone() (zone int, south, nad83, ok bool) {
	switch {
	case c >= 32601 && c <= 32660:
		return int(c) - 32600, false, false, true
	case c >= 32701 && c <= 32760:
		return int(c) - 32700, true, false, true
	case c >= 26901 && c <= 26923:
		return int(c) - 26900, false, true, true
	}
	return 0, false, false, false
}

// Definition returns the PROJ.4 definition of c.
func (c CRS) Definition() (string, bool) {
	if def, ok := geographic[c]; ok {
		return def, true
	}
	if def, ok := projected[c]; ok {
		return def, true
	}
	if zone, south, nad83, ok := c.utmZone(); ok {
		datum, northing := datumWGS84, 0
		if nad83 {
			datum = datumNAD83
		}
		if south {
			northing = 10000000
		}
		return fmt.Sprintf("+proj=tmerc +lat_0=0 +lon_0=%d +k=0.9996 +x_0=500000 +y_0=%d %s +units=m +no_defs",
			(zone-1)*6-180+3, northing, datum), true
	}
	return "", false
}

// Supported reports whether coordinates in c can be transformed.
func (c CRS) Supported() bool {
	_, ok := c.Definition()
	return ok
}

// UTM returns the WGS84 UTM code for a zone.
func UTM(zone int, south bool) CRS {
	if south {
		return CRS(32700 + zone)
	}
	return CRS(32600 + zone)
}

var (
	referencesMu sync.Mutex
	references   = map[CRS]*proj.SR{}
)

// reference parses and caches the spatial reference for c.
func (c CRS) reference() (*proj.SR, error) {
	referencesMu.Lock()
	defer referencesMu.Unlock()
	if sr, ok := references[c]; ok {
		return sr, nil
	}
	def, ok := c.Definition()
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported CRS %s", c)
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "parse %s", c)
	}
	references[c] = sr
	return sr, nil
}

// Transform converts coordinates between two reference systems. Geographic
// coordinates are in degrees.
type Transform func(x, y float64) (float64, float64, error)

// NewTransform returns a coordinate transform from src to dst.
func NewTransform(src, dst CRS) (Transform, error) {
	if src == dst {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}
	if !src.Supported() || !dst.Supported() {
		return nil, errors.New(errors.ErrCodeUnsupported, "cannot transform %s to %s", src, dst)
	}
	from, err := src.reference()
	if err != nil {
		return nil, err
	}
	to, err := dst.reference()
	if err != nil {
		return nil, err
	}
	t, err := from.NewTransform(to)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "transform %s to %s", src, dst)
	}
	return Transform(t), nil
}
