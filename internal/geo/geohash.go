// Package geo provides the spatial primitives of the matching engine:
// a base-32 spatial key codec, great-circle distance, neighbor cell
// enumeration, and an R-tree index over request locations.
package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// alphabet is the 32-symbol encoding alphabet. Note the absence of
// a, i, l and o.
const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxPrecision bounds the spatial key length. Beyond 12 symbols the cell
// is smaller than a square meter, which is below GPS accuracy.
const MaxPrecision = 12

var symbolIndex = func() map[byte]int {
	m := make(map[byte]int, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = i
	}
	return m
}()

// Bounds is the rectangular cell encoded by a spatial key.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Center returns the centroid of the cell.
func (b Bounds) Center() domain.Coordinate {
	return domain.Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Width returns the longitude span of the cell in degrees.
func (b Bounds) Width() float64 { return b.MaxLon - b.MinLon }

// Height returns the latitude span of the cell in degrees.
func (b Bounds) Height() float64 { return b.MaxLat - b.MinLat }

// Encode converts a coordinate to a spatial key of the given precision by
// recursively bisecting the longitude and latitude ranges alternately,
// longitude first. Each bisection contributes one bit; every 5 bits emit
// one alphabet symbol.
func Encode(c domain.Coordinate, precision int) (string, error) {
	if precision <= 0 || precision > MaxPrecision {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("precision must be in [1, %d], got %d", MaxPrecision, precision),
		}
	}
	if err := c.Validate(); err != nil {
		return "", err
	}

	var (
		sb             strings.Builder
		latMin, latMax = -90.0, 90.0
		lonMin, lonMax = -180.0, 180.0
		acc, bits      int
		evenBit        = true // longitude bit next
	)
	sb.Grow(precision)

	for sb.Len() < precision {
		if evenBit {
			mid := (lonMin + lonMax) / 2
			if c.Lon >= mid {
				acc = acc<<1 | 1
				lonMin = mid
			} else {
				acc <<= 1
				lonMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if c.Lat >= mid {
				acc = acc<<1 | 1
				latMin = mid
			} else {
				acc <<= 1
				latMax = mid
			}
		}
		evenBit = !evenBit

		bits++
		if bits == 5 {
			sb.WriteByte(alphabet[acc])
			acc, bits = 0, 0
		}
	}

	return sb.String(), nil
}

// DecodeBounds replays the bisection encoded by key and returns the final
// cell rectangle. It returns a ValidationError for an empty key or a symbol
// outside the alphabet.
func DecodeBounds(key string) (Bounds, error) {
	if key == "" {
		return Bounds{}, &domain.ValidationError{Message: "spatial key must not be empty"}
	}
	if len(key) > MaxPrecision {
		return Bounds{}, &domain.ValidationError{
			Message: fmt.Sprintf("spatial key must be at most %d symbols, got %d", MaxPrecision, len(key)),
		}
	}

	b := Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	evenBit := true

	for i := 0; i < len(key); i++ {
		idx, ok := symbolIndex[key[i]]
		if !ok {
			return Bounds{}, &domain.ValidationError{
				Message: fmt.Sprintf("invalid spatial key symbol %q at position %d", key[i], i),
			}
		}
		// 5 bits per symbol, MSB first.
		for bit := 4; bit >= 0; bit-- {
			set := idx>>bit&1 == 1
			if evenBit {
				mid := (b.MinLon + b.MaxLon) / 2
				if set {
					b.MinLon = mid
				} else {
					b.MaxLon = mid
				}
			} else {
				mid := (b.MinLat + b.MaxLat) / 2
				if set {
					b.MinLat = mid
				} else {
					b.MaxLat = mid
				}
			}
			evenBit = !evenBit
		}
	}

	return b, nil
}

// Decode returns the centroid of the cell encoded by key. It is a lossy
// inverse of Encode: the result is the cell midpoint, not the original
// point.
func Decode(key string) (domain.Coordinate, error) {
	b, err := DecodeBounds(key)
	if err != nil {
		return domain.Coordinate{}, err
	}
	return b.Center(), nil
}

// Neighbors returns the keys of the up-to-8 cells adjacent to key (N, S, E,
// W and the four diagonals) at the same precision. The step in each
// direction is the decoded cell's own width and height, so coverage tracks
// the actual cell size at every precision. Results are de-duplicated and
// exclude the origin key; at the poles some directions fall away, so
// callers must not rely on exactly 8 results.
func Neighbors(key string) ([]string, error) {
	b, err := DecodeBounds(key)
	if err != nil {
		return nil, err
	}

	center := b.Center()
	latStep := b.Height()
	lonStep := b.Width()

	offsets := [8][2]float64{
		{latStep, 0},         // N
		{-latStep, 0},        // S
		{0, lonStep},         // E
		{0, -lonStep},        // W
		{latStep, lonStep},   // NE
		{latStep, -lonStep},  // NW
		{-latStep, lonStep},  // SE
		{-latStep, -lonStep}, // SW
	}

	seen := map[string]bool{key: true}
	neighbors := make([]string, 0, 8)

	for _, off := range offsets {
		lat := center.Lat + off[0]
		if lat > 90 || lat < -90 {
			// No cell beyond the pole.
			continue
		}
		lon := wrapLon(center.Lon + off[1])

		nk, err := Encode(domain.Coordinate{Lat: lat, Lon: lon}, len(key))
		if err != nil {
			return nil, err
		}
		if !seen[nk] {
			seen[nk] = true
			neighbors = append(neighbors, nk)
		}
	}

	return neighbors, nil
}

// CellDiagonal returns an upper bound, in km, on the diagonal of any
// precision-p cell. The bound is computed at the equator where cells are
// widest.
func CellDiagonal(precision int) float64 {
	lonBits := (5*precision + 1) / 2
	latBits := 5 * precision / 2

	heightDeg := 180 / math.Exp2(float64(latBits))
	widthDeg := 360 / math.Exp2(float64(lonBits))

	kmPerDeg := 2 * math.Pi * earthRadiusKm / 360
	h := heightDeg * kmPerDeg
	w := widthDeg * kmPerDeg
	return math.Sqrt(h*h + w*w)
}

// wrapLon normalizes a longitude nudged across the antimeridian back into
// [-180, 180].
func wrapLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	if lon < -180 {
		return lon + 360
	}
	return lon
}
