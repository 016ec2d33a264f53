package domain

import "fmt"

// Coordinate is an immutable latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate lies within the valid
// latitude ([-90, 90]) and longitude ([-180, 180]) ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{
			Message: fmt.Sprintf("latitude must be in [-90, 90], got %v", c.Lat),
		}
	}
	if c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{
			Message: fmt.Sprintf("longitude must be in [-180, 180], got %v", c.Lon),
		}
	}
	return nil
}
