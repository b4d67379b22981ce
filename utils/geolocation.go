package utils

import (
	"fmt"
	"math"
)

const (
	EarthRadiusKm = 6371.0
	EarthRadiusM  = 6371000.0
	DegToRad      = math.Pi / 180.0

	// HotspotGridSize is the grid resolution for hotspot bucketing, in
	// degrees (roughly 1.1 km of latitude per cell).
	HotspotGridSize = 0.01
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CalculateDistance calculates the distance in meters between two
// coordinates using the Haversine formula
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lat2Rad := lat2 * DegToRad

	dlat := (lat2 - lat1) * DegToRad
	dlon := (lon2 - lon1) * DegToRad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// CalculateDistanceKm is CalculateDistance in kilometers.
func CalculateDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return CalculateDistance(lat1, lon1, lat2, lon2) / 1000.0
}

// IsWithinRadius checks whether a point lies within radiusKm of a center.
func IsWithinRadius(lat, lon, centerLat, centerLon, radiusKm float64) bool {
	return CalculateDistanceKm(lat, lon, centerLat, centerLon) <= radiusKm
}

// GridCellKey buckets a coordinate into a hotspot grid cell.
func GridCellKey(lat, lon float64) string {
	cellLat := math.Floor(lat/HotspotGridSize) * HotspotGridSize
	cellLon := math.Floor(lon/HotspotGridSize) * HotspotGridSize
	return fmt.Sprintf("%.2f:%.2f", cellLat, cellLon)
}

// GridCellCenter returns the center coordinate of the grid cell containing
// the given point.
func GridCellCenter(lat, lon float64) Coordinate {
	return Coordinate{
		Latitude:  math.Floor(lat/HotspotGridSize)*HotspotGridSize + HotspotGridSize/2,
		Longitude: math.Floor(lon/HotspotGridSize)*HotspotGridSize + HotspotGridSize/2,
	}
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
