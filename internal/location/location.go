// Package location resolves GPS pins to South African provinces using
// bounding boxes. A pin that falls in more than one box resolves to the box
// whose centre is nearest.
package location

import (
	"context"
	"log/slog"
	"math"

	"github.com/rallypointza/rallypoint/internal/models"
)

type boundingBox struct {
	province models.Province
	minLat   float64
	maxLat   float64
	minLng   float64
	maxLng   float64
}

func (b boundingBox) contains(loc models.GeoLocation) bool {
	return loc.Latitude >= b.minLat && loc.Latitude <= b.maxLat &&
		loc.Longitude >= b.minLng && loc.Longitude <= b.maxLng
}

func (b boundingBox) centreDistance(loc models.GeoLocation) float64 {
	dLat := loc.Latitude - (b.minLat+b.maxLat)/2
	dLng := loc.Longitude - (b.minLng+b.maxLng)/2
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Coarse boxes; overlaps at the edges are resolved by centre distance.
var provinceBoxes = []boundingBox{
	{models.ProvinceWesternCape, -34.9, -30.3, 17.8, 24.3},
	{models.ProvinceEasternCape, -34.3, -30.0, 22.6, 30.2},
	{models.ProvinceNorthernCape, -32.5, -26.0, 16.4, 25.1},
	{models.ProvinceFreeState, -30.7, -26.6, 24.3, 29.8},
	{models.ProvinceKwaZuluNatal, -31.1, -26.8, 28.9, 32.9},
	{models.ProvinceNorthWest, -28.0, -24.6, 22.6, 28.3},
	{models.ProvinceGauteng, -26.9, -25.1, 27.1, 29.1},
	{models.ProvinceMpumalanga, -27.3, -24.4, 28.3, 32.1},
	{models.ProvinceLimpopo, -25.1, -22.1, 26.4, 31.9},
}

// Resolver maps GPS pins to provinces.
type Resolver struct{}

// NewResolver creates a province resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ProvinceForLocation returns the province containing the pin, or
// ProvinceUnknown when the pin falls outside South Africa.
func (r *Resolver) ProvinceForLocation(ctx context.Context, loc models.GeoLocation) (models.Province, error) {
	best := models.ProvinceUnknown
	bestDist := math.MaxFloat64
	for _, box := range provinceBoxes {
		if !box.contains(loc) {
			continue
		}
		if d := box.centreDistance(loc); d < bestDist {
			best = box.province
			bestDist = d
		}
	}
	if best == models.ProvinceUnknown {
		slog.Debug("location outside known provinces", "lat", loc.Latitude, "lng", loc.Longitude)
	}
	return best, nil
}
