package location

import (
	"context"
	"testing"

	"github.com/rallypointza/rallypoint/internal/models"
)

func TestProvinceForLocation(t *testing.T) {
	cases := []struct {
		name string
		loc  models.GeoLocation
		want models.Province
	}{
		{"Johannesburg", models.GeoLocation{Latitude: -26.2041, Longitude: 28.0473}, models.ProvinceGauteng},
		{"Cape Town", models.GeoLocation{Latitude: -33.9249, Longitude: 18.4241}, models.ProvinceWesternCape},
		{"Durban", models.GeoLocation{Latitude: -29.8587, Longitude: 31.0218}, models.ProvinceKwaZuluNatal},
		{"Polokwane", models.GeoLocation{Latitude: -23.9045, Longitude: 29.4689}, models.ProvinceLimpopo},
		{"Bloemfontein", models.GeoLocation{Latitude: -29.0852, Longitude: 26.1596}, models.ProvinceFreeState},
		{"London", models.GeoLocation{Latitude: 51.5072, Longitude: -0.1276}, models.ProvinceUnknown},
		{"mid-Atlantic", models.GeoLocation{Latitude: 0, Longitude: -30}, models.ProvinceUnknown},
	}

	r := NewResolver()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := r.ProvinceForLocation(context.Background(), c.loc)
			if err != nil {
				t.Fatalf("ProvinceForLocation failed: %v", err)
			}
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}
