// File: internal/geo/geo_test.go
package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/geoprobe-cli/internal/geo"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	nyc := geo.Point{Lat: 40.7128, Lng: -74.0060}
	la := geo.Point{Lat: 34.0522, Lng: -118.2437}
	london := geo.Point{Lat: 51.5074, Lng: -0.1278}

	t.Run("New York to Los Angeles", func(t *testing.T) {
		// Surveyed great-circle distance is ~3936 km.
		assert.InDelta(t, 3936, geo.HaversineKm(nyc, la), 10)
	})

	t.Run("New York to London", func(t *testing.T) {
		assert.InDelta(t, 5570, geo.HaversineKm(nyc, london), 10)
	})

	t.Run("Zero distance", func(t *testing.T) {
		assert.Zero(t, geo.HaversineKm(nyc, nyc))
	})

	t.Run("Symmetric", func(t *testing.T) {
		assert.InDelta(t, geo.HaversineKm(nyc, la), geo.HaversineKm(la, nyc), 1e-9)
	})
}

func TestHaversineKm_SmallOffsets(t *testing.T) {
	center := geo.Point{Lat: 40.7128, Lng: -74.0060}

	// One degree of latitude is ~111.2 km everywhere on the sphere.
	north := geo.Point{Lat: center.Lat + 1, Lng: center.Lng}
	assert.InDelta(t, 111.2, geo.HaversineKm(center, north), 0.5)

	// A few hundred meters must resolve cleanly; the spatial assertion's
	// epsilon depends on sub-kilometer accuracy.
	near := geo.Point{Lat: center.Lat + 0.0045, Lng: center.Lng}
	assert.InDelta(t, 0.5, geo.HaversineKm(center, near), 0.01)
}

func TestHaversineKm_AntimeridianAndPoles(t *testing.T) {
	t.Run("Across the antimeridian", func(t *testing.T) {
		a := geo.Point{Lat: 0, Lng: 179.5}
		b := geo.Point{Lat: 0, Lng: -179.5}
		// One degree of longitude at the equator, not ~359 degrees.
		assert.InDelta(t, 111.2, geo.HaversineKm(a, b), 0.5)
	})

	t.Run("Pole to pole", func(t *testing.T) {
		north := geo.Point{Lat: 90, Lng: 0}
		south := geo.Point{Lat: -90, Lng: 0}
		// Half the Earth's mean circumference.
		assert.InDelta(t, 20015, geo.HaversineKm(north, south), 10)
	})
}
