package geo

import (
	"math"
	"testing"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

var (
	sanFrancisco = domain.Coordinate{Lat: 37.7749, Lng: -122.4194}
	paloAlto     = domain.Coordinate{Lat: 37.4443, Lng: -122.1607}
)

func TestDistanceMiles(t *testing.T) {
	if d := DistanceMiles(sanFrancisco, sanFrancisco); d != 0 {
		t.Fatalf("expected 0 for identical points, got %f", d)
	}

	d := DistanceMiles(sanFrancisco, paloAlto)
	if d < 26 || d > 27.5 {
		t.Fatalf("expected roughly 26.9 miles SF->Palo Alto, got %f", d)
	}
	if d != math.Round(d*10)/10 {
		t.Fatalf("expected one decimal rounding, got %f", d)
	}
	if back := DistanceMiles(paloAlto, sanFrancisco); back != d {
		t.Fatalf("distance should be symmetric: %f vs %f", d, back)
	}
}

func TestBearingCardinalPoints(t *testing.T) {
	origin := domain.Coordinate{Lat: 0, Lng: 0}
	cases := []struct {
		to   domain.Coordinate
		want string
	}{
		{domain.Coordinate{Lat: 1, Lng: 0}, "N"},
		{domain.Coordinate{Lat: 0, Lng: 1}, "E"},
		{domain.Coordinate{Lat: -1, Lng: 0}, "S"},
		{domain.Coordinate{Lat: 0, Lng: -1}, "W"},
		{domain.Coordinate{Lat: 1, Lng: 1}, "NE"},
		{domain.Coordinate{Lat: -1, Lng: -1}, "SW"},
	}
	for _, tc := range cases {
		b := Bearing(origin, tc.to)
		if b < 0 || b >= 360 {
			t.Fatalf("bearing out of range: %f", b)
		}
		if got := Cardinal(b); got != tc.want {
			t.Fatalf("bearing to %v = %f (%s), want %s", tc.to, b, got, tc.want)
		}
	}
}

func TestCardinalWrapsNorth(t *testing.T) {
	if got := Cardinal(350); got != "N" {
		t.Fatalf("expected 350 to round to N, got %s", got)
	}
	if got := Cardinal(337.6); got != "N" {
		t.Fatalf("expected 337.6 to round to N, got %s", got)
	}
	if got := Cardinal(337.4); got != "NW" {
		t.Fatalf("expected 337.4 to round to NW, got %s", got)
	}
}

func TestCardinalTiesRoundToEven(t *testing.T) {
	cases := map[float64]string{
		22.5:  "N",
		67.5:  "E",
		112.5: "E",
		157.5: "S",
	}
	for bearing, want := range cases {
		if got := Cardinal(bearing); got != want {
			t.Fatalf("Cardinal(%v) = %s, want %s", bearing, got, want)
		}
	}
}

func TestMidpoint(t *testing.T) {
	if _, ok := Midpoint(nil); ok {
		t.Fatalf("expected no midpoint for empty route")
	}
	route := []domain.Coordinate{{Lat: 1}, {Lat: 2}, {Lat: 3}, {Lat: 4}}
	mid, ok := Midpoint(route)
	if !ok || mid.Lat != 3 {
		t.Fatalf("expected index len/2 vertex, got %+v", mid)
	}
}
