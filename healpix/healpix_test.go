package healpix_test

import (
	"math"
	"testing"

	"github.com/astrovis/go-skytiles/healpix"
)

func TestAngToPixRange(t *testing.T) {
	for _, order := range []healpix.Order{healpix.Ring, healpix.Nested} {
		for _, nside := range []int{1, 2, 16, 256} {
			npix := healpix.NPix(nside)
			for i := range 400 {
				lat := -math.Pi/2 + math.Pi*float64(i%20)/19
				lon := 2 * math.Pi * float64(i/20) / 20
				pix, err := healpix.AngToPix(order, nside, lat, lon)
				if err != nil {
					t.Fatalf("AngToPix(%v, %d, %v, %v) failed: %v", order, nside, lat, lon, err)
				}
				if pix < 0 || pix >= npix {
					t.Fatalf("AngToPix(%v, %d, %v, %v) = %d, out of [0, %d)", order, nside, lat, lon, pix, npix)
				}
			}
		}
	}
}

// For nside=1 each base face is a single pixel, so the RING and NESTED
// orderings coincide.
func TestOrdersAgreeNside1(t *testing.T) {
	for i := range 200 {
		lat := -math.Pi/2 + math.Pi*float64(i)/199
		lon := 2 * math.Pi * float64(i*7%200) / 200
		ring, err := healpix.AngToPix(healpix.Ring, 1, lat, lon)
		if err != nil {
			t.Fatal(err)
		}
		nest, err := healpix.AngToPix(healpix.Nested, 1, lat, lon)
		if err != nil {
			t.Fatal(err)
		}
		if ring != nest {
			t.Fatalf("nside=1 orderings disagree at lat=%v lon=%v: ring=%d nest=%d", lat, lon, ring, nest)
		}
	}
}

func TestPolarCaps(t *testing.T) {
	const nside = 8
	npix := healpix.NPix(nside)

	north, err := healpix.AngToPix(healpix.Ring, nside, math.Pi/2-1e-9, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if north >= 4 {
		t.Errorf("north pole pixel = %d, want one of the first four ring pixels", north)
	}

	south, err := healpix.AngToPix(healpix.Ring, nside, -math.Pi/2+1e-9, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if south < npix-4 {
		t.Errorf("south pole pixel = %d, want one of the last four ring pixels", south)
	}
}

func TestAngToPixErrors(t *testing.T) {
	if _, err := healpix.AngToPix(healpix.Ring, 3, 0, 0); err == nil {
		t.Errorf("AngToPix with nside=3 succeeded, want error")
	}
	if _, err := healpix.AngToPix(healpix.Ring, 4, 2.0, 0); err == nil {
		t.Errorf("AngToPix with latitude out of range succeeded, want error")
	}
}

func TestGalacticFromEquatorial(t *testing.T) {
	// The north celestial pole sits at galactic latitude ~27.13 degrees.
	glat, _ := healpix.GalacticFromEquatorial(math.Pi/2, 0)
	if got, want := glat*180/math.Pi, 27.128; math.Abs(got-want) > 0.01 {
		t.Errorf("galactic latitude of celestial pole = %v deg, want %v", got, want)
	}

	// Rotation preserves angular separation.
	a1, o1 := healpix.GalacticFromEquatorial(0.3, 1.2)
	a2, o2 := healpix.GalacticFromEquatorial(0.4, 1.1)
	if got, want := angSep(a1, o1, a2, o2), angSep(0.3, 1.2, 0.4, 1.1); math.Abs(got-want) > 1e-9 {
		t.Errorf("rotation changed angular separation: %v -> %v", want, got)
	}
}

func angSep(lat1, lon1, lat2, lon2 float64) float64 {
	d := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(lon1-lon2)
	return math.Acos(math.Max(-1, math.Min(1, d)))
}
