// Package healpix implements the HEALPix sky pixelization math needed to
// sample all-sky maps: angle-to-pixel lookup for the RING and NESTED
// orderings, plus the equatorial/galactic frame rotation.
package healpix

import (
	"fmt"
	"math"
)

// Order identifies the HEALPix pixel ordering scheme.
type Order uint8

const (
	Ring Order = iota
	Nested
)

func (o Order) String() string {
	if o == Nested {
		return "nested"
	}
	return "ring"
}

// NPix returns the total pixel count of a map with the given nside.
func NPix(nside int) int {
	return 12 * nside * nside
}

// ValidNside reports whether nside is a positive power of two.
func ValidNside(nside int) bool {
	return nside > 0 && nside&(nside-1) == 0
}

// AngToPix returns the index of the pixel containing the given sky
// position (radians). lat is measured from the equator, lon eastwards.
func AngToPix(order Order, nside int, lat, lon float64) (int, error) {
	if !ValidNside(nside) {
		return 0, fmt.Errorf("healpix: nside %d is not a power of two", nside)
	}
	if math.Abs(lat) > math.Pi/2 {
		return 0, fmt.Errorf("healpix: latitude %v out of range", lat)
	}

	z := math.Sin(lat)
	phi := math.Mod(lon, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}

	if order == Nested {
		return angToPixNest(nside, z, phi), nil
	}
	return angToPixRing(nside, z, phi), nil
}

func angToPixRing(nside int, z, phi float64) int {
	za := math.Abs(z)
	tt := phi / (math.Pi / 2) // in [0,4)

	if za <= 2.0/3.0 {
		// equatorial region
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * z * 0.75
		jp := int(temp1 - temp2) // ascending edge line index
		jm := int(temp1 + temp2) // descending edge line index

		ir := nside + 1 + jp - jm // ring number counted from z = 2/3
		kshift := 1 - ir&1

		ip := (jp + jm - nside + kshift + 1) / 2
		ip = ip % (4 * nside)

		ncap := 2 * nside * (nside - 1)
		return ncap + (ir-1)*4*nside + ip
	}

	// polar caps
	tp := tt - math.Floor(tt)
	tmp := float64(nside) * math.Sqrt(3*(1-za))
	jp := int(tp * tmp)
	jm := int((1 - tp) * tmp)

	ir := jp + jm + 1
	ip := int(tt * float64(ir))
	ip = ip % (4 * ir)

	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return NPix(nside) - 2*ir*(ir+1) + ip
}

func angToPixNest(nside int, z, phi float64) int {
	za := math.Abs(z)
	tt := phi / (math.Pi / 2)

	var face, ix, iy int

	if za <= 2.0/3.0 {
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * z * 0.75
		jp := int(temp1 - temp2)
		jm := int(temp1 + temp2)

		ifp := jp / nside
		ifm := jm / nside
		switch {
		case ifp == ifm:
			face = ifp&3 + 4
		case ifp < ifm:
			face = ifp & 3
		default:
			face = ifm&3 + 8
		}

		ix = jm & (nside - 1)
		iy = nside - jp&(nside-1) - 1
	} else {
		ntt := int(tt)
		if ntt >= 4 {
			ntt = 3
		}
		tp := tt - float64(ntt)
		tmp := float64(nside) * math.Sqrt(3*(1-za))
		jp := min(int(tp*tmp), nside-1)
		jm := min(int((1-tp)*tmp), nside-1)

		if z >= 0 {
			face = ntt
			ix = nside - jm - 1
			iy = nside - jp - 1
		} else {
			face = ntt + 8
			ix = jp
			iy = jm
		}
	}

	return face*nside*nside + int(interleave(uint32(ix))|interleave(uint32(iy))<<1)
}

// interleave spreads the bits of v so that bit i moves to bit 2i.
func interleave(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// Rotation matrix from equatorial (J2000) to galactic coordinates.
var equToGal = [3][3]float64{
	{-0.0548755604, -0.8734370902, -0.4838350155},
	{0.4941094279, -0.4448296300, 0.7469822445},
	{-0.8676661490, -0.1980763734, 0.4559837762},
}

// GalacticFromEquatorial rotates an equatorial position into the
// galactic frame. Used when sampling maps stored in galactic coordinates.
func GalacticFromEquatorial(lat, lon float64) (glat, glon float64) {
	cosLat := math.Cos(lat)
	v := [3]float64{cosLat * math.Cos(lon), cosLat * math.Sin(lon), math.Sin(lat)}

	var g [3]float64
	for i := range 3 {
		g[i] = equToGal[i][0]*v[0] + equToGal[i][1]*v[1] + equToGal[i][2]*v[2]
	}

	return math.Asin(math.Max(-1, math.Min(1, g[2]))), math.Atan2(g[1], g[0])
}
