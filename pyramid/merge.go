package pyramid

import "github.com/astrovis/go-skytiles/pixel"

// MergeChildren downsamples up to four child buffers into their parent.
// Children are given in the fixed top-left, top-right, bottom-left,
// bottom-right order; a nil child marks a quadrant with no tile, which
// becomes fully invalid in the parent.
//
// Each parent pixel averages the valid pixels of the corresponding 2x2
// child block. Invalid contributors are excluded from the average
// rather than diluted into it, so data boundaries keep their values; a
// block with no valid contributors yields an invalid parent pixel.
func MergeChildren(children [4]*pixel.Buffer, format pixel.Format, size int) *pixel.Buffer {
	parent := pixel.NewBuffer(format, size)
	half := size / 2

	for q, child := range children {
		if child == nil {
			continue
		}
		qx := (q % 2) * half
		qy := (q / 2) * half

		for py := range half {
			for px := range half {
				mergeBlock(parent, child, qx+px, qy+py, 2*px, 2*py)
			}
		}
	}
	return parent
}

// mergeBlock averages the valid pixels of child block (cx..cx+1, cy..cy+1)
// into parent pixel (px, py).
func mergeBlock(parent, child *pixel.Buffer, px, py, cx, cy int) {
	if parent.Format == pixel.FormatF32 {
		var sum float64
		var count int
		for dy := range 2 {
			for dx := range 2 {
				if child.Valid(cx+dx, cy+dy) {
					sum += float64(child.F32At(cx+dx, cy+dy))
					count++
				}
			}
		}
		if count > 0 {
			parent.SetF32(px, py, float32(sum/float64(count)))
		}
		return
	}

	// RGBA8: accumulate in wider integers, round half up on store.
	var sum [4]uint32
	var count uint32
	for dy := range 2 {
		for dx := range 2 {
			if !child.Valid(cx+dx, cy+dy) {
				continue
			}
			r, g, b, a := child.RGBAAt(cx+dx, cy+dy)
			sum[0] += uint32(r)
			sum[1] += uint32(g)
			sum[2] += uint32(b)
			sum[3] += uint32(a)
			count++
		}
	}
	if count > 0 {
		parent.SetRGBA(px, py,
			uint8((2*sum[0]+count)/(2*count)),
			uint8((2*sum[1]+count)/(2*count)),
			uint8((2*sum[2]+count)/(2*count)),
			uint8((2*sum[3]+count)/(2*count)))
	}
}
