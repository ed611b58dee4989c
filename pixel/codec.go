package pixel

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
)

// F32 tiles are stored as a small binary header followed by a gzip
// stream of little-endian float32 values. Invalid pixels are NaN.
const f32Magic uint32 = 0x46544B53 // "SKTF"

type f32Header struct {
	Magic uint32
	Size  uint32
}

var ErrBadTileData = errors.New("skytiles: malformed tile data")

// Encode serializes the buffer for persistence: PNG for RGBA8 (invalid
// pixels become fully transparent), the float container for F32.
func Encode(b *Buffer) ([]byte, error) {
	switch b.Format {
	case FormatRGBA8:
		return encodePNG(b)
	case FormatF32:
		return encodeF32(b)
	}
	return nil, fmt.Errorf("%w: cannot encode format %v", ErrBadTileData, b.Format)
}

// Decode is the inverse of Encode. The format is detected from the data.
func Decode(data []byte) (*Buffer, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == f32Magic {
		return decodeF32(data)
	}
	return decodePNG(data)
}

func encodePNG(b *Buffer) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, b.Size, b.Size))
	for i, valid := range b.Mask {
		if !valid {
			continue // sentinel: transparent black
		}
		copy(img.Pix[4*i:4*i+4], b.RGBA[4*i:4*i+4])
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decodePNG(data []byte) (*Buffer, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTileData, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return nil, fmt.Errorf("%w: tile image is not square", ErrBadTileData)
	}

	b := NewBuffer(FormatRGBA8, bounds.Dx())
	for y := range b.Size {
		for x := range b.Size {
			r, g, bl, a := rgba8At(img, bounds.Min.X+x, bounds.Min.Y+y)
			if a == 0 {
				continue // no data
			}
			b.SetRGBA(x, y, r, g, bl, a)
		}
	}
	return b, nil
}

func rgba8At(img image.Image, x, y int) (uint8, uint8, uint8, uint8) {
	if nrgba, ok := img.(*image.NRGBA); ok {
		i := nrgba.PixOffset(x, y)
		return nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2], nrgba.Pix[i+3]
	}
	r, g, b, a := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)
}

func encodeF32(b *Buffer) ([]byte, error) {
	var buffer bytes.Buffer
	header := f32Header{Magic: f32Magic, Size: uint32(b.Size)}
	if err := binary.Write(&buffer, binary.LittleEndian, &header); err != nil {
		return nil, err
	}

	payload := make([]float32, len(b.F))
	copy(payload, b.F)
	for i, valid := range b.Mask {
		if !valid {
			payload[i] = float32(math.NaN())
		}
	}

	zw := gzip.NewWriter(&buffer)
	if err := binary.Write(zw, binary.LittleEndian, payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decodeF32(data []byte) (*Buffer, error) {
	reader := bytes.NewReader(data)

	var header f32Header
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTileData, err)
	}
	if header.Magic != f32Magic || header.Size == 0 || header.Size > 1<<14 {
		return nil, ErrBadTileData
	}

	zr, err := gzip.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTileData, err)
	}
	defer zr.Close()

	b := NewBuffer(FormatF32, int(header.Size))
	if err := binary.Read(zr, binary.LittleEndian, b.F); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTileData, err)
	}
	if _, err := zr.Read(make([]byte, 1)); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrBadTileData)
	}

	for i, v := range b.F {
		if !math.IsNaN(float64(v)) {
			b.Mask[i] = true
		} else {
			b.F[i] = 0
		}
	}
	return b, nil
}
