package boardingpass

import (
	"image"
	"image/draw"
)

const (
	barStep  = 4 // px between slice starts
	barWidth = 3 // px of ink per drawn slice
)

// barcodeSeed hashes s with the 31-multiplier string hash, modulo 2^32.
func barcodeSeed(s string) uint32 {
	var h uint32
	for _, r := range s {
		h = (h << 5) - h + uint32(r)
	}
	return h
}

// BarcodeBits returns the on/off pattern for n slices of the pseudo-barcode
// of code. The pattern is a fingerprint, not a scannable symbology: a
// linear congruential generator seeded from the code decides each slice.
// The low bit of a modulus-2^32 LCG merely alternates, so the decision bit
// is taken from the upper half of the state.
func BarcodeBits(code string, n int) []bool {
	seed := barcodeSeed(code)
	bits := make([]bool, n)
	for i := range bits {
		seed = seed*1664525 + 1013904223
		bits[i] = (seed>>16)&1 == 1
	}
	return bits
}

// drawBarcode paints the pseudo-barcode for code into r.
func drawBarcode(dst draw.Image, r image.Rectangle, code string) {
	slices := (r.Dx() + barStep - 1) / barStep
	for i, on := range BarcodeBits(code, slices) {
		if !on {
			continue
		}
		x := r.Min.X + i*barStep
		bar := image.Rect(x, r.Min.Y, x+barWidth, r.Max.Y).Intersect(r)
		draw.Draw(dst, bar, image.Black, image.Point{}, draw.Src)
	}
}
