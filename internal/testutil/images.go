// Package testutil provides fixtures shared by tests and the scenario
// harness.
package testutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// PNG returns a solid w x h PNG. It panics on non-positive sizes.
func PNG(w, h int) []byte {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("testutil.PNG: invalid size %dx%d", w, h))
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := color.NRGBA{R: 0xe0, G: 0xa0, B: 0x20, A: 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(fmt.Sprintf("testutil.PNG: %v", err))
	}
	return buf.Bytes()
}

// PNGDataURL returns PNG(w, h) as a base64 data URL.
func PNGDataURL(w, h int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(PNG(w, h))
}
