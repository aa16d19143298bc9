package layout

// Rect is an axis-aligned rectangle in source-image pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CoverCrop returns the centered region of an imgW x imgH image that has
// the aspect ratio of a boxW x boxH container. Drawing that region scaled to
// the box fills it without distortion.
//
// Degenerate sizes return the full image.
func CoverCrop(imgW, imgH, boxW, boxH float64) Rect {
	full := Rect{Width: imgW, Height: imgH}
	if imgW <= 0 || imgH <= 0 || boxW <= 0 || boxH <= 0 {
		return full
	}
	imageAspect := imgW / imgH
	boxAspect := boxW / boxH
	switch {
	case imageAspect > boxAspect:
		w := imgH * boxAspect
		return Rect{X: (imgW - w) / 2, Width: w, Height: imgH}
	case imageAspect < boxAspect:
		h := imgW / boxAspect
		return Rect{Y: (imgH - h) / 2, Width: imgW, Height: h}
	default:
		return full
	}
}
