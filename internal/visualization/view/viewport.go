package view

import "math"

// Viewport scales and centres projected coordinates inside a window.
type Viewport struct {
	Width, Height int
	Padding       float64

	scale            float64
	offsetX, offsetY float64
}

// Scale returns the number of pixels per projected unit.
func (v *Viewport) Scale() float64 { return v.scale }

// Fit chooses scale and offset so that every point lies inside the window,
// keeping the aspect ratio.
func (v *Viewport) Fit(points []Point) {
	if len(points) == 0 {
		v.scale = 1
		v.offsetX = float64(v.Width) / 2
		v.offsetY = float64(v.Height) / 2
		return
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	worldWidth := maxX - minX
	worldHeight := maxY - minY
	if worldWidth == 0 {
		worldWidth = 1
	}
	if worldHeight == 0 {
		worldHeight = 1
	}

	scaleX := (float64(v.Width) - 2*v.Padding) / worldWidth
	scaleY := (float64(v.Height) - 2*v.Padding) / worldHeight
	v.scale = math.Min(scaleX, scaleY)
	if v.scale <= 0 || math.IsNaN(v.scale) || math.IsInf(v.scale, 0) {
		v.scale = 1
	}

	centerX := (minX + maxX) / 2
	centerY := (minY + maxY) / 2
	v.offsetX = float64(v.Width)/2 - centerX*v.scale
	v.offsetY = float64(v.Height)/2 - centerY*v.scale
}

// ToScreen converts a projected point to pixel coordinates.
func (v *Viewport) ToScreen(p Point) (float32, float32) {
	return float32(p.X*v.scale + v.offsetX), float32(p.Y*v.scale + v.offsetY)
}
