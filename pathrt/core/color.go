package core

import (
	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSLToRGB converts hue (in turns, 0..1), saturation and lightness to RGB.
func HSLToRGB(hue, sat, light float64) mgl32.Vec3 {
	c := colorful.Hsl(hue*360.0, sat, light)
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}

// RGBToHSL is the inverse of HSLToRGB; hue is returned in turns.
func RGBToHSL(rgb mgl32.Vec3) (hue, sat, light float64) {
	c := colorful.Color{R: float64(rgb[0]), G: float64(rgb[1]), B: float64(rgb[2])}
	h, s, l := c.Hsl()
	return h / 360.0, s, l
}
