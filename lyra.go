package lyra

import (
	"fmt"
	"strconv"
	"strings"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication, if required, is the downstream compositor's concern.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is fully opaque white.
var ColorWhite = Color{1, 1, 1, 1}

// ParseColor parses "#rgb", "#rrggbb", or "#rrggbbaa" hex notation.
func ParseColor(s string) (Color, error) {
	hs := strings.TrimPrefix(s, "#")
	var r, g, b, a uint64
	var err error
	a = 0xff
	switch len(hs) {
	case 3:
		r, g, b, err = parseHex3(hs)
	case 6:
		r, g, b, err = parseHex6(hs)
	case 8:
		r, g, b, err = parseHex6(hs[:6])
		if err == nil {
			a, err = strconv.ParseUint(hs[6:8], 16, 8)
		}
	default:
		err = fmt.Errorf("length %d", len(hs))
	}
	if err != nil {
		return Color{}, fmt.Errorf("lyra: invalid color %q: %w", s, err)
	}
	return Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}, nil
}

func parseHex3(s string) (r, g, b uint64, err error) {
	r, g, b, err = parseHex6(string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]}))
	return
}

func parseHex6(s string) (r, g, b uint64, err error) {
	if r, err = strconv.ParseUint(s[0:2], 16, 8); err != nil {
		return
	}
	if g, err = strconv.ParseUint(s[2:4], 16, 8); err != nil {
		return
	}
	b, err = strconv.ParseUint(s[4:6], 16, 8)
	return
}

// UnmarshalJSON accepts a hex string ("#rrggbb" or "#rrggbbaa").
func (c *Color) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("lyra: color must be a hex string: %w", err)
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Hex returns the "#rrggbbaa" representation of the color.
func (c Color) Hex() string {
	clampByte := func(v float64) uint8 {
		return uint8(clamp(v, 0, 1)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x",
		clampByte(c.R), clampByte(c.G), clampByte(c.B), clampByte(c.A))
}

// MarshalJSON emits the hex string form.
func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.Hex())), nil
}

// Vec2 is a 2D vector used for positions, offsets, and directions.
type Vec2 struct {
	X, Y float64
}

// Range is a general-purpose min/max range. Used by the particle system
// (EmitterConfig) to describe sampled quantities.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Align controls horizontal placement of a line's glyphs relative to x=0.
type Align uint8

const (
	AlignLeft   Align = iota // glyphs start at x=0 (default)
	AlignCenter              // glyphs centered around x=0
	AlignRight               // glyphs end at x=0
)

// UnmarshalJSON accepts "left", "center", or "right" (case-insensitive).
// Unknown values fall back to AlignLeft.
func (a *Align) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("lyra: align must be a string: %w", err)
	}
	switch strings.ToLower(s) {
	case "center":
		*a = AlignCenter
	case "right":
		*a = AlignRight
	default:
		*a = AlignLeft
	}
	return nil
}

// Shape selects the particle silhouette handed to the compositor.
type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeSquare
	ShapeStar
)

// String returns the lowercase name of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeStar:
		return "star"
	default:
		return "circle"
	}
}

func parseShape(s string) Shape {
	switch strings.ToLower(s) {
	case "square":
		return ShapeSquare
	case "star":
		return ShapeStar
	default:
		return ShapeCircle
	}
}

// UnmarshalJSON accepts a shape name string.
func (s *Shape) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("lyra: shape must be a string: %w", err)
	}
	*s = parseShape(str)
	return nil
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
