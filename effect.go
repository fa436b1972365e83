package lyra

import (
	"math"
	"sort"
	"strings"
)

// Transform is the final resolved visual state of one glyph for one frame.
// X and Y are offsets from the glyph's layout position.
type Transform struct {
	X, Y     float64
	Rotation float64 // radians
	ScaleX   float64
	ScaleY   float64
	Opacity  float64
	Blur     float64
	Glitch   float64
	HueShift float64
}

// identity is the no-op transform every glyph starts from.
func identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, Opacity: 1}
}

// Affine returns the transform as a 2D affine matrix [a, b, c, d, tx, ty],
// composed Scale -> Rotate -> Translate:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func (tr *Transform) Affine() [6]float64 {
	sin, cos := math.Sincos(tr.Rotation)
	return [6]float64{
		cos * tr.ScaleX, sin * tr.ScaleX,
		-sin * tr.ScaleY, cos * tr.ScaleY,
		tr.X, tr.Y,
	}
}

// set writes a named property into the transform. Unknown names are
// ignored; "scale" writes both axes.
func (tr *Transform) set(prop string, v float64) {
	switch strings.ToLower(prop) {
	case "x", "translatex":
		tr.X = v
	case "y", "translatey":
		tr.Y = v
	case "rotation":
		tr.Rotation = v
	case "scale":
		tr.ScaleX = v
		tr.ScaleY = v
	case "scalex":
		tr.ScaleX = v
	case "scaley":
		tr.ScaleY = v
	case "opacity":
		tr.Opacity = v
	case "blur":
		tr.Blur = v
	case "glitch":
		tr.Glitch = v
	case "hueshift":
		tr.HueShift = v
	}
}

// applySpec overlays a static Line/Char transform override. Zero scale and
// zero opacity mean "unset".
func (tr *Transform) applySpec(spec *TransformSpec) {
	if spec == nil {
		return
	}
	tr.X += spec.X
	tr.Y += spec.Y
	tr.Rotation += spec.Rotation
	if spec.ScaleX != 0 {
		tr.ScaleX = spec.ScaleX
	}
	if spec.ScaleY != 0 {
		tr.ScaleY = spec.ScaleY
	}
	if spec.Opacity != 0 {
		tr.Opacity = spec.Opacity
	}
}

// TriggerContext is the per-line, per-frame evaluation environment effects
// read from. Built fresh each frame; never persisted.
type TriggerContext struct {
	LineStart float64
	LineEnd   float64
	Time      float64
	Count     int // glyph count of the active line
	Width     float64
	Height    float64
}

// notYet is the progress sentinel for "effect has not triggered".
const notYet = -1.0

// effectProgress computes raw progress for an effect against its time base.
// The time base is the line window, or the glyph's own highlight window for
// trigger "char". Returns notYet before the start; clamps to 1 after the
// end. A zero or negative duration snaps straight to 1.
func effectProgress(e *Effect, ctx *TriggerContext, ch *Char) float64 {
	base := ctx.LineStart
	dur := e.Duration
	if strings.EqualFold(e.Trigger, "char") && ch != nil {
		base = ch.Start
		if dur == 0 {
			dur = ch.End - ch.Start
		}
	}
	if dur == 0 {
		dur = ctx.LineEnd - ctx.LineStart
	}
	start := base + e.Delay
	if ctx.Time < start {
		return notYet
	}
	if dur <= 0 {
		return 1
	}
	return clamp((ctx.Time-start)/dur, 0, 1)
}

// typewriterCutoff returns the visible-glyph limit for a typewriter effect:
// a glyph is visible iff float64(index) < cutoff.
func typewriterCutoff(eased float64, count int) float64 {
	return eased * float64(count)
}

// sortedProps returns the property names in a fixed order. Map iteration
// would let same-property collisions (e.g. "scale" next to "scaleX") resolve
// differently between runs.
func sortedProps(props map[string]*AnimatedValue) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propValue is one resolved (property, value) contribution.
type propValue struct {
	prop  string
	value float64
}

// sampleKeyframes interpolates every property the bracketing keyframe pair
// defines. Bracketing picks the first keyframe whose time >= eased; past
// the last keyframe both ends collapse onto it, holding the final values.
// The segment's local t is shaped by the start keyframe's own easing.
// Properties absent from either side of the pair are not emitted. An empty
// keyframe list contributes nothing.
func sampleKeyframes(kfs []Keyframe, eased float64) []propValue {
	if len(kfs) == 0 {
		return nil
	}

	endIdx := len(kfs) - 1
	for i := range kfs {
		if kfs[i].Time >= eased {
			endIdx = i
			break
		}
	}
	startIdx := endIdx - 1
	if startIdx < 0 {
		startIdx = endIdx
	}
	if eased > kfs[len(kfs)-1].Time {
		startIdx = len(kfs) - 1
		endIdx = startIdx
	}
	start, end := &kfs[startIdx], &kfs[endIdx]

	span := end.Time - start.Time
	localT := 1.0
	if span > 0 {
		localT = clamp((eased-start.Time)/span, 0, 1)
	}
	if start.Easing != "" {
		localT = Ease(start.Easing, localT)
	}

	out := make([]propValue, 0, len(start.Values))
	for prop, from := range start.Values {
		to, ok := end.Values[prop]
		if !ok {
			continue
		}
		out = append(out, propValue{prop, lerp(from, to, localT)})
	}
	return out
}
