package lyra

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SchemaVersion is the document schema version this engine evaluates.
const SchemaVersion = 1

// Document is a fully parsed karaoke project: metadata, named styles and
// effects, and the ordered lyric lines. Lines own their Chars exclusively;
// the Document owns its Lines exclusively.
type Document struct {
	Version int                `json:"version"`
	Project Project            `json:"project"`
	Styles  map[string]*Style  `json:"styles"`
	Effects map[string]*Effect `json:"effects"`
	Lines   []*Line            `json:"lines"`
}

// Project holds document-level playback metadata.
type Project struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"` // seconds
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
}

// FontSpec describes a font selection. Zero-valued fields are "unset" and
// fall through to the next level of the cascade (Char -> Line -> Style).
type FontSpec struct {
	Family        string  `json:"family,omitempty"`
	Size          float64 `json:"size,omitempty"`
	Weight        int     `json:"weight,omitempty"`
	Style         string  `json:"style,omitempty"` // "normal" | "italic"
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
}

// StateColors is the fill/stroke pair for one karaoke highlight state.
type StateColors struct {
	Fill   Color `json:"fill"`
	Stroke Color `json:"stroke"`
}

// ColorSet holds the three karaoke highlight states. Nil states fall
// through the cascade.
type ColorSet struct {
	Inactive *StateColors `json:"inactive,omitempty"`
	Active   *StateColors `json:"active,omitempty"`
	Complete *StateColors `json:"complete,omitempty"`
}

// StrokeSpec describes a text outline.
type StrokeSpec struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// ShadowSpec describes a drop shadow.
type ShadowSpec struct {
	Color   Color   `json:"color"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
}

// GlowSpec describes an outer glow.
type GlowSpec struct {
	Color     Color   `json:"color"`
	Radius    float64 `json:"radius"`
	Intensity float64 `json:"intensity"`
}

// TransformSpec is a static transform override applied before any effects.
// ScaleX/ScaleY of 0 mean "unset" (scale 1); Opacity of 0 means "unset"
// (opacity 1).
type TransformSpec struct {
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	ScaleX   float64 `json:"scaleX,omitempty"`
	ScaleY   float64 `json:"scaleY,omitempty"`
	Opacity  float64 `json:"opacity,omitempty"`
}

// Style is a named, inheritable bundle of text appearance settings.
// A Style only overrides the fields it explicitly sets; everything else
// falls through to its Extends parent (see ResolveStyle).
type Style struct {
	Extends string      `json:"extends,omitempty"`
	Font    *FontSpec   `json:"font,omitempty"`
	Colors  *ColorSet   `json:"colors,omitempty"`
	Stroke  *StrokeSpec `json:"stroke,omitempty"`
	Shadow  *ShadowSpec `json:"shadow,omitempty"`
	Glow    *GlowSpec   `json:"glow,omitempty"`
}

// Line is one lyric line with its display window and layout settings.
// A line is active at time t iff Start <= t <= End (inclusive on both ends,
// so the inactive/active boundary lands on the line itself).
type Line struct {
	Start     float64        `json:"start"`
	End       float64        `json:"end"`
	Text      string         `json:"text,omitempty"` // convenience; expanded into Chars by Parse
	Style     string         `json:"style,omitempty"`
	Align     Align          `json:"align,omitempty"`
	Gap       float64        `json:"gap,omitempty"` // extra pixels after each Char
	Font      *FontSpec      `json:"font,omitempty"`
	Stroke    *StrokeSpec    `json:"stroke,omitempty"`
	Shadow    *ShadowSpec    `json:"shadow,omitempty"`
	Transform *TransformSpec `json:"transform,omitempty"`
	Effects   []string       `json:"effects,omitempty"`
	Chars     []*Char        `json:"chars,omitempty"`

	effects []*Effect // bound by Engine; nil until then
}

// Char is a one-or-more-codepoint display unit with its own karaoke
// highlight window and optional per-character overrides.
type Char struct {
	Text      string         `json:"text"`
	Start     float64        `json:"start"`
	End       float64        `json:"end"`
	Font      *FontSpec      `json:"font,omitempty"`
	Stroke    *StrokeSpec    `json:"stroke,omitempty"`
	Shadow    *ShadowSpec    `json:"shadow,omitempty"`
	Transform *TransformSpec `json:"transform,omitempty"`
	Effects   []string       `json:"effects,omitempty"`

	effects []*Effect
}

// CharState is the karaoke highlight state of a Char at some time.
type CharState uint8

const (
	StateInactive CharState = iota // before the highlight window
	StateActive                    // inside the highlight window
	StateComplete                  // after the highlight window
)

// String returns the lowercase state name.
func (s CharState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	default:
		return "inactive"
	}
}

// StateAt returns the highlight state of the Char at time t.
func (c *Char) StateAt(t float64) CharState {
	switch {
	case t < c.Start:
		return StateInactive
	case t <= c.End:
		return StateActive
	default:
		return StateComplete
	}
}

// ActiveLine returns the index and pointer of the first line whose window
// contains t, or (-1, nil) if no line is active. At most one line renders
// per frame; the first match in document order wins.
func (d *Document) ActiveLine(t float64) (int, *Line) {
	for i, ln := range d.Lines {
		if t >= ln.Start && t <= ln.End {
			return i, ln
		}
	}
	return -1, nil
}

// AnimatedValue is one animated effect property: either a numeric range
// interpolated by eased progress, or an expression evaluated per glyph.
type AnimatedValue struct {
	From, To float64
	Expr     string // non-empty means expression-driven

	prog    compiledExpr // set lazily on first evaluation
	badExpr bool         // compile failed; property is skipped
}

// IsExpr reports whether the value is expression-driven.
func (v *AnimatedValue) IsExpr() bool {
	return v.Expr != ""
}

// UnmarshalJSON accepts three forms: a bare number (constant), an object
// {"from": a, "to": b}, or a string expression.
func (v *AnimatedValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return fmt.Errorf("lyra: empty animated value")
	}
	switch trimmed[0] {
	case '"':
		s, err := strconv.Unquote(trimmed)
		if err != nil {
			return fmt.Errorf("lyra: bad expression value: %w", err)
		}
		v.Expr = s
		return nil
	case '{':
		var obj struct {
			From float64 `json:"from"`
			To   float64 `json:"to"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("lyra: bad range value: %w", err)
		}
		v.From, v.To = obj.From, obj.To
		return nil
	default:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("lyra: bad numeric value: %w", err)
		}
		v.From, v.To = n, n
		return nil
	}
}

// Keyframe is one stop on a Keyframe effect's timeline. Time is normalized
// to [0, 1] over the effect's duration. Easing, when set, shapes the segment
// that starts at this keyframe. Values holds only the properties this
// keyframe pins; absent properties are left untouched by the segment.
type Keyframe struct {
	Time   float64            `json:"time"`
	Easing string             `json:"easing,omitempty"`
	Values map[string]float64 `json:"values"`
}

// EffectType discriminates how an Effect computes its properties.
type EffectType uint8

const (
	EffectTransition EffectType = iota // lerp/expression per property
	EffectKeyframe                     // multi-stop timeline per property
	EffectTypewriter                   // discrete per-glyph visibility cutoff
	EffectParticle                     // drives a particle emitter
)

// String returns the lowercase type name.
func (t EffectType) String() string {
	switch t {
	case EffectKeyframe:
		return "keyframe"
	case EffectTypewriter:
		return "typewriter"
	case EffectParticle:
		return "particle"
	default:
		return "transition"
	}
}

// UnmarshalJSON accepts the lowercase type names. Unknown types decode as
// transitions with no properties, which contribute nothing at evaluation.
func (t *EffectType) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("lyra: effect type must be a string: %w", err)
	}
	switch strings.ToLower(s) {
	case "keyframe":
		*t = EffectKeyframe
	case "typewriter":
		*t = EffectTypewriter
	case "particle":
		*t = EffectParticle
	default:
		*t = EffectTransition
	}
	return nil
}

// Effect is a named animation applied to every glyph of a line (or to a
// single Char when referenced from its effect list).
//
// Duration 0 means "the owning line's span". Trigger selects the time base:
// "line" (default) runs against the line window, "char" against each glyph's
// own highlight window.
type Effect struct {
	Type       EffectType                `json:"type"`
	Trigger    string                    `json:"trigger,omitempty"`
	Duration   float64                   `json:"duration,omitempty"`
	Delay      float64                   `json:"delay,omitempty"`
	Easing     string                    `json:"easing,omitempty"`
	Properties map[string]*AnimatedValue `json:"properties,omitempty"`
	Keyframes  []Keyframe                `json:"keyframes,omitempty"`
	Preset     string                    `json:"preset,omitempty"`  // particle preset name
	Emitter    *EmitterConfig            `json:"emitter,omitempty"` // inline particle config

	name string // set when bound, for log attribution
}

// Parse decodes and validates a document from JSON. The only fatal
// validation is the schema version; everything else degrades at evaluation
// time per the resolution rules.
//
// Lines that carry Text but no Chars are expanded into one Char per rune,
// with highlight windows spread evenly across the line window.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lyra: failed to parse document: %w", err)
	}
	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("lyra: unsupported document version %d (want %d)", doc.Version, SchemaVersion)
	}
	for _, ln := range doc.Lines {
		expandLineText(ln)
	}
	return &doc, nil
}

// Load reads and parses a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lyra: failed to read document: %w", err)
	}
	return Parse(data)
}

// expandLineText fills ln.Chars from ln.Text when no explicit chars exist.
func expandLineText(ln *Line) {
	if len(ln.Chars) > 0 || ln.Text == "" {
		return
	}
	runes := []rune(ln.Text)
	span := ln.End - ln.Start
	if span < 0 {
		span = 0
	}
	step := span / float64(len(runes))
	for i, r := range runes {
		ln.Chars = append(ln.Chars, &Char{
			Text:  string(r),
			Start: ln.Start + float64(i)*step,
			End:   ln.Start + float64(i+1)*step,
		})
	}
}
