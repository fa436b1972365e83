package lyra

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry maps preset names to effects. Lookup is case-insensitive;
// unknown names resolve to "no effect" rather than erroring, so documents
// can reference presets that only some builds ship.
type Registry struct {
	effects map[string]*Effect
}

// NewRegistry returns a registry preloaded with the built-in presets.
func NewRegistry() *Registry {
	r := &Registry{effects: make(map[string]*Effect)}
	for name, e := range builtinPresets() {
		r.Register(name, e)
	}
	return r
}

// Register adds or replaces a preset.
func (r *Registry) Register(name string, e *Effect) {
	e.name = name
	r.effects[strings.ToLower(name)] = e
}

// Resolve looks up a preset by name.
func (r *Registry) Resolve(name string) (*Effect, bool) {
	e, ok := r.effects[strings.ToLower(name)]
	return e, ok
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	return len(r.effects)
}

// builtinPresets is the stock catalogue every registry starts from.
func builtinPresets() map[string]*Effect {
	return map[string]*Effect{
		"fade": {
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"opacity": {From: 0, To: 1}},
		},
		"fadeOut": {
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"opacity": {From: 1, To: 0}},
		},
		"slideLeft": {
			Type:   EffectTransition,
			Easing: "outCubic",
			Properties: map[string]*AnimatedValue{
				"x":       {From: 80, To: 0},
				"opacity": {From: 0, To: 1},
			},
		},
		"slideUp": {
			Type:   EffectTransition,
			Easing: "outCubic",
			Properties: map[string]*AnimatedValue{
				"y":       {From: 60, To: 0},
				"opacity": {From: 0, To: 1},
			},
		},
		"zoomIn": {
			Type:   EffectTransition,
			Easing: "outBack",
			Properties: map[string]*AnimatedValue{
				"scale":   {From: 0.4, To: 1},
				"opacity": {From: 0, To: 1},
			},
		},
		"bounceIn": {
			Type:   EffectTransition,
			Easing: "outBounce",
			Properties: map[string]*AnimatedValue{
				"y": {From: -40, To: 0},
			},
		},
		"wave": {
			Type: EffectTransition,
			Properties: map[string]*AnimatedValue{
				"y": {Expr: "sin(t*6 + index*0.8) * 10"},
			},
		},
		"typewriter": {
			Type: EffectTypewriter,
		},
		"pop": {
			Type:    EffectKeyframe,
			Trigger: "char",
			Keyframes: []Keyframe{
				{Time: 0, Values: map[string]float64{"scale": 1}},
				{Time: 0.4, Easing: "outQuad", Values: map[string]float64{"scale": 1.35}},
				{Time: 1, Values: map[string]float64{"scale": 1}},
			},
		},
		"rain": {
			Type: EffectParticle,
			Emitter: &EmitterConfig{
				Rate:      40,
				Lifetime:  Range{0.8, 1.4},
				Speed:     Range{180, 260},
				Direction: math.Pi / 2,
				Spread:    0.4,
				StartSize: Range{2, 3},
				EndSize:   Range{1, 2},
				Gravity:   240,
				Color:     Color{0.62, 0.8, 1, 1},
			},
		},
		"sparkle": {
			Type: EffectParticle,
			Emitter: &EmitterConfig{
				Burst:         12,
				Lifetime:      Range{0.4, 0.9},
				Speed:         Range{40, 120},
				Spread:        2 * math.Pi,
				StartSize:     Range{4, 6},
				EndSize:       Range{0, 1},
				RotationSpeed: Range{-6, 6},
				Drag:          1.2,
				Color:         Color{1, 0.95, 0.66, 1},
				Shape:         ShapeStar,
			},
		},
	}
}

// UnmarshalYAML accepts a hex color string (for preset files).
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	parsed, err := ParseColor(str)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalYAML accepts a shape name string (for preset files).
func (s *Shape) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	*s = parseShape(str)
	return nil
}

// yamlValue accepts the same three animated-value forms as JSON: a number,
// a {from, to} mapping, or an expression string.
type yamlValue struct {
	av AnimatedValue
}

func (v *yamlValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err == nil {
			v.av = AnimatedValue{From: f, To: f}
			return nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		v.av = AnimatedValue{Expr: s}
		return nil
	case yaml.MappingNode:
		var obj struct {
			From float64 `yaml:"from"`
			To   float64 `yaml:"to"`
		}
		if err := node.Decode(&obj); err != nil {
			return err
		}
		v.av = AnimatedValue{From: obj.From, To: obj.To}
		return nil
	default:
		return fmt.Errorf("lyra: unsupported animated value node")
	}
}

// yamlEffect is the preset-file shape of an Effect.
type yamlEffect struct {
	Type       string                `yaml:"type"`
	Trigger    string                `yaml:"trigger"`
	Duration   float64               `yaml:"duration"`
	Delay      float64               `yaml:"delay"`
	Easing     string                `yaml:"easing"`
	Properties map[string]*yamlValue `yaml:"properties"`
	Keyframes  []Keyframe            `yaml:"keyframes"`
	Preset     string                `yaml:"preset"`
	Emitter    *EmitterConfig        `yaml:"emitter"`
}

// LoadPresets parses a YAML preset file (a mapping of name to effect) and
// registers every entry, replacing same-named presets.
func (r *Registry) LoadPresets(data []byte) error {
	var raw map[string]*yamlEffect
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lyra: failed to parse presets: %w", err)
	}
	for name, ye := range raw {
		if ye == nil {
			continue
		}
		e := &Effect{
			Trigger:   ye.Trigger,
			Duration:  ye.Duration,
			Delay:     ye.Delay,
			Easing:    ye.Easing,
			Keyframes: ye.Keyframes,
			Preset:    ye.Preset,
			Emitter:   ye.Emitter,
		}
		switch strings.ToLower(ye.Type) {
		case "keyframe":
			e.Type = EffectKeyframe
		case "typewriter":
			e.Type = EffectTypewriter
		case "particle":
			e.Type = EffectParticle
		default:
			e.Type = EffectTransition
		}
		if len(ye.Properties) > 0 {
			e.Properties = make(map[string]*AnimatedValue, len(ye.Properties))
			for prop, yv := range ye.Properties {
				av := yv.av
				e.Properties[prop] = &av
			}
		}
		r.Register(name, e)
	}
	return nil
}
