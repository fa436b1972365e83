package lyra

import (
	"fmt"
	"log/slog"
)

// Engine evaluates what a document looks like at an arbitrary playback
// time. Construction binds every effect name to its definition and
// precomputes style resolution and glyph layout, so FrameAt does no string
// lookups or layout work per frame.
//
// FrameAt with a nil ParticleSystem is a pure function of (document, time)
// and is safe to call concurrently. The ParticleSystem, when supplied, is
// the single stateful piece and must be driven forward in time from one
// goroutine.
type Engine struct {
	doc      *Document
	metrics  Metrics
	registry *Registry
	log      *slog.Logger
	styles   map[string]ResolvedStyle
	layouts  [][]GlyphPlacement // indexed by line
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics supplies the glyph metrics provider. Defaults to a fresh
// FaceMetrics with only the bundled fallback font.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRegistry supplies the preset registry. Defaults to NewRegistry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger supplies the logger for non-fatal evaluation diagnostics.
// Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine builds an evaluator for the document. Unknown style and effect
// names are dropped here, once, per the resolution rules; they are not
// errors.
func NewEngine(doc *Document, opts ...Option) (*Engine, error) {
	if doc == nil {
		return nil, fmt.Errorf("lyra: nil document")
	}
	e := &Engine{doc: doc}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewFaceMetrics()
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	e.styles = make(map[string]ResolvedStyle, len(doc.Styles)+1)
	e.styles[""] = doc.ResolveStyle("base")
	for name := range doc.Styles {
		e.styles[name] = doc.ResolveStyle(name)
	}

	e.layouts = make([][]GlyphPlacement, len(doc.Lines))
	for i, ln := range doc.Lines {
		ln.effects = e.bindEffects(ln.Effects)
		for _, ch := range ln.Chars {
			ch.effects = e.bindEffects(ch.Effects)
		}
		style := e.styleFor(ln)
		e.layouts[i] = layoutLine(ln, &style, e.metrics)
	}
	return e, nil
}

// Document returns the document the engine evaluates.
func (e *Engine) Document() *Document {
	return e.doc
}

// bindEffects resolves an effect name list against the document's effect
// map first and the preset registry second. Unresolved names are skipped.
func (e *Engine) bindEffects(names []string) []*Effect {
	if len(names) == 0 {
		return nil
	}
	out := make([]*Effect, 0, len(names))
	for _, name := range names {
		if eff, ok := e.doc.Effects[name]; ok && eff != nil {
			eff.name = name
			e.compileExpressions(eff)
			out = append(out, eff)
			continue
		}
		if eff, ok := e.registry.Resolve(name); ok {
			e.compileExpressions(eff)
			out = append(out, eff)
			continue
		}
		e.log.Debug("lyra: unknown effect name skipped", "effect", name)
	}
	return out
}

// compileExpressions compiles a bound effect's expression properties up
// front. FrameAt must not write shared state, so evaluation may run
// concurrently; a compile failure is reported here once and the property is
// skipped at evaluation.
func (e *Engine) compileExpressions(eff *Effect) {
	for prop, v := range eff.Properties {
		if !v.IsExpr() {
			continue
		}
		if _, err := v.compiled(); err != nil {
			e.log.Warn("lyra: skipping property with bad expression",
				"effect", eff.name, "property", prop, "error", err)
		}
	}
}

// styleFor returns the memoized resolved style for a line.
func (e *Engine) styleFor(ln *Line) ResolvedStyle {
	if s, ok := e.styles[ln.Style]; ok {
		return s
	}
	return e.styles[""]
}

// Glyph is the fully evaluated state of one visible glyph for one frame.
type Glyph struct {
	GlyphPlacement
	Transform Transform
	State     CharState
	Fill      Color
	Stroke    Color
	StrokeW   float64
	Shadow    ShadowSpec
}

// Frame is everything a compositor needs to draw one moment of playback.
// LineIndex is -1 when no line is active.
type Frame struct {
	Time      float64
	LineIndex int
	Glyphs    []Glyph
	Particles []ParticleState
}

// FrameAt evaluates the document at time t. When sim is non-nil it is
// advanced to t, emitters for active particle effects are requested, and
// the frame carries the live particle snapshots.
func (e *Engine) FrameAt(t float64, sim *ParticleSystem) Frame {
	frame := Frame{Time: t, LineIndex: -1}

	idx, line := e.doc.ActiveLine(t)
	if line != nil {
		frame.LineIndex = idx
		e.evalLine(t, idx, line, &frame, sim)
	}

	if sim != nil {
		sim.AdvanceTo(t)
		frame.Particles = sim.Particles(nil)
	}
	return frame
}

// evalLine fills the frame with the active line's glyphs and requests
// emitters for its particle effects.
func (e *Engine) evalLine(t float64, idx int, line *Line, frame *Frame, sim *ParticleSystem) {
	style := e.styleFor(line)
	glyphs := e.layouts[idx]
	ctx := TriggerContext{
		LineStart: line.Start,
		LineEnd:   line.End,
		Time:      t,
		Count:     len(glyphs),
		Width:     float64(e.doc.Project.Width),
		Height:    float64(e.doc.Project.Height),
	}
	stack := compileLine(&ctx, line, e.log)

	frame.Glyphs = make([]Glyph, 0, len(glyphs))
	for gi := range glyphs {
		gp := &glyphs[gi]
		if gp.CharIndex >= len(line.Chars) {
			continue
		}
		ch := line.Chars[gp.CharIndex]
		tr := stack.eval(&ctx, ch, gi, e.log)
		state := ch.StateAt(t)
		colors := style.Colors.colorsFor(state)

		g := Glyph{
			GlyphPlacement: *gp,
			Transform:      tr,
			State:          state,
			Fill:           colors.Fill,
			Stroke:         colors.Stroke,
			StrokeW:        effectiveStroke(ch, line, &style).Width,
			Shadow:         effectiveShadow(ch, line, &style),
		}
		frame.Glyphs = append(frame.Glyphs, g)

		if sim != nil {
			e.touchEmitters(idx, gi, line, ch, &ctx, gp, &tr, sim)
		}
	}
}

// touchEmitters requests an emitter for every particle effect active on
// this glyph, keyed by (line, glyph, effect name) so re-requesting reuses
// the emitter across frames instead of restarting it.
func (e *Engine) touchEmitters(lineIdx, glyphIdx int, line *Line, ch *Char, ctx *TriggerContext, gp *GlyphPlacement, tr *Transform, sim *ParticleSystem) {
	request := func(eff *Effect) {
		if eff.Type != EffectParticle {
			return
		}
		if p := effectProgress(eff, ctx, ch); p < 0 || p > 1 {
			return
		}
		cfg := e.emitterConfig(eff)
		if cfg == nil {
			return
		}
		key := fmt.Sprintf("%d:%d:%s", lineIdx, glyphIdx, eff.name)
		sim.touch(key, emitterSeed(lineIdx, glyphIdx), cfg, gp.X+tr.X, gp.Y+tr.Y)
	}
	for _, eff := range ch.effects {
		request(eff)
	}
	for _, eff := range line.effects {
		request(eff)
	}
}

// emitterConfig resolves a particle effect to its emitter configuration:
// inline config first, then the named preset's config.
func (e *Engine) emitterConfig(eff *Effect) *EmitterConfig {
	if eff.Emitter != nil {
		return eff.Emitter
	}
	if eff.Preset != "" {
		if preset, ok := e.registry.Resolve(eff.Preset); ok && preset.Emitter != nil {
			return preset.Emitter
		}
	}
	return nil
}

// effectiveStroke merges the stroke cascade Char -> Line -> Style.
func effectiveStroke(ch *Char, line *Line, style *ResolvedStyle) StrokeSpec {
	if ch.Stroke != nil {
		return *ch.Stroke
	}
	if line.Stroke != nil {
		return *line.Stroke
	}
	return style.Stroke
}

// effectiveShadow merges the shadow cascade Char -> Line -> Style.
func effectiveShadow(ch *Char, line *Line, style *ResolvedStyle) ShadowSpec {
	if ch.Shadow != nil {
		return *ch.Shadow
	}
	if line.Shadow != nil {
		return *line.Shadow
	}
	return style.Shadow
}
