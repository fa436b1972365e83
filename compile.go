package lyra

import (
	"log/slog"
	"strings"
)

// The compiler folds the active line's effect stack into the cheapest shape
// that still evaluates correctly per glyph: contributions that are constant
// for the whole frame go into a single hoisted base transform, and only
// contributions that can differ between glyphs survive as runtime ops.
//
// Ordering invariant: a constant write to a property may be hoisted only if
// no earlier contribution to that property can vary per glyph. A constant
// that lands after such a write must stay in the op list so it still
// overrides the per-glyph result. Char-level effects and "char"-triggered
// effects always vary per glyph, so every property they touch is treated as
// per-glyph from the start.

type opKind uint8

const (
	opConst      opKind = iota // write a precomputed value
	opExpr                     // evaluate a compiled expression
	opTypewriter               // visibility cutoff against the glyph index
	opCharEffect               // re-evaluate a "char"-triggered effect per glyph
)

// glyphOp is one per-glyph runtime operation.
type glyphOp struct {
	kind   opKind
	prop   string
	value  float64      // opConst
	prog   compiledExpr // opExpr
	eased  float64      // opExpr: eased progress of the owning effect
	cutoff float64      // opTypewriter
	effect *Effect      // opCharEffect, and log attribution for opExpr
}

// compiledStack is the compiled effect stack of the active line for one
// frame. Built once per frame, evaluated once per glyph.
type compiledStack struct {
	base Transform
	ops  []glyphOp
}

// compileLine builds the frame's compiled stack from the line-level effect
// list. Char-level effect properties are pre-marked dynamic so line-level
// constants that precede them cannot be hoisted over them.
func compileLine(ctx *TriggerContext, line *Line, log *slog.Logger) compiledStack {
	stack := compiledStack{base: identity()}
	stack.base.applySpec(line.Transform)

	dynamic := charDynamicProps(line)

	for _, e := range line.effects {
		if e.Type == EffectParticle {
			continue // emitters are driven separately (frame.go)
		}
		if isCharTriggered(e) {
			markEffectProps(e, dynamic)
			stack.ops = append(stack.ops, glyphOp{kind: opCharEffect, effect: e})
			continue
		}

		p := effectProgress(e, ctx, nil)
		if p < 0 || p > 1 {
			continue
		}
		eased := Ease(e.Easing, p)

		switch e.Type {
		case EffectTransition:
			for _, prop := range sortedProps(e.Properties) {
				v := e.Properties[prop]
				if v.IsExpr() {
					prog, err := v.compiled()
					if err != nil {
						log.Warn("lyra: skipping property with bad expression",
							"effect", e.name, "property", prop, "error", err)
						continue
					}
					if prog == nil {
						continue
					}
					dynamic[normProp(prop)] = true
					stack.ops = append(stack.ops, glyphOp{
						kind: opExpr, prop: prop, prog: prog, eased: eased, effect: e,
					})
					continue
				}
				stack.fold(prop, lerp(v.From, v.To, eased), dynamic)
			}
		case EffectKeyframe:
			for _, pv := range sampleKeyframes(e.Keyframes, eased) {
				stack.fold(pv.prop, pv.value, dynamic)
			}
		case EffectTypewriter:
			// The cutoff is frame-constant; the comparison is per glyph.
			dynamic["opacity"] = true
			stack.ops = append(stack.ops, glyphOp{
				kind: opTypewriter, cutoff: typewriterCutoff(eased, ctx.Count),
			})
		}
	}
	return stack
}

// fold hoists a constant write into the base when the ordering invariant
// allows, and appends a constant op otherwise.
func (s *compiledStack) fold(prop string, value float64, dynamic map[string]bool) {
	if propDynamic(dynamic, normProp(prop)) {
		s.ops = append(s.ops, glyphOp{kind: opConst, prop: prop, value: value})
		return
	}
	s.base.set(prop, value)
}

// normProp canonicalizes a property name for dynamic-set bookkeeping.
func normProp(prop string) string {
	return strings.ToLower(prop)
}

// eval produces the final transform for one glyph: the hoisted base, the
// glyph's static override, its char-level effects, then the line ops.
func (s *compiledStack) eval(ctx *TriggerContext, ch *Char, index int, log *slog.Logger) Transform {
	tr := s.base
	if ch != nil {
		tr.applySpec(ch.Transform)
		for _, e := range ch.effects {
			applyEffect(e, &tr, ctx, ch, index, log)
		}
	}

	for i := range s.ops {
		op := &s.ops[i]
		switch op.kind {
		case opConst:
			tr.set(op.prop, op.value)
		case opExpr:
			v, err := evalExpr(op.prog, exprEnv{
				T:        ctx.Time,
				Progress: op.eased,
				Index:    float64(index),
				Count:    float64(ctx.Count),
				Width:    ctx.Width,
				Height:   ctx.Height,
			})
			if err != nil {
				log.Warn("lyra: skipping property this frame",
					"effect", op.effect.name, "property", op.prop, "error", err)
				continue
			}
			tr.set(op.prop, v)
		case opTypewriter:
			if float64(index) < op.cutoff {
				tr.Opacity = 1
			} else {
				tr.Opacity = 0
			}
		case opCharEffect:
			applyEffect(op.effect, &tr, ctx, ch, index, log)
		}
	}
	return tr
}

// applyEffect evaluates one effect for one glyph without hoisting. Used for
// char-level effects and "char"-triggered line effects, whose progress or
// values vary per glyph.
func applyEffect(e *Effect, tr *Transform, ctx *TriggerContext, ch *Char, index int, log *slog.Logger) {
	if e.Type == EffectParticle {
		return
	}
	p := effectProgress(e, ctx, ch)
	if p < 0 || p > 1 {
		return
	}
	eased := Ease(e.Easing, p)

	switch e.Type {
	case EffectTransition:
		for _, prop := range sortedProps(e.Properties) {
			v := e.Properties[prop]
			if !v.IsExpr() {
				tr.set(prop, lerp(v.From, v.To, eased))
				continue
			}
			prog, err := v.compiled()
			if err != nil {
				log.Warn("lyra: skipping property with bad expression",
					"effect", e.name, "property", prop, "error", err)
				continue
			}
			if prog == nil {
				continue
			}
			val, err := evalExpr(prog, exprEnv{
				T:        ctx.Time,
				Progress: eased,
				Index:    float64(index),
				Count:    float64(ctx.Count),
				Width:    ctx.Width,
				Height:   ctx.Height,
			})
			if err != nil {
				log.Warn("lyra: skipping property this frame",
					"effect", e.name, "property", prop, "error", err)
				continue
			}
			tr.set(prop, val)
		}
	case EffectKeyframe:
		for _, pv := range sampleKeyframes(e.Keyframes, eased) {
			tr.set(pv.prop, pv.value)
		}
	case EffectTypewriter:
		if float64(index) < typewriterCutoff(eased, ctx.Count) {
			tr.Opacity = 1
		} else {
			tr.Opacity = 0
		}
	}
}

// isCharTriggered reports whether the effect's time base is the glyph's own
// highlight window.
func isCharTriggered(e *Effect) bool {
	return strings.EqualFold(e.Trigger, "char")
}

// propDynamic reports whether a constant write to prop would land on top of
// a per-glyph write. "scale" aliases both axes, so it collides with
// "scalex"/"scaley" and vice versa.
func propDynamic(dynamic map[string]bool, prop string) bool {
	if dynamic[prop] {
		return true
	}
	switch prop {
	case "scale":
		return dynamic["scalex"] || dynamic["scaley"]
	case "scalex", "scaley":
		return dynamic["scale"]
	}
	return false
}

// charDynamicProps collects every property any char-level effect on the
// line can write. Conservative: marking too much only costs hoisting, never
// correctness.
func charDynamicProps(line *Line) map[string]bool {
	dynamic := make(map[string]bool)
	for _, ch := range line.Chars {
		for _, e := range ch.effects {
			markEffectProps(e, dynamic)
		}
	}
	return dynamic
}

// markEffectProps records the properties an effect writes.
func markEffectProps(e *Effect, dynamic map[string]bool) {
	switch e.Type {
	case EffectTransition:
		for prop := range e.Properties {
			dynamic[normProp(prop)] = true
		}
	case EffectKeyframe:
		for _, kf := range e.Keyframes {
			for prop := range kf.Values {
				dynamic[normProp(prop)] = true
			}
		}
	case EffectTypewriter:
		dynamic["opacity"] = true
	}
}
