package lyra

import (
	"log/slog"
	"math"
	"testing"
)

func discardLog() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCompileHoistsConstantTransitions(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 3}
	ln := &Line{effects: []*Effect{{
		Type:       EffectTransition,
		Properties: map[string]*AnimatedValue{"y": {From: 40, To: 0}},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	if len(stack.ops) != 0 {
		t.Fatalf("ops = %d, want constant hoisted into base", len(stack.ops))
	}
	if stack.base.Y != 20 {
		t.Errorf("base y = %v, want 20 at half progress", stack.base.Y)
	}

	tr := stack.eval(ctx, &Char{}, 0, discardLog())
	if tr.Y != 20 {
		t.Errorf("eval y = %v, want 20", tr.Y)
	}
}

func TestCompileExprStaysPerGlyph(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 4}
	ln := &Line{effects: []*Effect{{
		Type:       EffectTransition,
		Properties: map[string]*AnimatedValue{"y": {Expr: "index * 10"}},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	if len(stack.ops) != 1 {
		t.Fatalf("ops = %d, want 1 expression op", len(stack.ops))
	}
	for i := 0; i < 4; i++ {
		tr := stack.eval(ctx, &Char{}, i, discardLog())
		if want := float64(i) * 10; tr.Y != want {
			t.Errorf("glyph %d y = %v, want %v", i, tr.Y, want)
		}
	}
}

func TestCompileConstantAfterExprNotHoisted(t *testing.T) {
	// A later constant write to the same property must override the
	// per-glyph expression, so it cannot move into the base.
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 2}
	ln := &Line{effects: []*Effect{
		{
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"y": {Expr: "index * 10"}},
		},
		{
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"y": {From: 7, To: 7}},
		},
	}}

	stack := compileLine(ctx, ln, discardLog())
	if len(stack.ops) != 2 {
		t.Fatalf("ops = %d, want expr + trailing const", len(stack.ops))
	}
	for i := 0; i < 2; i++ {
		if tr := stack.eval(ctx, &Char{}, i, discardLog()); tr.Y != 7 {
			t.Errorf("glyph %d y = %v, want later constant 7", i, tr.Y)
		}
	}
}

func TestCompileConstantBeforeExprStillHoisted(t *testing.T) {
	// A constant that lands before any per-glyph write to the property may
	// hoist into the base; the expression op then overrides it per glyph.
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 2}
	ln := &Line{effects: []*Effect{
		{
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"opacity": {From: 0, To: 1}},
		},
		{
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"opacity": {Expr: "progress * 0.5"}},
		},
	}}

	stack := compileLine(ctx, ln, discardLog())
	if stack.base.Opacity != 0.5 {
		t.Errorf("base opacity = %v, want constant 0.5 hoisted", stack.base.Opacity)
	}
	if len(stack.ops) != 1 {
		t.Fatalf("ops = %d, want only the expression op", len(stack.ops))
	}
	for i := 0; i < 2; i++ {
		if tr := stack.eval(ctx, &Char{}, i, discardLog()); tr.Opacity != 0.25 {
			t.Errorf("glyph %d opacity = %v, want expression result 0.25", i, tr.Opacity)
		}
	}
}

func TestCompileScaleCollisionDeterministic(t *testing.T) {
	// "scale" and "scaleX" in one effect land in name order, so the axis
	// split is identical on every run.
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 2, Count: 1}
	ln := &Line{effects: []*Effect{{
		Type: EffectTransition,
		Properties: map[string]*AnimatedValue{
			"scale":  {From: 2, To: 2},
			"scaleX": {From: 3, To: 3},
		},
	}}}

	for run := 0; run < 20; run++ {
		stack := compileLine(ctx, ln, discardLog())
		tr := stack.eval(ctx, &Char{}, 0, discardLog())
		if tr.ScaleX != 3 || tr.ScaleY != 2 {
			t.Fatalf("run %d scale = %v/%v, want 3/2 in name order", run, tr.ScaleX, tr.ScaleY)
		}
	}
}

func TestCompileCharEffectBlocksHoisting(t *testing.T) {
	// Char-level effects run before line ops, so a line constant on the
	// same property must stay an op to keep overriding them.
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 2}
	charFx := &Effect{
		Type:       EffectTransition,
		Properties: map[string]*AnimatedValue{"y": {From: 0, To: -30}},
	}
	ch := &Char{Start: 0, End: 2, effects: []*Effect{charFx}}
	ln := &Line{
		Chars: []*Char{ch, {Start: 0, End: 2}},
		effects: []*Effect{{
			Type:       EffectTransition,
			Properties: map[string]*AnimatedValue{"y": {From: 5, To: 5}},
		}},
	}

	stack := compileLine(ctx, ln, discardLog())
	if stack.base.Y != 0 {
		t.Errorf("base y = %v, want constant kept out of base", stack.base.Y)
	}
	if tr := stack.eval(ctx, ch, 0, discardLog()); tr.Y != 5 {
		t.Errorf("y = %v, want line constant 5 winning over char effect", tr.Y)
	}
}

func TestCompileCharTriggeredEffect(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 4, Time: 1.5, Count: 2}
	ln := &Line{effects: []*Effect{{
		Trigger:    "char",
		Type:       EffectTransition,
		Properties: map[string]*AnimatedValue{"opacity": {From: 0, To: 1}},
	}}}

	stack := compileLine(ctx, ln, discardLog())

	// First glyph is halfway through its window; second has not started.
	early := &Char{Start: 1, End: 2}
	late := &Char{Start: 3, End: 4}
	if tr := stack.eval(ctx, early, 0, discardLog()); tr.Opacity != 0.5 {
		t.Errorf("early glyph opacity = %v, want 0.5", tr.Opacity)
	}
	if tr := stack.eval(ctx, late, 1, discardLog()); tr.Opacity != 1 {
		t.Errorf("untriggered glyph opacity = %v, want untouched 1", tr.Opacity)
	}
}

func TestCompileTypewriter(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 4}
	ln := &Line{effects: []*Effect{{Type: EffectTypewriter}}}

	stack := compileLine(ctx, ln, discardLog())
	visible := 0
	for i := 0; i < 4; i++ {
		tr := stack.eval(ctx, &Char{}, i, discardLog())
		if tr.Opacity == 1 {
			visible++
		} else if tr.Opacity != 0 {
			t.Errorf("glyph %d opacity = %v, want 0 or 1", i, tr.Opacity)
		}
	}
	if visible != 2 {
		t.Errorf("visible glyphs = %d, want 2 at half progress", visible)
	}
}

func TestCompileSkipsUntriggeredEffect(t *testing.T) {
	ctx := &TriggerContext{LineStart: 5, LineEnd: 9, Time: 5.5, Count: 1}
	ln := &Line{effects: []*Effect{{
		Type:       EffectTransition,
		Delay:      2,
		Properties: map[string]*AnimatedValue{"opacity": {From: 0, To: 1}},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	if tr := stack.eval(ctx, &Char{}, 0, discardLog()); tr.Opacity != 1 {
		t.Errorf("opacity = %v, want untouched identity before delay", tr.Opacity)
	}
}

func TestCompileSkipsParticleEffects(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 1}
	ln := &Line{effects: []*Effect{{
		Type:    EffectParticle,
		Emitter: &EmitterConfig{Rate: 10},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	if len(stack.ops) != 0 {
		t.Errorf("ops = %d, want particle effects excluded", len(stack.ops))
	}
}

func TestCompileKeyframeEffect(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 0.5, Count: 1}
	ln := &Line{effects: []*Effect{{
		Type: EffectKeyframe,
		Keyframes: []Keyframe{
			{Time: 0, Values: map[string]float64{"scale": 1}},
			{Time: 1, Values: map[string]float64{"scale": 3}},
		},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	tr := stack.eval(ctx, &Char{}, 0, discardLog())
	if math.Abs(tr.ScaleX-1.5) > 1e-9 || math.Abs(tr.ScaleY-1.5) > 1e-9 {
		t.Errorf("scale = %v/%v, want 1.5 at quarter progress", tr.ScaleX, tr.ScaleY)
	}
}

func TestCompileBadExprSkipsProperty(t *testing.T) {
	ctx := &TriggerContext{LineStart: 0, LineEnd: 2, Time: 1, Count: 1}
	ln := &Line{effects: []*Effect{{
		Type: EffectTransition,
		Properties: map[string]*AnimatedValue{
			"y": {Expr: "((("},
			"x": {From: 0, To: 10},
		},
	}}}

	stack := compileLine(ctx, ln, discardLog())
	tr := stack.eval(ctx, &Char{}, 0, discardLog())
	if tr.Y != 0 {
		t.Errorf("y = %v, want broken expression skipped", tr.Y)
	}
	if tr.X != 5 {
		t.Errorf("x = %v, want healthy sibling property applied", tr.X)
	}
}

func TestPropDynamicScaleAliases(t *testing.T) {
	if !propDynamic(map[string]bool{"scalex": true}, "scale") {
		t.Error("scale should collide with dynamic scalex")
	}
	if !propDynamic(map[string]bool{"scale": true}, "scaley") {
		t.Error("scaley should collide with dynamic scale")
	}
	if propDynamic(map[string]bool{"x": true}, "y") {
		t.Error("unrelated properties should not collide")
	}
}
