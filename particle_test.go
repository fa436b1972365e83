package lyra

import (
	"math"
	"reflect"
	"testing"
)

func TestLCGDeterministic(t *testing.T) {
	a := newLCG(42)
	b := newLCG(42)
	for i := 0; i < 100; i++ {
		va, vb := a.next(), b.next()
		if va != vb {
			t.Fatalf("draw %d differs: %v vs %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("draw %d = %v, want [0, 1)", i, va)
		}
	}
}

func TestLCGSeedsDiverge(t *testing.T) {
	a := newLCG(emitterSeed(0, 0))
	b := newLCG(emitterSeed(0, 1))
	if a.next() == b.next() {
		t.Error("adjacent seeds should produce different first draws")
	}
}

func TestLCGSampleRange(t *testing.T) {
	g := newLCG(7)
	for i := 0; i < 50; i++ {
		v := g.sample(Range{Min: 3, Max: 5})
		if v < 3 || v >= 5 {
			t.Fatalf("sample = %v, want [3, 5)", v)
		}
	}
	if got := g.sample(Range{Min: 4, Max: 4}); got != 4 {
		t.Errorf("degenerate range sample = %v, want 4", got)
	}
}

func TestEmitterSeedIdentity(t *testing.T) {
	seen := make(map[uint64]bool)
	for line := 0; line < 4; line++ {
		for glyph := 0; glyph < 4; glyph++ {
			s := emitterSeed(line, glyph)
			if seen[s] {
				t.Fatalf("duplicate seed for line %d glyph %d", line, glyph)
			}
			seen[s] = true
		}
	}
}

func TestEmitterDeterministicReplay(t *testing.T) {
	cfg := EmitterConfig{
		Rate:      30,
		Lifetime:  Range{0.5, 1.5},
		Speed:     Range{20, 80},
		Spread:    math.Pi,
		StartSize: Range{2, 4},
		EndSize:   Range{0, 1},
		Gravity:   100,
	}
	run := func() []ParticleState {
		e := NewEmitter(emitterSeed(2, 5), cfg)
		e.MoveTo(100, 50)
		for i := 0; i < 20; i++ {
			e.Update(1.0 / 30)
		}
		return e.appendStates(nil)
	}
	first, second := run(), run()
	if len(first) == 0 {
		t.Fatal("expected live particles after 20 steps at rate 30")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical seed and dt sequence should replay bit for bit")
	}
}

func TestEmitterBurstSpawnsOnce(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{Burst: 5, Lifetime: Range{10, 10}})
	e.Update(0.1)
	if got := e.AliveCount(); got != 5 {
		t.Fatalf("alive after first update = %d, want 5", got)
	}
	e.Update(0.1)
	if got := e.AliveCount(); got != 5 {
		t.Errorf("alive after second update = %d, want burst not repeated", got)
	}
}

func TestEmitterRateAccumulator(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{Rate: 100, Lifetime: Range{10, 10}})
	e.Update(0.1)
	if got := e.AliveCount(); got != 10 {
		t.Errorf("alive = %d, want exactly 10 at rate 100 over 0.1s", got)
	}
	// Fractional spawn debt carries across updates.
	e2 := NewEmitter(1, EmitterConfig{Rate: 5, Lifetime: Range{10, 10}})
	e2.Update(0.1) // 0.5 accumulated
	e2.Update(0.1) // 1.0, one spawn
	if got := e2.AliveCount(); got != 1 {
		t.Errorf("alive = %d, want 1 from carried accumulator", got)
	}
}

func TestEmitterParticlesExpire(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{Burst: 3, Lifetime: Range{0.1, 0.1}})
	e.Update(0.05)
	if got := e.AliveCount(); got != 3 {
		t.Fatalf("alive = %d, want 3", got)
	}
	e.Update(0.2)
	if got := e.AliveCount(); got != 0 {
		t.Errorf("alive = %d, want all expired", got)
	}
}

func TestEmitterPoolCap(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{MaxParticles: 4, Burst: 10, Lifetime: Range{10, 10}})
	e.Update(0.1)
	if got := e.AliveCount(); got != 4 {
		t.Errorf("alive = %d, want capped at pool size 4", got)
	}
}

func TestEmitterDeactivateDrains(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{Rate: 100, Lifetime: Range{0.2, 0.2}})
	e.Update(0.1)
	if e.AliveCount() == 0 {
		t.Fatal("expected particles before deactivation")
	}
	e.Deactivate()
	if e.IsActive() {
		t.Error("IsActive should report false after Deactivate")
	}
	e.Update(0.1)
	e.Update(0.2)
	if got := e.AliveCount(); got != 0 {
		t.Errorf("alive = %d, want drained after deactivation", got)
	}
}

func TestEmitterGravityPullsDown(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{
		Burst: 1, Lifetime: Range{10, 10}, Gravity: 100,
	})
	e.Update(0.1) // spawn at rest
	e.Update(0.5)
	states := e.appendStates(nil)
	if len(states) != 1 {
		t.Fatalf("len(states) = %d, want 1", len(states))
	}
	if states[0].Y <= 0 {
		t.Errorf("y = %v, want positive (screen-down) under gravity", states[0].Y)
	}
}

func TestEmitterOpacityFadesLateInLife(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{Burst: 1, Lifetime: Range{1, 1}})
	e.Update(0.01)
	early := e.appendStates(nil)[0].Opacity
	e.Update(0.9) // age 0.9, inside the final 30%
	late := e.appendStates(nil)[0].Opacity
	if early != 1 {
		t.Errorf("early opacity = %v, want 1", early)
	}
	if late >= early || late <= 0 {
		t.Errorf("late opacity = %v, want fading toward 0", late)
	}
}

func TestEmitterSizeInterpolates(t *testing.T) {
	e := NewEmitter(1, EmitterConfig{
		Burst: 1, Lifetime: Range{1, 1}, StartSize: Range{10, 10}, EndSize: Range{0, 0},
	})
	e.Update(0.01) // spawn, age 0
	e.Update(0.5)
	got := e.appendStates(nil)[0].Size
	if math.Abs(got-5) > 1e-9 {
		t.Errorf("size at half life = %v, want 5", got)
	}
}

func TestParticleSystemTouchAndRetire(t *testing.T) {
	sys := NewParticleSystem()
	cfg := EmitterConfig{Rate: 100, Lifetime: Range{0.05, 0.05}}

	sys.touch("0:1:rain", emitterSeed(0, 1), &cfg, 10, 20)
	sys.Advance(0.1)
	if got := sys.EmitterCount(); got != 1 {
		t.Fatalf("emitters = %d, want 1", got)
	}
	if got := sys.Particles(nil); len(got) == 0 {
		t.Fatal("expected live particles")
	}

	// Untouched emitter deactivates, drains, and retires.
	sys.Advance(0.1)
	sys.Advance(0.1)
	if got := sys.EmitterCount(); got != 0 {
		t.Errorf("emitters = %d, want retired after draining", got)
	}
}

func TestParticleSystemReusesEmitterAcrossFrames(t *testing.T) {
	sys := NewParticleSystem()
	cfg := EmitterConfig{Rate: 10, Lifetime: Range{5, 5}}

	sys.touch("k", 1, &cfg, 0, 0)
	sys.Advance(0.1)
	sys.touch("k", 1, &cfg, 0, 0)
	sys.Advance(0.1)
	if got := sys.EmitterCount(); got != 1 {
		t.Errorf("emitters = %d, want the same emitter reused", got)
	}
	if got := len(sys.Particles(nil)); got != 2 {
		t.Errorf("particles = %d, want 2 across both frames", got)
	}
}

func TestParticleSystemAdvanceTo(t *testing.T) {
	sys := NewParticleSystem()
	cfg := EmitterConfig{Rate: 10, Lifetime: Range{5, 5}}

	// First call establishes the clock without elapsing time.
	sys.touch("k", 1, &cfg, 0, 0)
	sys.AdvanceTo(3.0)
	if got := len(sys.Particles(nil)); got != 0 {
		t.Errorf("particles = %d, want 0 on clock-setting call", got)
	}

	sys.touch("k", 1, &cfg, 0, 0)
	sys.AdvanceTo(3.1)
	if got := len(sys.Particles(nil)); got != 1 {
		t.Errorf("particles = %d, want 1 after 0.1s at rate 10", got)
	}

	// Backward time advances by zero.
	sys.touch("k", 1, &cfg, 0, 0)
	sys.AdvanceTo(2.0)
	if got := len(sys.Particles(nil)); got != 1 {
		t.Errorf("particles = %d, want unchanged on backward AdvanceTo", got)
	}
}

func TestParticleSystemReset(t *testing.T) {
	sys := NewParticleSystem()
	cfg := EmitterConfig{Burst: 3, Lifetime: Range{5, 5}}
	sys.touch("k", 1, &cfg, 0, 0)
	sys.Advance(0.1)

	sys.Reset()
	if sys.EmitterCount() != 0 {
		t.Error("Reset should discard all emitters")
	}
	if got := sys.Particles(nil); len(got) != 0 {
		t.Errorf("particles after Reset = %d, want 0", len(got))
	}
}

func TestParticleSystemOutputOrder(t *testing.T) {
	sys := NewParticleSystem()
	a := EmitterConfig{Burst: 1, Lifetime: Range{5, 5}, Color: Color{1, 0, 0, 1}}
	b := EmitterConfig{Burst: 1, Lifetime: Range{5, 5}, Color: Color{0, 1, 0, 1}}

	sys.touch("a", 1, &a, 0, 0)
	sys.touch("b", 2, &b, 0, 0)
	sys.Advance(0.1)

	states := sys.Particles(nil)
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	if states[0].Color != (Color{1, 0, 0, 1}) || states[1].Color != (Color{0, 1, 0, 1}) {
		t.Error("particles should appear in emitter creation order")
	}
}
