package lyra

import "math"

// lcg is a 64-bit linear congruential generator. Every emitter owns one,
// seeded from its (line, glyph) identity, so re-rendering the same frame
// sequence reproduces particle positions bit for bit regardless of what
// other emitters or documents are being simulated.
type lcg struct {
	state uint64
}

func newLCG(seed uint64) lcg {
	// Mix the seed so adjacent (line, glyph) pairs diverge immediately.
	g := lcg{state: seed*6364136223846793005 + 1442695040888963407}
	g.next()
	return g
}

// next returns a uniform float64 in [0, 1).
func (g *lcg) next() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / (1 << 53)
}

// sample returns a value uniformly drawn from r.
func (g *lcg) sample(r Range) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + g.next()*(r.Max-r.Min)
}

// emitterSeed derives the deterministic RNG seed for an emitter identity.
func emitterSeed(line, glyph int) uint64 {
	return uint64(line)<<32 | uint64(uint32(glyph))
}

// EmitterConfig controls how an emitter spawns particles and how they
// behave. Burst > 0 spawns that many particles once on activation;
// Rate > 0 spawns continuously.
type EmitterConfig struct {
	// MaxParticles is the pool size. New particles are silently dropped
	// when the pool is full.
	MaxParticles int `json:"maxParticles,omitempty" yaml:"maxParticles"`
	// Burst is the number of particles spawned once when the emitter
	// activates.
	Burst int `json:"burst,omitempty" yaml:"burst"`
	// Rate is the number of particles spawned per second while active.
	Rate float64 `json:"rate,omitempty" yaml:"rate"`
	// Lifetime is the range of particle lifetimes in seconds.
	Lifetime Range `json:"lifetime" yaml:"lifetime"`
	// Speed is the range of initial speeds in pixels per second.
	Speed Range `json:"speed" yaml:"speed"`
	// Direction is the base emission angle in radians; each particle's
	// angle is drawn from Direction +/- Spread/2.
	Direction float64 `json:"direction,omitempty" yaml:"direction"`
	Spread    float64 `json:"spread,omitempty" yaml:"spread"`
	// StartSize and EndSize are ranges for the size at birth and death;
	// size interpolates linearly over the particle's normalized age.
	StartSize Range `json:"startSize" yaml:"startSize"`
	EndSize   Range `json:"endSize" yaml:"endSize"`
	// RotationSpeed is the range of spin rates in radians per second.
	RotationSpeed Range `json:"rotationSpeed,omitempty" yaml:"rotationSpeed"`
	// Gravity is a constant downward acceleration in px/s^2.
	Gravity float64 `json:"gravity,omitempty" yaml:"gravity"`
	// Drag is a proportional velocity decay per second.
	Drag float64 `json:"drag,omitempty" yaml:"drag"`
	// Wind is a constant acceleration applied on both axes.
	Wind Vec2 `json:"wind,omitempty" yaml:"wind"`
	// Color tints every particle; opacity fades over the last 30% of life.
	Color Color `json:"color,omitempty" yaml:"color"`
	Shape Shape `json:"shape,omitempty" yaml:"shape"`
}

// particle holds per-particle simulation state. Managed by Emitter.
type particle struct {
	x, y      float64
	vx, vy    float64
	age       float64
	maxLife   float64
	startSize float64
	endSize   float64
	size      float64
	rotation  float64
	rotSpeed  float64
}

// ParticleState is the renderable snapshot of one live particle.
type ParticleState struct {
	X, Y     float64
	Size     float64
	Rotation float64
	Color    Color
	Opacity  float64
	Shape    Shape
}

// Emitter is a stateful particle source tied to one (line, glyph, effect)
// identity. It persists across frames until retired by its ParticleSystem.
type Emitter struct {
	config    EmitterConfig
	particles []particle
	alive     int
	accum     float64
	burstDone bool
	active    bool
	x, y      float64
	rng       lcg
	gen       uint64 // last generation this emitter was requested in
}

// NewEmitter creates an emitter with a preallocated pool and a
// deterministic RNG. Two emitters built with the same seed and config and
// stepped through the same dt sequence produce identical particles.
func NewEmitter(seed uint64, cfg EmitterConfig) *Emitter {
	max := cfg.MaxParticles
	if max <= 0 {
		max = 128
	}
	return &Emitter{
		config:    cfg,
		particles: make([]particle, max),
		active:    true,
		rng:       newLCG(seed),
	}
}

// MoveTo updates the spawn origin for subsequently spawned particles.
// Existing particles keep their positions.
func (e *Emitter) MoveTo(x, y float64) {
	e.x = x
	e.y = y
}

// Deactivate stops spawning. Existing particles live out their lifetimes.
func (e *Emitter) Deactivate() {
	e.active = false
}

// IsActive reports whether the emitter still spawns new particles.
func (e *Emitter) IsActive() bool {
	return e.active
}

// AliveCount returns the number of live particles.
func (e *Emitter) AliveCount() int {
	return e.alive
}

// Update advances the simulation by dt seconds: existing particles first
// (gravity, drag, wind, integration, rotation, aging), then new spawns.
func (e *Emitter) Update(dt float64) {
	cfg := &e.config
	gy := cfg.Gravity * dt
	decay := 1 - cfg.Drag*dt
	if decay < 0 {
		decay = 0
	}
	wx := cfg.Wind.X * dt
	wy := cfg.Wind.Y * dt

	// Advance live particles, swap-remove dead ones.
	i := 0
	for i < e.alive {
		p := &e.particles[i]
		p.vy += gy
		p.vx *= decay
		p.vy *= decay
		p.vx += wx
		p.vy += wy
		p.x += p.vx * dt
		p.y += p.vy * dt
		p.rotation += p.rotSpeed * dt
		p.age += dt
		if p.age >= p.maxLife {
			e.alive--
			e.particles[i] = e.particles[e.alive]
			continue
		}
		p.size = lerp(p.startSize, p.endSize, p.age/p.maxLife)
		i++
	}

	if !e.active {
		return
	}

	if cfg.Burst > 0 && !e.burstDone {
		e.burstDone = true
		for n := 0; n < cfg.Burst && e.alive < len(e.particles); n++ {
			e.spawn()
		}
	}

	if cfg.Rate > 0 {
		e.accum += cfg.Rate * dt
		for e.accum >= 1 {
			e.accum--
			if e.alive < len(e.particles) {
				e.spawn()
			}
		}
	}
}

// spawn initializes the particle at slot e.alive and increments alive.
// Sampling order is fixed; reordering the draws would change every seeded
// sequence.
func (e *Emitter) spawn() {
	cfg := &e.config
	p := &e.particles[e.alive]

	angle := cfg.Direction + (e.rng.next()-0.5)*cfg.Spread
	speed := e.rng.sample(cfg.Speed)
	p.vx = math.Cos(angle) * speed
	p.vy = math.Sin(angle) * speed
	p.x = e.x
	p.y = e.y

	p.maxLife = e.rng.sample(cfg.Lifetime)
	if p.maxLife <= 0 {
		p.maxLife = 1
	}
	p.age = 0

	p.startSize = e.rng.sample(cfg.StartSize)
	p.endSize = e.rng.sample(cfg.EndSize)
	p.size = p.startSize
	p.rotation = 0
	p.rotSpeed = e.rng.sample(cfg.RotationSpeed)

	e.alive++
}

// appendStates appends renderable snapshots of the live particles.
// Opacity fades linearly over the last 30% of each particle's lifetime.
func (e *Emitter) appendStates(out []ParticleState) []ParticleState {
	for i := 0; i < e.alive; i++ {
		p := &e.particles[i]
		opacity := e.config.Color.A
		if opacity == 0 {
			opacity = 1
		}
		if a := p.age / p.maxLife; a > 0.7 {
			opacity *= (1 - a) / 0.3
		}
		out = append(out, ParticleState{
			X:        p.x,
			Y:        p.y,
			Size:     p.size,
			Rotation: p.rotation,
			Color:    e.config.Color,
			Opacity:  opacity,
			Shape:    e.config.Shape,
		})
	}
	return out
}

// ParticleSystem is the caller-owned simulation clock: an arena of emitters
// keyed by stable (line, glyph, effect) identity. It is the only stateful
// part of the engine; advance it strictly forward in time from a single
// goroutine. Seeking backward requires Reset.
type ParticleSystem struct {
	emitters map[string]*Emitter
	order    []string // insertion order, for deterministic output
	gen      uint64
	clock    float64
	started  bool
}

// NewParticleSystem creates an empty particle simulation.
func NewParticleSystem() *ParticleSystem {
	return &ParticleSystem{emitters: make(map[string]*Emitter)}
}

// touch requests an emitter for this frame, creating it on first use and
// updating its spawn origin. Touched emitters survive Advance; untouched
// ones drain and retire.
func (s *ParticleSystem) touch(key string, seed uint64, cfg *EmitterConfig, x, y float64) {
	e, ok := s.emitters[key]
	if !ok {
		e = NewEmitter(seed, *cfg)
		s.emitters[key] = e
		s.order = append(s.order, key)
	}
	e.active = true
	e.gen = s.gen
	e.MoveTo(x, y)
}

// Advance steps every emitter by dt, deactivates emitters whose key was not
// requested since the previous Advance, and retires emitters that are both
// inactive and empty.
func (s *ParticleSystem) Advance(dt float64) {
	retired := 0
	for _, key := range s.order {
		e := s.emitters[key]
		if e.gen != s.gen {
			e.Deactivate()
		}
		e.Update(dt)
		if !e.active && e.alive == 0 {
			delete(s.emitters, key)
			retired++
		}
	}
	if retired > 0 {
		kept := s.order[:0]
		for _, key := range s.order {
			if _, ok := s.emitters[key]; ok {
				kept = append(kept, key)
			}
		}
		s.order = kept
	}
	s.gen++
}

// AdvanceTo steps the simulation to absolute time t. The first call sets
// the clock without elapsing time; later calls advance by the difference.
// A t earlier than the clock advances by zero (see Reset for real seeks).
func (s *ParticleSystem) AdvanceTo(t float64) {
	dt := 0.0
	if s.started {
		dt = t - s.clock
		if dt < 0 {
			dt = 0
		}
	}
	s.started = true
	s.clock = t
	s.Advance(dt)
}

// Particles appends the live particles of every emitter, in emitter
// creation order, and returns the extended slice.
func (s *ParticleSystem) Particles(out []ParticleState) []ParticleState {
	for _, key := range s.order {
		out = s.emitters[key].appendStates(out)
	}
	return out
}

// EmitterCount returns the number of emitters not yet retired.
func (s *ParticleSystem) EmitterCount() int {
	return len(s.emitters)
}

// Reset discards all emitters. Callers that seek backward in time use this
// to rebuild the simulation from the new position.
func (s *ParticleSystem) Reset() {
	clear(s.emitters)
	s.order = s.order[:0]
	s.gen = 0
	s.clock = 0
	s.started = false
}
