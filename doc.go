// Package lyra evaluates animated karaoke lyric documents: given a parsed
// document and a playback time, it resolves exactly what every glyph looks
// like on that frame — position, scale, rotation, opacity, karaoke color
// state — plus the live particles, and hands the result to whatever draws
// it. Live preview, scrubbing, and batch export all call the same
// evaluator and get identical frames.
//
// # Quick start
//
//	doc, err := lyra.Load("song.json")
//	if err != nil { ... }
//	engine, err := lyra.NewEngine(doc)
//	if err != nil { ... }
//
//	sim := lyra.NewParticleSystem()
//	frame := engine.FrameAt(12.4, sim)
//	for _, g := range frame.Glyphs {
//		// composite g using g.Transform, g.Fill, g.Stroke ...
//	}
//
// # Pure evaluation vs. particle state
//
// Style resolution, layout, and effect evaluation are pure functions of
// (document, time): FrameAt with a nil ParticleSystem may run concurrently
// for different times. The ParticleSystem is the one stateful piece — a
// caller-owned simulation clock advanced strictly forward. Seeking
// backward requires ParticleSystem.Reset; see RenderRange for how batch
// export keeps the clock honest while evaluating frames in parallel.
//
// # Documents
//
// A document carries named styles (inheritable via "extends", merged field
// by field), named effects (transitions, keyframe timelines, typewriter
// reveals, particle emitters), and timed lines of per-character highlight
// windows. Effects are referenced by name from lines and characters and
// resolve against the document first, then the built-in preset registry
// ("fade", "slideLeft", "rain", "sparkle", ...); unknown names simply do
// not apply. User preset files load through Registry.LoadPresets.
package lyra
