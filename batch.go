package lyra

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RenderRange evaluates every frame in [start, end) at the given frame rate
// and hands them to fn in playback order. The pure per-frame evaluation
// fans out across NumCPU workers; the particle simulation then runs over
// the results sequentially, so its strict forward-time contract holds even
// though glyph evaluation happened out of order.
//
// fn runs on the calling goroutine. A fn error or context cancellation
// stops the render between frames.
func (e *Engine) RenderRange(ctx context.Context, start, end, fps float64, fn func(Frame) error) error {
	if fps <= 0 {
		return fmt.Errorf("lyra: fps must be positive, got %v", fps)
	}
	if end < start {
		return fmt.Errorf("lyra: empty range [%v, %v)", start, end)
	}

	n := int((end - start) * fps)
	frames := make([]Frame, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frames[i] = e.FrameAt(start+float64(i)/fps, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sim := NewParticleSystem()
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.attachParticles(&frames[i], sim)
		if err := fn(frames[i]); err != nil {
			return err
		}
	}
	return nil
}

// attachParticles replays the frame's active glyphs against the particle
// simulation: request emitters for active particle effects, advance the
// clock to the frame time, and snapshot the live particles.
func (e *Engine) attachParticles(frame *Frame, sim *ParticleSystem) {
	if frame.LineIndex >= 0 && frame.LineIndex < len(e.doc.Lines) {
		line := e.doc.Lines[frame.LineIndex]
		ctx := TriggerContext{
			LineStart: line.Start,
			LineEnd:   line.End,
			Time:      frame.Time,
			Count:     len(frame.Glyphs),
			Width:     float64(e.doc.Project.Width),
			Height:    float64(e.doc.Project.Height),
		}
		for gi := range frame.Glyphs {
			g := &frame.Glyphs[gi]
			if g.CharIndex >= len(line.Chars) {
				continue
			}
			ch := line.Chars[g.CharIndex]
			e.touchEmitters(frame.LineIndex, gi, line, ch, &ctx, &g.GlyphPlacement, &g.Transform, sim)
		}
	}
	sim.AdvanceTo(frame.Time)
	frame.Particles = sim.Particles(nil)
}
