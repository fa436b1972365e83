package lyra

// Metrics supplies per-codepoint measurements. Implementations wrap a font
// rasterizer; FaceMetrics (font.go) is the built-in OpenType provider and
// tests use fixed-advance fakes.
type Metrics interface {
	// Measure returns the advance width and height of one codepoint at the
	// given family and size, in pixels.
	Measure(family string, size float64, r rune) (advance, height float64)
}

// GlyphPlacement is one laid-out codepoint: where it sits before effects
// run, which Char it came from, and the font it resolved to.
type GlyphPlacement struct {
	X, Y      float64
	Rune      rune
	CharIndex int // index into Line.Chars
	Advance   float64
	Height    float64
	Font      FontSpec
}

// layoutLine walks the line's Chars in order and produces glyph placements
// along the baseline. The effective font per Char is Char override, then
// Line override, then the resolved style, merged field by field. Letter
// spacing is folded into each glyph's advance; Gap is added once after each
// Char unit. Alignment shifts every x by -width/2 (center) or -width
// (right); the trailing gap does not count toward width.
//
// Pure function; the document is not mutated.
func layoutLine(line *Line, style *ResolvedStyle, metrics Metrics) []GlyphPlacement {
	if len(line.Chars) == 0 {
		return nil
	}

	glyphs := make([]GlyphPlacement, 0, len(line.Chars))
	var cursor float64
	for ci, ch := range line.Chars {
		font := effectiveFont(ch, line, style)
		for _, r := range ch.Text {
			adv, h := metrics.Measure(font.Family, font.Size, r)
			adv += font.LetterSpacing
			glyphs = append(glyphs, GlyphPlacement{
				X:         cursor,
				Rune:      r,
				CharIndex: ci,
				Advance:   adv,
				Height:    h,
				Font:      font,
			})
			cursor += adv
		}
		cursor += line.Gap
	}

	width := cursor - line.Gap
	var offset float64
	switch line.Align {
	case AlignCenter:
		offset = -width / 2
	case AlignRight:
		offset = -width
	}
	if offset != 0 {
		for i := range glyphs {
			glyphs[i].X += offset
		}
	}
	return glyphs
}

// effectiveFont merges the font cascade for one Char: style first, then
// the line override, then the char override, each contributing only the
// fields it sets.
func effectiveFont(ch *Char, line *Line, style *ResolvedStyle) FontSpec {
	font := style.Font
	if line.Font != nil {
		overlayFont(&font, line.Font)
	}
	if ch.Font != nil {
		overlayFont(&font, ch.Font)
	}
	return font
}
