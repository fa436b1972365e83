package lyra

// ResolvedStyle is a Style flattened through its extends chain with every
// field populated, ready for layout and color selection.
type ResolvedStyle struct {
	Font   FontSpec
	Colors ResolvedColors
	Stroke StrokeSpec
	Shadow ShadowSpec
	Glow   GlowSpec
}

// ResolvedColors has all three highlight states populated.
type ResolvedColors struct {
	Inactive StateColors
	Active   StateColors
	Complete StateColors
}

// DefaultStyle returns the built-in fallback used when a style name is
// missing or a chain leaves fields unset: Noto Sans SC 72, no stroke,
// gray/yellow/white karaoke states.
func DefaultStyle() ResolvedStyle {
	return ResolvedStyle{
		Font: FontSpec{
			Family: "Noto Sans SC",
			Size:   72,
			Weight: 400,
			Style:  "normal",
		},
		Colors: ResolvedColors{
			Inactive: StateColors{Fill: Color{0.5, 0.5, 0.5, 1}, Stroke: Color{0, 0, 0, 1}},
			Active:   StateColors{Fill: Color{1, 0.84, 0, 1}, Stroke: Color{0, 0, 0, 1}},
			Complete: StateColors{Fill: ColorWhite, Stroke: Color{0, 0, 0, 1}},
		},
	}
}

// ResolveStyle resolves a named style through its extends chain into a
// flattened record. Resolution is field-granular: a child only overrides
// the fields it explicitly sets. Missing names resolve to DefaultStyle.
// A cyclic or broken extends chain stops inheriting at the point of the
// cycle and keeps whatever has been resolved so far.
//
// Pure function of the document; Engine memoizes it per name.
func (d *Document) ResolveStyle(name string) ResolvedStyle {
	out := DefaultStyle()
	chain := styleChain(d, name, nil)
	// Overlay root-most first so children win field by field.
	for i := len(chain) - 1; i >= 0; i-- {
		overlayStyle(&out, chain[i])
	}
	return out
}

// styleChain collects the style and its ancestors, child first. visited
// guards against extends cycles.
func styleChain(d *Document, name string, visited map[string]bool) []*Style {
	if name == "" || d.Styles == nil {
		return nil
	}
	s, ok := d.Styles[name]
	if !ok || s == nil {
		return nil
	}
	if visited == nil {
		visited = make(map[string]bool, 4)
	}
	if visited[name] {
		return nil
	}
	visited[name] = true
	return append([]*Style{s}, styleChain(d, s.Extends, visited)...)
}

// overlayStyle copies the explicitly-set fields of src onto dst.
func overlayStyle(dst *ResolvedStyle, src *Style) {
	if src.Font != nil {
		overlayFont(&dst.Font, src.Font)
	}
	if src.Colors != nil {
		if src.Colors.Inactive != nil {
			dst.Colors.Inactive = *src.Colors.Inactive
		}
		if src.Colors.Active != nil {
			dst.Colors.Active = *src.Colors.Active
		}
		if src.Colors.Complete != nil {
			dst.Colors.Complete = *src.Colors.Complete
		}
	}
	if src.Stroke != nil {
		dst.Stroke = *src.Stroke
	}
	if src.Shadow != nil {
		dst.Shadow = *src.Shadow
	}
	if src.Glow != nil {
		dst.Glow = *src.Glow
	}
}

// overlayFont copies the non-zero fields of src onto dst.
func overlayFont(dst *FontSpec, src *FontSpec) {
	if src.Family != "" {
		dst.Family = src.Family
	}
	if src.Size != 0 {
		dst.Size = src.Size
	}
	if src.Weight != 0 {
		dst.Weight = src.Weight
	}
	if src.Style != "" {
		dst.Style = src.Style
	}
	if src.LetterSpacing != 0 {
		dst.LetterSpacing = src.LetterSpacing
	}
}

// colorsFor returns the fill/stroke pair for a highlight state.
func (rc *ResolvedColors) colorsFor(state CharState) StateColors {
	switch state {
	case StateActive:
		return rc.Active
	case StateComplete:
		return rc.Complete
	default:
		return rc.Inactive
	}
}
