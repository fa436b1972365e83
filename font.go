package lyra

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FaceMetrics is the built-in Metrics provider backed by OpenType fonts.
// Families are registered by name from raw TTF/OTF data; unknown families
// measure against the bundled Go Regular fallback so layout always
// produces placements. Faces are cached per (family, size).
//
// Safe for concurrent use.
type FaceMetrics struct {
	mu       sync.Mutex
	fonts    map[string]*sfnt.Font
	faces    map[faceKey]font.Face
	fallback *sfnt.Font
}

type faceKey struct {
	family string
	size   float64
}

// NewFaceMetrics creates a FaceMetrics with the Go Regular fallback loaded.
func NewFaceMetrics() *FaceMetrics {
	fallback, err := opentype.Parse(goregular.TTF)
	if err != nil {
		// The bundled font is known-good data.
		panic("lyra: failed to parse bundled fallback font: " + err.Error())
	}
	return &FaceMetrics{
		fonts:    make(map[string]*sfnt.Font),
		faces:    make(map[faceKey]font.Face),
		fallback: fallback,
	}
}

// RegisterFont parses raw TTF/OTF data and registers it under a family name.
func (m *FaceMetrics) RegisterFont(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("lyra: failed to parse font %q: %w", family, err)
	}
	m.mu.Lock()
	m.fonts[family] = f
	m.mu.Unlock()
	return nil
}

// Measure returns the advance width and line height of one codepoint.
// Codepoints missing from the face measure as the face's space glyph would;
// the height is the face's line height, independent of the rune.
func (m *FaceMetrics) Measure(family string, size float64, r rune) (advance, height float64) {
	face := m.face(family, size)
	met := face.Metrics()
	height = fixedToFloat(met.Height)

	adv, ok := face.GlyphAdvance(r)
	if !ok {
		adv, _ = face.GlyphAdvance(' ')
	}
	return fixedToFloat(adv), height
}

// face returns the cached face for (family, size), creating it on demand.
func (m *FaceMetrics) face(family string, size float64) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := faceKey{family, size}
	if f, ok := m.faces[key]; ok {
		return f
	}

	src, ok := m.fonts[family]
	if !ok {
		src = m.fallback
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingNone,
	})
	if err != nil {
		face, _ = opentype.NewFace(m.fallback, &opentype.FaceOptions{
			Size: size, DPI: 72, Hinting: font.HintingNone,
		})
	}
	m.faces[key] = face
	return face
}

// fixedToFloat converts a 26.6 fixed-point value to float64 pixels.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
