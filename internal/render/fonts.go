package render

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// FontSet holds the parsed typefaces glyphs are drawn with. Variation in
// family and weight comes from picking a random member per glyph, so a set
// should mix regular and bold files from a couple of families.
type FontSet struct {
	fonts []*truetype.Font
	names []string
}

// LoadFontSet parses every .ttf file in dir. Files that fail to parse are
// skipped. An empty result is not an error: the renderer falls back to its
// built-in face, which keeps rendering total at the cost of variety.
func LoadFontSet(dir string) (*FontSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read font dir %s: %w", dir, err)
	}

	fs := &FontSet{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".ttf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		f, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		fs.fonts = append(fs.fonts, f)
		fs.names = append(fs.names, entry.Name())
	}

	return fs, nil
}

// Len returns the number of loaded typefaces.
func (fs *FontSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.fonts)
}

// Names returns the loaded file names, for startup logging.
func (fs *FontSet) Names() []string {
	if fs == nil {
		return nil
	}
	return fs.names
}

// Face returns a random typeface at the given size, or nil when the set is
// empty.
func (fs *FontSet) Face(rng *rand.Rand, size float64) font.Face {
	if fs.Len() == 0 {
		return nil
	}
	f := fs.fonts[rng.Intn(len(fs.fonts))]
	return truetype.NewFace(f, &truetype.Options{Size: size})
}
