package render

import (
	"bytes"
	"image/png"
	"math"
	"math/rand"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// Layout constants for the challenge surface. The surface is fixed-size
// and fully owned by the renderer: every call replaces all prior content.
const (
	// FallbackWidth is used when the caller measures a zero width.
	FallbackWidth       = 320
	DefaultHeight       = 70
	hatchSpacing        = 6
	backgroundPolylines = 6
	backgroundDecoys    = 6
	overlayZigzags      = 5
	overlayCircles      = 6
	scribbleSegments    = 6
	vectorDecoys        = 10
)

// Config holds renderer tuning. Zero values fall back to sane defaults.
type Config struct {
	Height    int
	BlurSigma float64
}

// Renderer draws challenge texts into noisy, distorted artifacts. Layered
// noise defeats trivial OCR while remaining human-legible. A renderer is
// safe for concurrent use; calls are serialized because the random source
// is shared.
type Renderer struct {
	mu    sync.Mutex
	cfg   Config
	fonts *FontSet
	rng   *rand.Rand
}

// NewRenderer creates a Renderer using the given font set and random
// source.
func NewRenderer(cfg Config, fonts *FontSet, src rand.Source) *Renderer {
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	return &Renderer{
		cfg:   cfg,
		fonts: fonts,
		rng:   rand.New(src),
	}
}

// Render draws text into a fresh artifact of the given width. Each noise
// layer is randomized independently per call, so re-rendering the same text
// yields a visually different artifact. Total: the only error path is PNG
// encoding.
func (r *Renderer) Render(text string, width int) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 {
		width = FallbackWidth
	}
	height := r.cfg.Height
	w := float64(width)
	h := float64(height)

	dc := gg.NewContext(width, height)

	r.fillBase(dc, w, h)
	r.drawHatch(dc, w, h)
	r.drawBackgroundPolylines(dc, w, h)
	r.drawBackgroundDecoys(dc, w, h)
	glyphBoxes := r.drawGlyphs(dc, text, w, h)
	r.drawOverlayZigzags(dc, w, h)
	r.drawOverlayCircles(dc, w, h)
	r.drawGlyphScribbles(dc, glyphBoxes)

	img := dc.Image()
	if r.cfg.BlurSigma > 0 {
		img = imaging.Blur(img, r.cfg.BlurSigma)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &Artifact{
		PNG:    buf.Bytes(),
		Width:  width,
		Height: height,
		Decoys: r.makeVectorDecoys(w, h),
	}, nil
}

// fillBase paints the light base tone.
func (r *Renderer) fillBase(dc *gg.Context, w, h float64) {
	base := colorful.Hsv(r.rng.Float64()*360, 0.04+r.rng.Float64()*0.08, 0.92+r.rng.Float64()*0.06)
	dc.SetRGB(base.R, base.G, base.B)
	dc.Clear()
}

// drawHatch lays diagonal texture lines at fixed small spacing.
func (r *Renderer) drawHatch(dc *gg.Context, w, h float64) {
	dc.SetRGBA(0, 0, 0, 0.05+r.rng.Float64()*0.04)
	dc.SetLineWidth(0.6)
	for x := -h; x < w; x += hatchSpacing {
		dc.DrawLine(x, 0, x+h, h)
		dc.Stroke()
	}
}

// drawBackgroundPolylines scatters low-opacity multi-segment lines across
// the full surface.
func (r *Renderer) drawBackgroundPolylines(dc *gg.Context, w, h float64) {
	for i := 0; i < backgroundPolylines; i++ {
		c := r.midColor()
		dc.SetRGBA(c.R, c.G, c.B, 0.12+r.rng.Float64()*0.15)
		dc.SetLineWidth(0.8 + r.rng.Float64()*0.8)

		segments := 3 + r.rng.Intn(4)
		x := r.rng.Float64() * w
		y := r.rng.Float64() * h
		dc.MoveTo(x, y)
		for s := 0; s < segments; s++ {
			x = r.rng.Float64() * w
			y = r.rng.Float64() * h
			dc.LineTo(x, y)
		}
		dc.Stroke()
	}
}

// drawBackgroundDecoys draws simple shapes behind the text, fill or stroke
// chosen per shape.
func (r *Renderer) drawBackgroundDecoys(dc *gg.Context, w, h float64) {
	for i := 0; i < backgroundDecoys; i++ {
		c := r.midColor()
		dc.SetRGBA(c.R, c.G, c.B, 0.08+r.rng.Float64()*0.12)
		dc.SetLineWidth(1)

		x := r.rng.Float64() * w
		y := r.rng.Float64() * h
		size := 6 + r.rng.Float64()*16

		switch r.rng.Intn(4) {
		case 0:
			dc.DrawCircle(x, y, size/2)
		case 1:
			dc.DrawRectangle(x-size/2, y-size/2, size, size)
		case 2:
			dc.DrawRegularPolygon(3, x, y, size/2, r.rng.Float64()*2*math.Pi)
		default:
			// diamond: a square standing on a corner
			dc.DrawRegularPolygon(4, x, y, size/2, math.Pi/4)
		}

		if r.rng.Intn(2) == 0 {
			dc.Fill()
		} else {
			dc.Stroke()
		}
	}
}

type glyphBox struct {
	x, y, size float64
}

// drawGlyphs renders each challenge character with independent random
// rotation, jitter, size, typeface and color, plus a small drop shadow.
// Returns the glyph anchor boxes for the scribble pass.
func (r *Renderer) drawGlyphs(dc *gg.Context, text string, w, h float64) []glyphBox {
	runes := []rune(text)
	slot := w / float64(len(runes)+1)
	baseSize := h * 0.55

	boxes := make([]glyphBox, 0, len(runes))
	for i, ch := range runes {
		size := baseSize * (0.925 + r.rng.Float64()*0.15) // ±7.5%
		x := slot*float64(i+1) + (r.rng.Float64()-0.5)*slot*0.3
		y := h/2 + (r.rng.Float64()-0.5)*h*0.2
		angle := (r.rng.Float64() - 0.5) * 2 * (14 * math.Pi / 180)

		if face := r.fonts.Face(r.rng, size); face != nil {
			dc.SetFontFace(face)
		}

		dc.Push()
		dc.RotateAbout(angle, x, y)

		// drop shadow first, then the glyph over it
		dc.SetRGBA(0, 0, 0, 0.25)
		dc.DrawStringAnchored(string(ch), x+1.5, y+1.5, 0.5, 0.5)

		c := r.darkColor()
		dc.SetRGB(c.R, c.G, c.B)
		dc.DrawStringAnchored(string(ch), x, y, 0.5, 0.5)

		dc.Pop()

		boxes = append(boxes, glyphBox{x: x, y: y, size: size})
	}
	return boxes
}

// drawOverlayZigzags crosses the glyphs with higher-contrast zig-zag
// polylines spanning the full width.
func (r *Renderer) drawOverlayZigzags(dc *gg.Context, w, h float64) {
	for i := 0; i < overlayZigzags; i++ {
		c := r.darkColor()
		dc.SetRGBA(c.R, c.G, c.B, 0.45+r.rng.Float64()*0.3)
		dc.SetLineWidth(1 + r.rng.Float64())

		segments := 6 + r.rng.Intn(4)
		step := w / float64(segments)
		y := h * (0.2 + r.rng.Float64()*0.6)
		amplitude := 4 + r.rng.Float64()*12

		dc.MoveTo(0, y)
		for s := 1; s <= segments; s++ {
			offset := amplitude
			if s%2 == 0 {
				offset = -amplitude
			}
			dc.LineTo(step*float64(s), y+offset+(r.rng.Float64()-0.5)*4)
		}
		dc.Stroke()
	}
}

// drawOverlayCircles drops filled circular decoys over the text layer.
func (r *Renderer) drawOverlayCircles(dc *gg.Context, w, h float64) {
	for i := 0; i < overlayCircles; i++ {
		c := r.midColor()
		dc.SetRGBA(c.R, c.G, c.B, 0.3+r.rng.Float64()*0.2)
		dc.DrawCircle(r.rng.Float64()*w, r.rng.Float64()*h, 2+r.rng.Float64()*5)
		dc.Fill()
	}
}

// drawGlyphScribbles puts a jagged scribble over each glyph's area so that
// every glyph has at least one crossing stroke.
func (r *Renderer) drawGlyphScribbles(dc *gg.Context, boxes []glyphBox) {
	for _, box := range boxes {
		c := r.darkColor()
		dc.SetRGBA(c.R, c.G, c.B, 0.35+r.rng.Float64()*0.25)
		dc.SetLineWidth(0.8 + r.rng.Float64()*0.6)

		span := box.size * 1.2
		x := box.x - span/2
		y := box.y + (r.rng.Float64()-0.5)*box.size*0.5
		step := span / scribbleSegments

		dc.MoveTo(x, y)
		for s := 1; s <= scribbleSegments; s++ {
			dc.LineTo(x+step*float64(s), y+(r.rng.Float64()-0.5)*box.size*0.6)
		}
		dc.Stroke()
	}
}

// makeVectorDecoys generates the overlay polygon descriptors. Shapes are
// drawn from the fixed decoy pool only; position, size, rotation, opacity
// and color are independently random.
func (r *Renderer) makeVectorDecoys(w, h float64) []DecoyShape {
	decoys := make([]DecoyShape, 0, vectorDecoys)
	for i := 0; i < vectorDecoys; i++ {
		c := r.midColor()
		decoys = append(decoys, DecoyShape{
			Kind:     decoyKinds[r.rng.Intn(len(decoyKinds))],
			X:        r.rng.Float64() * w,
			Y:        r.rng.Float64() * h,
			Size:     6 + r.rng.Float64()*18,
			Rotation: r.rng.Float64() * 360,
			Opacity:  0.15 + r.rng.Float64()*0.35,
			Color:    c.Hex(),
		})
	}
	return decoys
}

// darkColor samples a saturated dark-ish color that stays legible on the
// light base tone.
func (r *Renderer) darkColor() colorful.Color {
	return colorful.Hsv(r.rng.Float64()*360, 0.55+r.rng.Float64()*0.4, 0.2+r.rng.Float64()*0.3)
}

// midColor samples a mid-tone color for noise layers.
func (r *Renderer) midColor() colorful.Color {
	return colorful.Hsv(r.rng.Float64()*360, 0.3+r.rng.Float64()*0.5, 0.35+r.rng.Float64()*0.35)
}
