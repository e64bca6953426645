package render

// DecoyKind enumerates the vector decoy polygon shapes. Circles and X
// crosses are deliberately absent: a circle reads as a UI affordance and an
// X as a close/delete control, and either would invite legitimate human
// misreads.
type DecoyKind string

const (
	DecoyTriangle DecoyKind = "triangle"
	DecoyDiamond  DecoyKind = "diamond"
	DecoyStar     DecoyKind = "star"
	DecoyPentagon DecoyKind = "pentagon"
	DecoyHexagon  DecoyKind = "hexagon"
)

// decoyKinds is the draw pool for the vector overlay layer.
var decoyKinds = []DecoyKind{
	DecoyTriangle,
	DecoyDiamond,
	DecoyStar,
	DecoyPentagon,
	DecoyHexagon,
}

// DecoyShape describes one vector decoy for the overlay layer above the
// raster. Positions are in the raster's logical coordinate space; the
// client draws these shapes itself so they stay crisp at any display scale.
type DecoyShape struct {
	Kind     DecoyKind `json:"kind"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Size     float64   `json:"size"`
	Rotation float64   `json:"rotation"`
	Opacity  float64   `json:"opacity"`
	Color    string    `json:"color"`
}

// Artifact is one rendered challenge: the noisy raster plus the independent
// vector decoy layer. Artifacts are replaced wholesale on regeneration,
// never mutated.
type Artifact struct {
	PNG    []byte
	Width  int
	Height int
	Decoys []DecoyShape
}
