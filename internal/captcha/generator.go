package captcha

import (
	"math/rand"
	"sync"
)

// Alphabet is the challenge character set. It deliberately excludes glyphs
// that humans misread in a distorted rendering: l/1/I, O/0/o/Q, S/s/5,
// Z/z/2 and B/8 are all absent. 47 characters total.
const Alphabet = "ACDEFGHJKLMNPRTUVWXY" + "abcdefghijkmnpqrtuvwxy" + "34679"

// Length is the fixed challenge length.
const Length = 6

// Generator produces challenge texts from an injected random source, so
// tests can seed it deterministically. Safe for concurrent use: request
// handlers and deferred regeneration timers share one instance.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator backed by the given source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns a fresh challenge text. Always succeeds: every output
// has exactly Length characters, all drawn from Alphabet.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = Alphabet[g.rng.Intn(len(Alphabet))]
	}
	return string(buf)
}
