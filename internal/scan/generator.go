package scan

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"deepfake_shield/internal/domain"
)

// Source is the randomness a Generator draws from. *rand.Rand satisfies it,
// so tests can pass a seeded one.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// NewSource returns a PCG source seeded with seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Verdict labels
const (
	VerdictFake      = "fake"
	VerdictAuthentic = "authentic"
)

// Verdict is one generated scan outcome.
type Verdict struct {
	Fake       bool    `json:"is_fake"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Label returns "fake" or "authentic".
func (v Verdict) Label() string {
	if v.Fake {
		return VerdictFake
	}
	return VerdictAuthentic
}

// StoredResult maps the verdict onto the scan log vocabulary.
func (v Verdict) StoredResult() string {
	if v.Fake {
		return domain.ResultFake
	}
	return domain.ResultSafe
}

// Generator produces random verdicts. It is safe for concurrent use.
type Generator struct {
	profile Profile

	mu  sync.Mutex
	src Source
}

// NewGenerator returns a generator over src, or over a time-seeded source when src is nil.
func NewGenerator(p Profile, src Source) *Generator {
	if src == nil {
		src = NewSource(uint64(time.Now().UnixNano()))
	}
	return &Generator{profile: p, src: src}
}

// Next draws, in order: the fake decision, the confidence, then the reason.
func (g *Generator) Next() Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	fake := g.src.Float64() < g.profile.FakeProbability
	lo, hi := g.profile.Confidence.Min, g.profile.Confidence.Max
	confidence := round1(lo + g.src.Float64()*(hi-lo))

	reasons := g.profile.AuthenticReasons
	if fake {
		reasons = g.profile.FakeReasons
	}
	return Verdict{
		Fake:       fake,
		Confidence: confidence,
		Reason:     reasons[g.src.IntN(len(reasons))],
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Progress returns the overall percentage for phase i of n after elapsed
// of the phase's duration. It moves linearly from i/n*100 to (i+1)/n*100
// and holds at the phase end once the duration has passed.
func Progress(i, n int, elapsed, duration time.Duration) float64 {
	if n <= 0 {
		return 0
	}
	start := float64(i) / float64(n) * 100
	end := float64(i+1) / float64(n) * 100
	frac := 1.0
	if duration > 0 {
		frac = float64(elapsed) / float64(duration)
	}
	frac = math.Max(0, math.Min(frac, 1))
	return start + (end-start)*frac
}
