package station

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/rs/xid"
)

const (
	defaultVariants = 4
	colorMin        = 100
	colorMax        = 255
)

// Spawner invents items for simulations and handle-less manual arrivals.
// Each item gets a unique handle plus a random variant, color, and rotation.
type Spawner struct {
	mu       sync.Mutex
	rng      *rand.Rand
	variants int
	prefix   string
}

// NewSpawner draws attributes from rng. variants <= 0 uses the default.
func NewSpawner(rng *rand.Rand, variants int) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if variants <= 0 {
		variants = defaultVariants
	}
	return &Spawner{rng: rng, variants: variants, prefix: "item-"}
}

// Next returns a new handle and its attributes.
func (s *Spawner) Next() (string, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.channel()
	g := s.channel()
	b := s.channel()
	attrs := map[string]string{
		"variant":  strconv.Itoa(s.rng.Intn(s.variants)),
		"color":    fmt.Sprintf("%d,%d,%d", r, g, b),
		"rotation": strconv.FormatFloat(s.rng.Float64()*360, 'f', 1, 64),
	}
	return s.prefix + xid.New().String(), attrs
}

func (s *Spawner) channel() int {
	return colorMin + s.rng.Intn(colorMax-colorMin+1)
}
