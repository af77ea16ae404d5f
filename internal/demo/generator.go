package demo

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Generator produces deterministic pseudo-random demo values. Two generators
// built from the same seed yield identical sequences.
type Generator struct {
	rnd  *rand.Rand
	base time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd:  rand.New(rand.NewSource(seed)),
		base: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ID returns a foreign key in [1, n].
func (g *Generator) ID(n int) int64 {
	if n <= 0 {
		return 1
	}
	return int64(g.rnd.Intn(n) + 1)
}

func (g *Generator) Between(minValue, maxValue int) int64 {
	return int64(minValue + g.rnd.Intn(maxValue-minValue+1))
}

func (g *Generator) Amount(minValue, maxValue float64) float64 {
	return round2(minValue + g.rnd.Float64()*(maxValue-minValue))
}

// Time returns a second-precision timestamp within days of the base date.
func (g *Generator) Time(days int) time.Time {
	return g.base.Add(time.Duration(g.rnd.Int63n(int64(days)*24*3600)) * time.Second)
}

func (g *Generator) Date(days int) time.Time {
	return g.base.AddDate(0, 0, g.rnd.Intn(days))
}

func (g *Generator) Bool(percentTrue int) bool {
	return g.rnd.Intn(100) < percentTrue
}

func (g *Generator) Pick(values []string) string {
	return values[g.rnd.Intn(len(values))]
}

func (g *Generator) PersonName() string {
	return g.Pick(firstNames) + " " + g.Pick(lastNames)
}

func (g *Generator) UserID(cardinality int) string {
	return fmt.Sprintf("user-%04d", g.rnd.Intn(cardinality)+1)
}

// EventType follows a typical storefront funnel.
func (g *Generator) EventType() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 55:
		return "page_view"
	case p < 75:
		return "search"
	case p < 88:
		return "add_to_cart"
	case p < 97:
		return "checkout"
	default:
		return "purchase"
	}
}

func (g *Generator) EventAmount(eventType string) float64 {
	switch eventType {
	case "purchase":
		return g.Amount(20, 300)
	case "checkout":
		return g.Amount(15, 255)
	case "add_to_cart":
		return g.Amount(5, 125)
	default:
		return 0
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

var (
	firstNames = []string{"Ada", "Grace", "Alan", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances", "Edsger", "Radia", "Niklaus"}
	lastNames  = []string{"Lovelace", "Hopper", "Turing", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen", "Dijkstra", "Perlman", "Wirth"}
	countries  = []string{"US", "DE", "GB", "IN", "JP", "BR"}
	devices    = []string{"desktop", "mobile", "tablet"}
)
