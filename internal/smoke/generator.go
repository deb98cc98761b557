package smoke

import (
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
)

// Sample is one form submission together with the answer the service
// should give for it.
type Sample struct {
	ID          string
	Transport   string
	Meals       string
	Electricity string

	Valid     bool
	InvalidOf []footprint.Field
	Want      model.InputSample
	WantTotal float64
	WantTier  footprint.Tier
}

// Generator produces deterministic samples for a seed.
type Generator struct {
	rng         *rand.Rand
	invalidRate float64
}

// NewGenerator creates a Generator. invalidRate is the share of samples
// made invalid on purpose.
func NewGenerator(seed uint64, invalidRate float64) *Generator {
	return &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		invalidRate: invalidRate,
	}
}

// Next returns a new sample.
func (g *Generator) Next() Sample {
	if g.rng.Float64() < g.invalidRate {
		return g.invalid()
	}

	// Two decimals keep the text exactly representable by the parser.
	transport := float64(g.rng.IntN(30000)) / 100
	meals := g.rng.IntN(6)
	energy := float64(g.rng.IntN(4000)) / 100

	total := footprint.Estimate(transport, float64(meals), energy)
	return Sample{
		ID:          uuid.NewString(),
		Transport:   strconv.FormatFloat(transport, 'f', -1, 64),
		Meals:       strconv.Itoa(meals),
		Electricity: strconv.FormatFloat(energy, 'f', -1, 64),
		Valid:       true,
		WantTotal:   total,
		WantTier:    footprint.Classify(total),
		Want:        model.InputSample{TransportKm: transport, Meals: meals, EnergyKWh: energy},
	}
}

// invalid breaks one or more fields so each failure mode is covered.
func (g *Generator) invalid() Sample {
	s := Sample{
		ID:          uuid.NewString(),
		Transport:   "1",
		Meals:       "1",
		Electricity: "1",
	}
	switch g.rng.IntN(4) {
	case 0:
		s.Transport = "-" + strconv.Itoa(1+g.rng.IntN(50))
		s.InvalidOf = []footprint.Field{footprint.FieldTransport}
	case 1:
		s.Meals = strconv.Itoa(g.rng.IntN(5)) + ".5"
		s.InvalidOf = []footprint.Field{footprint.FieldMeals}
	case 2:
		s.Electricity = "-0.5"
		s.InvalidOf = []footprint.Field{footprint.FieldEnergy}
	default:
		s.Transport, s.Meals, s.Electricity = "-1", "-1", "-1"
		s.InvalidOf = []footprint.Field{footprint.FieldTransport, footprint.FieldMeals, footprint.FieldEnergy}
	}
	return s
}
