package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
)

// Criterion names appear in explanations and in API payloads.
const (
	CriterionCategory    = "category"
	CriterionUrgency     = "urgency"
	CriterionDescription = "description"
	CriterionProximity   = "proximity"
	CriterionQuantity    = "quantity"
	CriterionCap         = "category_cap"
)

// Oracle supplies an optional semantic similarity in [0,1].
type Oracle interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Criterion is one line of a score explanation.
type Criterion struct {
	Name   string  `json:"name" yaml:"name"`
	Points float64 `json:"points" yaml:"points"`
	Max    float64 `json:"max" yaml:"max"`
	Detail string  `json:"detail" yaml:"detail"`
}

// String renders the criterion as a compact explanation line.
func (c Criterion) String() string {
	return fmt.Sprintf("%s: %.2f/%.0f (%s)", c.Name, c.Points, c.Max, c.Detail)
}

// Result is the outcome of scoring one donation/request pair.
type Result struct {
	Score    float64     `json:"score" yaml:"score"`
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
	// OracleFallback is set when an oracle was configured but its answer was not usable.
	OracleFallback bool `json:"oracleFallback,omitempty" yaml:"oracleFallback,omitempty"`
}

// Explanation flattens the criteria into display lines.
func (r Result) Explanation() []string {
	lines := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		lines = append(lines, c.String())
	}
	return lines
}

// Scorer computes compatibility scores. It is safe for concurrent use.
type Scorer struct {
	cfg    Config
	oracle Oracle
}

type Option func(*Scorer)

// WithOracle enables oracle-assisted description similarity.
func WithOracle(o Oracle) Option {
	return func(s *Scorer) {
		s.oracle = o
	}
}

// New builds a scorer. Invalid configurations are rejected.
func New(cfg Config, opts ...Option) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scorer{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// MustNew is New for static configurations known to be valid.
func MustNew(cfg Config, opts ...Option) *Scorer {
	s, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns the configuration the scorer was built with.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score rates how well the donation serves the request. Without an oracle the
// result depends only on the two records.
func (s *Scorer) Score(ctx context.Context, d *domain.Donation, r *domain.Request) Result {
	var res Result

	sameCategory := d.Category == r.Category
	res.Criteria = append(res.Criteria, s.category(d, r, sameCategory))
	res.Criteria = append(res.Criteria, s.urgency(r))
	description, fallback := s.description(ctx, d, r)
	res.OracleFallback = fallback
	res.Criteria = append(res.Criteria, description)
	res.Criteria = append(res.Criteria, s.proximity(d, r))
	res.Criteria = append(res.Criteria, s.quantity(d, r))

	total := 0.0
	for _, c := range res.Criteria {
		total += c.Points
	}
	if !sameCategory && total > s.cfg.CategoryMismatchCap {
		res.Criteria = append(res.Criteria, Criterion{
			Name:   CriterionCap,
			Points: round2(s.cfg.CategoryMismatchCap - total),
			Max:    0,
			Detail: fmt.Sprintf("category mismatch caps the score at %.0f", s.cfg.CategoryMismatchCap),
		})
		total = s.cfg.CategoryMismatchCap
	}
	res.Score = round2(clamp(total, 0, 100))
	return res
}

func (s *Scorer) category(d *domain.Donation, r *domain.Request, same bool) Criterion {
	limit := s.cfg.Weights.Category
	if same {
		return Criterion{Name: CriterionCategory, Points: limit, Max: limit, Detail: fmt.Sprintf("%s = %s", d.Category, r.Category)}
	}
	return Criterion{Name: CriterionCategory, Points: 0, Max: limit, Detail: fmt.Sprintf("%s != %s", d.Category, r.Category)}
}

func (s *Scorer) urgency(r *domain.Request) Criterion {
	limit := s.cfg.Weights.Urgency
	var fraction float64
	switch r.Urgency {
	case domain.UrgencyHigh:
		fraction = 1
	case domain.UrgencyMedium:
		fraction = 0.5
	}
	return Criterion{Name: CriterionUrgency, Points: round2(limit * fraction), Max: limit, Detail: fmt.Sprintf("urgency %s", r.Urgency)}
}

func (s *Scorer) description(ctx context.Context, d *domain.Donation, r *domain.Request) (Criterion, bool) {
	limit := s.cfg.Weights.Description
	if d.Description == "" || r.Description == "" {
		return Criterion{Name: CriterionDescription, Max: limit, Detail: "description missing"}, false
	}
	overlap := diceCoefficient(tokenSet(d.Description), tokenSet(r.Description))
	similarity := overlap
	detail := fmt.Sprintf("token overlap %.2f", overlap)
	fallback := false
	if s.oracle != nil {
		hint, err := s.askOracle(ctx, d.Description, r.Description)
		switch {
		case err != nil:
			fallback = true
			detail += "; oracle unavailable, token overlap used"
		case s.cfg.OracleMode == OracleReplace:
			similarity = hint
			detail = fmt.Sprintf("oracle similarity %.2f", hint)
		default:
			similarity = math.Max(overlap, hint)
			detail += fmt.Sprintf("; oracle similarity %.2f", hint)
		}
	}
	return Criterion{Name: CriterionDescription, Points: round2(limit * similarity), Max: limit, Detail: detail}, fallback
}

func (s *Scorer) askOracle(ctx context.Context, a, b string) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OracleTimeout)
		defer cancel()
	}
	v, err := s.oracle.Similarity(ctx, a, b)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return 0, fmt.Errorf("oracle similarity %v outside [0,1]", v)
	}
	return v, nil
}

func (s *Scorer) proximity(d *domain.Donation, r *domain.Request) Criterion {
	limit := s.cfg.Weights.Proximity
	if d.Origin == nil || r.Location == nil {
		return Criterion{Name: CriterionProximity, Max: limit, Detail: "location unknown"}
	}
	km := d.Origin.DistanceKm(*r.Location)
	fraction := clamp(1-km/s.cfg.MaxRadiusKm, 0, 1)
	return Criterion{Name: CriterionProximity, Points: round2(limit * fraction), Max: limit, Detail: fmt.Sprintf("%.2f km apart", km)}
}

func (s *Scorer) quantity(d *domain.Donation, r *domain.Request) Criterion {
	limit := s.cfg.Weights.Quantity
	offered, okOffered := leadingNumber(d.Quantity)
	wanted, okWanted := leadingNumber(r.Quantity)
	if !okOffered || !okWanted {
		return Criterion{Name: CriterionQuantity, Max: limit, Detail: "quantities not numeric"}
	}
	ratio := math.Min(offered, wanted) / math.Max(offered, wanted)
	return Criterion{Name: CriterionQuantity, Points: round2(limit * ratio), Max: limit, Detail: fmt.Sprintf("%g offered, %g requested", offered, wanted)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
