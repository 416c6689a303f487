package research

import "sort"

// Side is the thesis a researcher is assigned to argue
type Side string

const (
	SideBull Side = "bull"
	SideBear Side = "bear"
)

// Argument is one supporting point of a thesis
type Argument struct {
	Point    string `json:"point"`
	Evidence string `json:"evidence"`
	Strength int    `json:"strength"` // 0..10
}

// PriceTarget is the researcher's projected level for the thesis
type PriceTarget struct {
	Value       float64 `json:"value"`
	Timeframe   string  `json:"timeframe"`
	Probability float64 `json:"probability"`
}

// Report is the structured payload of a bullish or bearish researcher
type Report struct {
	Thesis      string       `json:"thesis"`
	Conviction  int          `json:"conviction"` // 0..100
	Arguments   []Argument   `json:"arguments"`
	RiskFactors []string     `json:"riskFactors"`
	PriceTarget *PriceTarget `json:"priceTarget,omitempty"`
	Catalysts   []string     `json:"catalysts"`
	Summary     string       `json:"summary"`
}

// Normalize clamps scores into range and replaces nil lists
func (r *Report) Normalize() {
	r.Conviction = clampInt(r.Conviction, 0, 100)
	for i := range r.Arguments {
		r.Arguments[i].Strength = clampInt(r.Arguments[i].Strength, 0, 10)
	}
	if r.Arguments == nil {
		r.Arguments = []Argument{}
	}
	if r.RiskFactors == nil {
		r.RiskFactors = []string{}
	}
	if r.Catalysts == nil {
		r.Catalysts = []string{}
	}
}

// MeanStrength is the average argument strength, 0 without arguments
func (r *Report) MeanStrength() float64 {
	if len(r.Arguments) == 0 {
		return 0
	}
	total := 0
	for _, a := range r.Arguments {
		total += a.Strength
	}
	return float64(total) / float64(len(r.Arguments))
}

// TopArguments returns up to n arguments ordered by strength, strongest first.
// Ties keep their original order.
func (r *Report) TopArguments(n int) []Argument {
	sorted := make([]Argument, len(r.Arguments))
	copy(sorted, r.Arguments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strength > sorted[j].Strength
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
