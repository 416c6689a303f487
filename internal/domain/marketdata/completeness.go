package marketdata

// Completeness scores weight each present input field; weights per input sum to 1.

const (
	weightPrice          = 0.25
	weightVolume         = 0.15
	weightVIX            = 0.20
	weightIndices        = 0.20
	weightEconomicEvents = 0.20

	weightHeadlines         = 0.50
	weightPredictionMarkets = 0.30
	weightSocialSentiment   = 0.20

	weightCandles    = 0.40
	weightIndicators = 0.30
	weightSupport    = 0.15
	weightResistance = 0.15
)

// Completeness returns the weighted share of populated fields in [0,1]
func (m *MarketConditions) Completeness() float64 {
	if m == nil {
		return 0
	}
	var score float64
	if m.Price != nil && *m.Price > 0 {
		score += weightPrice
	}
	if m.Volume != nil && *m.Volume > 0 {
		score += weightVolume
	}
	if m.VIX != nil {
		score += weightVIX
	}
	if len(m.Indices) > 0 {
		score += weightIndices
	}
	if len(m.EconomicEvents) > 0 {
		score += weightEconomicEvents
	}
	return clamp01(score)
}

// Completeness returns the weighted share of populated fields in [0,1]
func (n *NewsDigest) Completeness() float64 {
	if n == nil {
		return 0
	}
	var score float64
	if len(n.Headlines) > 0 {
		score += weightHeadlines
	}
	if len(n.PredictionMarkets) > 0 {
		score += weightPredictionMarkets
	}
	if n.SocialSentiment != nil {
		score += weightSocialSentiment
	}
	return clamp01(score)
}

// Completeness returns the weighted share of populated fields in [0,1]
func (t *TechnicalSnapshot) Completeness() float64 {
	if t == nil {
		return 0
	}
	var score float64
	if len(t.Candles) > 0 {
		score += weightCandles
	}
	if t.Indicators != nil {
		score += weightIndicators
	}
	if len(t.SupportLevels) > 0 {
		score += weightSupport
	}
	if len(t.ResistanceLevels) > 0 {
		score += weightResistance
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
