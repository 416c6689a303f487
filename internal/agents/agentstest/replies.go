package agentstest

import "fmt"

const MarketReply = "```json\n" + `{
  "marketRegime": "risk_on",
  "trend": "bullish",
  "volatility": "normal",
  "keyLevels": [4950, 5050],
  "drivers": ["soft CPI", "strong breadth"],
  "summary": "Constructive tape with contained volatility."
}` + "\n```"

const SentimentReply = `{
  "overallSentiment": 0.35,
  "label": "bullish",
  "themes": ["disinflation", "earnings"],
  "marketMovingEvents": ["FOMC minutes"],
  "summary": "Headlines lean positive."
}`

const TechnicalReply = `Here is my read:
{
  "trend": "bullish",
  "momentum": "strong",
  "signals": [{"indicator": "RSI", "signal": "bullish", "detail": "RSI 58 rising"}],
  "support": [4950],
  "resistance": [5100],
  "bias": "long",
  "summary": "Higher highs above the 20-day average."
}`

const BullReply = `{
  "thesis": "Trend and breadth favour continuation.",
  "conviction": 80,
  "arguments": [
    {"point": "Breadth", "evidence": "Most sectors above SMA50", "strength": 8},
    {"point": "Momentum", "evidence": "MACD above signal", "strength": 7},
    {"point": "Macro", "evidence": "Soft inflation print", "strength": 6}
  ],
  "riskFactors": ["FOMC surprise", "Crowded long positioning"],
  "priceTarget": {"value": 5150, "timeframe": "2 weeks", "probability": 0.6},
  "catalysts": ["Earnings season"],
  "summary": "Buy dips toward support."
}`

const BearReply = `{
  "thesis": "Rally is stretched into resistance.",
  "conviction": 40,
  "arguments": [
    {"point": "Resistance", "evidence": "5100 capped two rallies", "strength": 3},
    {"point": "Sentiment", "evidence": "Complacent VIX", "strength": 2}
  ],
  "riskFactors": ["Crowded long positioning", "Low volume"],
  "priceTarget": {"value": 4900, "timeframe": "2 weeks", "probability": 0.3},
  "catalysts": ["Hawkish Fed speakers"],
  "summary": "Fade strength near 5100."
}`

// RoundReply is a well-formed debate round with the given score
func RoundReply(score float64) string {
	return fmt.Sprintf(`{
  "bullArgument": "Breadth keeps improving.",
  "bearRebuttal": "Breadth is narrowing under the surface.",
  "bearArgument": "Resistance at 5100 has held twice.",
  "bullRebuttal": "Each test weakens resistance.",
  "roundScore": %g
}`, score)
}

const SynthesisReply = `{
  "recommendation": "Bullish",
  "confidence": 68,
  "reasoning": "Bull case carried more evidence in every round.",
  "keyRisks": ["FOMC surprise"]
}`

const LongProposalReply = `{
  "direction": "Long",
  "entryPrice": 5000,
  "stopLoss": 4960,
  "takeProfitLevels": [5080, 5120],
  "positionSize": 2,
  "riskRewardRatio": 2.0,
  "confidence": 65,
  "rationale": "Buy the pullback to support with trend.",
  "inputsSummary": {"marketData": "risk on", "sentiment": "bullish", "technical": "uptrend", "researchConsensus": "bullish"},
  "timeframe": "swing",
  "setupType": "pullback"
}`

const FlatProposalReply = `{
  "direction": "Flat",
  "positionSize": 1,
  "confidence": 20,
  "rationale": "Mixed signals.",
  "timeframe": "intraday",
  "setupType": "none"
}`

const RiskReply = `{
  "riskScore": 0.35,
  "issues": [{"category": "event", "severity": "Medium", "description": "FOMC minutes this week"}],
  "portfolioImpact": {"maxDrawdownPct": 0.8, "positionConcentrationPct": 20, "correlationRisk": "Low"},
  "blindSpotAlerts": [],
  "summary": "Acceptable risk with defined stop."
}`

const Malformed = "I think the market will go up, but I cannot format that as JSON."
