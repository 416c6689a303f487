package datasource

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"tradecouncil/internal/domain/marketdata"
)

// minIndicatorCandles is the MACD(12,26,9) lookback; fewer candles yield no indicators
const minIndicatorCandles = 34

// ComputeIndicators derives the indicator set from candles ordered oldest
// first. It returns nil when there is not enough history.
func ComputeIndicators(candles []marketdata.Candle) *marketdata.Indicators {
	if len(candles) < minIndicatorCandles {
		return nil
	}

	high := make([]float64, len(candles))
	low := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		high[i], low[i], closes[i] = c.High, c.Low, c.Close
	}

	macd, signal, hist := talib.Macd(closes, 12, 26, 9)

	ind := &marketdata.Indicators{
		RSI14:      lastValue(talib.Rsi(closes, 14)),
		MACD:       lastValue(macd),
		MACDSignal: lastValue(signal),
		MACDHist:   lastValue(hist),
		SMA20:      lastValue(talib.Sma(closes, 20)),
		ATR14:      lastValue(talib.Atr(high, low, closes, 14)),
	}
	if len(closes) >= 50 {
		ind.SMA50 = lastValue(talib.Sma(closes, 50))
	}
	return ind
}

// lastValue returns the most recent output, treating NaN as zero
func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// PivotLevels returns classic pivot supports and resistances from the last
// completed candle. Supports are descending, resistances ascending.
func PivotLevels(candles []marketdata.Candle) (support, resistance []float64) {
	if len(candles) < 2 {
		return nil, nil
	}

	prev := candles[len(candles)-2]
	pivot := (prev.High + prev.Low + prev.Close) / 3
	r1 := 2*pivot - prev.Low
	s1 := 2*pivot - prev.High
	r2 := pivot + (prev.High - prev.Low)
	s2 := pivot - (prev.High - prev.Low)

	support = []float64{round2(s1), round2(s2)}
	resistance = []float64{round2(r1), round2(r2)}
	sort.Sort(sort.Reverse(sort.Float64Slice(support)))
	sort.Float64s(resistance)
	return support, resistance
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
