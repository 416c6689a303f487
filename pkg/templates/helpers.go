package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// funcMap is available to every prompt template
func funcMap() template.FuncMap {
	return template.FuncMap{
		"price":  FormatPrice,
		"pct":    FormatPercent,
		"volume": FormatVolume,
		"ago":    humanize.Time,
		"when":   FormatTime,
		"json":   ToJSON,
		"join":   strings.Join,
		"inc":    func(i int) int { return i + 1 },
		"deref":  Deref,
		"mul100": func(v float64) float64 { return v * 100 },
	}
}

// FormatPrice renders a price with thousands separators and two decimals
func FormatPrice(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// FormatPercent renders a signed percentage
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// FormatVolume renders large counts compactly, e.g. 1.2M
func FormatVolume(v float64) string {
	value, prefix := humanize.ComputeSI(v)
	return strings.TrimSpace(humanize.FtoaWithDigits(value, 1) + prefix)
}

// FormatTime renders a timestamp in UTC
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

// ToJSON renders v as indented JSON; errors render inline
func ToJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unrenderable: %v>", err)
	}
	return string(data)
}

// Deref returns the pointed-to float or zero
func Deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
