package psychology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlerts(t *testing.T) {
	assert.Empty(t, Neutral("u1").Alerts())

	var missing *Profile
	assert.Nil(t, missing.Alerts())

	p := &Profile{SubjectID: "u1", FomoScore: 0.7, RevengeTradingScore: 0.9, OvertradingScore: 0.2, LossAversionScore: 0.69}
	alerts := p.Alerts()
	assert.Len(t, alerts, 2)
	assert.Contains(t, alerts[0], "FOMO")
	assert.Contains(t, alerts[1], "Revenge")
}
