package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stayline/concierge-gateway/internal/strategy"
)

func testInput(s strategy.Strategy) Input {
	return Input{
		Strategy:          s,
		Code:              "E17",
		TenantName:        "Casa Sol",
		Grounding:         "[PROPERTY] Casa Sol\n[MANUAL] E17: fallo del ventilador.",
		SupportContact:    "+34 600 000 000",
		GroundingLanguage: "es",
		Now:               time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildSharedRules(t *testing.T) {
	for _, s := range []strategy.Strategy{strategy.General, strategy.DiagnosticCode, strategy.Emergency} {
		t.Run(string(s), func(t *testing.T) {
			out := Build(testInput(s))

			// Response-language lock.
			assert.Contains(t, out, `idioma "es"`)
			// Closed-information rule with the support contact as escape hatch.
			assert.Contains(t, out, "+34 600 000 000")
			// Manuals and brands must never be surfaced.
			assert.Contains(t, out, "Nunca menciones manuales")
			// The grounding document is embedded.
			assert.Contains(t, out, "[PROPERTY] Casa Sol")
		})
	}
}

func TestBuildDiagnosticIncludesCode(t *testing.T) {
	out := Build(testInput(strategy.DiagnosticCode))
	assert.Contains(t, out, `código de avería "E17"`)
	assert.Contains(t, out, "el código E17")
}

func TestBuildEmergencyIsSafetyTemplate(t *testing.T) {
	out := Build(testInput(strategy.Emergency))
	assert.Contains(t, out, "EMERGENCIA")
	assert.Contains(t, out, "112")
	assert.Contains(t, out, "No intentes diagnosticar")
}

func TestBuildDeterministic(t *testing.T) {
	in := testInput(strategy.General)
	assert.Equal(t, Build(in), Build(in))
}

func TestBuildGeneralMentionsDate(t *testing.T) {
	out := Build(testInput(strategy.General))
	assert.True(t, strings.Contains(out, "2026-09-01"))
}
