package risk

import "github.com/Khrafts/hyper-mcp-sub002/internal/exchange"

// StressScenario is a deterministic shock applied uniformly to every position.
// This is sensitivity analysis, not Monte Carlo simulation.
type StressScenario struct {
	Name  string  `json:"name"`
	Shock float64 `json:"shock"` // fractional price move, e.g. -0.30
}

// Fixed scenario set evaluated on every portfolio risk calculation
var stressScenarios = []StressScenario{
	{Name: "market_crash", Shock: -0.30},
	{Name: "volatility_spike", Shock: -0.15},
	{Name: "liquidity_crisis", Shock: -0.25},
	{Name: "sector_rotation", Shock: -0.20},
}

// StressImpact reports the P&L impact of one scenario
type StressImpact struct {
	Scenario        string             `json:"scenario"`
	Shock           float64            `json:"shock"`
	TotalImpact     float64            `json:"total_impact"`
	ImpactPercent   float64            `json:"impact_percent"`
	PositionImpacts map[string]float64 `json:"position_impacts"`
}

// runStressTests applies each scenario shock to every position and reports
// per-position and aggregate impact
func runStressTests(positions []exchange.Position, totalValue float64) []StressImpact {
	results := make([]StressImpact, 0, len(stressScenarios))

	for _, scenario := range stressScenarios {
		impact := StressImpact{
			Scenario:        scenario.Name,
			Shock:           scenario.Shock,
			PositionImpacts: make(map[string]float64, len(positions)),
		}

		for _, pos := range positions {
			posImpact := pos.PositionValue * scenario.Shock
			impact.PositionImpacts[pos.Symbol] = posImpact
			impact.TotalImpact += posImpact
		}

		if totalValue > 0 {
			impact.ImpactPercent = impact.TotalImpact / totalValue
		}

		results = append(results, impact)
	}

	return results
}
