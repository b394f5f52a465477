package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// WorkflowSnapshot summarizes case workflow counters for the ops
// dashboard without exposing the full exposition format.
type WorkflowSnapshot struct {
	ClaimsWon      float64 `json:"claims_won"`
	ClaimsConflict float64 `json:"claims_conflict"`
	ClaimsReleased float64 `json:"claims_released"`
	ReviewsTotal   float64 `json:"reviews_total"`
}

// Snapshot gathers the registry and extracts the case workflow families.
func Snapshot(g prometheus.Gatherer) (*WorkflowSnapshot, error) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather failed: %w", err)
	}

	snap := &WorkflowSnapshot{}
	for _, family := range families {
		switch family.GetName() {
		case "jeevansetu_cases_claims_total":
			for _, metric := range family.GetMetric() {
				if hasLabel(metric, "outcome", "won") {
					snap.ClaimsWon += metric.GetCounter().GetValue()
				}
				if hasLabel(metric, "outcome", "conflict") {
					snap.ClaimsConflict += metric.GetCounter().GetValue()
				}
			}
		case "jeevansetu_cases_claims_released_total":
			for _, metric := range family.GetMetric() {
				snap.ClaimsReleased += metric.GetCounter().GetValue()
			}
		case "jeevansetu_cases_reviews_total":
			for _, metric := range family.GetMetric() {
				snap.ReviewsTotal += metric.GetCounter().GetValue()
			}
		}
	}
	return snap, nil
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
