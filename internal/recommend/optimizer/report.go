// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"sort"
	"time"
)

// ABReport compares algorithms over a period.
type ABReport struct {
	Period   Period           `json:"period"`
	Since    time.Time        `json:"since"`
	Ranking  []AlgorithmStats `json:"ranking"`
	Best     string           `json:"best,omitempty"`
	RunnerUp string           `json:"runner_up,omitempty"`

	// ImprovementPct is how much more effective Best is than RunnerUp, in
	// percent. It is 0 when there is no runner-up or the runner-up has zero
	// effectiveness.
	ImprovementPct float64 `json:"improvement_pct"`
}

// ABReport ranks the algorithms with logs in the period by effectiveness
// (ties by name) and reports the leader's improvement over the runner-up.
func (o *Optimizer) ABReport(ctx context.Context, period Period) (*ABReport, error) {
	stats, since, err := o.Stats(ctx, period)
	if err != nil {
		return nil, err
	}

	report := &ABReport{Period: period, Since: since}
	for i := range stats {
		if stats[i].HasLogs() {
			report.Ranking = append(report.Ranking, stats[i])
		}
	}
	sort.SliceStable(report.Ranking, func(i, j int) bool {
		a, b := report.Ranking[i], report.Ranking[j]
		if a.Effectiveness != b.Effectiveness {
			return a.Effectiveness > b.Effectiveness
		}
		return a.Algorithm < b.Algorithm
	})

	if len(report.Ranking) > 0 {
		report.Best = report.Ranking[0].Algorithm
	}
	if len(report.Ranking) > 1 {
		report.RunnerUp = report.Ranking[1].Algorithm
		if runner := report.Ranking[1].Effectiveness; runner > 0 {
			report.ImprovementPct = (report.Ranking[0].Effectiveness - runner) / runner * 100
		}
	}
	return report, nil
}
