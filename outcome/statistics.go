package outcome

import (
	"sort"

	"github.com/dnldd/breakout/shared"
)

const (
	// topPerformerLimit caps the top performer listing.
	topPerformerLimit = 10
)

// SymbolStats represents per-symbol outcome statistics.
type SymbolStats struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"successCount"`
	AvgGain24h   float64 `json:"avgGain24h"`
}

// ClassStats represents per-asset-class outcome statistics.
type ClassStats struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"successCount"`
	SuccessRate  float64 `json:"successRate"`
	AvgGain24h   float64 `json:"avgGain24h"`
}

// Performer represents a top performing signal.
type Performer struct {
	Symbol    string           `json:"symbol"`
	Direction shared.Direction `json:"direction"`
	Gain24h   float64          `json:"gain24h"`
	CreatedOn string           `json:"createdOn"`
}

// Summary represents aggregated signal performance statistics.
type Summary struct {
	TotalCount       int                    `json:"totalCount"`
	SuccessCount     int                    `json:"successCount"`
	SuccessRate      float64                `json:"successRate"`
	StrongCount      int                    `json:"strongCount"`
	ModerateCount    int                    `json:"moderateCount"`
	AvgGainByHorizon map[int]float64        `json:"avgGainByHorizon"`
	PerSymbol        map[string]SymbolStats `json:"perSymbol"`
	PerClass         map[string]ClassStats  `json:"perClass"`
	TopPerformers    []Performer            `json:"topPerformers"`
}

// Summarize rolls the provided outcomes up into a summary report. Pure
// aggregation over already computed outcomes, no I/O.
func Summarize(outcomes []shared.Outcome) Summary {
	summary := Summary{
		AvgGainByHorizon: make(map[int]float64, len(horizons)),
		PerSymbol:        make(map[string]SymbolStats),
		PerClass:         make(map[string]ClassStats),
		TopPerformers:    make([]Performer, 0, topPerformerLimit),
	}

	if len(outcomes) == 0 {
		return summary
	}

	gainSums := make(map[int]float64, len(horizons))
	symbolGains := make(map[string]float64)
	classGains := make(map[string]float64)

	for idx := range outcomes {
		outcome := outcomes[idx]
		signal := outcome.Signal

		summary.TotalCount++
		if outcome.Success {
			summary.SuccessCount++
		}

		switch signal.Type {
		case shared.StrongBreakout:
			summary.StrongCount++
		case shared.ModerateBreakout:
			summary.ModerateCount++
		}

		gainSums[1] += outcome.Gain1h
		gainSums[4] += outcome.Gain4h
		gainSums[12] += outcome.Gain12h
		gainSums[24] += outcome.Gain24h

		symbolStats := summary.PerSymbol[signal.Symbol]
		symbolStats.Count++
		if outcome.Success {
			symbolStats.SuccessCount++
		}
		symbolGains[signal.Symbol] += outcome.Gain24h
		summary.PerSymbol[signal.Symbol] = symbolStats

		class := signal.Class.String()
		classStats := summary.PerClass[class]
		classStats.Count++
		if outcome.Success {
			classStats.SuccessCount++
		}
		classGains[class] += outcome.Gain24h
		summary.PerClass[class] = classStats

		summary.TopPerformers = append(summary.TopPerformers, Performer{
			Symbol:    signal.Symbol,
			Direction: signal.Direction,
			Gain24h:   shared.Round2(outcome.Gain24h),
			CreatedOn: signal.CreatedOn.UTC().Format("2006-01-02 15:04"),
		})
	}

	total := float64(summary.TotalCount)
	summary.SuccessRate = shared.Round2(float64(summary.SuccessCount) / total * 100)
	for _, horizon := range horizons {
		summary.AvgGainByHorizon[horizon] = shared.Round2(gainSums[horizon] / total)
	}

	for symbol, stats := range summary.PerSymbol {
		stats.AvgGain24h = shared.Round2(symbolGains[symbol] / float64(stats.Count))
		summary.PerSymbol[symbol] = stats
	}
	for class, stats := range summary.PerClass {
		stats.AvgGain24h = shared.Round2(classGains[class] / float64(stats.Count))
		stats.SuccessRate = shared.Round2(float64(stats.SuccessCount) / float64(stats.Count) * 100)
		summary.PerClass[class] = stats
	}

	sort.SliceStable(summary.TopPerformers, func(i, j int) bool {
		return summary.TopPerformers[i].Gain24h > summary.TopPerformers[j].Gain24h
	})
	if len(summary.TopPerformers) > topPerformerLimit {
		summary.TopPerformers = summary.TopPerformers[:topPerformerLimit]
	}

	return summary
}
