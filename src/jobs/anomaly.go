package jobs

import (
	"context"
	"math"
	"slices"
	"spendsage-server/src/access"
	"spendsage-server/src/models"
	"spendsage-server/src/store"

	"go.uber.org/zap"
)

const (
	anomalyThreshold  = 3.5
	anomalyMinSamples = 4
	// madScale turns a median absolute deviation into a standard deviation
	// estimate for normal data.
	madScale = 0.6745
	// meanADScale does the same for a mean absolute deviation.
	meanADScale = 1.253314
)

// ScanAnomalies recomputes is_anomaly for the owner's transactions. Expenses
// are compared within their category; income is never flagged. It returns
// the number of rows whose flag changed.
func (j *Runner) ScanAnomalies(ctx context.Context, p access.Principal) (int, error) {
	changed := 0
	err := j.store.Update(ctx, func(r store.Repository) error {
		txs, err := r.ListTransactions(ctx, access.Scope(p))
		if err != nil {
			return err
		}

		groups := map[int64][]models.Transaction{}
		flags := make(map[int64]bool, len(txs))
		for _, t := range txs {
			flags[t.ID] = false
			if t.TransactionType != models.TransactionExpense {
				continue
			}
			var key int64
			if t.CategoryID != nil {
				key = *t.CategoryID
			}
			groups[key] = append(groups[key], t)
		}

		for _, group := range groups {
			values := make([]float64, len(group))
			for i, t := range group {
				values[i] = t.Amount.InexactFloat64()
			}
			for i, score := range modifiedZScores(values) {
				flags[group[i].ID] = score > anomalyThreshold
			}
		}

		for _, t := range txs {
			if t.IsAnomaly == flags[t.ID] {
				continue
			}
			if err := r.SetTransactionAnomaly(ctx, access.Scope(p).ByID(t.ID), flags[t.ID]); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.log.Info("scanned for anomalies", zap.Int64("user_id", p.UserID), zap.Int("changed", changed))
	return changed, nil
}

// modifiedZScores scores each value by its distance from the median. Groups
// smaller than anomalyMinSamples, or with no spread, score zero.
func modifiedZScores(values []float64) []float64 {
	scores := make([]float64, len(values))
	if len(values) < anomalyMinSamples {
		return scores
	}

	med := median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}

	if mad := median(deviations); mad > 0 {
		for i, v := range values {
			scores[i] = madScale * math.Abs(v-med) / mad
		}
		return scores
	}

	// More than half the values sit on the median.
	var sum float64
	for _, d := range deviations {
		sum += d
	}
	meanAD := sum / float64(len(deviations))
	if meanAD == 0 {
		return scores
	}
	for i, v := range values {
		scores[i] = math.Abs(v-med) / (meanADScale * meanAD)
	}
	return scores
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
