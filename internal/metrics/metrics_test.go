package metrics

import (
	"context"
	"testing"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestObserve(t *testing.T) {
	events := StateEvents.WithLabelValues(string(app.EventExtraction))
	staged := Extractions.WithLabelValues(string(app.OutcomeStaged))
	beforeEvents, beforeStaged := counterValue(t, events), counterValue(t, staged)

	ev := app.Event{
		Kind:    app.EventExtraction,
		Outcome: app.OutcomeStaged,
		Calculation: tax.Calculation{
			OldRegime: tax.RegimeResult{TaxLiability: decimal.NewFromInt(33800)},
			NewRegime: tax.RegimeResult{TaxLiability: decimal.NewFromInt(31200)},
		},
		Utilization: tax.Utilization{
			Section80C: tax.SectionUtilization{Utilization: decimal.NewFromInt(100)},
		},
	}
	Observe(context.Background(), ev)

	assert.Equal(t, beforeEvents+1, counterValue(t, events))
	assert.Equal(t, beforeStaged+1, counterValue(t, staged))
	assert.Equal(t, 33800.0, gaugeValue(t, TaxLiability.WithLabelValues("old")))
	assert.Equal(t, 31200.0, gaugeValue(t, TaxLiability.WithLabelValues("new")))
	assert.Equal(t, 100.0, gaugeValue(t, DeductionUtilization.WithLabelValues("80C")))
	assert.Equal(t, 0.0, gaugeValue(t, DeductionUtilization.WithLabelValues("HRA")))
}

func TestObserve_NonExtractionLeavesOutcomesAlone(t *testing.T) {
	failed := Extractions.WithLabelValues(string(app.OutcomeFailed))
	before := counterValue(t, failed)

	Observe(context.Background(), app.Event{Kind: app.EventTransactionAdded})

	assert.Equal(t, before, counterValue(t, failed))
}

func TestObserveJob(t *testing.T) {
	failed := JobsProcessed.WithLabelValues(string(jobs.JobStatusFailed))
	before := counterValue(t, failed)

	ObserveJob(&jobs.ExtractDocumentJob{Status: jobs.JobStatusRetrying}, 4)
	assert.Equal(t, before, counterValue(t, failed))
	assert.Equal(t, 4.0, gaugeValue(t, JobQueueDepth))

	ObserveJob(&jobs.ExtractDocumentJob{Status: jobs.JobStatusFailed}, 0)
	assert.Equal(t, before+1, counterValue(t, failed))
	assert.Equal(t, 0.0, gaugeValue(t, JobQueueDepth))
}
