package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/detection"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ontology"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	registry, err := ontology.NewCoreRegistry()
	require.NoError(t, err)
	pipeline, err := New(testLogger(), registry, DefaultConfig(), nil)
	require.NoError(t, err)
	return pipeline
}

func period(t *testing.T) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", "2024-03-31")
	require.NoError(t, err)
	return date
}

func testRecords() []models.NormalizedRecord {
	return []models.NormalizedRecord{
		{SourceType: "stripe", RecordID: "s1", Data: map[string]any{
			"email": "ops@acme.com", "name": "Acme Inc", "status": "active",
			"mrr": "5000", "mrr_amount": 5000.0, "customer_entity_id": "acme",
		}},
		{SourceType: "hubspot", RecordID: "h1", Data: map[string]any{
			"email": "ops@acme.com", "company_name": "Acme Corp", "amount": "5000",
		}},
		{SourceType: "stripe", RecordID: "s2", Data: map[string]any{
			"email": "billing@globex.com", "name": "Globex", "status": "active",
			"mrr": "2000", "mrr_amount": 2000.0, "customer_entity_id": "globex",
		}},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	pipeline := newTestPipeline(t)

	output := pipeline.Run(context.Background(), Input{
		TenantID:   "t1",
		PeriodDate: period(t),
		Records:    testRecords(),
	})

	t.Run("resolution merges the matched pair", func(t *testing.T) {
		require.NotNil(t, output.Resolution)
		require.Len(t, output.Resolution.Clusters, 1)
		// One merged entity plus the unmatched singleton.
		assert.Len(t, output.Resolution.Entities, 2)
	})

	t.Run("metrics computed over resolved entities", func(t *testing.T) {
		byID := make(map[string]*models.ComputedMetric)
		for _, m := range output.Metrics {
			byID[m.MetricID] = m
		}
		// The merged acme entity carries stripe's status and amount fields.
		assert.Equal(t, 7000.0, byID["mrr"].Value)
		assert.Equal(t, 2.0, byID["active_customers"].Value)
		assert.Equal(t, 3500.0, byID["arpu"].Value)
	})

	t.Run("validations are attached", func(t *testing.T) {
		assert.Len(t, output.Validations, 3)
	})

	t.Run("no history and no previous means no anomalies", func(t *testing.T) {
		assert.Empty(t, output.Anomalies)
	})
}

func TestRun_DetectionWithHistory(t *testing.T) {
	pipeline := newTestPipeline(t)

	historical := make([]float64, 30)
	for i := range historical {
		historical[i] = 100 + float64(i%5)
	}

	output := pipeline.Run(context.Background(), Input{
		TenantID:   "t1",
		PeriodDate: period(t),
		Records:    testRecords(),
		Historical: map[string][]float64{"mrr": historical},
	})

	var mrrAnomalies []models.DetectedAnomaly
	for _, anomaly := range output.Anomalies {
		if anomaly.MetricID == "mrr" {
			mrrAnomalies = append(mrrAnomalies, anomaly)
		}
	}
	require.NotEmpty(t, mrrAnomalies)
	assert.Equal(t, models.MethodZScore, mrrAnomalies[0].Method)
	assert.Equal(t, "above", mrrAnomalies[0].Context["direction"])
}

func TestRun_ChangeThresholdFallback(t *testing.T) {
	pipeline := newTestPipeline(t)

	output := pipeline.Run(context.Background(), Input{
		TenantID:   "t1",
		PeriodDate: period(t),
		Records:    testRecords(),
		// mrr computes to 7000; a 5000 previous value is a +40% change.
		Previous: map[string]float64{"mrr": 5000},
	})

	var fallback *models.DetectedAnomaly
	for i := range output.Anomalies {
		if output.Anomalies[i].Method == models.MethodChangeThreshold {
			fallback = &output.Anomalies[i]
			break
		}
	}

	require.NotNil(t, fallback)
	assert.Equal(t, "mrr", fallback.MetricID)
	assert.InDelta(t, 0.8, fallback.Severity, 1e-9)
	assert.Equal(t, "increase", fallback.Context["direction"])
	assert.Equal(t, 5000.0, fallback.BaselineValue)
	assert.Equal(t, 7000.0, fallback.ActualValue)
}

func TestRun_HistoricalSeriesSuppressesFallback(t *testing.T) {
	pipeline := newTestPipeline(t)

	historical := make([]float64, 30)
	for i := range historical {
		historical[i] = 7000
	}

	output := pipeline.Run(context.Background(), Input{
		TenantID:   "t1",
		PeriodDate: period(t),
		Records:    testRecords(),
		Previous:   map[string]float64{"mrr": 5000},
		Historical: map[string][]float64{"mrr": historical},
	})

	for _, anomaly := range output.Anomalies {
		if anomaly.MetricID == "mrr" {
			assert.NotEqual(t, models.MethodChangeThreshold, anomaly.Method)
		}
	}
}

func TestRun_WithOutlierModel(t *testing.T) {
	registry, err := ontology.NewCoreRegistry()
	require.NoError(t, err)
	pipeline, err := New(testLogger(), registry, DefaultConfig(), detection.NewIsolationForest(detection.DefaultForestConfig()))
	require.NoError(t, err)

	historical := make([]float64, 30)
	for i := range historical {
		historical[i] = 100 + float64(i%5)
	}

	output := pipeline.Run(context.Background(), Input{
		TenantID:   "t1",
		PeriodDate: period(t),
		Records:    testRecords(),
		Historical: map[string][]float64{"mrr": historical},
	})

	methods := make(map[string]bool)
	for _, anomaly := range output.Anomalies {
		if anomaly.MetricID == "mrr" {
			methods[anomaly.Method] = true
		}
	}
	assert.True(t, methods[models.MethodZScore])
	assert.True(t, methods[models.MethodIsolationForest])
}
