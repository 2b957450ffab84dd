package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileMetricPerfectSeparation(t *testing.T) {
	m := NewFileMetric(1000)
	m.Add(1, 0.9)
	m.Add(1, 0.8)
	m.Add(0, 0.2)
	m.Add(0, 0.1)

	assert.InDelta(t, 1.0, m.AUC(), 1e-6)
	assert.InDelta(t, 0.5, m.StatisticalCTR(), 1e-9)
	assert.InDelta(t, 0.5, m.PredictiveCTR(), 0.01)
	assert.Equal(t, float64(4), m.NumInst())
}

func TestFileMetricWorseThanRandomStillBounded(t *testing.T) {
	m := NewFileMetric(1000)
	m.Add(0, 0.9)
	m.Add(1, 0.1)

	auc := m.AUC()
	assert.GreaterOrEqual(t, auc, 0.0)
	assert.LessOrEqual(t, auc, 1.0)
}

func TestFileMetricAllOneClassReturnsZeroAUC(t *testing.T) {
	m := NewFileMetric(1000)
	m.Add(1, 0.9)
	m.Add(1, 0.95)

	assert.Equal(t, 0.0, m.AUC())
	assert.Equal(t, 1.0, m.StatisticalCTR())
}

func TestFileMetricEmptyIsZeroValued(t *testing.T) {
	m := NewFileMetric(0)
	assert.Equal(t, 0.0, m.AUC())
	assert.Equal(t, 0.0, m.MeanLoss())
	assert.Equal(t, 0.0, m.PredictiveCTR())
	assert.Equal(t, 0.0, m.StatisticalCTR())
}

func TestFileMetricLossPenalizesConfidentWrongPredictions(t *testing.T) {
	confident := NewFileMetric(1000)
	confident.Add(1, 0.01)

	unsure := NewFileMetric(1000)
	unsure.Add(1, 0.5)

	assert.Greater(t, confident.MeanLoss(), unsure.MeanLoss())
}
