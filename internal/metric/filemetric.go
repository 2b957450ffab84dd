// Package metric implements a single-pass, bucketed AUC/loss accumulator
// for scoring a `<label> <probability>` prediction file (spec.md §6's
// `eval-auc` CLI), grounded on the original's FileMetric: memory use is
// bounded by a fixed bucket count rather than growing with the number of
// scored instances, at the cost of AUC precision quantised to bucket
// width (the original's exact, rank-based BatchMetric holds every
// label/score pair in memory instead, which eval-auc's streaming use case
// does not afford).
package metric

import "math"

// DefaultBuckets is FileMetric's probability-bucket resolution. The
// original fixes this at one million; a CLI scoring a single prediction
// file has no need for that much resolution, so this package defaults
// lower and leaves it a parameter.
const DefaultBuckets = 100000

// FileMetric accumulates loss and a bucketed AUC histogram over a stream
// of (label, probability) pairs without retaining them.
type FileMetric struct {
	buckets int

	numInst float64
	loss    float64

	bucket         []float64
	positiveBucket []float64
	tp, tn, fp, fn float64
}

// NewFileMetric returns an accumulator with the given bucket resolution.
// buckets <= 0 selects DefaultBuckets.
func NewFileMetric(buckets int) *FileMetric {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	return &FileMetric{
		buckets:        buckets,
		bucket:         make([]float64, buckets),
		positiveBucket: make([]float64, buckets),
	}
}

// Add folds one (label, probability) instance into the accumulator: label
// > 0 counts as positive. loss is binary cross-entropy against prob,
// clamped away from 0/1 to avoid -Inf.
func (m *FileMetric) Add(label, prob float64) {
	m.numInst++
	m.loss += crossEntropy(label, prob)

	positive := label > 0
	predictedPositive := prob >= 0.5

	idx := m.bucketIndex(prob)
	m.bucket[idx]++
	if positive {
		m.positiveBucket[idx]++
	}

	switch {
	case positive && predictedPositive:
		m.tp++
	case positive && !predictedPositive:
		m.fn++
	case !positive && predictedPositive:
		m.fp++
	default:
		m.fn2negFP()
	}
}

// fn2negFP records a true negative; named to keep Add's switch symmetric
// with the original's tp/tn/fp/fn bucketing.
func (m *FileMetric) fn2negFP() { m.tn++ }

func (m *FileMetric) bucketIndex(prob float64) int {
	switch {
	case prob <= 0:
		return 0
	case prob >= 1:
		return m.buckets - 1
	default:
		idx := int(float64(m.buckets) * prob)
		if idx >= m.buckets {
			idx = m.buckets - 1
		}
		return idx
	}
}

func crossEntropy(label, prob float64) float64 {
	const eps = 1e-15
	if prob < eps {
		prob = eps
	} else if prob > 1-eps {
		prob = 1 - eps
	}
	y := 0.0
	if label > 0 {
		y = 1.0
	}
	return -(y*math.Log(prob) + (1-y)*math.Log(1-prob))
}

// NumInst returns the number of instances folded in so far.
func (m *FileMetric) NumInst() float64 { return m.numInst }

// MeanLoss returns the average cross-entropy loss, 0 if NumInst is 0.
func (m *FileMetric) MeanLoss() float64 {
	if m.numInst == 0 {
		return 0
	}
	return m.loss / m.numInst
}

// PredictiveCTR is the mean predicted probability across every instance,
// with each instance's probability taken as its bucket's midpoint.
func (m *FileMetric) PredictiveCTR() float64 {
	var sum float64
	for i, b := range m.bucket {
		sum += b * bucketMidpoint(i, m.buckets)
	}
	if m.numInst == 0 {
		return 0
	}
	return sum / m.numInst
}

func bucketMidpoint(i, buckets int) float64 {
	return (float64(i) + 0.5) / float64(buckets)
}

// StatisticalCTR is the mean observed label (the empirical click-through
// rate) across every instance.
func (m *FileMetric) StatisticalCTR() float64 {
	var positives float64
	for _, p := range m.positiveBucket {
		positives += p
	}
	if m.numInst == 0 {
		return 0
	}
	return positives / m.numInst
}

// AUC computes the area under the ROC curve by walking buckets from
// highest to lowest probability, accumulating true/false positive rates
// and summing trapezoids between consecutive points (spec.md §6;
// original_source file_metric.cc TaskMetric::ComputeAUC).
func (m *FileMetric) AUC() float64 {
	numPositive := m.tp + m.fn
	numNegative := m.tn + m.fp
	if numPositive == 0 || numNegative == 0 {
		return 0
	}

	var auc, accumulatedTP, accumulatedFP, prevTPR, prevFPR float64
	for i := m.buckets - 1; i >= 0; i-- {
		accumulatedTP += m.positiveBucket[i]
		accumulatedFP += m.bucket[i] - m.positiveBucket[i]
		tpr := accumulatedTP / numPositive
		fpr := accumulatedFP / numNegative
		auc += 0.5 * (tpr + prevTPR) * (fpr - prevFPR)
		prevTPR, prevFPR = tpr, fpr
	}
	return auc
}
