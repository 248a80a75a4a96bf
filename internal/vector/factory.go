package vector

import (
	"fmt"
	"strings"
)

// Metric selects the distance function of an index.
type Metric string

const (
	// MetricCosine ranks by 1 - cosine similarity.
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by Euclidean distance.
	MetricL2 Metric = "l2"
)

// ParseMetric maps a config value to a Metric. Empty selects cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2, "euclidean":
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown distance metric: %s (supported: cosine, l2)", s)
	}
}

// Distance returns the distance between a and b under m.
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricL2 {
		return L2Distance(a, b)
	}
	return CosineDistance(a, b)
}

// NewVectorIndex creates an exact in-memory index for the named metric.
func NewVectorIndex(metric string, dimensions int) (VectorIndex, error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	return NewMemoryIndex(dimensions, m)
}
