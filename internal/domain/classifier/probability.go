package classifier

import (
	"fmt"
	"math"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

const distributionTolerance = 1e-3

// Probabilities returns row unchanged when it already is a probability
// distribution and a numerically stable softmax of it otherwise. NaN or
// infinite scores are rejected as an inference failure.
func Probabilities(row []float32) ([]float64, error) {
	out := make([]float64, len(row))
	for i, v := range row {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, apperrors.Wrap(apperrors.CodeInferenceFailed, "model returned a non-finite score",
				fmt.Errorf("score %d is %v", i, f))
		}
		out[i] = f
	}
	if isDistribution(out) {
		return out, nil
	}
	return softmax(out), nil
}

func isDistribution(row []float64) bool {
	if len(row) == 0 {
		return false
	}
	sum := 0.0
	for _, v := range row {
		if v < 0 || v > 1 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) < distributionTolerance
}

func softmax(row []float64) []float64 {
	maxV := math.Inf(-1)
	for _, v := range row {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(row))
	total := 0.0
	for i, v := range row {
		out[i] = math.Exp(v - maxV)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func argmax(row []float64) int {
	best := -1
	for i, v := range row {
		if best < 0 || v > row[best] {
			best = i
		}
	}
	return best
}

// pick resolves the best class of a probability row against labels.
func pick(probs []float64, labels []string) Prediction {
	idx := argmax(probs)
	if idx < 0 {
		return Prediction{Label: UnknownLabel, Index: -1}
	}
	label := UnknownLabel
	if idx < len(labels) {
		label = labels[idx]
	}
	return Prediction{Label: label, Index: idx, Probability: probs[idx]}
}
