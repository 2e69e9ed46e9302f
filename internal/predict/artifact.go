package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Model kinds.
const (
	KindLinear   = "linear"
	KindLogistic = "logistic"
)

// Scaler holds per-feature standardization parameters.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Artifact is a trained model exported as JSON: feature names in input
// order, coefficients, and the scaler fitted during training.
type Artifact struct {
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Version      string    `json:"version"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Scaler       *Scaler   `json:"scaler,omitempty"`
	Accuracy     float64   `json:"accuracy"`
	TrainedAt    time.Time `json:"trained_at"`
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// Validate checks internal consistency of the artifact.
func (a *Artifact) Validate() error {
	if a.Kind != KindLinear && a.Kind != KindLogistic {
		return fmt.Errorf("unknown model kind %q", a.Kind)
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("no features declared")
	}
	if len(a.Coefficients) != len(a.Features) {
		return fmt.Errorf("coefficient count %d does not match feature count %d",
			len(a.Coefficients), len(a.Features))
	}
	if a.Scaler != nil {
		if len(a.Scaler.Mean) != len(a.Features) || len(a.Scaler.Std) != len(a.Features) {
			return fmt.Errorf("scaler dimensions do not match feature count %d", len(a.Features))
		}
		for i, std := range a.Scaler.Std {
			if std == 0 {
				return fmt.Errorf("scaler std for feature %q is zero", a.Features[i])
			}
		}
	}
	return nil
}

// Score evaluates the model on a feature map. Missing features score
// as zero before scaling. Logistic models return a probability.
func (a *Artifact) Score(features map[string]float64) float64 {
	score := a.Intercept
	for i, name := range a.Features {
		value := features[name]
		if a.Scaler != nil {
			value = (value - a.Scaler.Mean[i]) / a.Scaler.Std[i]
		}
		score += a.Coefficients[i] * value
	}

	if a.Kind == KindLogistic {
		return sigmoid(score)
	}
	return score
}
