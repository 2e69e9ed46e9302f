package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestPredictionIsHighConfidence(t *testing.T) {
	confident := Prediction{ConfidenceScore: ptr(0.85)}
	assert.True(t, confident.IsHighConfidence())

	unsure := Prediction{ConfidenceScore: ptr(0.6)}
	assert.False(t, unsure.IsHighConfidence())

	unset := Prediction{}
	assert.False(t, unset.IsHighConfidence())
}

func TestPredictionIsHighRisk(t *testing.T) {
	byLevel := Prediction{RiskLevel: RiskHigh}
	assert.True(t, byLevel.IsHighRisk())

	byProbability := Prediction{RiskLevel: RiskLow, PredictionProbability: ptr(0.2)}
	assert.True(t, byProbability.IsHighRisk())

	safe := Prediction{RiskLevel: RiskLow, PredictionProbability: ptr(0.8)}
	assert.False(t, safe.IsHighRisk())
}

func TestPredictionActionableInsight(t *testing.T) {
	tests := []struct {
		name       string
		prediction Prediction
		want       string
	}{
		{
			name:       "strong conversion",
			prediction: Prediction{PredictionType: PredictionTypeConversion, PredictionProbability: ptr(0.8)},
			want:       "High conversion probability - consider increasing bid or budget",
		},
		{
			name:       "weak conversion",
			prediction: Prediction{PredictionType: PredictionTypeConversion, PredictionProbability: ptr(0.2)},
			want:       "Low conversion probability - review targeting or creative",
		},
		{
			name:       "likely churn",
			prediction: Prediction{PredictionType: PredictionTypeChurn, PredictionProbability: ptr(0.7)},
			want:       "High churn risk - implement retention strategies",
		},
		{
			name:       "middling conversion falls through",
			prediction: Prediction{PredictionType: PredictionTypeConversion, PredictionProbability: ptr(0.5)},
			want:       "Monitor performance and adjust strategy as needed",
		},
		{
			name:       "no probability",
			prediction: Prediction{PredictionType: PredictionTypeROI},
			want:       "Monitor performance and adjust strategy as needed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prediction.ActionableInsight())
		})
	}
}
