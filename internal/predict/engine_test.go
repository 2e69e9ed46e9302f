package predict

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

func writeArtifact(t *testing.T, dir string, artifact Artifact) {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.Name+".json"), data, 0o644))
}

func testEngine(t *testing.T, artifacts ...Artifact) *Engine {
	t.Helper()
	dir := t.TempDir()
	for _, a := range artifacts {
		writeArtifact(t, dir, a)
	}
	engine, err := NewEngine(dir)
	require.NoError(t, err)
	return engine
}

func logisticArtifact(name string) Artifact {
	return Artifact{
		Name:         name,
		Kind:         KindLogistic,
		Version:      "v1",
		Features:     []string{"ctr", "time_on_site"},
		Coefficients: []float64{1.5, 0.8},
		Intercept:    -0.2,
		Scaler: &Scaler{
			Mean: []float64{0.02, 120},
			Std:  []float64{0.01, 60},
		},
		Accuracy:  0.85,
		TrainedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewEngine_MissingModelsTolerated(t *testing.T) {
	engine := testEngine(t, logisticArtifact(ModelConversion))

	assert.Equal(t, []string{ModelConversion}, engine.Loaded())

	status := engine.Status()
	assert.Equal(t, "ready", status["status"])
	assert.Equal(t, 1, status["total_models"])
}

func TestNewEngine_EmptyDir(t *testing.T) {
	engine, err := NewEngine(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, engine.Loaded())
	assert.Equal(t, "no_models_loaded", engine.Status()["status"])
}

func TestNewEngine_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversion.json"), []byte("{not json"), 0o644))

	_, err := NewEngine(dir)
	assert.Error(t, err)
}

func TestNewEngine_InconsistentArtifact(t *testing.T) {
	artifact := logisticArtifact(ModelConversion)
	artifact.Coefficients = []float64{1.5} // one short
	dir := t.TempDir()
	writeArtifact(t, dir, artifact)

	_, err := NewEngine(dir)
	assert.ErrorContains(t, err, "coefficient count")
}

func TestPredictConversion(t *testing.T) {
	engine := testEngine(t, logisticArtifact(ModelConversion))

	// Features at the scaler means score exactly the intercept
	result, err := engine.PredictConversion(map[string]float64{"ctr": 0.02, "time_on_site": 120})
	require.NoError(t, err)

	assert.Equal(t, domain.PredictionTypeConversion, result.PredictionType)
	require.NotNil(t, result.PredictionProbability)
	assert.InDelta(t, sigmoid(-0.2), *result.PredictionProbability, 0.0001)
	assert.Equal(t, domain.RiskMedium, result.RiskLevel)
	assert.Equal(t, 0.85, result.ConfidenceScore)
	assert.Equal(t, "v1", result.ModelVersion)
}

func TestPredictConversion_RiskLevels(t *testing.T) {
	// No scaler: score = intercept directly controls the probability
	high := Artifact{
		Name: ModelConversion, Kind: KindLogistic, Version: "v1",
		Features: []string{"x"}, Coefficients: []float64{0}, Intercept: 3,
	}
	engine := testEngine(t, high)

	result, err := engine.PredictConversion(map[string]float64{})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)
	assert.Contains(t, result.Insights[0], "High conversion probability")
	assert.Contains(t, result.Recommendations, "Implement urgency messaging")
}

func TestPredictChurn_RiskLevels(t *testing.T) {
	churny := Artifact{
		Name: ModelChurn, Kind: KindLogistic, Version: "v2",
		Features: []string{"days_since_last_purchase"}, Coefficients: []float64{0.1}, Intercept: -2,
	}
	engine := testEngine(t, churny)

	// 0.1*45 - 2 = 2.5 → sigmoid ≈ 0.92 → high risk
	result, err := engine.PredictChurn(map[string]float64{"days_since_last_purchase": 45})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, result.RiskLevel)
	assert.Contains(t, result.Insights, "Long period since last purchase indicates disengagement")
	assert.Contains(t, result.Recommendations, "Implement immediate retention campaign")
}

func TestPredictROI(t *testing.T) {
	roi := Artifact{
		Name: ModelROI, Kind: KindLinear, Version: "v1",
		Features: []string{"budget", "ctr"}, Coefficients: []float64{0.001, 50}, Intercept: 0.5,
		Accuracy: 0.78,
	}
	engine := testEngine(t, roi)

	// 0.001*2000 + 50*0.02 + 0.5 = 3.5 → excellent
	result, err := engine.PredictROI(map[string]float64{"budget": 2000, "ctr": 0.02})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, result.PredictionValue, 0.0001)
	assert.Equal(t, "excellent", result.PerformanceLevel)
	assert.Nil(t, result.PredictionProbability)
	assert.Contains(t, result.Recommendations, "Expand to similar audiences")
}

func TestPredictCampaignPerformance_Levels(t *testing.T) {
	model := Artifact{
		Name: ModelCampaignPerformance, Kind: KindLinear, Version: "v1",
		Features: []string{"score"}, Coefficients: []float64{1}, Intercept: 0,
	}
	engine := testEngine(t, model)

	tests := []struct {
		score float64
		level string
	}{
		{90, "excellent"},
		{65, "good"},
		{45, "average"},
		{10, "poor"},
	}

	for _, tt := range tests {
		result, err := engine.PredictCampaignPerformance(map[string]float64{"score": tt.score})
		require.NoError(t, err)
		assert.Equal(t, tt.level, result.PerformanceLevel, "score %.0f", tt.score)
	}
}

func TestPredict_ModelNotLoaded(t *testing.T) {
	engine := testEngine(t, logisticArtifact(ModelConversion))

	_, err := engine.PredictChurn(map[string]float64{})
	assert.ErrorIs(t, err, domain.ErrModelNotLoaded)
}

func TestArtifactScore_MissingFeatureIsZero(t *testing.T) {
	artifact := Artifact{
		Name: "m", Kind: KindLinear,
		Features: []string{"a", "b"}, Coefficients: []float64{2, 3}, Intercept: 1,
	}
	require.NoError(t, artifact.Validate())

	// b missing → treated as 0
	assert.InDelta(t, 5.0, artifact.Score(map[string]float64{"a": 2}), 0.0001)
}

func TestArtifactValidate_ZeroStd(t *testing.T) {
	artifact := logisticArtifact(ModelConversion)
	artifact.Scaler.Std[0] = 0
	assert.ErrorContains(t, artifact.Validate(), "std")
}
