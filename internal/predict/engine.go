// Package predict serves marketing predictions from pre-trained model
// artifacts: conversion and churn probabilities, ROI estimates, and
// campaign performance scores.
package predict

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

// Model names, matching the artifact file names under the model dir.
const (
	ModelConversion          = "conversion"
	ModelChurn               = "churn"
	ModelROI                 = "roi"
	ModelCampaignPerformance = "campaign_performance"
)

var modelNames = []string{ModelConversion, ModelChurn, ModelROI, ModelCampaignPerformance}

// Result is the outcome of a single model evaluation.
type Result struct {
	PredictionType        string    `json:"prediction_type"`
	PredictionValue       float64   `json:"prediction_value"`
	PredictionProbability *float64  `json:"prediction_probability,omitempty"`
	RiskLevel             string    `json:"risk_level,omitempty"`
	PerformanceLevel      string    `json:"performance_level,omitempty"`
	ConfidenceScore       float64   `json:"confidence_score"`
	ModelVersion          string    `json:"model_version"`
	Insights              []string  `json:"insights,omitempty"`
	Recommendations       []string  `json:"recommendations"`
	Timestamp             time.Time `json:"timestamp"`
}

// Engine holds the loaded models. Models missing on disk are tolerated;
// predictions against them fail with domain.ErrModelNotLoaded.
type Engine struct {
	models map[string]*Artifact
}

// NewEngine loads all known model artifacts from dir. A missing file
// is logged and skipped; a present but corrupt file is an error.
func NewEngine(dir string) (*Engine, error) {
	engine := &Engine{models: make(map[string]*Artifact)}

	for _, name := range modelNames {
		path := filepath.Join(dir, name+".json")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Warn("Model artifact not found, predictions disabled", "model", name, "path", path)
			continue
		}

		artifact, err := LoadArtifact(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load model %s: %w", name, err)
		}
		engine.models[name] = artifact
		slog.Info("Model loaded", "model", name, "version", artifact.Version, "accuracy", artifact.Accuracy)
	}

	return engine, nil
}

// Loaded returns the names of the loaded models.
func (e *Engine) Loaded() []string {
	names := make([]string, 0, len(e.models))
	for _, name := range modelNames {
		if _, ok := e.models[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Status describes the model registry for the health endpoint.
func (e *Engine) Status() map[string]any {
	status := "ready"
	if len(e.models) == 0 {
		status = "no_models_loaded"
	}
	return map[string]any{
		"models_loaded": e.Loaded(),
		"total_models":  len(e.models),
		"status":        status,
	}
}

func (e *Engine) score(model string, features map[string]float64) (*Artifact, float64, error) {
	artifact, ok := e.models[model]
	if !ok {
		metrics.PredictionsTotal.WithLabelValues(model, "unavailable").Inc()
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrModelNotLoaded, model)
	}

	start := time.Now()
	value := artifact.Score(features)
	metrics.PredictionDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	metrics.PredictionsTotal.WithLabelValues(model, "ok").Inc()

	return artifact, value, nil
}

// PredictConversion estimates the probability that a customer converts.
func (e *Engine) PredictConversion(features map[string]float64) (*Result, error) {
	artifact, probability, err := e.score(ModelConversion, features)
	if err != nil {
		return nil, err
	}

	return &Result{
		PredictionType:        domain.PredictionTypeConversion,
		PredictionValue:       probability,
		PredictionProbability: &probability,
		RiskLevel:             conversionRiskLevel(probability),
		ConfidenceScore:       artifact.Accuracy,
		ModelVersion:          artifact.Version,
		Insights:              conversionInsights(features, probability),
		Recommendations:       conversionRecommendations(probability),
		Timestamp:             time.Now().UTC(),
	}, nil
}

// PredictChurn estimates the probability that a customer churns.
func (e *Engine) PredictChurn(features map[string]float64) (*Result, error) {
	artifact, probability, err := e.score(ModelChurn, features)
	if err != nil {
		return nil, err
	}

	return &Result{
		PredictionType:        domain.PredictionTypeChurn,
		PredictionValue:       probability,
		PredictionProbability: &probability,
		RiskLevel:             churnRiskLevel(probability),
		ConfidenceScore:       artifact.Accuracy,
		ModelVersion:          artifact.Version,
		Insights:              churnInsights(features, probability),
		Recommendations:       churnRecommendations(probability),
		Timestamp:             time.Now().UTC(),
	}, nil
}

// PredictROI estimates campaign return on investment.
func (e *Engine) PredictROI(features map[string]float64) (*Result, error) {
	artifact, roi, err := e.score(ModelROI, features)
	if err != nil {
		return nil, err
	}

	return &Result{
		PredictionType:   domain.PredictionTypeROI,
		PredictionValue:  roi,
		PerformanceLevel: roiPerformanceLevel(roi),
		ConfidenceScore:  artifact.Accuracy,
		ModelVersion:     artifact.Version,
		Recommendations:  roiRecommendations(roi),
		Timestamp:        time.Now().UTC(),
	}, nil
}

// PredictCampaignPerformance estimates an overall 0-100 campaign score.
func (e *Engine) PredictCampaignPerformance(features map[string]float64) (*Result, error) {
	artifact, score, err := e.score(ModelCampaignPerformance, features)
	if err != nil {
		return nil, err
	}

	return &Result{
		PredictionType:   "campaign_performance",
		PredictionValue:  score,
		PerformanceLevel: campaignPerformanceLevel(score),
		ConfidenceScore:  artifact.Accuracy,
		ModelVersion:     artifact.Version,
		Recommendations:  campaignRecommendations(score),
		Timestamp:        time.Now().UTC(),
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func conversionRiskLevel(probability float64) string {
	switch {
	case probability >= 0.7:
		return domain.RiskLow
	case probability >= 0.4:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func churnRiskLevel(probability float64) string {
	switch {
	case probability <= 0.3:
		return domain.RiskLow
	case probability <= 0.6:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func roiPerformanceLevel(roi float64) string {
	switch {
	case roi >= 3.0:
		return "excellent"
	case roi >= 2.0:
		return "good"
	case roi >= 1.5:
		return "average"
	default:
		return "poor"
	}
}

func campaignPerformanceLevel(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "average"
	default:
		return "poor"
	}
}

func conversionInsights(features map[string]float64, probability float64) []string {
	var insights []string
	if probability > 0.7 {
		insights = append(insights, "High conversion probability - customer shows strong intent")
		if features["time_on_site"] > 300 {
			insights = append(insights, "Extended site engagement indicates high interest")
		}
	} else if probability < 0.3 {
		insights = append(insights, "Low conversion probability - consider retargeting strategies")
		if features["bounce_rate"] > 0.7 {
			insights = append(insights, "High bounce rate suggests poor landing page experience")
		}
	}
	return insights
}

func churnInsights(features map[string]float64, probability float64) []string {
	var insights []string
	if probability > 0.6 {
		insights = append(insights, "High churn risk - immediate retention action needed")
		if features["days_since_last_purchase"] > 30 {
			insights = append(insights, "Long period since last purchase indicates disengagement")
		}
	} else if probability < 0.3 {
		insights = append(insights, "Low churn risk - customer shows strong loyalty")
	}
	return insights
}

func conversionRecommendations(probability float64) []string {
	if probability > 0.7 {
		return []string{
			"Increase bid/budget for this customer segment",
			"Show premium products/services",
			"Implement urgency messaging",
		}
	}
	if probability < 0.3 {
		return []string{
			"Review targeting criteria",
			"Improve landing page experience",
			"Consider retargeting campaigns",
		}
	}
	return []string{"Monitor performance and optimize gradually"}
}

func churnRecommendations(probability float64) []string {
	if probability > 0.6 {
		return []string{
			"Implement immediate retention campaign",
			"Offer personalized incentives",
			"Schedule customer success call",
		}
	}
	if probability < 0.3 {
		return []string{
			"Continue current engagement strategy",
			"Upsell opportunities available",
		}
	}
	return []string{"Monitor engagement and adjust strategy"}
}

func roiRecommendations(roi float64) []string {
	if roi > 3.0 {
		return []string{
			"Excellent ROI - consider scaling campaign",
			"Increase budget allocation",
			"Expand to similar audiences",
		}
	}
	if roi < 1.5 {
		return []string{
			"Poor ROI - review campaign strategy",
			"Optimize targeting and creative",
			"Consider pausing campaign",
		}
	}
	return []string{"Monitor performance and optimize gradually"}
}

func campaignRecommendations(score float64) []string {
	if score > 80 {
		return []string{
			"Excellent performance - scale successful elements",
			"Increase budget allocation",
			"Document best practices",
		}
	}
	if score < 40 {
		return []string{
			"Poor performance - immediate optimization needed",
			"Review targeting and creative",
			"Consider campaign pause",
		}
	}
	return []string{"Monitor performance and optimize gradually"}
}
