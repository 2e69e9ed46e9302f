package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Prediction types served by the model registry.
const (
	PredictionTypeConversion = "conversion"
	PredictionTypeChurn      = "churn"
	PredictionTypeROI        = "roi"
)

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Prediction is a logged model output for a campaign.
type Prediction struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	CampaignID *int64 `json:"campaign_id,omitempty"`

	PredictionType string    `json:"prediction_type"`
	ModelVersion   string    `json:"model_version"`
	PredictionDate time.Time `json:"prediction_date"`

	InputFeatures     json.RawMessage `json:"input_features,omitempty"`
	FeatureImportance json.RawMessage `json:"feature_importance,omitempty"`

	PredictionValue       float64  `json:"prediction_value"`
	PredictionProbability *float64 `json:"prediction_probability,omitempty"`
	PredictionClass       string   `json:"prediction_class,omitempty"`
	ConfidenceScore       *float64 `json:"confidence_score,omitempty"`

	Threshold *float64 `json:"threshold,omitempty"`
	Decision  string   `json:"decision,omitempty"`
	RiskLevel string   `json:"risk_level,omitempty"`

	ExpectedValue         *float64 `json:"expected_value,omitempty"`
	ROIPrediction         *float64 `json:"roi_prediction,omitempty"`
	ConversionProbability *float64 `json:"conversion_probability,omitempty"`

	ModelAccuracy    *float64   `json:"model_accuracy,omitempty"`
	TrainingDataSize *int64     `json:"training_data_size,omitempty"`
	LastTrainingDate *time.Time `json:"last_training_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsHighConfidence reports whether the model was at least 80% confident.
func (p *Prediction) IsHighConfidence() bool {
	return p.ConfidenceScore != nil && *p.ConfidenceScore >= 0.8
}

// IsHighRisk reports whether the prediction flags elevated risk, either
// via the stored risk level or a probability below 30%.
func (p *Prediction) IsHighRisk() bool {
	if p.RiskLevel == RiskHigh {
		return true
	}
	return p.PredictionProbability != nil && *p.PredictionProbability < 0.3
}

// ActionableInsight translates the prediction into a recommendation.
func (p *Prediction) ActionableInsight() string {
	prob := 0.0
	if p.PredictionProbability != nil {
		prob = *p.PredictionProbability
	}

	switch p.PredictionType {
	case PredictionTypeConversion:
		if p.PredictionProbability != nil && prob > 0.7 {
			return "High conversion probability - consider increasing bid or budget"
		}
		if p.PredictionProbability != nil && prob < 0.3 {
			return "Low conversion probability - review targeting or creative"
		}
	case PredictionTypeChurn:
		if p.PredictionProbability != nil && prob > 0.6 {
			return "High churn risk - implement retention strategies"
		}
	}

	return "Monitor performance and adjust strategy as needed"
}

type PredictionRepository interface {
	Create(ctx context.Context, prediction *Prediction) (*Prediction, error)
	GetByID(ctx context.Context, id int64) (*Prediction, error)
	ListByUser(ctx context.Context, userID int64, predictionType string, limit, offset int) ([]*Prediction, error)
	ListByCampaign(ctx context.Context, campaignID int64, limit int) ([]*Prediction, error)
	Delete(ctx context.Context, id int64) error
}
