package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/predict"
)

type predictRequest struct {
	CampaignID *int64             `json:"campaign_id"`
	Features   map[string]float64 `json:"features" validate:"required,min=1"`
}

const predictTypeCampaignPerformance = "campaign_performance"

func (s *Server) handlePredict(predictionType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.deps.Engine == nil {
			return apperrors.UnavailableError("prediction engine not available")
		}

		var scoreFn func(map[string]float64) (*predict.Result, error)
		switch predictionType {
		case domain.PredictionTypeConversion:
			scoreFn = s.deps.Engine.PredictConversion
		case domain.PredictionTypeChurn:
			scoreFn = s.deps.Engine.PredictChurn
		case domain.PredictionTypeROI:
			scoreFn = s.deps.Engine.PredictROI
		default:
			scoreFn = s.deps.Engine.PredictCampaignPerformance
		}

		var req predictRequest
		if err := c.Bind(&req); err != nil {
			return apperrors.ValidationError("invalid request body")
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		if req.CampaignID != nil {
			if _, err := s.loadOwnedCampaign(c, *req.CampaignID); err != nil {
				return err
			}
		}

		result, err := scoreFn(req.Features)
		if err != nil {
			if errors.Is(err, domain.ErrModelNotLoaded) {
				return apperrors.UnavailableError("model not loaded")
			}
			return apperrors.InternalError("prediction failed", err)
		}

		s.logPrediction(c, req, result)
		return c.JSON(200, result)
	}
}

// logPrediction persists the model output for later analysis. Failures
// are logged; the caller already has the result.
func (s *Server) logPrediction(c echo.Context, req predictRequest, result *predict.Result) {
	features, err := json.Marshal(req.Features)
	if err != nil {
		slog.Error("Failed to marshal prediction features", "error", err)
		return
	}

	confidence := result.ConfidenceScore
	prediction := &domain.Prediction{
		UserID:                currentUserID(c),
		CampaignID:            req.CampaignID,
		PredictionType:        result.PredictionType,
		ModelVersion:          result.ModelVersion,
		PredictionDate:        result.Timestamp,
		InputFeatures:         features,
		PredictionValue:       result.PredictionValue,
		PredictionProbability: result.PredictionProbability,
		PredictionClass:       result.PerformanceLevel,
		ConfidenceScore:       &confidence,
		RiskLevel:             result.RiskLevel,
		ModelAccuracy:         &confidence,
	}

	switch result.PredictionType {
	case domain.PredictionTypeConversion:
		prediction.ConversionProbability = result.PredictionProbability
	case domain.PredictionTypeROI:
		roi := result.PredictionValue
		prediction.ROIPrediction = &roi
	}

	if _, err := s.deps.Predictions.Create(c.Request().Context(), prediction); err != nil {
		slog.Error("Failed to persist prediction", "type", result.PredictionType, "error", err)
	}
}

func (s *Server) handleModelStatus(c echo.Context) error {
	if s.deps.Engine == nil {
		return c.JSON(200, map[string]any{"status": "no_models_loaded", "total_models": 0})
	}
	return c.JSON(200, s.deps.Engine.Status())
}

func (s *Server) handleListPredictions(c echo.Context) error {
	predictionType := c.QueryParam("type")
	if predictionType != "" {
		switch predictionType {
		case domain.PredictionTypeConversion, domain.PredictionTypeChurn, domain.PredictionTypeROI, "campaign_performance":
		default:
			return apperrors.ValidationError("invalid prediction type").WithField("type", predictionType)
		}
	}
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 0)

	predictions, err := s.deps.Predictions.ListByUser(c.Request().Context(), currentUserID(c), predictionType, limit, offset)
	if err != nil {
		return apperrors.InternalError("failed to list predictions", err)
	}

	type predictionItem struct {
		*domain.Prediction
		HighConfidence    bool   `json:"is_high_confidence"`
		HighRisk          bool   `json:"is_high_risk"`
		ActionableInsight string `json:"actionable_insight"`
	}

	out := make([]predictionItem, 0, len(predictions))
	for _, p := range predictions {
		out = append(out, predictionItem{
			Prediction:        p,
			HighConfidence:    p.IsHighConfidence(),
			HighRisk:          p.IsHighRisk(),
			ActionableInsight: p.ActionableInsight(),
		})
	}
	return c.JSON(200, out)
}
