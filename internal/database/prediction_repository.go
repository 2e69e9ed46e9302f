package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

// predictionColumns must match the Scan order in scanPrediction.
const predictionColumns = `id, user_id, campaign_id, prediction_type, model_version, prediction_date,
	input_features, feature_importance, prediction_value, prediction_probability, prediction_class,
	confidence_score, threshold, decision, risk_level, expected_value, roi_prediction,
	conversion_probability, model_accuracy, training_data_size, last_training_date, created_at`

// PredictionRepo implements domain.PredictionRepository backed by PostgreSQL.
type PredictionRepo struct {
	db *sql.DB
}

func NewPredictionRepo(db *DB) *PredictionRepo {
	return &PredictionRepo{db: db.DB}
}

func scanPrediction(row rowScanner) (*domain.Prediction, error) {
	var (
		p            domain.Prediction
		campaignID   sql.NullInt64
		features     []byte
		importance   []byte
		probability  sql.NullFloat64
		confidence   sql.NullFloat64
		threshold    sql.NullFloat64
		expected     sql.NullFloat64
		roi          sql.NullFloat64
		convProb     sql.NullFloat64
		accuracy     sql.NullFloat64
		trainingSize sql.NullInt64
		lastTraining sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.UserID, &campaignID, &p.PredictionType, &p.ModelVersion, &p.PredictionDate,
		&features, &importance, &p.PredictionValue, &probability, &p.PredictionClass,
		&confidence, &threshold, &p.Decision, &p.RiskLevel, &expected, &roi,
		&convProb, &accuracy, &trainingSize, &lastTraining, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		p.CampaignID = &campaignID.Int64
	}
	p.InputFeatures = features
	p.FeatureImportance = importance
	if probability.Valid {
		p.PredictionProbability = &probability.Float64
	}
	if confidence.Valid {
		p.ConfidenceScore = &confidence.Float64
	}
	if threshold.Valid {
		p.Threshold = &threshold.Float64
	}
	if expected.Valid {
		p.ExpectedValue = &expected.Float64
	}
	if roi.Valid {
		p.ROIPrediction = &roi.Float64
	}
	if convProb.Valid {
		p.ConversionProbability = &convProb.Float64
	}
	if accuracy.Valid {
		p.ModelAccuracy = &accuracy.Float64
	}
	if trainingSize.Valid {
		p.TrainingDataSize = &trainingSize.Int64
	}
	if lastTraining.Valid {
		p.LastTrainingDate = &lastTraining.Time
	}
	return &p, nil
}

func (r *PredictionRepo) Create(ctx context.Context, prediction *domain.Prediction) (created *domain.Prediction, err error) {
	defer observe("prediction_create", time.Now(), &err)

	created, err = scanPrediction(r.db.QueryRowContext(ctx, `
		INSERT INTO ml_predictions (user_id, campaign_id, prediction_type, model_version,
			input_features, feature_importance, prediction_value, prediction_probability,
			prediction_class, confidence_score, threshold, decision, risk_level,
			expected_value, roi_prediction, conversion_probability, model_accuracy,
			training_data_size, last_training_date, prediction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING `+predictionColumns+`
	`, prediction.UserID, prediction.CampaignID, prediction.PredictionType, prediction.ModelVersion,
		nullJSON(prediction.InputFeatures), nullJSON(prediction.FeatureImportance),
		prediction.PredictionValue, prediction.PredictionProbability, prediction.PredictionClass,
		prediction.ConfidenceScore, prediction.Threshold, prediction.Decision, prediction.RiskLevel,
		prediction.ExpectedValue, prediction.ROIPrediction, prediction.ConversionProbability,
		prediction.ModelAccuracy, prediction.TrainingDataSize, prediction.LastTrainingDate))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction: %w", err)
	}
	return created, nil
}

func (r *PredictionRepo) GetByID(ctx context.Context, id int64) (*domain.Prediction, error) {
	prediction, err := scanPrediction(r.db.QueryRowContext(ctx,
		`SELECT `+predictionColumns+` FROM ml_predictions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPredictionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return prediction, nil
}

func (r *PredictionRepo) ListByUser(ctx context.Context, userID int64, predictionType string, limit, offset int) (predictions []*domain.Prediction, err error) {
	defer observe("prediction_list", time.Now(), &err)

	query := `SELECT ` + predictionColumns + ` FROM ml_predictions WHERE user_id = $1`
	args := []any{userID}
	if predictionType != "" {
		args = append(args, predictionType)
		query += ` AND prediction_type = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY prediction_date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		prediction, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return predictions, nil
}

func (r *PredictionRepo) ListByCampaign(ctx context.Context, campaignID int64, limit int) ([]*domain.Prediction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+predictionColumns+` FROM ml_predictions WHERE campaign_id = $1 ORDER BY prediction_date DESC LIMIT $2`,
		campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*domain.Prediction
	for rows.Next() {
		prediction, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return predictions, nil
}

func (r *PredictionRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ml_predictions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPredictionNotFound
	}
	return nil
}
