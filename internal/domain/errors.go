package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrAnalyticsNotFound  = errors.New("analytics record not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrModelNotLoaded     = errors.New("model not loaded")
)
