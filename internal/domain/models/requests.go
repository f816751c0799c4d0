package models

// Requests for the forecasting HTTP endpoints. Defined in domain for
// consistency and reuse.

type ForecastRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	Horizon   int    `query:"horizon" json:"horizon" default:"30" validate:"oneof=7 15 30 90"`
	Frequency string `query:"frequency" json:"frequency" default:"daily" validate:"oneof=daily weekly monthly"`
	Lookback  int    `query:"lookback" json:"lookback" default:"1000" validate:"gte=60,lte=10000"`
}

type DriftCheckRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Lookback int    `query:"lookback" json:"lookback" default:"240" validate:"gte=30,lte=10000"`
}

type RegimeCheckRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Lookback int    `query:"lookback" json:"lookback" default:"240" validate:"gte=30,lte=10000"`
}

type PerformanceCheckRequest struct {
	ModelName string  `json:"model_name" validate:"required"`
	Horizon   int     `json:"horizon" default:"30" validate:"oneof=7 15 30 90"`
	RMSE      float64 `json:"rmse" validate:"gte=0"`
	MAE       float64 `json:"mae" validate:"gte=0"`
	MAPE      float64 `json:"mape" validate:"gte=0"`
	// DirectionalAccuracy is a fraction in [0,1].
	DirectionalAccuracy float64 `json:"directional_accuracy" validate:"gte=0,lte=1"`
}
