package handlers

type PredictionRequest struct {
	Features []float64 `json:"features"`
}

type PredictionResponse struct {
	Prediction     float64 `json:"prediction"`
	Classification string  `json:"classification"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Errors    []string `json:"errors,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
