package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
	"github.com/Brownie44l1/classifier-api/internal/classifier"
)

const maxBodyBytes = 1 << 20

// Predictor is the prediction core as seen from HTTP.
type Predictor interface {
	Predict(features []float64) (classifier.Result, error)
	State() classifier.State
}

type Handler struct {
	predictor Predictor
	features  int
	now       func() time.Time
}

// NewHandler serves predictor. features is the exact vector length a
// request must carry.
func NewHandler(predictor Predictor, features int) *Handler {
	return &Handler{
		predictor: predictor,
		features:  features,
		now:       time.Now,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "healthy"})
}

// Ready reports 200 only while the classifier can serve.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	state := h.predictor.State()
	if state != classifier.Ready {
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: state.String()})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: state.String()})
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("method %s not allowed", r.Method), nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body", nil)
		return
	}

	var req PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("invalid request provided")
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("Malformed JSON request: %v", err), nil)
		return
	}

	if fields := h.validate(req); len(fields) > 0 {
		log.Warn().Strs("errors", fields).Msg("request validation failed")
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "", fields)
		return
	}

	result, err := h.predictor.Predict(req.Features)
	if err != nil {
		h.writeClassified(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction:     result.Prediction(),
		Classification: result.ClassName,
	})
}

func (h *Handler) validate(req PredictionRequest) []string {
	var fields []string
	if len(req.Features) != h.features {
		fields = append(fields, fmt.Sprintf("Features array must have exactly %d elements", h.features))
	}
	return fields
}

// writeClassified maps a core failure to its transport status.
func (h *Handler) writeClassified(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.InvalidInput:
		h.writeError(w, http.StatusBadRequest, kind.Code(), err.Error(), apperr.FieldsOf(err))
	case apperr.Inference, apperr.UnknownClass:
		h.writeError(w, http.StatusInternalServerError, kind.Code(), err.Error(), nil)
	case apperr.Unavailable:
		h.writeError(w, http.StatusServiceUnavailable, kind.Code(), "Classifier is not ready", nil)
	default:
		log.Error().Err(err).Msg("unexpected error occurred")
		h.writeError(w, http.StatusInternalServerError, apperr.Internal.Code(), "An unexpected error occurred", nil)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, fields []string) {
	writeJSON(w, status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		Timestamp: h.now().UnixMilli(),
		Errors:    fields,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
