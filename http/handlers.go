package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"studentrisk/ml"
	"studentrisk/monitoring"
)

// Handler 预测相关的处理器
type Handler struct {
	provider ml.ModelProvider
	metrics  *monitoring.MetricsCollector
	validate *validator.Validate
	logger   *zap.Logger
	stream   *monitoring.MetricsHub
}

// NewHandler 创建处理器，模型句柄由调用方注入
func NewHandler(provider ml.ModelProvider, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		provider: provider,
		metrics:  metrics,
		validate: newValidator(),
		logger:   logger,
	}
}

// EnableMetricsStream 在注册路由前挂载指标推送
func (h *Handler) EnableMetricsStream(hub *monitoring.MetricsHub) {
	h.stream = hub
}

// Register 注册所有路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
	mux.HandleFunc("POST /api/predict", h.handleAPIPredict)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	if h.stream != nil {
		mux.HandleFunc("GET /api/metrics/stream", h.stream.HandleWebSocket)
	}
}

type predictionResponse struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
	Risk        string  `json:"risk"`
	Summary     string  `json:"summary"`
	RiskScore   string  `json:"risk_score"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Available(); err != nil {
		renderPage(w, http.StatusServiceUnavailable, pageData{Unavailable: err.Error()})
		return
	}
	renderPage(w, http.StatusOK, pageData{Fields: buildFields(formDefaults, nil)})
}

func (h *Handler) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Available(); err != nil {
		h.metrics.RecordError(ml.ErrorKind(err))
		renderPage(w, http.StatusServiceUnavailable, pageData{Unavailable: err.Error()})
		return
	}
	if err := r.ParseForm(); err != nil {
		h.metrics.RecordError("invalid_input")
		renderPage(w, http.StatusBadRequest, pageData{
			Fields:  buildFields(formDefaults, nil),
			Failure: fmt.Sprintf("could not read form: %v", err),
		})
		return
	}

	submitted := make(map[string]string, ml.FeatureCount)
	for _, feature := range ml.FeatureColumns {
		submitted[feature.Key] = r.PostForm.Get(feature.Key)
	}

	result, err := h.predictForm(r, r.PostForm)
	if err != nil {
		status, data, fieldErrs := formFailure(err)
		data.Fields = buildFields(submitted, fieldErrs)
		renderPage(w, status, data)
		return
	}

	renderPage(w, http.StatusOK, pageData{
		Fields: buildFields(submitted, nil),
		Result: &resultView{
			HighRisk:  result.HighRisk(),
			Summary:   result.Summary(),
			RiskScore: formatScore(r.Header.Get("Accept-Language"), result.Probability),
		},
	})
}

// formFailure picks the status and page state for a failed form submit.
func formFailure(err error) (int, pageData, map[string]string) {
	var invalid *ml.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, pageData{}, invalid.FieldErrors()
	case errors.Is(err, ml.ErrModelUnavailable):
		return http.StatusServiceUnavailable, pageData{Unavailable: err.Error()}, nil
	default:
		return http.StatusInternalServerError, pageData{Failure: err.Error()}, nil
	}
}

func (h *Handler) predictForm(r *http.Request, values url.Values) (ml.PredictionResult, error) {
	form, invalid := parseForm(values)
	return h.predict(r, form, invalid)
}

func (h *Handler) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Available(); err != nil {
		h.metrics.RecordError(ml.ErrorKind(err))
		respondError(w, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}

	form := &predictionForm{}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(form); err != nil {
		h.metrics.RecordError("invalid_input")
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%v: %v", ml.ErrInvalidInput, err), nil)
		return
	}
	// Exactly one JSON value per request.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.metrics.RecordError("invalid_input")
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%v: unexpected data after the JSON object", ml.ErrInvalidInput), nil)
		return
	}

	result, err := h.predict(r, form, nil)
	if err != nil {
		var invalid *ml.InvalidInputError
		switch {
		case errors.As(err, &invalid):
			respondError(w, http.StatusBadRequest, invalid.Error(), invalid.FieldErrors())
		case errors.Is(err, ml.ErrModelUnavailable):
			respondError(w, http.StatusServiceUnavailable, err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, err.Error(), nil)
		}
		return
	}

	risk := "low"
	if result.HighRisk() {
		risk = "high"
	}
	respondJSON(w, http.StatusOK, predictionResponse{
		Label:       result.Label,
		Probability: result.Probability,
		Risk:        risk,
		Summary:     result.Summary(),
		RiskScore:   formatScore(r.Header.Get("Accept-Language"), result.Probability),
	})
}

// predict validates the boundary ranges, then runs one inference and records metrics.
// parsed carries field errors found while reading the raw input, if any.
func (h *Handler) predict(r *http.Request, form *predictionForm, parsed *ml.InvalidInputError) (ml.PredictionResult, error) {
	if err := validateForm(h.validate, form, parsed); err != nil {
		h.metrics.RecordError(ml.ErrorKind(err))
		return ml.PredictionResult{}, err
	}

	start := time.Now()
	result, err := h.provider.PredictValues(r.Context(), form.values())
	if err != nil {
		h.metrics.RecordError(ml.ErrorKind(err))
		h.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("kind", ml.ErrorKind(err)),
			zap.Error(err),
		)
		return ml.PredictionResult{}, err
	}
	h.metrics.RecordPrediction(result.Label, time.Since(start))
	if h.stream != nil {
		h.stream.Publish()
	}
	return result, nil
}

type schemaField struct {
	Order int `json:"order"`
	ml.Feature
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	fields := make([]schemaField, 0, ml.FeatureCount)
	for i, feature := range ml.FeatureColumns {
		fields = append(fields, schemaField{Order: i, Feature: feature})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"features": fields})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Available(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"model":  "unavailable",
			"reason": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": "loaded"})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}
