package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"osteosex/db"
	"osteosex/ml"
	"osteosex/monitoring"
	"osteosex/store"
)

// ModelSource resolves container names to loaded, validated containers.
type ModelSource interface {
	Get(name string) (*ml.Container, error)
	List() ([]store.Info, error)
}

// Handlers carries the dependencies of the estimation endpoints.
type Handlers struct {
	Models  ModelSource
	Layout  ml.CSGLayout
	Hub     *ResultsHub
	Metrics *monitoring.EstimationMetrics
	Logger  *zap.Logger
}

// Replaced in tests.
var (
	saveEstimations  = db.SaveEstimations
	queryEstimations = db.QueryEstimations
)

type csgRequest struct {
	Model        string    `json:"model"`
	SampleID     string    `json:"sample_id"`
	Method       string    `json:"method"`
	Bone         string    `json:"bone"`
	Side         string    `json:"side"`
	Slots        []int     `json:"slots"`
	Measurements []float64 `json:"measurements"`
}

type vertebraRequest struct {
	Model      string    `json:"model"`
	SampleID   string    `json:"sample_id"`
	Method     string    `json:"method"`
	Population string    `json:"population"`
	Vertebra   string    `json:"vertebra"`
	Values     []float64 `json:"values"`
}

type estimateResponse struct {
	SampleID string          `json:"sample_id"`
	Element  string          `json:"element"`
	Method   ml.Method       `json:"method"`
	Results  []ml.Estimation `json:"results"`
	Logged   bool            `json:"logged"`
}

type elementInfo struct {
	Key   string    `json:"key"`
	Slots []ml.Slot `json:"slots"`
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	if h.Layout.GroupWidth == 0 {
		h.Layout = ml.DefaultCSGLayout
	}
	if h.Metrics == nil {
		h.Metrics = monitoring.NewEstimationMetrics()
	}
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/models", h.handleModels)
	mux.HandleFunc("GET /api/models/{name}/elements", h.handleElements)
	mux.HandleFunc("POST /api/estimate/csg", h.handleEstimateCSG)
	mux.HandleFunc("POST /api/estimate/vertebra", h.handleEstimateVertebra)
	mux.HandleFunc("GET /api/results", handleResults)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.Handle("GET /metrics", h.Metrics.Handler())
	if h.Hub != nil {
		mux.HandleFunc("GET /api/ws/results", h.Hub.HandleWebSocket)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handlers) handleModels(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Models.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": infos})
}

func (h *Handlers) handleElements(w http.ResponseWriter, r *http.Request) {
	c, err := h.Models.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	methods := c.Methods()
	if m := r.URL.Query().Get("method"); m != "" {
		methods = []ml.Method{ml.Method(m)}
	}
	response := make(map[ml.Method][]elementInfo, len(methods))
	for _, method := range methods {
		keys, err := c.Elements(method)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		elements := make([]elementInfo, 0, len(keys))
		for _, key := range keys {
			slots, err := c.Slots(method, key)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			elements = append(elements, elementInfo{Key: key, Slots: slots})
		}
		response[method] = elements
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model":    c.Name,
		"datatype": c.Datatype,
		"elements": response,
	})
}

func (h *Handlers) handleEstimateCSG(w http.ResponseWriter, r *http.Request) {
	var req csgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Model == "" || req.Method == "" || req.Bone == "" || req.Side == "" {
		writeError(w, http.StatusBadRequest, errors.New("model, method, bone and side are required"))
		return
	}
	if len(req.Slots) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("at least one slot is required"))
		return
	}

	c, err := h.Models.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	slots := make([]ml.Slot, len(req.Slots))
	for i, s := range req.Slots {
		slots[i] = ml.Slot(s)
	}
	element := ml.ElementKey(req.Bone, req.Side)
	method := ml.Method(req.Method)

	start := time.Now()
	results, err := ml.EvaluateCSG(c, h.Layout, method, element, slots, req.Measurements)
	if err != nil {
		h.Metrics.RecordFailure(method, element, err, time.Since(start))
		h.Logger.Info("csg estimation rejected",
			zap.String("sample_id", req.SampleID),
			zap.String("element", element),
			zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	h.Metrics.RecordSuccess(method, element, results, time.Since(start))
	h.respond(w, req.SampleID, element, method, results)
}

func (h *Handlers) handleEstimateVertebra(w http.ResponseWriter, r *http.Request) {
	var req vertebraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Model == "" || req.Method == "" || req.Population == "" || req.Vertebra == "" {
		writeError(w, http.StatusBadRequest, errors.New("model, method, population and vertebra are required"))
		return
	}

	c, err := h.Models.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	method := ml.Method(req.Method)
	element := ml.VertebraKey(req.Population, req.Vertebra)

	start := time.Now()
	result, err := ml.EvaluateVertebra(c, method, req.Population, req.Vertebra, req.Values)
	if err != nil {
		h.Metrics.RecordFailure(method, element, err, time.Since(start))
		h.Logger.Info("vertebra estimation rejected",
			zap.String("sample_id", req.SampleID),
			zap.String("vertebra", req.Vertebra),
			zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	results := []ml.Estimation{result}
	h.Metrics.RecordSuccess(method, element, results, time.Since(start))
	h.respond(w, req.SampleID, element, method, results)
}

// respond logs the rows and answers even when logging fails; the
// estimation itself is still valid.
func (h *Handlers) respond(w http.ResponseWriter, sampleID, element string, method ml.Method, results []ml.Estimation) {
	rows := ml.Rows(sampleID, element, method, results)
	logged := true
	if err := saveEstimations(rows); err != nil {
		logged = false
		h.Logger.Error("save estimations failed", zap.String("sample_id", sampleID), zap.Error(err))
	}
	if h.Hub != nil {
		h.Hub.Publish(rows)
	}
	writeJSON(w, http.StatusOK, estimateResponse{
		SampleID: sampleID,
		Element:  element,
		Method:   method,
		Results:  results,
		Logged:   logged,
	})
}

func handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}
	results, err := queryEstimations(strings.TrimSpace(r.URL.Query().Get("sample_id")), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": results})
}

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Metrics.Snapshot())
}

// statusFor maps engine error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ml.ErrDatatype):
		return http.StatusBadRequest
	case errors.Is(err, ml.ErrLookup):
		return http.StatusNotFound
	case errors.Is(err, ml.ErrDimension), errors.Is(err, ml.ErrData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
