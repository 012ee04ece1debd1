package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"carprice/pipeline"
	"carprice/pricing"
)

// RegisterAPIHandlers adds the JSON API and, when a hub is set, the live feed.
func RegisterAPIHandlers(mux *http.ServeMux, a *App) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/dataset", a.handleDataset)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("GET /api/predictions", a.handlePredictions)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	if a.Hub != nil {
		mux.HandleFunc("GET /ws/predictions", a.Hub.HandleWebSocket)
	}
}

type predictRequest struct {
	HighwayMPG *float64 `json:"highwaympg"`
	Curbweight *float64 `json:"curbweight"`
	Horsepower *float64 `json:"horsepower"`
}

type predictResponse struct {
	pricing.Result
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

type datasetResponse struct {
	Path         string                  `json:"path"`
	Loaded       bool                    `json:"loaded"`
	Message      string                  `json:"message,omitempty"`
	Rows         int                     `json:"rows"`
	Columns      int                     `json:"columns"`
	ShapeMessage string                  `json:"shape_message,omitempty"`
	CleanRows    int                     `json:"clean_rows"`
	CleanMessage string                  `json:"clean_message,omitempty"`
	Header       []string                `json:"header"`
	Preview      [][]string              `json:"preview"`
	Missing      []string                `json:"missing_columns"`
	Placeholders map[string]string       `json:"placeholders,omitempty"`
	Stats        *pipeline.CleaningStats `json:"stats,omitempty"`
	LoadedAt     time.Time               `json:"loaded_at"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := a.Datasets.Current()
	resp := map[string]interface{}{
		"status":         "ok",
		"model_loaded":   a.Service.Model() != nil,
		"dataset_loaded": snap.Dataset != nil,
		"uptime":         time.Since(a.started).Round(time.Second).String(),
	}
	if a.Hub != nil {
		resp["ws_clients"] = a.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleDataset(w http.ResponseWriter, r *http.Request) {
	snap := a.Datasets.Current()
	resp := datasetResponse{
		Path:     snap.Path,
		Header:   []string{},
		Preview:  [][]string{},
		Missing:  []string{},
		LoadedAt: snap.LoadedAt,
	}
	if snap.Err != nil {
		resp.Message = pipeline.LoadMessage(snap.Path, snap.Err)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ds := snap.Dataset
	resp.Loaded = true
	resp.Rows, resp.Columns = ds.Shape()
	resp.ShapeMessage = ds.ShapeMessage()
	resp.CleanRows = ds.CleanRowCount()
	resp.CleanMessage = ds.CleanMessage()
	resp.Header = ds.Header
	resp.Preview = ds.Head(a.PreviewRows)
	stats := ds.Stats
	resp.Stats = &stats
	if ds.Empty() {
		resp.Message = pipeline.EmptyMessage(snap.Path)
	}
	if len(ds.Missing) > 0 {
		resp.Missing = ds.Missing
		resp.Placeholders = make(map[string]string, len(ds.Missing))
		for _, col := range ds.Missing {
			resp.Placeholders[col] = ds.MissingColumnMessage(col)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.countPrediction("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: pricing.ErrorMessage(err), Hint: pricing.ErrorHint})
		return
	}

	f := pricing.Defaults()
	if req.HighwayMPG != nil {
		f.HighwayMPG = *req.HighwayMPG
	}
	if req.Curbweight != nil {
		f.Curbweight = *req.Curbweight
	}
	if req.Horsepower != nil {
		f.Horsepower = *req.Horsepower
	}
	if err := pricing.Validate(f); err != nil {
		a.countPrediction("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: pricing.ErrorMessage(err), Hint: pricing.ErrorHint})
		return
	}

	res, err := a.Service.Predict(r.Context(), f)
	if err != nil {
		a.countPrediction("error")
		status := http.StatusUnprocessableEntity
		if errors.Is(err, pricing.ErrModelNotLoaded) {
			status = http.StatusServiceUnavailable
		}
		a.Logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, status, errorResponse{Error: pricing.ErrorMessage(err), Hint: pricing.ErrorHint})
		return
	}
	a.countPrediction("ok")
	writeJSON(w, http.StatusOK, predictResponse{Result: *res, Message: res.Message()})
}

func (a *App) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction history is disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = l
	}

	results, err := a.History.RecentPredictions(r.Context(), limit)
	if err != nil {
		a.Logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": results,
		"count":       len(results),
	})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(a.Metrics.ExportPrometheus()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
