package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coveragestack/coverage-engine/internal/models"
	"github.com/coveragestack/coverage-engine/internal/services"
)

const defaultWindowDays = 30

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalyticsRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	summary, _, err := s.service.Evaluate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleClassifications(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalyticsRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	filter := models.Classification(r.URL.Query().Get("classification"))

	classifications, err := s.service.Classifications(r.Context(), req, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if classifications == nil {
		classifications = []models.SystemClassification{}
	}
	writeJSON(w, http.StatusOK, classifications)
}

func (s *Server) handleCombinationExport(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalyticsRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "key parameter is required"})
		return
	}

	csvData, err := s.service.ExportCombination(r.Context(), req, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="combination-export.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csvData)
}

func parseAnalyticsRequest(r *http.Request) (models.AnalyticsRequest, error) {
	req := models.AnalyticsRequest{
		WindowDays:  defaultWindowDays,
		Environment: r.URL.Query().Get("environment"),
	}
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return models.AnalyticsRequest{}, errors.New("window_days must be a positive integer")
		}
		req.WindowDays = n
	}
	return req, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
