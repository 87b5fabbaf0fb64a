package evaluation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rankeval/rank-eval/internal/dataset"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Handler provides HTTP handlers for evaluation.
type Handler struct {
	service *Service
}

// NewHandler creates a new evaluation handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterRoutes registers evaluation routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluate", h.handleEvaluate)
	mux.HandleFunc("GET /v1/history", h.handleHistory)
}

// EvaluateRequest carries an inline dataset: one entry per row, with
// query_counts partitioning the rows into queries.
type EvaluateRequest struct {
	Dataset     string    `json:"dataset"`
	Labels      []float64 `json:"labels"`
	Scores      []float64 `json:"scores"`
	Theta1      []float64 `json:"theta1,omitempty"`
	Theta2      []float64 `json:"theta2,omitempty"`
	QueryCounts []int     `json:"query_counts"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid JSON body: "+err.Error()))
		return
	}

	d, err := datasetFromRequest(&req)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	name := req.Dataset
	if name == "" {
		name = "inline"
	}

	report, err := h.service.Run(r.Context(), name, d)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HistoryResponse lists past evaluation runs.
type HistoryResponse struct {
	Runs []historyRun `json:"runs"`
}

type historyRun struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Dataset        string          `json:"dataset"`
	QueryCount     int             `json:"query_count"`
	SkippedQueries int             `json:"skipped_queries,omitempty"`
	MeanNDCG       map[int]float64 `json:"mean_ndcg"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	since := time.Time{}
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errors.WriteError(w, errors.InvalidRequestError("since must be RFC3339: "+err.Error()))
			return
		}
		since = parsed
	}

	runs, err := h.service.History().LoadRuns(r.Context(), since)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	resp := HistoryResponse{Runs: make([]historyRun, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, historyRun{
			ID:             run.ID,
			Timestamp:      run.Timestamp,
			Dataset:        run.Dataset,
			QueryCount:     run.QueryCount,
			SkippedQueries: run.SkippedQueries,
			MeanNDCG:       run.MeanNDCG,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func datasetFromRequest(req *EvaluateRequest) (*dataset.Dataset, error) {
	if len(req.Labels) == 0 {
		return nil, errors.InvalidRequestError("labels are required")
	}
	if len(req.Scores) != len(req.Labels) {
		return nil, errors.InvalidRequestError("scores must have one entry per label")
	}
	if len(req.QueryCounts) == 0 {
		return nil, errors.InvalidRequestError("query_counts are required")
	}

	n := len(req.Labels)
	boundaries := make([]int, len(req.QueryCounts)+1)
	for i, count := range req.QueryCounts {
		if count <= 0 {
			return nil, errors.InvalidRequestError("query_counts entries must be positive")
		}
		boundaries[i+1] = boundaries[i] + count
	}
	if boundaries[len(boundaries)-1] != n {
		return nil, errors.InvalidRequestError("query_counts must sum to the number of labels")
	}

	theta1 := req.Theta1
	theta2 := req.Theta2
	if theta1 == nil {
		theta1 = onesVec(n)
	}
	if theta2 == nil {
		theta2 = onesVec(n)
	}
	if len(theta1) != n || len(theta2) != n {
		return nil, errors.InvalidRequestError("theta1 and theta2 must have one entry per label")
	}

	return &dataset.Dataset{
		Labels:     req.Labels,
		Scores:     req.Scores,
		Theta1:     theta1,
		Theta2:     theta2,
		Boundaries: boundaries,
	}, nil
}

func onesVec(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
