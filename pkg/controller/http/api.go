package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
	"github.com/secmon-lab/riskmatrix/pkg/utils/errutil"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/safe"
)

const maxRequestBody = 64 * 1024

type riskResponse struct {
	ID              types.RiskID      `json:"id"`
	Description     string            `json:"description"`
	Category        types.CategoryID  `json:"category,omitempty"`
	Probability     types.Probability `json:"probability"`
	ProbabilityName string            `json:"probability_name"`
	Impact          types.Impact      `json:"impact"`
	ImpactName      string            `json:"impact_name"`
	Score           int               `json:"score"`
	Severity        types.Severity    `json:"severity"`
	SeverityName    string            `json:"severity_name"`
	Color           string            `json:"color"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toRiskResponse(cfg *config.MatrixConfig, e *model.RiskEntry) riskResponse {
	band := cfg.Classify(e.Probability, e.Impact)
	return riskResponse{
		ID:              e.ID,
		Description:     e.Description,
		Category:        e.Category,
		Probability:     e.Probability,
		ProbabilityName: cfg.ProbabilityName(e.Probability),
		Impact:          e.Impact,
		ImpactName:      cfg.ImpactName(e.Impact),
		Score:           e.Score(),
		Severity:        band.ID,
		SeverityName:    band.Name,
		Color:           band.Color,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

type createRiskRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
}

type updateRiskRequest struct {
	Probability int `json:"probability"`
	Impact      int `json:"impact"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// errorStatus maps an error class to the HTTP status
func errorStatus(err error) int {
	switch {
	case goerr.HasTag(err, usecase.ErrTagInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrRiskNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, usecase.ErrTagServiceUnavailable),
		goerr.HasTag(err, usecase.ErrTagBootstrap),
		goerr.HasTag(err, usecase.ErrTagConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := errorStatus(err)

	msg := err.Error()
	switch {
	case goerr.HasTag(err, usecase.ErrTagBootstrap), goerr.HasTag(err, usecase.ErrTagConfiguration):
		msg = usecase.UserMessage(err)
	case status == http.StatusInternalServerError:
		msg = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		_ = errutil.Handle(ctx, err, "API request failed")
	} else {
		logging.From(ctx).Warn("API request rejected", "status", status, "error", err)
	}

	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body", goerr.T(usecase.ErrTagInvalidInput))
	}
	return nil
}

func (s *Server) environmentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.app.Settings().EnvironmentInfo())
}

func (s *Server) listRisksHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.risk.ListRisks(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	cfg := s.app.Matrix()
	resp := struct {
		Risks []riskResponse `json:"risks"`
		Total int            `json:"total"`
	}{
		Risks: make([]riskResponse, len(entries)),
		Total: len(entries),
	}
	for i, e := range entries {
		resp.Risks[i] = toRiskResponse(cfg, e)
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) getRiskHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := s.risk.GetRisk(ctx, types.RiskID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponse(s.app.Matrix(), entry))
}

func (s *Server) createRiskHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRiskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, err := s.risk.CreateRisk(ctx, req.Description, types.CategoryID(req.Category),
		types.Probability(req.Probability), types.Impact(req.Impact))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toRiskResponse(s.app.Matrix(), entry))
}

func (s *Server) updateRiskHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateRiskRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, err := s.risk.UpdateAssessment(ctx, types.RiskID(chi.URLParam(r, "id")),
		types.Probability(req.Probability), types.Impact(req.Impact))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponse(s.app.Matrix(), entry))
}

func (s *Server) matrixHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matrix, err := s.risk.BuildMatrix(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := struct {
		*model.Matrix
		BySeverity map[types.Severity]int `json:"by_severity"`
	}{
		Matrix:     matrix,
		BySeverity: matrix.CountBySeverity(),
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := s.app.State()

	resp := struct {
		State     string `json:"state"`
		Ready     bool   `json:"ready"`
		RiskCount *int   `json:"risk_count"`
	}{
		State: state.String(),
		Ready: state == types.AppStateReady,
	}

	status := http.StatusServiceUnavailable
	if resp.Ready {
		status = http.StatusOK
		if count := s.app.RiskCount(ctx); count.Available() {
			resp.RiskCount = &count.Value
		}
	}
	writeJSON(ctx, w, status, resp)
}
