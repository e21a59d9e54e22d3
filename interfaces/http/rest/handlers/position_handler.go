package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"civica-backend/application/services"
	"civica-backend/domain"
	"civica-backend/pkg/auth"
	"civica-backend/pkg/common"
	"civica-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PositionHandler handles position submission and the teacher-facing
// aggregates.
type PositionHandler struct {
	positions *services.PositionService
	logger    *zap.Logger
}

// NewPositionHandler creates a new position handler.
func NewPositionHandler(positions *services.PositionService, logger *zap.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// SubmitPositionRequest is the request body for taking or revising a
// position.
type SubmitPositionRequest struct {
	PolicyID  string `json:"policyId" validate:"required"`
	Stance    string `json:"stance" validate:"required,oneof=strongly_support support neutral oppose strongly_oppose"`
	Reasoning string `json:"reasoning" validate:"required,min=1,max=5000"`
	Steelman  string `json:"steelman,omitempty" validate:"omitempty,max=5000"`
}

// PositionResponse is the wire shape of a position.
type PositionResponse struct {
	ID                 string    `json:"id"`
	StudentID          string    `json:"studentId"`
	CohortID           string    `json:"cohortId"`
	PolicyID           string    `json:"policyId"`
	Stance             string    `json:"stance"`
	Reasoning          string    `json:"reasoning"`
	Steelman           string    `json:"steelman,omitempty"`
	IsRevision         bool      `json:"isRevision"`
	OriginalPositionID string    `json:"originalPositionId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func positionToResponse(p *domain.Position) PositionResponse {
	return PositionResponse{
		ID:                 p.ID,
		StudentID:          p.StudentID,
		CohortID:           p.CohortID,
		PolicyID:           p.PolicyID,
		Stance:             string(p.Stance),
		Reasoning:          p.Reasoning,
		Steelman:           p.Steelman,
		IsRevision:         p.IsRevision,
		OriginalPositionID: p.OriginalPositionID,
		CreatedAt:          p.CreatedAt,
	}
}

// SubmitPosition handles POST /cohorts/{cohortID}/positions.
func (h *PositionHandler) SubmitPosition(w http.ResponseWriter, r *http.Request) {
	var req SubmitPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	position, err := h.positions.SubmitPosition(
		r.Context(),
		user.UserID,
		chi.URLParam(r, "cohortID"),
		req.PolicyID,
		domain.Stance(req.Stance),
		req.Reasoning,
		req.Steelman,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, positionToResponse(position))
}

// GetPositionsByPolicy handles GET /cohorts/{cohortID}/policies/{policyID}/positions.
func (h *PositionHandler) GetPositionsByPolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	positions, err := h.positions.GetPositionsByPolicy(
		r.Context(),
		chi.URLParam(r, "cohortID"),
		chi.URLParam(r, "policyID"),
		user.UserID,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		responses = append(responses, positionToResponse(p))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// GetStanceDistribution handles GET /cohorts/{cohortID}/policies/{policyID}/distribution.
func (h *PositionHandler) GetStanceDistribution(w http.ResponseWriter, r *http.Request) {
	distribution, err := h.positions.GetStanceDistribution(
		r.Context(),
		chi.URLParam(r, "cohortID"),
		chi.URLParam(r, "policyID"),
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, distribution)
}

// GetPositionHistory handles GET /positions.
func (h *PositionHandler) GetPositionHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	positions, err := h.positions.GetPositionHistory(r.Context(), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		responses = append(responses, positionToResponse(p))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}
