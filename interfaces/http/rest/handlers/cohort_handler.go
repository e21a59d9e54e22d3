// Package handlers contains the HTTP handlers. Handlers decode and
// validate requests, delegate to the application services, and map
// application errors onto the response envelope.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"civica-backend/application/ports"
	"civica-backend/application/services"
	"civica-backend/domain"
	"civica-backend/pkg/auth"
	"civica-backend/pkg/common"
	"civica-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CohortHandler handles cohort lifecycle requests.
type CohortHandler struct {
	cohorts *services.CohortService
	logger  *zap.Logger
}

// NewCohortHandler creates a new cohort handler.
func NewCohortHandler(cohorts *services.CohortService, logger *zap.Logger) *CohortHandler {
	return &CohortHandler{
		cohorts: cohorts,
		logger:  logger,
	}
}

// CreateCohortRequest is the request body for creating a cohort.
type CreateCohortRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	GradeLevel string `json:"gradeLevel" validate:"required,min=1,max=20"`
}

// UpdateCohortRequest is the request body for a partial cohort update.
type UpdateCohortRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=draft active archived"`
}

// CohortResponse is the wire shape of a cohort.
type CohortResponse struct {
	ID           string     `json:"id"`
	TeacherID    string     `json:"teacherId"`
	Name         string     `json:"name"`
	GradeLevel   string     `json:"gradeLevel"`
	JoinCode     string     `json:"joinCode,omitempty"`
	Status       string     `json:"status"`
	CurrentPhase string     `json:"currentPhase"`
	StudentCount int        `json:"studentCount"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func cohortToResponse(c *domain.Cohort, includeJoinCode bool) CohortResponse {
	resp := CohortResponse{
		ID:           c.ID,
		TeacherID:    c.TeacherID,
		Name:         c.Name,
		GradeLevel:   c.GradeLevel,
		Status:       string(c.Status),
		CurrentPhase: string(c.CurrentPhase),
		StudentCount: c.StudentCount,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		CreatedAt:    c.CreatedAt,
	}
	// Join codes are for teachers to hand out; students never see them
	// through the API.
	if includeJoinCode {
		resp.JoinCode = c.JoinCode
	}
	return resp
}

// CreateCohort handles POST /cohorts.
func (h *CohortHandler) CreateCohort(w http.ResponseWriter, r *http.Request) {
	var req CreateCohortRequest
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

	cohort, err := h.cohorts.CreateCohort(r.Context(), user.UserID, req.Name, req.GradeLevel)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, cohortToResponse(cohort, true))
}

// GetCohort handles GET /cohorts/{cohortID}.
func (h *CohortHandler) GetCohort(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	cohortID := chi.URLParam(r, "cohortID")
	cohort, err := h.cohorts.GetCohort(r.Context(), cohortID, user.UserID, user.Role)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cohortToResponse(cohort, user.Role == domain.RoleTeacher))
}

// ListCohorts handles GET /cohorts for teachers.
func (h *CohortHandler) ListCohorts(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	cohorts, err := h.cohorts.ListCohorts(r.Context(), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]CohortResponse, 0, len(cohorts))
	for _, c := range cohorts {
		responses = append(responses, cohortToResponse(c, true))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// UpdateCohort handles PATCH /cohorts/{cohortID}.
func (h *CohortHandler) UpdateCohort(w http.ResponseWriter, r *http.Request) {
	var req UpdateCohortRequest
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

	update := ports.CohortUpdate{Name: req.Name}
	if req.Status != nil {
		status := domain.CohortStatus(*req.Status)
		update.Status = &status
	}

	cohort, err := h.cohorts.UpdateCohort(r.Context(), chi.URLParam(r, "cohortID"), user.UserID, update)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cohortToResponse(cohort, true))
}

// AdvancePhase handles POST /cohorts/{cohortID}/advance.
func (h *CohortHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	cohort, err := h.cohorts.AdvancePhase(r.Context(), chi.URLParam(r, "cohortID"), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cohortToResponse(cohort, true))
}

// StudentProfileResponse is the wire shape of one roster entry.
type StudentProfileResponse struct {
	UserID   string    `json:"userId"`
	CohortID string    `json:"cohortId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ListStudents handles GET /cohorts/{cohortID}/students.
func (h *CohortHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	profiles, err := h.cohorts.ListStudents(r.Context(), chi.URLParam(r, "cohortID"), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]StudentProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		responses = append(responses, StudentProfileResponse{
			UserID:   p.UserID,
			CohortID: p.CohortID,
			JoinedAt: p.JoinedAt,
		})
	}
	common.RespondJSON(w, http.StatusOK, responses)
}
