package handlers

import (
	"encoding/json"
	"net/http"

	"civica-backend/application/services"
	"civica-backend/pkg/auth"
	"civica-backend/pkg/common"
	"civica-backend/pkg/utils"

	"go.uber.org/zap"
)

// EnrollmentHandler handles join-code redemption and membership listing.
type EnrollmentHandler struct {
	enrollment *services.EnrollmentService
	logger     *zap.Logger
}

// NewEnrollmentHandler creates a new enrollment handler.
func NewEnrollmentHandler(enrollment *services.EnrollmentService, logger *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollment: enrollment,
		logger:     logger,
	}
}

// JoinCohortRequest is the request body for redeeming a join code.
type JoinCohortRequest struct {
	JoinCode string `json:"joinCode" validate:"required,len=6"`
}

// JoinCohortResponse pairs the new membership with the cohort it opens.
type JoinCohortResponse struct {
	Profile StudentProfileResponse `json:"profile"`
	Cohort  CohortResponse         `json:"cohort"`
}

// JoinCohort handles POST /enrollments.
func (h *EnrollmentHandler) JoinCohort(w http.ResponseWriter, r *http.Request) {
	var req JoinCohortRequest
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

	profile, cohort, err := h.enrollment.JoinCohort(r.Context(), user.UserID, req.JoinCode)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, JoinCohortResponse{
		Profile: StudentProfileResponse{
			UserID:   profile.UserID,
			CohortID: profile.CohortID,
			JoinedAt: profile.JoinedAt,
		},
		Cohort: cohortToResponse(cohort, false),
	})
}

// ListMemberships handles GET /enrollments.
func (h *EnrollmentHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	profiles, err := h.enrollment.ListMemberships(r.Context(), user.UserID)
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
