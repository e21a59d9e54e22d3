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

// ReflectionHandler handles reflection submission and reads.
type ReflectionHandler struct {
	reflections *services.ReflectionService
	logger      *zap.Logger
}

// NewReflectionHandler creates a new reflection handler.
func NewReflectionHandler(reflections *services.ReflectionService, logger *zap.Logger) *ReflectionHandler {
	return &ReflectionHandler{
		reflections: reflections,
		logger:      logger,
	}
}

// SubmitReflectionRequest is the request body for a reflection.
type SubmitReflectionRequest struct {
	TopPriorities []string `json:"topPriorities" validate:"required,min=1,max=5,dive,min=1,max=200"`
	WhatChanged   string   `json:"whatChanged,omitempty" validate:"omitempty,max=5000"`
	WhatSurprised string   `json:"whatSurprised,omitempty" validate:"omitempty,max=5000"`
	NextSteps     string   `json:"nextSteps,omitempty" validate:"omitempty,max=5000"`
}

// ReflectionResponse is the wire shape of a reflection.
type ReflectionResponse struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	CohortID      string    `json:"cohortId"`
	TopPriorities []string  `json:"topPriorities"`
	WhatChanged   string    `json:"whatChanged,omitempty"`
	WhatSurprised string    `json:"whatSurprised,omitempty"`
	NextSteps     string    `json:"nextSteps,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
}

func reflectionToResponse(ref *domain.Reflection) ReflectionResponse {
	return ReflectionResponse{
		ID:            ref.ID,
		StudentID:     ref.StudentID,
		CohortID:      ref.CohortID,
		TopPriorities: ref.TopPriorities,
		WhatChanged:   ref.WhatChanged,
		WhatSurprised: ref.WhatSurprised,
		NextSteps:     ref.NextSteps,
		CompletedAt:   ref.CompletedAt,
	}
}

// SubmitReflection handles POST /cohorts/{cohortID}/reflections.
func (h *ReflectionHandler) SubmitReflection(w http.ResponseWriter, r *http.Request) {
	var req SubmitReflectionRequest
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

	reflection, err := h.reflections.SubmitReflection(
		r.Context(),
		user.UserID,
		chi.URLParam(r, "cohortID"),
		req.TopPriorities,
		req.WhatChanged,
		req.WhatSurprised,
		req.NextSteps,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, reflectionToResponse(reflection))
}

// GetReflection handles GET /cohorts/{cohortID}/reflections/{studentID}.
func (h *ReflectionHandler) GetReflection(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	reflection, err := h.reflections.GetReflection(
		r.Context(),
		chi.URLParam(r, "cohortID"),
		chi.URLParam(r, "studentID"),
		user.UserID,
		user.Role,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, reflectionToResponse(reflection))
}

// ListReflections handles GET /cohorts/{cohortID}/reflections.
func (h *ReflectionHandler) ListReflections(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	reflections, err := h.reflections.ListReflections(r.Context(), chi.URLParam(r, "cohortID"), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]ReflectionResponse, 0, len(reflections))
	for _, ref := range reflections {
		responses = append(responses, reflectionToResponse(ref))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}
