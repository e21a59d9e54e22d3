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

	"go.uber.org/zap"
)

// UserHandler handles user bootstrap and profile requests.
type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// EnsureUserRequest is the request body for first-contact bootstrap.
type EnsureUserRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
}

// UserResponse is the wire shape of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

// EnsureUser handles POST /users. Email and role come from the verified
// token, never from the body.
func (h *UserHandler) EnsureUser(w http.ResponseWriter, r *http.Request) {
	var req EnsureUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	user, err := h.users.EnsureUser(r.Context(), caller.Email, req.DisplayName, caller.Role)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, userToResponse(user))
}

// TeacherProfileRequest is the request body for the teacher profile.
type TeacherProfileRequest struct {
	SchoolName  string   `json:"schoolName" validate:"required,min=1,max=200"`
	State       string   `json:"state" validate:"required,len=2"`
	GradeLevels []string `json:"gradeLevels" validate:"required,min=1,dive,min=1,max=20"`
}

// PutTeacherProfile handles PUT /users/me/teacher-profile.
func (h *UserHandler) PutTeacherProfile(w http.ResponseWriter, r *http.Request) {
	var req TeacherProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	profile, err := h.users.PutTeacherProfile(r.Context(), caller.UserID, req.SchoolName, req.State, req.GradeLevels)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profile)
}

// GetMe handles GET /users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	user, err := h.users.GetUser(r.Context(), caller.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, userToResponse(user))
}
