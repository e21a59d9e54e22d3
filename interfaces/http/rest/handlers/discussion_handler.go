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

// DiscussionHandler handles discussion posts and moderation.
type DiscussionHandler struct {
	discussions *services.DiscussionService
	logger      *zap.Logger
}

// NewDiscussionHandler creates a new discussion handler.
func NewDiscussionHandler(discussions *services.DiscussionService, logger *zap.Logger) *DiscussionHandler {
	return &DiscussionHandler{
		discussions: discussions,
		logger:      logger,
	}
}

// CreatePostRequest is the request body for a post or a reply.
type CreatePostRequest struct {
	PolicyID string `json:"policyId" validate:"required"`
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	ParentID string `json:"parentId,omitempty"`
}

// PostResponse is the wire shape of a discussion post.
type PostResponse struct {
	ID         string    `json:"id"`
	CohortID   string    `json:"cohortId"`
	PolicyID   string    `json:"policyId"`
	AuthorID   string    `json:"authorId"`
	ParentID   string    `json:"parentId,omitempty"`
	Content    string    `json:"content"`
	IsFlagged  bool      `json:"isFlagged"`
	ReplyCount int       `json:"replyCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func postToResponse(p *domain.DiscussionPost) PostResponse {
	return PostResponse{
		ID:         p.ID,
		CohortID:   p.CohortID,
		PolicyID:   p.PolicyID,
		AuthorID:   p.AuthorID,
		ParentID:   p.ParentID,
		Content:    p.Content,
		IsFlagged:  p.IsFlagged,
		ReplyCount: p.ReplyCount,
		CreatedAt:  p.CreatedAt,
	}
}

// CreatePost handles POST /cohorts/{cohortID}/posts.
func (h *DiscussionHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
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

	post, err := h.discussions.CreatePost(
		r.Context(),
		chi.URLParam(r, "cohortID"),
		req.PolicyID,
		user.UserID,
		req.Content,
		req.ParentID,
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, postToResponse(post))
}

// GetThread handles GET /cohorts/{cohortID}/policies/{policyID}/posts.
func (h *DiscussionHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	posts, err := h.discussions.GetThread(
		r.Context(),
		chi.URLParam(r, "cohortID"),
		chi.URLParam(r, "policyID"),
	)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, postToResponse(p))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// GetReplies handles GET /posts/{postID}/replies.
func (h *DiscussionHandler) GetReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.discussions.GetReplies(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	responses := make([]PostResponse, 0, len(replies))
	for _, p := range replies {
		responses = append(responses, postToResponse(p))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// FlagPost handles POST /posts/{postID}/flag.
func (h *DiscussionHandler) FlagPost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	if err := h.discussions.FlagPost(r.Context(), chi.URLParam(r, "postID"), user.UserID); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "flagged"})
}

// DeletePost handles DELETE /posts/{postID}.
func (h *DiscussionHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
		return
	}

	if err := h.discussions.DeletePost(r.Context(), chi.URLParam(r, "postID"), user.UserID); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
