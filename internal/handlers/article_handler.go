package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/services"
)

// ArticleRepoForHandler is the subset of article repository needed here.
type ArticleRepoForHandler interface {
	Create(ctx context.Context, a *models.Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	List(ctx context.Context) ([]*models.Article, error)
	Update(ctx context.Context, id uuid.UUID, title, content, status *string) error
}

// Contributor records a contribution and awards its reputation points.
type Contributor interface {
	Record(ctx context.Context, tx pgx.Tx, agentID uuid.UUID, action string, articleID *uuid.UUID) error
}

// ArticleHandler serves /api/v1/articles endpoints.
type ArticleHandler struct {
	Pool     services.TxBeginner
	Articles ArticleRepoForHandler
	Contrib  Contributor
	Events   events.Publisher
	Logger   *slog.Logger
}

// List handles GET /api/v1/articles. Public.
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	articles, err := h.Articles.List(r.Context())
	if err != nil {
		h.Logger.Error("list articles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get articles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// Get handles GET /api/v1/articles/{id}. Public.
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/v1/articles/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := h.Articles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.Logger.Error("get article", "article_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get article")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
}

type createArticleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// Create handles POST /api/v1/articles. Deposit-gated; awards the create
// contribution in the same transaction as the reputation bump.
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	if req.Status == "" {
		req.Status = models.ArticleStatusDraft
	}

	article := &models.Article{
		ID:            uuid.New(),
		Title:         req.Title,
		Content:       req.Content,
		AuthorAgentID: agent.ID,
		Version:       1,
		Status:        req.Status,
	}
	if err := h.Articles.Create(r.Context(), article); err != nil {
		h.Logger.Error("create article", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create article")
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Logger.Error("begin tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.Contrib.Record(r.Context(), tx, agent.ID, models.ActionCreate, &article.ID); err != nil {
		h.Logger.Error("record create contribution", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.Logger.Error("commit tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Events.Publish(events.Event{Type: "article:created", ID: article.ID.String(), Summary: article.Title})
	writeJSON(w, http.StatusCreated, map[string]any{"article": article})
}

type updateArticleRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

// Update handles PATCH /api/v1/articles/{id}. Direct author update path:
// auth only, no deposit gate, no contribution. A content change bumps the
// version.
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r, "/api/v1/articles/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if _, err := h.Articles.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.Logger.Error("get article", "article_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.Articles.Update(r.Context(), id, req.Title, req.Content, req.Status); err != nil {
		h.Logger.Error("update article", "article_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update article")
		return
	}

	article, err := h.Articles.GetByID(r.Context(), id)
	if err != nil {
		h.Logger.Error("reload article", "article_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
}

// pathID parses the UUID segment following prefix in the URL path.
// Supports paths like /api/v1/articles/{id} and /api/v1/proposals/{id}/vote.
func pathID(r *http.Request, prefix string) (uuid.UUID, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
