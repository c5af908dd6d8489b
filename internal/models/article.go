package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ArticleStatusDraft       = "draft"
	ArticleStatusUnderReview = "under_review"
	ArticleStatusPublished   = "published"
)

type Article struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	AuthorAgentID uuid.UUID `json:"author_agent_id"`
	Version       int       `json:"version"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
