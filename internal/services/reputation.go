package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/models"
)

// ContributionStore appends contribution log entries.
type ContributionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.Contribution) error
}

// ReputationStore increments an agent's reputation score.
type ReputationStore interface {
	AddReputation(ctx context.Context, tx pgx.Tx, id uuid.UUID, points int) error
}

// ContributionService is the reputation ledger: one append-only contribution
// row plus a monotonic score increment per reputation-earning action. It
// always runs inside the caller's transaction so a failed operation leaves
// no reputation behind.
type ContributionService struct {
	Contributions ContributionStore
	Agents        ReputationStore
}

func NewContributionService(contributions ContributionStore, agents ReputationStore) *ContributionService {
	return &ContributionService{Contributions: contributions, Agents: agents}
}

func (s *ContributionService) Record(ctx context.Context, tx pgx.Tx, agentID uuid.UUID, action string, articleID *uuid.UUID) error {
	points, ok := models.ActionPoints[action]
	if !ok {
		return fmt.Errorf("unknown contribution action %q", action)
	}
	entry := &models.Contribution{
		ID:         uuid.New(),
		AgentID:    agentID,
		ActionType: action,
		ArticleID:  articleID,
	}
	if err := s.Contributions.CreateTx(ctx, tx, entry); err != nil {
		return err
	}
	return s.Agents.AddReputation(ctx, tx, agentID, points)
}
