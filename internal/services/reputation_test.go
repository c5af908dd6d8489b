package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/models"
)

type mockContributionStore struct {
	entries []*models.Contribution
}

func (m *mockContributionStore) CreateTx(_ context.Context, _ pgx.Tx, c *models.Contribution) error {
	m.entries = append(m.entries, c)
	return nil
}

type mockReputationStore struct {
	awarded map[uuid.UUID]int
}

func (m *mockReputationStore) AddReputation(_ context.Context, _ pgx.Tx, id uuid.UUID, points int) error {
	if m.awarded == nil {
		m.awarded = make(map[uuid.UUID]int)
	}
	m.awarded[id] += points
	return nil
}

func TestContributionRecord_Points(t *testing.T) {
	tests := []struct {
		action string
		points int
	}{
		{models.ActionCreate, 10},
		{models.ActionEdit, 5},
		{models.ActionDiscuss, 2},
		{models.ActionVote, 2},
	}
	for _, tc := range tests {
		t.Run(tc.action, func(t *testing.T) {
			contributions := &mockContributionStore{}
			agents := &mockReputationStore{}
			svc := NewContributionService(contributions, agents)

			agentID := uuid.New()
			articleID := uuid.New()
			if err := svc.Record(context.Background(), noopTx{}, agentID, tc.action, &articleID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if agents.awarded[agentID] != tc.points {
				t.Errorf("expected %d points, got %d", tc.points, agents.awarded[agentID])
			}
			if len(contributions.entries) != 1 {
				t.Fatalf("expected one contribution entry, got %d", len(contributions.entries))
			}
			entry := contributions.entries[0]
			if entry.ActionType != tc.action || entry.AgentID != agentID {
				t.Errorf("unexpected entry: %+v", entry)
			}
		})
	}
}

func TestContributionRecord_UnknownAction(t *testing.T) {
	contributions := &mockContributionStore{}
	agents := &mockReputationStore{}
	svc := NewContributionService(contributions, agents)

	err := svc.Record(context.Background(), noopTx{}, uuid.New(), "downvote", nil)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if len(contributions.entries) != 0 || len(agents.awarded) != 0 {
		t.Error("unknown action must write nothing")
	}
}
