package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockSlashRepo struct {
	proposals map[uuid.UUID]*models.SlashProposal
	pending   map[uuid.UUID]bool
}

func newMockSlashRepo() *mockSlashRepo {
	return &mockSlashRepo{
		proposals: make(map[uuid.UUID]*models.SlashProposal),
		pending:   make(map[uuid.UUID]bool),
	}
}

func (m *mockSlashRepo) Create(_ context.Context, p *models.SlashProposal) error {
	m.proposals[p.ID] = p
	m.pending[p.TargetAgentID] = true
	return nil
}

func (m *mockSlashRepo) List(_ context.Context, _ int) ([]*models.SlashProposal, error) {
	out := make([]*models.SlashProposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockSlashRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SlashProposal, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockSlashRepo) HasPendingForTarget(_ context.Context, targetID uuid.UUID) (bool, error) {
	return m.pending[targetID], nil
}

type mockAgents struct {
	agents map[uuid.UUID]*models.Agent
}

func (m *mockAgents) GetByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	ag, ok := m.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ag, nil
}

type mockArticles struct {
	existing map[uuid.UUID]bool
}

func (m *mockArticles) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.existing[id], nil
}

type mockSlashVoter struct {
	result *services.VoteResult
	err    error
	called bool
}

func (m *mockSlashVoter) VoteSlash(context.Context, uuid.UUID, uuid.UUID, string) (*services.VoteResult, error) {
	m.called = true
	return m.result, m.err
}

type nopHub struct{}

func (nopHub) Publish(events.Event) {}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type slashFixture struct {
	handler *SlashHandler
	repo    *mockSlashRepo
	agents  *mockAgents
	voter   *mockSlashVoter
	caller  *models.Agent
	target  *models.Agent
}

func newSlashFixture() *slashFixture {
	caller := &models.Agent{ID: uuid.New(), DepositAmount: 0.01, Status: models.AgentStatusActive}
	target := &models.Agent{ID: uuid.New(), DepositAmount: 0.5, Status: models.AgentStatusActive}

	repo := newMockSlashRepo()
	agents := &mockAgents{agents: map[uuid.UUID]*models.Agent{
		caller.ID: caller,
		target.ID: target,
	}}
	voter := &mockSlashVoter{}

	return &slashFixture{
		handler: &SlashHandler{
			Proposals: repo,
			Agents:    agents,
			Articles:  &mockArticles{existing: map[uuid.UUID]bool{}},
			Voting:    voter,
			Events:    nopHub{},
			Logger:    discardLogger(),
		},
		repo:   repo,
		agents: agents,
		voter:  voter,
		caller: caller,
		target: target,
	}
}

func (f *slashFixture) createRequest(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/slash/proposals", strings.NewReader(body))
	req = req.WithContext(middleware.WithAgent(req.Context(), f.caller))
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSlashCreate_Success(t *testing.T) {
	f := newSlashFixture()
	body := `{"target_agent_id":"` + f.target.ID.String() + `","reason":"posting spam articles"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Proposal models.SlashProposal `json:"proposal"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Proposal.TargetAgentID != f.target.ID {
		t.Errorf("wrong target in proposal")
	}
	if resp.Proposal.Status != models.ProposalStatusPending {
		t.Errorf("expected pending status, got %s", resp.Proposal.Status)
	}
}

func TestSlashCreate_SelfReport(t *testing.T) {
	f := newSlashFixture()
	body := `{"target_agent_id":"` + f.caller.ID.String() + `","reason":"testing"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.repo.proposals) != 0 {
		t.Error("no proposal should exist")
	}
}

func TestSlashCreate_TargetNotFound(t *testing.T) {
	f := newSlashFixture()
	body := `{"target_agent_id":"` + uuid.NewString() + `","reason":"testing"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSlashCreate_TargetAlreadyBanned(t *testing.T) {
	f := newSlashFixture()
	f.target.Status = models.AgentStatusBanned
	body := `{"target_agent_id":"` + f.target.ID.String() + `","reason":"testing"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSlashCreate_PendingProposalExists(t *testing.T) {
	f := newSlashFixture()
	f.repo.pending[f.target.ID] = true
	body := `{"target_agent_id":"` + f.target.ID.String() + `","reason":"testing"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSlashCreate_UnknownArticle(t *testing.T) {
	f := newSlashFixture()
	body := `{"target_agent_id":"` + f.target.ID.String() + `","article_id":"` + uuid.NewString() + `","reason":"testing"}`

	rec := f.createRequest(body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSlashVote_InvalidVoteType(t *testing.T) {
	f := newSlashFixture()
	p := &models.SlashProposal{ID: uuid.New(), TargetAgentID: f.target.ID, Status: models.ProposalStatusPending}
	f.repo.proposals[p.ID] = p

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slash/proposals/"+p.ID.String()+"/vote", strings.NewReader(`{"vote_type":"maybe"}`))
	req = req.WithContext(middleware.WithAgent(req.Context(), f.caller))
	rec := httptest.NewRecorder()
	f.handler.Vote(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.voter.called {
		t.Error("voting engine must not be called with an invalid vote type")
	}
}

func TestSlashVote_ServiceErrorsMapped(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrProposalNotFound, http.StatusNotFound},
		{services.ErrAlreadyDecided, http.StatusBadRequest},
		{services.ErrDuplicateVote, http.StatusConflict},
		{services.ErrSelfVoteForbidden, http.StatusForbidden},
	}
	for _, tc := range tests {
		f := newSlashFixture()
		f.voter.err = tc.err

		req := httptest.NewRequest(http.MethodPost, "/api/v1/slash/proposals/"+uuid.NewString()+"/vote", strings.NewReader(`{"vote_type":"approve"}`))
		req = req.WithContext(middleware.WithAgent(req.Context(), f.caller))
		rec := httptest.NewRecorder()
		f.handler.Vote(rec, req)

		if rec.Code != tc.code {
			t.Errorf("error %v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}
