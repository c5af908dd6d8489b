package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentwiki/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// voteBox is the in-memory vote table shared by the three kind mocks.
type voteBox struct {
	votes      map[uuid.UUID]string
	status     string
	setStatus  []string
	insertErrs int
}

func newVoteBox() *voteBox {
	return &voteBox{votes: make(map[uuid.UUID]string), status: models.ProposalStatusPending}
}

func (b *voteBox) HasVote(_ context.Context, _ pgx.Tx, _ uuid.UUID, voterID uuid.UUID) (bool, error) {
	_, ok := b.votes[voterID]
	return ok, nil
}

func (b *voteBox) InsertVote(_ context.Context, _ pgx.Tx, v *models.Vote) error {
	if _, ok := b.votes[v.VoterAgentID]; ok {
		b.insertErrs++
		return &pgconn.PgError{Code: "23505"}
	}
	b.votes[v.VoterAgentID] = v.VoteType
	return nil
}

func (b *voteBox) Tally(_ context.Context, _ pgx.Tx, _ uuid.UUID) (int, int, error) {
	var approvals, rejections int
	for _, vt := range b.votes {
		if vt == models.VoteApprove {
			approvals++
		} else {
			rejections++
		}
	}
	return approvals, rejections, nil
}

func (b *voteBox) SetStatus(_ context.Context, _ pgx.Tx, _ uuid.UUID, status string) error {
	b.status = status
	b.setStatus = append(b.setStatus, status)
	return nil
}

// seed pre-loads existing votes so one more crosses the threshold.
func (b *voteBox) seed(voteType string, n int) {
	for i := 0; i < n; i++ {
		b.votes[uuid.New()] = voteType
	}
}

type mockEditStore struct {
	*voteBox
	proposal *models.EditProposal
}

func (m *mockEditStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.EditProposal, error) {
	if m.proposal == nil || m.proposal.ID != id {
		return nil, pgx.ErrNoRows
	}
	return m.proposal, nil
}

type mockGovernanceStore struct {
	*voteBox
	proposal *models.GovernanceProposal
}

func (m *mockGovernanceStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.GovernanceProposal, error) {
	if m.proposal == nil || m.proposal.ID != id {
		return nil, pgx.ErrNoRows
	}
	return m.proposal, nil
}

type mockSlashStore struct {
	*voteBox
	proposal *models.SlashProposal
	executed *float64
}

func (m *mockSlashStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.SlashProposal, error) {
	if m.proposal == nil || m.proposal.ID != id {
		return nil, pgx.ErrNoRows
	}
	return m.proposal, nil
}

func (m *mockSlashStore) MarkExecuted(_ context.Context, _ pgx.Tx, _ uuid.UUID, slashedAmount float64) error {
	m.executed = &slashedAmount
	m.status = models.ProposalStatusApproved
	m.proposal.SlashedAmount = slashedAmount
	return nil
}

type mockArticleEditor struct {
	applied map[uuid.UUID]string
}

func (m *mockArticleEditor) ApplyEdit(_ context.Context, _ pgx.Tx, id uuid.UUID, content string) error {
	if m.applied == nil {
		m.applied = make(map[uuid.UUID]string)
	}
	m.applied[id] = content
	return nil
}

type mockSlashTargets struct {
	agents map[uuid.UUID]*models.Agent
}

func (m *mockSlashTargets) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Agent, error) {
	ag, ok := m.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ag, nil
}

func (m *mockSlashTargets) Slash(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	ag := m.agents[id]
	ag.DepositAmount = 0
	ag.Status = models.AgentStatusBanned
	return nil
}

type contribCall struct {
	agentID   uuid.UUID
	action    string
	articleID *uuid.UUID
}

type mockContributor struct {
	calls []contribCall
}

func (m *mockContributor) Record(_ context.Context, _ pgx.Tx, agentID uuid.UUID, action string, articleID *uuid.UUID) error {
	m.calls = append(m.calls, contribCall{agentID: agentID, action: action, articleID: articleID})
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type votingFixture struct {
	svc      *VotingService
	edits    *mockEditStore
	gov      *mockGovernanceStore
	slashes  *mockSlashStore
	articles *mockArticleEditor
	targets  *mockSlashTargets
	contrib  *mockContributor
	hub      *captureHub
}

func newVotingFixture() *votingFixture {
	f := &votingFixture{
		edits:    &mockEditStore{voteBox: newVoteBox()},
		gov:      &mockGovernanceStore{voteBox: newVoteBox()},
		slashes:  &mockSlashStore{voteBox: newVoteBox()},
		articles: &mockArticleEditor{},
		targets:  &mockSlashTargets{agents: make(map[uuid.UUID]*models.Agent)},
		contrib:  &mockContributor{},
		hub:      &captureHub{},
	}
	f.svc = NewVotingService(mockPool{}, f.edits, f.gov, f.slashes, f.articles, f.targets, f.contrib, f.hub, nil)
	return f
}

func (f *votingFixture) editProposal() *models.EditProposal {
	p := &models.EditProposal{
		ID:              uuid.New(),
		ArticleID:       uuid.New(),
		ProposerAgentID: uuid.New(),
		OriginalContent: "old content",
		ProposedContent: "new content",
		Status:          models.ProposalStatusPending,
	}
	f.edits.proposal = p
	return p
}

func (f *votingFixture) slashProposal(targetDeposit float64) *models.SlashProposal {
	target := &models.Agent{ID: uuid.New(), DepositAmount: targetDeposit, Status: models.AgentStatusActive}
	f.targets.agents[target.ID] = target
	p := &models.SlashProposal{
		ID:              uuid.New(),
		ProposerAgentID: uuid.New(),
		TargetAgentID:   target.ID,
		Reason:          "spam",
		Status:          models.ProposalStatusPending,
	}
	f.slashes.proposal = p
	return p
}

// ---------------------------------------------------------------------------
// Edit lane
// ---------------------------------------------------------------------------

func TestVoteEdit_ThirdApprovalAppliesEdit(t *testing.T) {
	f := newVotingFixture()
	p := f.editProposal()
	f.edits.seed(models.VoteApprove, 2)

	voterID := uuid.New()
	result, err := f.svc.VoteEdit(context.Background(), p.ID, voterID, models.VoteApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusApproved {
		t.Fatalf("expected approved, got %s", result.ProposalStatus)
	}
	if result.Approvals != 3 {
		t.Errorf("expected 3 approvals, got %d", result.Approvals)
	}
	if got := f.articles.applied[p.ArticleID]; got != "new content" {
		t.Errorf("expected proposed content applied, got %q", got)
	}
	if f.edits.status != models.ProposalStatusApproved {
		t.Errorf("proposal status not flipped: %s", f.edits.status)
	}
	if len(f.contrib.calls) != 1 || f.contrib.calls[0].action != models.ActionVote {
		t.Errorf("expected one vote contribution, got %v", f.contrib.calls)
	}
	if f.contrib.calls[0].articleID == nil || *f.contrib.calls[0].articleID != p.ArticleID {
		t.Errorf("vote contribution should reference the article")
	}

	types := f.hub.types()
	if len(types) != 2 || types[0] != "proposal:voted" || types[1] != "article:updated" {
		t.Errorf("expected proposal:voted then article:updated, got %v", types)
	}
}

func TestVoteEdit_ThirdRejectionLeavesArticle(t *testing.T) {
	f := newVotingFixture()
	p := f.editProposal()
	f.edits.seed(models.VoteReject, 2)

	result, err := f.svc.VoteEdit(context.Background(), p.ID, uuid.New(), models.VoteReject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusRejected {
		t.Fatalf("expected rejected, got %s", result.ProposalStatus)
	}
	if len(f.articles.applied) != 0 {
		t.Errorf("rejection must not touch the article")
	}
	if f.edits.status != models.ProposalStatusRejected {
		t.Errorf("proposal status not flipped: %s", f.edits.status)
	}
}

func TestVoteEdit_BelowThresholdStaysPending(t *testing.T) {
	f := newVotingFixture()
	p := f.editProposal()
	f.edits.seed(models.VoteApprove, 1)

	result, err := f.svc.VoteEdit(context.Background(), p.ID, uuid.New(), models.VoteApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusPending {
		t.Fatalf("expected pending, got %s", result.ProposalStatus)
	}
	if len(f.edits.setStatus) != 0 {
		t.Errorf("status must not be written below threshold")
	}
	if len(f.articles.applied) != 0 {
		t.Errorf("article must not change below threshold")
	}
}

func TestVoteEdit_DuplicateVote(t *testing.T) {
	f := newVotingFixture()
	p := f.editProposal()

	voterID := uuid.New()
	if _, err := f.svc.VoteEdit(context.Background(), p.ID, voterID, models.VoteApprove); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}

	_, err := f.svc.VoteEdit(context.Background(), p.ID, voterID, models.VoteReject)
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	// The original vote stands.
	if f.edits.votes[voterID] != models.VoteApprove {
		t.Errorf("original vote was overwritten")
	}
	if len(f.contrib.calls) != 1 {
		t.Errorf("expected one contribution, got %d", len(f.contrib.calls))
	}
}

func TestVoteEdit_AlreadyDecided(t *testing.T) {
	f := newVotingFixture()
	p := f.editProposal()
	p.Status = models.ProposalStatusApproved

	_, err := f.svc.VoteEdit(context.Background(), p.ID, uuid.New(), models.VoteApprove)
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if len(f.edits.votes) != 0 {
		t.Errorf("no vote row should exist on a decided proposal")
	}
}

func TestVoteEdit_ProposalNotFound(t *testing.T) {
	f := newVotingFixture()
	_, err := f.svc.VoteEdit(context.Background(), uuid.New(), uuid.New(), models.VoteApprove)
	if !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Governance lane
// ---------------------------------------------------------------------------

func TestVoteGovernance_ApprovalRecordsIntentOnly(t *testing.T) {
	f := newVotingFixture()
	p := &models.GovernanceProposal{
		ID:              uuid.New(),
		ProposerAgentID: uuid.New(),
		Title:           "Fund research",
		Amount:          1.5,
		Status:          models.ProposalStatusPending,
	}
	f.gov.proposal = p
	f.gov.seed(models.VoteApprove, 2)

	result, err := f.svc.VoteGovernance(context.Background(), p.ID, uuid.New(), models.VoteApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusApproved {
		t.Fatalf("expected approved, got %s", result.ProposalStatus)
	}
	if f.gov.status != models.ProposalStatusApproved {
		t.Errorf("proposal status not flipped: %s", f.gov.status)
	}
	// Governance votes carry no article reference.
	if f.contrib.calls[0].articleID != nil {
		t.Errorf("governance vote contribution must not reference an article")
	}

	types := f.hub.types()
	if len(types) != 2 || types[1] != "governance:executed" {
		t.Errorf("expected governance:executed after the vote event, got %v", types)
	}
}

// ---------------------------------------------------------------------------
// Slash lane
// ---------------------------------------------------------------------------

func TestVoteSlash_TargetCannotVote(t *testing.T) {
	f := newVotingFixture()
	p := f.slashProposal(1.0)

	_, err := f.svc.VoteSlash(context.Background(), p.ID, p.TargetAgentID, models.VoteReject)
	if !errors.Is(err, ErrSelfVoteForbidden) {
		t.Fatalf("expected ErrSelfVoteForbidden, got %v", err)
	}
	if len(f.slashes.votes) != 0 {
		t.Errorf("no vote row should exist for the target")
	}
}

func TestVoteSlash_ThirdApprovalExecutes(t *testing.T) {
	f := newVotingFixture()
	p := f.slashProposal(0.75)
	f.slashes.seed(models.VoteApprove, 2)

	result, err := f.svc.VoteSlash(context.Background(), p.ID, uuid.New(), models.VoteApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusApproved {
		t.Fatalf("expected approved, got %s", result.ProposalStatus)
	}
	if f.slashes.executed == nil || *f.slashes.executed != 0.75 {
		t.Fatalf("expected slashed amount 0.75, got %v", f.slashes.executed)
	}

	target := f.targets.agents[p.TargetAgentID]
	if target.DepositAmount != 0 {
		t.Errorf("target deposit not zeroed: %g", target.DepositAmount)
	}
	if target.Status != models.AgentStatusBanned {
		t.Errorf("target not banned: %s", target.Status)
	}

	types := f.hub.types()
	if len(types) != 2 || types[1] != "slash:executed" {
		t.Errorf("expected slash:executed after the vote event, got %v", types)
	}
}

func TestVoteSlash_ThirdRejectionLeavesTarget(t *testing.T) {
	f := newVotingFixture()
	p := f.slashProposal(0.75)
	f.slashes.seed(models.VoteReject, 2)

	result, err := f.svc.VoteSlash(context.Background(), p.ID, uuid.New(), models.VoteReject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProposalStatus != models.ProposalStatusRejected {
		t.Fatalf("expected rejected, got %s", result.ProposalStatus)
	}
	if f.slashes.executed != nil {
		t.Errorf("rejection must not execute the slash")
	}

	target := f.targets.agents[p.TargetAgentID]
	if target.DepositAmount != 0.75 || target.Status != models.AgentStatusActive {
		t.Errorf("rejection must leave the target untouched: %+v", target)
	}
}

func TestVoteSlash_VoterEarnsContribution(t *testing.T) {
	f := newVotingFixture()
	p := f.slashProposal(1.0)

	voterID := uuid.New()
	if _, err := f.svc.VoteSlash(context.Background(), p.ID, voterID, models.VoteApprove); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.contrib.calls) != 1 {
		t.Fatalf("expected one contribution, got %d", len(f.contrib.calls))
	}
	call := f.contrib.calls[0]
	if call.agentID != voterID || call.action != models.ActionVote {
		t.Errorf("unexpected contribution: %+v", call)
	}
}
