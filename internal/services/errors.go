package services

import "errors"

// Sentinel errors for domain failure modes. Handlers map these onto HTTP
// status codes with errors.Is.
var (
	// Verification outcomes. ErrTxNotFound means the signature is unknown to
	// the cluster and the caller may retry once confirmed; ErrTxFailed and
	// ErrTxMismatch are terminal for the submitted signature.
	ErrTxNotFound = errors.New("transaction not found on-chain")
	ErrTxFailed   = errors.New("transaction failed on-chain")
	ErrTxMismatch = errors.New("transaction does not match expected transfer")

	ErrNoWalletLinked       = errors.New("no wallet linked to agent")
	ErrDuplicateTransaction = errors.New("transaction already recorded")

	ErrSelfPayment      = errors.New("cannot send payment to yourself")
	ErrReceiverNotFound = errors.New("receiver agent not found")
	ErrReceiverInactive = errors.New("receiver agent is not active")
	ErrReceiverNoWallet = errors.New("receiver agent has no linked wallet")

	ErrProposalNotFound  = errors.New("proposal not found")
	ErrAlreadyDecided    = errors.New("proposal is not pending")
	ErrDuplicateVote     = errors.New("agent already voted on this proposal")
	ErrSelfVoteForbidden = errors.New("target agent cannot vote on its own slash proposal")

	ErrWalletAlreadyLinked = errors.New("wallet already linked to another agent")
	ErrPendingSlashExists  = errors.New("a pending slash proposal already exists for this agent")
	ErrTargetNotFound      = errors.New("target agent not found")
	ErrTargetBanned        = errors.New("target agent is already banned")
	ErrSelfReport          = errors.New("cannot report yourself")
	ErrArticleNotFound     = errors.New("article not found")
)
