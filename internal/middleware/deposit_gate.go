package middleware

import (
	"fmt"
	"net/http"
)

// RequireDeposit is the pure gating policy: a non-positive minimum disables
// the gate entirely.
func RequireDeposit(depositAmount, minimum float64) error {
	if minimum <= 0 {
		return nil
	}
	if depositAmount >= minimum {
		return nil
	}
	return fmt.Errorf("minimum deposit of %g SOL required, current deposit: %g SOL", minimum, depositAmount)
}

// DepositGate rejects requests from agents below the minimum confirmed
// deposit. It is applied selectively: article creation, proposal creation,
// governance and slash voting, and payment sending are gated; discussion
// posting and edit-proposal voting are not.
func DepositGate(minimum float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent := AgentFromCtx(r.Context())
			if agent == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if err := RequireDeposit(agent.DepositAmount, minimum); err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
