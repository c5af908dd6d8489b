package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/agentwiki/backend/internal/models"
)

// injectAgent wraps a handler to pre-set the agent in context, simulating
// what APIKeyAuth would do upstream.
func injectAgent(ag *models.Agent, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), ag)))
	})
}

// gate200 proves the middleware let the request through.
var gate200 = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireDeposit(t *testing.T) {
	tests := []struct {
		name    string
		deposit float64
		minimum float64
		allowed bool
	}{
		{"above minimum", 0.01, 0.001, true},
		{"exactly at minimum", 0.001, 0.001, true},
		{"below minimum", 0.0005, 0.001, false},
		{"zero deposit", 0, 0.001, false},
		{"gate disabled by zero minimum", 0, 0, true},
		{"gate disabled by negative minimum", 0, -1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireDeposit(tc.deposit, tc.minimum)
			if tc.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tc.allowed && err == nil {
				t.Fatalf("expected denial, got nil")
			}
		})
	}
}

func TestDepositGate_Allows(t *testing.T) {
	ag := &models.Agent{ID: uuid.New(), DepositAmount: 0.01, Status: models.AgentStatusActive}
	handler := injectAgent(ag, DepositGate(0.001)(gate200))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDepositGate_Rejects(t *testing.T) {
	ag := &models.Agent{ID: uuid.New(), DepositAmount: 0, Status: models.AgentStatusActive}
	handler := injectAgent(ag, DepositGate(0.001)(gate200))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "minimum deposit") {
		t.Errorf("expected gating message, got: %s", rec.Body.String())
	}
}

func TestDepositGate_NoAgentInContext(t *testing.T) {
	handler := DepositGate(0.001)(gate200)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil).WithContext(context.Background()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDepositGate_DisabledAdmitsEveryone(t *testing.T) {
	ag := &models.Agent{ID: uuid.New(), DepositAmount: 0, Status: models.AgentStatusActive}
	handler := injectAgent(ag, DepositGate(0)(gate200))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with gate disabled, got %d", rec.Code)
	}
}
