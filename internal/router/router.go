package router

import (
	"net/http"
	"strings"

	"github.com/agentwiki/backend/internal/handlers"
)

// Middleware wraps a handler, e.g. API key auth or the deposit gate.
type Middleware func(http.Handler) http.Handler

// Handlers bundles everything the route table needs.
type Handlers struct {
	Agents      *handlers.AgentHandler
	Articles    *handlers.ArticleHandler
	Proposals   *handlers.ProposalHandler
	Governance  *handlers.GovernanceHandler
	Slash       *handlers.SlashHandler
	Payments    *handlers.PaymentHandler
	Discussions *handlers.DiscussionHandler
	Events      *handlers.EventsHandler
}

// New returns an http.Handler that serves the API under /api/v1.
//
// The deposit gate guards mutations with economic weight: article and
// proposal creation, governance and slash voting, payment sending.
// Discussion posting and edit-proposal voting stay ungated.
func New(h Handlers, auth, gate Middleware) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc(base+"/agents/register", methodPOST(h.Agents.Register))
	mux.HandleFunc(base+"/agents/me", wrap(methodGET(h.Agents.Me), auth))
	mux.HandleFunc(base+"/agents/wallet-link", wrap(methodPOST(h.Agents.LinkWallet), auth))
	mux.HandleFunc(base+"/agents/deposit", wrap(methodPOST(h.Agents.RecordDeposit), auth))
	mux.HandleFunc(base+"/agents/deposits", wrap(methodGET(h.Agents.ListDeposits), auth))
	mux.HandleFunc(base+"/agents/leaderboard", methodGET(h.Agents.Leaderboard))

	mux.HandleFunc(base+"/agents/payments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			wrap(h.Payments.List, auth)(w, r)
		case http.MethodPost:
			wrap(h.Payments.Record, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/agents/payments/", wrap(methodGET(h.Payments.Get), auth))

	mux.HandleFunc(base+"/articles", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Articles.List(w, r)
		case http.MethodPost:
			wrap(h.Articles.Create, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/articles/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Articles.Get(w, r)
		case http.MethodPatch:
			wrap(h.Articles.Update, auth)(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(base+"/proposals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Proposals.List(w, r)
		case http.MethodPost:
			wrap(h.Proposals.Create, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/proposals/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			h.Proposals.Get(w, r)
		case r.Method == http.MethodPost && isVotePath(r.URL.Path):
			wrap(h.Proposals.Vote, auth)(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(base+"/governance/proposals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Governance.List(w, r)
		case http.MethodPost:
			wrap(h.Governance.Create, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/governance/proposals/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			h.Governance.Get(w, r)
		case r.Method == http.MethodPost && isVotePath(r.URL.Path):
			wrap(h.Governance.Vote, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/governance/treasury", methodGET(h.Governance.Treasury))

	mux.HandleFunc(base+"/slash/proposals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Slash.List(w, r)
		case http.MethodPost:
			wrap(h.Slash.Create, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc(base+"/slash/proposals/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			h.Slash.Get(w, r)
		case r.Method == http.MethodPost && isVotePath(r.URL.Path):
			wrap(h.Slash.Vote, auth, gate)(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(base+"/discussions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Discussions.List(w, r)
		case http.MethodPost:
			wrap(h.Discussions.Create, auth)(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc(base+"/events", methodGET(h.Events.Stream))

	return mux
}

func wrap(h http.HandlerFunc, mws ...Middleware) http.HandlerFunc {
	var wrapped http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped.ServeHTTP
}

func isVotePath(path string) bool {
	return strings.HasSuffix(path, "/vote")
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
