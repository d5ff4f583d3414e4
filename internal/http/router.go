package http

import (
	"net/http"
	"strings"
	"time"

	"claimflow/internal/http/handlers"
	"claimflow/internal/http/metrics"
	httpmw "claimflow/internal/http/middleware"
)

type RouterDependencies struct {
	ClaimHandler   *handlers.ClaimHandler
	AdminHandler   *handlers.AdminHandler
	PayrollHandler *handlers.PayrollHandler
	MetricsHandler *handlers.MetricsHandler
	AuthMiddleware *httpmw.AuthMiddleware
	Metrics        *metrics.Collector

	// SubmitLimiter throttles claim submissions per claimant.
	SubmitLimiter    httpmw.Limiter
	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	RequestTimeout time.Duration
}

type Router struct {
	deps RouterDependencies
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	return &Router{deps: deps}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := httpmw.Chain(r.baseHandler(), httpmw.RequestID, httpmw.Logging, httpmw.BodyLimit(maxBodyBytes), httpmw.Recover, httpmw.Metrics(r.deps.Metrics), httpmw.Timeout(r.deps.RequestTimeout))
	handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics":
			r.deps.MetricsHandler.Get(w, req)
			return
		}

		if path == "/claims" || strings.HasPrefix(path, "/claims/") || strings.HasPrefix(path, "/admin/") {
			protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				r.handleProtected(w, req)
			}))
			protected.ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodPost && path == "/claims":
		httpmw.RequireRole(httpmw.RoleClaimant)(http.HandlerFunc(r.deps.ClaimHandler.StartJourney)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/claims/current":
		httpmw.RequireRole(httpmw.RoleClaimant)(http.HandlerFunc(r.deps.ClaimHandler.Current)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && path == "/claims":
		httpmw.RequireRole(httpmw.RoleClaimant)(http.HandlerFunc(r.deps.ClaimHandler.Update)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == "/claims/submit":
		limited := httpmw.RateLimit(r.deps.SubmitLimiter, submitRateKey, r.deps.SubmitRateLimit, r.deps.SubmitRateWindow)
		httpmw.RequireRole(httpmw.RoleClaimant)(limited(http.HandlerFunc(r.deps.ClaimHandler.Submit))).ServeHTTP(w, req)
		return
	}

	if strings.HasPrefix(path, "/admin/") {
		httpmw.RequireRole(httpmw.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.handleAdmin(w, req)
		})).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}

func (r *Router) handleAdmin(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodGet && path == "/admin/claims":
		r.deps.AdminHandler.List(w, req)
		return
	case req.Method == http.MethodGet && path == "/admin/payroll/claims":
		r.deps.PayrollHandler.ListPayrollable(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/admin/payroll/claims/") && strings.HasSuffix(path, "/payments"):
		r.deps.PayrollHandler.RecordPayment(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/admin/payroll/claims/") && strings.HasSuffix(path, "/topups"):
		r.deps.PayrollHandler.RecordTopup(w, req)
		return
	}

	if !strings.HasPrefix(path, "/admin/claims/") {
		http.NotFound(w, req)
		return
	}

	switch {
	case req.Method == http.MethodGet && strings.HasSuffix(path, "/decisions"):
		r.deps.AdminHandler.DecisionHistory(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/hold"):
		r.deps.AdminHandler.Hold(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/unhold"):
		r.deps.AdminHandler.Unhold(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/approve"):
		r.deps.AdminHandler.Approve(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/reject"):
		r.deps.AdminHandler.Reject(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/undo-decision"):
		r.deps.AdminHandler.UndoDecision(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/complete-qa"):
		r.deps.AdminHandler.CompleteQA(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/amendments"):
		r.deps.AdminHandler.Amend(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/notes"):
		r.deps.AdminHandler.AddNote(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/assign"):
		r.deps.AdminHandler.Assign(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/remove-personal-data"):
		r.deps.AdminHandler.RemovePersonalData(w, req)
		return
	case req.Method == http.MethodGet:
		r.deps.AdminHandler.Get(w, req)
		return
	}

	http.NotFound(w, req)
}

// submitRateKey throttles per authenticated claimant, falling back to the
// client address for tokens without a resolvable subject.
func submitRateKey(req *http.Request) string {
	if id, ok := httpmw.UserIDFromContext(req.Context()); ok {
		return "submit:" + id.String()
	}
	return "submit:" + httpmw.ClientIP(req)
}
