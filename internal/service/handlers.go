package service

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/agent"
	"github.com/browserpilot/browserpilot/internal/relay"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// loginKeywords mark prompts that will need an authenticated session. Checked
// before the agent runs so a logged-out user gets a login prompt instead of a
// half-failed automation attempt.
var loginKeywords = []string{"calendar", "event", "meeting", "schedule", "email", "mail"}

type invokeRequest struct {
	Prompt string `json:"prompt"`
	Debug  bool   `json:"debug"`
}

type invokeResponse struct {
	Success           bool         `json:"success"`
	Result            string       `json:"result,omitempty"`
	Output            string       `json:"output,omitempty"`
	State             agent.State  `json:"state,omitempty"`
	IntermediateSteps []agent.Step `json:"intermediateSteps,omitempty"`
	Error             string       `json:"error,omitempty"`
	NeedsLogin        bool         `json:"needsLogin,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt must not be empty"})
		return
	}

	// Short-circuit before any browser session exists.
	if requiresLogin(req.Prompt) && !s.driver.LoggedIn() {
		writeJSON(w, http.StatusOK, invokeResponse{
			Success:    false,
			Error:      "Please log in to your Google account first.",
			NeedsLogin: true,
		})
		return
	}

	// One invocation, one session: close it whether the turn succeeded or
	// was orphaned by a request timeout mid-sequence.
	defer s.driver.Close()

	res, err := s.runner.Run(r.Context(), req.Prompt)
	if err != nil {
		s.logger.Error("Agent turn failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "agent invocation failed", Details: err.Error()})
		return
	}

	resp := invokeResponse{
		Success: true,
		Result:  res.Output,
		Output:  res.Output,
		State:   res.State,
	}
	if req.Debug {
		resp.IntermediateSteps = res.Steps
	}
	writeJSON(w, http.StatusOK, resp)
}

func requiresLogin(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range loginKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *Server) handleListTabRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Poll())
}

type completeRequest struct {
	DataURL  string `json:"dataUrl"`
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Error    string `json:"error"`
}

func (s *Server) handleCompleteTabRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Details: err.Error()})
		return
	}

	// Unknown ids and repeated completions are no-ops so client retries stay
	// idempotent.
	s.queue.Complete(id, relay.Result{CaptureRef: req.DataURL, Filename: req.Filename}, req.Error)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.Navigate(r.Context(), s.loginURL); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to open login page", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login page opened. Complete the sign-in in the browser window.",
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"loggedIn": s.driver.LoggedIn()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.ResetProfile(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to clear session", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type navigateRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleBrowserNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}
	if err := s.driver.Navigate(r.Context(), req.URL); err != nil {
		s.driver.Close()
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "navigation failed", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
