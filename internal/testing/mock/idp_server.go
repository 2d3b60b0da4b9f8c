package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Default paths served by IdPServer. They match the defaults in internal/config.
const (
	IdPDeviceCodePath = "/api/auth/device/code"
	IdPTokenPath      = "/api/auth/device/token"
	IdPSessionPath    = "/api/me"
)

// TokenStep is one scripted answer of the token endpoint. When Error is set
// the step answers {"error": Error}; otherwise it issues AccessToken.
// Status overrides the HTTP status (defaults: 200 for tokens, 400 for errors).
type TokenStep struct {
	Status      int
	Error       string
	AccessToken string
	ExpiresIn   int
}

// IdPUser is the user returned by the session endpoint.
type IdPUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// IdPConfig configures the mock identity provider.
type IdPConfig struct {
	ClientID  string
	UserCode  string
	Interval  int
	ExpiresIn int

	// DeviceStatus, when non-zero, makes the device endpoint answer with
	// this status and DeviceError as the OAuth error code.
	DeviceStatus int
	DeviceError  string

	// TokenScript is replayed in order; the last step repeats once exhausted.
	TokenScript []TokenStep

	// SessionTTL is the lifetime of sessions reported by /api/me.
	SessionTTL time.Duration
}

type idpSession struct {
	id     string
	user   IdPUser
	expiry time.Time
}

// IdPServer is a scripted identity provider implementing the device
// authorization endpoints and the session lookup used by atom.
type IdPServer struct {
	*httptest.Server

	mu             sync.Mutex
	config         IdPConfig
	step           int
	tokenRequests  int
	deviceRequests int
	meRequests     int
	lastForm       map[string]string
	sessions       map[string]idpSession
}

// NewIdPServer starts a mock provider. Call Close when done.
func NewIdPServer(cfg IdPConfig) *IdPServer {
	if cfg.UserCode == "" {
		cfg.UserCode = "ABCD-1234"
	}
	if cfg.ExpiresIn == 0 {
		cfg.ExpiresIn = 900
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}

	s := &IdPServer{
		config:   cfg,
		sessions: make(map[string]idpSession),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(IdPDeviceCodePath, s.handleDeviceCode)
	mux.HandleFunc(IdPTokenPath, s.handleToken)
	mux.HandleFunc(IdPSessionPath, s.handleSession)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddSession registers token as a live session for user.
func (s *IdPServer) AddSession(token, sessionID string, user IdPUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = idpSession{id: sessionID, user: user, expiry: time.Now().Add(s.config.SessionTTL)}
}

// SetTokenScript replaces the token script and rewinds it.
func (s *IdPServer) SetTokenScript(steps ...TokenStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.TokenScript = steps
	s.step = 0
}

// TokenRequests returns how many times the token endpoint was called.
func (s *IdPServer) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

// DeviceRequests returns how many device codes were requested.
func (s *IdPServer) DeviceRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceRequests
}

// SessionRequests returns how many session lookups were served.
func (s *IdPServer) SessionRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meRequests
}

// LastForm returns the form values of the most recent POST.
func (s *IdPServer) LastForm() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.lastForm))
	for k, v := range s.lastForm {
		out[k] = v
	}
	return out
}

func (s *IdPServer) recordForm(r *http.Request) {
	_ = r.ParseForm()
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	s.lastForm = form
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *IdPServer) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceRequests++
	s.recordForm(r)

	if s.config.DeviceStatus != 0 {
		body := map[string]string{}
		if s.config.DeviceError != "" {
			body["error"] = s.config.DeviceError
			body["error_description"] = "rejected by mock"
		}
		writeJSON(w, s.config.DeviceStatus, body)
		return
	}

	if s.config.ClientID != "" && r.PostForm.Get("client_id") != s.config.ClientID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client"})
		return
	}

	resp := map[string]any{
		"device_code":      "device-code-1",
		"user_code":        s.config.UserCode,
		"verification_uri": s.URL + "/device",
		"expires_in":       s.config.ExpiresIn,
	}
	if s.config.Interval > 0 {
		resp["interval"] = s.config.Interval
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *IdPServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenRequests++
	s.recordForm(r)

	if len(s.config.TokenScript) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "authorization_pending"})
		return
	}

	idx := s.step
	if idx >= len(s.config.TokenScript) {
		idx = len(s.config.TokenScript) - 1
	} else {
		s.step++
	}
	step := s.config.TokenScript[idx]

	if step.Error != "" {
		status := step.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": step.Error})
		return
	}
	if step.Status >= http.StatusInternalServerError {
		http.Error(w, "upstream unavailable", step.Status)
		return
	}

	expiresIn := step.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  step.AccessToken,
		"refresh_token": "refresh-" + step.AccessToken,
		"token_type":    "Bearer",
		"scope":         "openid profile email",
		"expires_in":    expiresIn,
	})
}

func (s *IdPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meRequests++

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	sess, ok := s.sessions[token]
	if !ok || time.Now().After(sess.expiry) {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": sess.user,
		"session": map[string]any{
			"id":        sess.id,
			"token":     token,
			"userId":    sess.user.ID,
			"expiresAt": sess.expiry.UTC().Format(time.RFC3339),
		},
	})
}
