// Package backendtest runs an in-process fake of the b3notifier backend for tests.
// It issues real HS256 JWTs, enforces bearer auth on private routes and records
// every request it receives.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Secret signs the tokens the fake issues.
var Secret = []byte("backendtest-secret")

// Asset is the fake's stored watchlist row. Prices are strings, as the real
// backend serializes decimals.
type Asset struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Periodicity  int    `json:"periodicity"`
	CurrentPrice string `json:"current_price"`
	LowerLimit   string `json:"lower_limit"`
	UpperLimit   string `json:"upper_limit"`
}

// Alert is the fake's stored alert row.
type Alert struct {
	ID        int64  `json:"id"`
	AssetName string `json:"asset_name"`
	AlertType string `json:"alert_type"`
	AlertDate string `json:"alert_date"`
	AlertTime string `json:"alert_time"`
}

// Request is one recorded request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type user struct {
	Username string
	Email    string
	Password string
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]*user
	otps      map[string]string
	assets    []Asset
	alerts    []Alert
	nextID    int64
	requests  []Request
	tokenTTL  time.Duration
	updatedAt time.Time

	// Hooks, set before use.
	TokenResponse   func(access, refresh string) map[string]string
	ProfileStatus   int
	AlertsStatus    int
	ProfileDelay    time.Duration
	QuoteLimits     [3]string
	StaleUpdateNote string
}

// New starts a fake backend. Close it with Server.Close.
func New() *Server {
	s := &Server{
		users:     make(map[string]*user),
		otps:      make(map[string]string),
		nextID:    1,
		tokenTTL:  time.Hour,
		updatedAt: time.Date(2025, 1, 28, 14, 20, 0, 0, time.UTC),
		QuoteLimits: [3]string{
			"29.00", "25.00", "30.00",
		},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/user/send-otp/", s.handleSendOTP)
	r.Post("/user/verify-otp/", s.handleVerifyOTP)
	r.Post("/user/register/", s.handleRegister)
	r.Post("/token/", s.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/user/profile/", s.handleProfile)
		r.Get("/stock/list/", s.handleListAssets)
		r.Post("/stock/create/", s.handleCreateAsset)
		r.Put("/stock/update/{id}/", s.handleUpdateAsset)
		r.Delete("/stock/delete/{id}/", s.handleDeleteAsset)
		r.Get("/stock/quote/", s.handleQuote)
		r.Get("/stocks/updates-info/", s.handleUpdatesInfo)
		r.Get("/alert/list/", s.handleListAlerts)
		r.Post("/alert/create/", s.handleCreateAlert)
	})
	return r
}

// --- fixtures ---

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &user{Username: username, Email: email, Password: password}
}

// SetAssets replaces the watchlist.
func (s *Server) SetAssets(assets ...Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = append([]Asset(nil), assets...)
	for _, a := range assets {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
}

// SetAlerts replaces the alert feed.
func (s *Server) SetAlerts(alerts ...Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append([]Alert(nil), alerts...)
}

// Alerts returns the stored alerts.
func (s *Server) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}

// Assets returns the stored assets.
func (s *Server) Assets() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Asset(nil), s.assets...)
}

// OTP returns the last code sent to email.
func (s *Server) OTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[email]
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the recorded requests whose path starts with prefix.
func (s *Server) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// IssueToken signs an access token for username, as /token/ would.
func (s *Server) IssueToken(username string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        username,
		"token_type": "access",
		"iat":        now.Unix(),
		"exp":        now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString(Secret)
	return signed
}

// --- middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.RequestURI(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type ctxUser struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return Secret, nil
		})
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		sub, _ := claims["sub"].(string)
		r.Header.Set("X-Fake-User", sub)
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Enter a valid email address."}})
		return
	}
	s.mu.Lock()
	s.otps[body.Email] = "123456"
	exists := false
	for _, u := range s.users {
		if u.Email == body.Email {
			exists = true
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Code sent.", "user_exists": exists})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	code, ok := s.otps[body.Email]
	if ok && code == body.OTP {
		delete(s.otps, body.Email)
	}
	s.mu.Unlock()
	if !ok || code != body.OTP {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid or expired code."}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Code verified."})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Password != body.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Passwords do not match."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var byEmail *user
	for _, u := range s.users {
		if u.Email == body.Email {
			byEmail = u
		}
	}
	if taken, ok := s.users[body.Username]; ok && taken != byEmail {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "This username is already in use."})
		return
	}
	if byEmail != nil {
		delete(s.users, byEmail.Username)
		byEmail.Username = body.Username
		byEmail.Password = body.Password
		s.users[body.Username] = byEmail
		writeJSON(w, http.StatusOK, map[string]string{"message": "User updated."})
		return
	}
	s.users[body.Username] = &user{Username: body.Username, Email: body.Email, Password: body.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Account created."})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	u, ok := s.users[body.Username]
	s.mu.Unlock()
	if !ok || u.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	access := s.IssueToken(u.Username)
	refresh := "refresh-" + u.Username
	if s.TokenResponse != nil {
		writeJSON(w, http.StatusOK, s.TokenResponse(access, refresh))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.ProfileDelay > 0 {
		time.Sleep(s.ProfileDelay)
	}
	if s.ProfileStatus != 0 {
		writeJSON(w, s.ProfileStatus, map[string]string{"detail": "profile unavailable"})
		return
	}
	username := r.Header.Get("X-Fake-User")
	s.mu.Lock()
	u, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": 1, "username": u.Username, "email": u.Email})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Assets())
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Periodicity int    `json:"periodicity"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "The 'name' field is required."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assets {
		if a.Name == body.Name {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "This asset is already being monitored."})
			return
		}
	}
	a := Asset{
		ID:           s.nextID,
		Name:         body.Name,
		Periodicity:  body.Periodicity,
		CurrentPrice: s.QuoteLimits[0],
		LowerLimit:   s.QuoteLimits[1],
		UpperLimit:   s.QuoteLimits[2],
	}
	s.nextID++
	s.assets = append(s.assets, a)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var body struct {
		Periodicity int `json:"periodicity"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].ID != id {
			continue
		}
		if body.Periodicity != 0 {
			s.assets[i].Periodicity = body.Periodicity
		}
		if s.StaleUpdateNote != "" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"message": s.StaleUpdateNote, "data": s.assets[i]})
			return
		}
		writeJSON(w, http.StatusOK, s.assets[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Asset not found."})
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].ID == id {
			s.assets = append(s.assets[:i], s.assets[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Asset removed."})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Asset not found!"})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	periodicity, _ := strconv.Atoi(r.URL.Query().Get("periodicity"))
	writeJSON(w, http.StatusOK, Asset{
		Name:         name,
		Periodicity:  periodicity,
		CurrentPrice: s.QuoteLimits[0],
		LowerLimit:   s.QuoteLimits[1],
		UpperLimit:   s.QuoteLimits[2],
	})
}

func (s *Server) handleUpdatesInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_update":                    s.updatedAt.Format(time.RFC3339),
		"next_update":                    s.updatedAt.Add(5 * time.Minute).Format(time.RFC3339),
		"time_until_next_update_seconds": 125,
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if s.AlertsStatus != 0 {
		writeJSON(w, s.AlertsStatus, map[string]string{"error": "alerts unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, s.Alerts())
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var body Alert
	_ = json.NewDecoder(r.Body).Decode(&body)
	switch body.AlertType {
	case "addition", "removal", "edition", "buy_suggestion", "sell_suggestion":
	default:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"alert_type": {fmt.Sprintf("\"%s\" is not a valid choice.", body.AlertType)}})
		return
	}
	s.mu.Lock()
	body.ID = int64(len(s.alerts) + 1)
	// newest first, as the real feed orders by timestamp descending
	s.alerts = append([]Alert{body}, s.alerts...)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
