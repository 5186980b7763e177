package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"portfolio/internal/captcha"
	"portfolio/internal/config"
	"portfolio/internal/guard"
	"portfolio/internal/metrics"
	"portfolio/internal/middleware"
	"portfolio/internal/models"
	"portfolio/internal/rate"
	"portfolio/internal/service"
	"portfolio/internal/util"
	"portfolio/internal/version"
)

const maxBodyBytes = 64 << 10

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
	captcha captcha.Verifier
}

func NewRouter(cfg config.Config, svc *service.Service, m *metrics.Metrics) http.Handler {
	h := &Handlers{
		cfg:     cfg,
		svc:     svc,
		limiter: rate.NewLimiter(),
		captcha: captcha.New(cfg),
	}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(cfg.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))

	// Preflights are answered by cors; any other OPTIONS gets an empty 200 too.
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		util.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", middleware.RequestID(r.Context()))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		util.WriteError(w, http.StatusNotFound, "not found", middleware.RequestID(r.Context()))
	})

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]any{"status": "ok", "version": version.Current()})
	})
	r.Get("/health/ready", h.Ready)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	window := cfg.RateLimitWindow()
	r.With(middleware.RateLimit(h.limiter, "login", cfg.LoginRateLimit, window, cfg.TrustProxy)).Post("/admin-login", h.Login)
	r.With(middleware.RateLimit(h.limiter, "register", cfg.RegisterRateLimit, window, cfg.TrustProxy)).Post("/admin-register", h.Register)
	r.Get("/admin-session", h.Session)
	r.Post("/admin-logout", h.Logout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authn(h.svc))
		r.Post("/invitations", h.CreateInvitation)
	})
	return r
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
	if len(origins) == 0 {
		// An empty list means allow-all to cors; here it means allow none.
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
	}
	return opts
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"checked_at": time.Now().UTC().Format(time.RFC3339)}
	if err := h.svc.Ping(r.Context()); err != nil {
		log.Printf("ready store_ping_failed request_id=%s err=%v", middleware.RequestID(r.Context()), err)
		out["status"] = "degraded"
		out["store"] = map[string]any{"ok": false}
		util.WriteJSON(w, 503, out)
		return
	}
	out["status"] = "ready"
	out["store"] = map[string]any{"ok": true}
	util.WriteJSON(w, 200, out)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success      bool                 `json:"success"`
	SessionToken string               `json:"sessionToken"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	User         models.PublicAccount `json:"user"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err, http.StatusUnauthorized)
		return
	}
	util.WriteJSON(w, 200, loginResponse{Success: true, SessionToken: res.SessionToken, ExpiresAt: res.ExpiresAt, User: res.User})
}

type registerRequest struct {
	InvitationCode string `json:"invitationCode"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	CaptchaToken   string `json:"captchaToken"`
}

type registeredUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.verifyCaptcha(w, r, req.CaptchaToken) {
		return
	}
	in := service.RegisterInput{InvitationCode: req.InvitationCode, Username: req.Username, Email: req.Email, Password: req.Password}
	if complete(in) {
		if err := h.svc.CheckPassword(in.Password); err != nil {
			h.fail(w, r, err, http.StatusBadRequest)
			return
		}
	}
	a, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, http.StatusBadRequest)
		return
	}
	util.WriteJSON(w, 200, map[string]any{
		"success": true,
		"message": "registration successful",
		"user":    registeredUser{ID: a.ID, Username: a.Username, Email: a.Email},
	})
}

func (h *Handlers) verifyCaptcha(w http.ResponseWriter, r *http.Request, token string) bool {
	rid := middleware.RequestID(r.Context())
	err := h.captcha.Verify(r.Context(), token, middleware.ClientIP(r, h.cfg.TrustProxy))
	switch {
	case err == nil:
		return true
	case errors.Is(err, captcha.ErrUnavailable):
		log.Printf("register captcha_unavailable request_id=%s err=%v", rid, err)
		util.WriteError(w, http.StatusServiceUnavailable, "captcha verification unavailable", rid)
	default:
		util.WriteError(w, http.StatusBadRequest, "captcha verification failed", rid)
	}
	return false
}

func complete(in service.RegisterInput) bool {
	for _, v := range []string{in.InvitationCode, in.Username, in.Email} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return in.Password != ""
}

func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	rid := middleware.RequestID(r.Context())
	token := middleware.BearerToken(r)
	if token == "" {
		util.WriteError(w, http.StatusUnauthorized, "authentication required", rid)
		return
	}
	a, err := h.svc.ActiveSession(r.Context(), token)
	if errors.Is(err, guard.ErrNoSession) {
		util.WriteError(w, http.StatusUnauthorized, "invalid session", rid)
		return
	}
	if err != nil {
		h.fail(w, r, err, http.StatusUnauthorized)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"success": true, "user": a})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		if err := h.svc.EndSession(r.Context(), token); err != nil {
			log.Printf("logout delete_failed request_id=%s err=%v", middleware.RequestID(r.Context()), err)
		}
	}
	util.WriteJSON(w, 200, map[string]bool{"success": true})
}

type invitationRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	TTLHours int    `json:"ttlHours"`
}

func (h *Handlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TTLHours < 0 {
		util.WriteError(w, http.StatusBadRequest, "ttlHours must be positive", middleware.RequestID(r.Context()))
		return
	}
	admin, ok := middleware.Account(r.Context())
	if !ok || admin.ID == "" {
		util.WriteError(w, http.StatusUnauthorized, "authentication required", middleware.RequestID(r.Context()))
		return
	}
	inv, err := h.svc.CreateInvitation(r.Context(), service.CreateInvitationInput{
		Email:     req.Email,
		Code:      req.Code,
		TTL:       time.Duration(req.TTLHours) * time.Hour,
		CreatedBy: admin.ID,
	})
	if err != nil {
		h.fail(w, r, err, http.StatusBadRequest)
		return
	}
	util.WriteJSON(w, 201, map[string]any{
		"success": true,
		"invitation": map[string]any{
			"code":      inv.Code,
			"email":     inv.Email,
			"expiresAt": inv.ExpiresAt,
		},
	})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid json"
		if errors.Is(err, io.EOF) {
			msg = "request body required"
		}
		util.WriteError(w, http.StatusBadRequest, msg, middleware.RequestID(r.Context()))
		return false
	}
	return true
}

// fail writes err with the status for its kind. authStatus is the status
// used for auth failures, which differs between login and registration.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, authStatus int) {
	rid := middleware.RequestID(r.Context())
	status := statusFor(err, authStatus)
	if status == http.StatusInternalServerError {
		log.Printf("request_failed request_id=%s path=%s err=%v", rid, r.URL.Path, err)
	}
	util.WriteError(w, status, service.Message(err), rid)
}

func statusFor(err error, authStatus int) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuth):
		return authStatus
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
