package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/SEBSEB62/KAYE-sub000/internal/analytics"
	"github.com/SEBSEB62/KAYE-sub000/internal/service"
)

const maxJSONBody = 1 << 20

type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

type API struct {
	service      *service.Service
	auth         *AuthManager
	origins      []string
	logger       *slog.Logger
	now          func() time.Time
	validate     *validator.Validate
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &API{
		service:      svc,
		auth:         auth,
		origins:      opts.AllowedOrigins,
		logger:       opts.Logger.With("component", "http"),
		now:          opts.Now,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(a.accessLog)
	router.Use(middleware.Recoverer)
	router.Use(securityHeaders)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/healthz", a.handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", a.handleRegister)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Route("/products", a.productRoutes)
			r.Get("/stock-history", a.handleStockHistory)
			r.Route("/cart", a.cartRoutes)
			r.With(a.requireLicence).Post("/checkout", a.handleCheckout)
			r.Route("/sales", a.saleRoutes)

			r.Route("/donations", a.donationRoutes)
			r.Route("/manual-refunds", a.manualRefundRoutes)
			r.Route("/safe-deposits", a.safeDepositRoutes)
			r.Route("/cash-outs", a.cashOutRoutes)

			r.Route("/settings", a.settingsRoutes)
			r.Route("/team", a.teamRoutes)
			r.Route("/reports", a.reportRoutes)
			r.Route("/backup", a.backupRoutes)
			r.Route("/license", a.licenceRoutes)
		})
	})

	return router
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": a.now().UTC().Format(time.RFC3339),
	})
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(startedAt),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// decodeJSON reads a bounded JSON body into dest and runs its validate tags.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := a.validate.Struct(dest); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New("invalid request: " + strings.Join(msgs, ", "))
}

// parseRange reads the from/to query parameters as calendar days in loc. A
// missing bound leaves that side open; no bounds at all means all time.
func parseRange(r *http.Request, loc *time.Location) (*analytics.DateRange, error) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" && to == "" {
		return nil, nil
	}

	var out analytics.DateRange
	if from != "" {
		start, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q", from)
		}
		out.Start = start
	}
	if to != "" {
		end, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q", to)
		}
		out.End = end
	}
	if !out.Start.IsZero() && !out.End.IsZero() && out.End.Before(out.Start) {
		return nil, errors.New("to date is before from date")
	}
	return &out, nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 500s get a generic message so that driver errors and paths never reach
	// the client. Other statuses carry the message meant for the operator.
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// fail maps err to its status with statusFor and writes it.
func fail(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
