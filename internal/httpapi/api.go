package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tradedesk.org/internal/authz"
	"tradedesk.org/internal/identity"
	"tradedesk.org/internal/obs"
	"tradedesk.org/internal/oidc"
	"tradedesk.org/internal/stream"
	"tradedesk.org/internal/trade"
)

// ReadyProbe checks downstream readiness (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	table       *authz.Table
	trades      trade.Service
	users       identity.Store
	provisioner *identity.Provisioner
	sso         *oidc.Provider
	stream      *stream.Stream
	readyProbe  ReadyProbe
	version     string
}

type Options struct {
	Table       *authz.Table
	Trades      trade.Service
	Users       identity.Store
	Provisioner *identity.Provisioner
	SSO         *oidc.Provider
	Stream      *stream.Stream
	ReadyProbe  ReadyProbe
	Version     string
}

func New(opts Options) *API {
	a := &API{
		mux:         http.NewServeMux(),
		table:       opts.Table,
		trades:      opts.Trades,
		users:       opts.Users,
		provisioner: opts.Provisioner,
		sso:         opts.SSO,
		stream:      opts.Stream,
		readyProbe:  opts.ReadyProbe,
		version:     opts.Version,
	}
	if a.table == nil {
		a.table = authz.DefaultTable()
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// OIDC login flow
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/callback", a.handleCallback)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)

	// trade workflow
	a.mux.HandleFunc("/v1/trades", a.handleTradesCollection)
	a.mux.HandleFunc("/v1/trades/stream", a.StreamTrades)
	a.mux.HandleFunc("/v1/trades/", a.handleTradeResource)

	// caller profile
	a.mux.HandleFunc("/v1/me", a.handleProfile)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wires the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 100, 50)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tradedesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tradedesk-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func handleTradeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trade.ErrInvalidSymbol),
		errors.Is(err, trade.ErrInvalidSide),
		errors.Is(err, trade.ErrInvalidQuantity),
		errors.Is(err, trade.ErrInvalidPrice):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, trade.ErrStatusConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, trade.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
