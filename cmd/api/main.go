package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"tradedesk.org/internal/authz"
	"tradedesk.org/internal/httpapi"
	"tradedesk.org/internal/identity"
	"tradedesk.org/internal/obs"
	"tradedesk.org/internal/oidc"
	pgstore "tradedesk.org/internal/store/pg"
	"tradedesk.org/internal/stream"
	"tradedesk.org/internal/trade"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

type authzMetrics struct{}

func (authzMetrics) Decision(action string, _ authz.Subject, allowed bool) {
	obs.ObserveAuthzDecision(action, allowed)
}

func main() {
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		db     *sql.DB
		trades trade.Service
		users  identity.Store
	)
	if dsn := os.Getenv("TRADEDESK_PG_DSN"); dsn != "" {
		store, err := pgstore.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = store.DB()
		trades = store.Trades()
		users = store.Users()
	} else {
		trades = trade.NewInMemory()
		users = identity.NewInMemory()
	}

	provisioner, err := identity.NewProvisioner(users)
	if err != nil {
		log.Fatalf("provisioner: %v", err)
	}

	var sso *oidc.Provider
	if issuer := os.Getenv("TRADEDESK_OIDC_ISSUER"); issuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sso, err = oidc.New(ctx, oidc.Config{
			IssuerURL:          issuer,
			ClientID:           os.Getenv("TRADEDESK_OIDC_CLIENT_ID"),
			ClientSecret:       os.Getenv("TRADEDESK_OIDC_CLIENT_SECRET"),
			RedirectURL:        os.Getenv("TRADEDESK_OIDC_REDIRECT_URL"),
			PostLogoutRedirect: os.Getenv("TRADEDESK_OIDC_POST_LOGOUT_URL"),
			Scopes:             splitList(os.Getenv("TRADEDESK_OIDC_SCOPES")),
		})
		cancel()
		if err != nil {
			log.Fatalf("oidc discovery: %v", err)
		}
	}

	api := httpapi.New(httpapi.Options{
		Table:       authz.DefaultTable(authz.WithObserver(authzMetrics{})),
		Trades:      trades,
		Users:       users,
		Provisioner: provisioner,
		SSO:         sso,
		Stream:      stream.New(),
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Version:     version,
	})

	addr := os.Getenv("TRADEDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tradedesk-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
