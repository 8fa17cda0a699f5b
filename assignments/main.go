package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/activos-labs/activos-go/internal/platform/assignpolicy"
	"github.com/activos-labs/activos-go/internal/platform/auditlog"
	"github.com/activos-labs/activos-go/internal/platform/auth"
	"github.com/activos-labs/activos-go/internal/platform/env"
	"github.com/activos-labs/activos-go/internal/platform/httpserver"
	"github.com/activos-labs/activos-go/internal/platform/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("ASSIGNMENTS_HTTP_ADDR", ":8083")
	shutdownTimeout, err := env.Duration("ASSIGNMENTS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var policy *assignpolicy.Spec
	if policyFile := env.String("ASSIGNMENTS_POLICY_FILE", ""); policyFile != "" {
		raw, err := os.ReadFile(policyFile)
		if err != nil {
			logger.Error("policy file unreadable", "path", policyFile, "error", err)
			os.Exit(2)
		}
		spec, err := assignpolicy.ParseSpec(raw)
		if err != nil {
			logger.Error("invalid policy file", "path", policyFile, "error", err)
			os.Exit(2)
		}
		policy = &spec
		logger.Info("assignment policy loaded", "path", policyFile, "rules", len(spec.Rules))
	}

	internalAuthSecret := env.String("ACTIVOS_INTERNAL_AUTH_SECRET", "")
	headersAuth, err := auth.NewGatewayHeadersAuthenticator(internalAuthSecret)
	if err != nil {
		logger.Error("invalid internal auth config", "error", err)
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("assignments"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"assignments",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
		),
	)

	api := newAssignmentsAPI(logger, db, policy)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: headersAuth,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "assignments", event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "assignments",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "assignments", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
