package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gkash-app/gkash/internal/auth"
	"github.com/gkash-app/gkash/internal/config"
	"github.com/gkash-app/gkash/internal/directory"
	"github.com/gkash-app/gkash/internal/ledger"
	"github.com/gkash-app/gkash/internal/metrics"
	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
	"github.com/gkash-app/gkash/internal/server"
	"github.com/gkash-app/gkash/internal/storage"
	"github.com/gkash-app/gkash/internal/storage/sqlite"
	"github.com/gkash-app/gkash/internal/voice"
	"github.com/gkash-app/gkash/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	if err := seedAccounts(context.Background(), store); err != nil {
		slog.Error("Failed to seed accounts", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	l := ledger.New(store)
	d := directory.New(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPINAuthenticator(store)

	remote := voice.NewRemoteClient(cfg.VoiceAPIKey)
	assistant := &voice.Assistant{
		Transcriber:       remote,
		Responder:         remote,
		FallbackResponder: voice.NewLocalResponder(),
		Synthesizer:       remote,
	}

	srv := server.New(l, d, authenticator, jwtManager, assistant, m)
	router := srv.Router(registry)

	// h2c serves HTTP/2 without TLS for local and in-cluster clients.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("Server starting", "address", addr, "env", cfg.Env)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// seedAccounts creates the demo merchant and payer on first run. Existing
// databases are left untouched.
func seedAccounts(ctx context.Context, store storage.Store) error {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		return nil
	}

	merchantPIN, err := auth.HashPIN(envOr("MERCHANT_PIN", "1111"))
	if err != nil {
		return err
	}
	payerPIN, err := auth.HashPIN(envOr("PAYER_PIN", "2222"))
	if err != nil {
		return err
	}

	seed := []*models.Account{
		{ID: 1, Name: "Koffee Shop MNL", Role: models.RoleMerchant, Balance: 0, PINHash: merchantPIN},
		{ID: 2, Name: "Joshua Miguel", Role: models.RolePayer, Balance: money.Amount(50000), PINHash: payerPIN},
	}
	for _, account := range seed {
		if err := store.CreateAccount(ctx, account); err != nil {
			return err
		}
		slog.Info("Seeded account",
			"id", account.ID,
			"name", account.Name,
			"role", account.Role,
			"balance", account.Balance.String(),
		)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
