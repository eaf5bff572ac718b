// Command zonectl runs the control-plane process: it authenticates
// SigV4-signed requests, serves zone CRUD over HTTP, and — when an
// anycast VIP is configured — announces it over BGP while the backend
// nameserver fleet stays reachable.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/riverstone-dns/zonectl/internal/adapters/api"
	"github.com/riverstone-dns/zonectl/internal/adapters/cache"
	"github.com/riverstone-dns/zonectl/internal/adapters/repository"
	"github.com/riverstone-dns/zonectl/internal/adapters/routing"
	"github.com/riverstone-dns/zonectl/internal/config"
	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	"github.com/riverstone-dns/zonectl/internal/core/services"
	"github.com/riverstone-dns/zonectl/internal/crypto"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Warn("could not ping database at startup", "error", err)
	}

	repo := repository.NewPostgresRepository(db)

	var algebra domain.CryptoAlgebra = domain.NoopCryptoAlgebra{}
	if cfg.EncryptUserSecrets {
		a, err := crypto.NewAESGCMAlgebra(cfg.CryptoKeyHex)
		if err != nil {
			log.Fatalf("failed to initialize crypto algebra: %v", err)
		}
		algebra = a
	}

	var principals ports.AuthPrincipalProvider = repo
	if cfg.RedisAddr != "" {
		principals = cache.NewCachedPrincipalProvider(repo, cfg.RedisAddr, 5*time.Minute)
	}

	authenticator := services.NewAuthenticator(principals, algebra, cfg.EncryptUserSecrets, logger)
	zones := services.NewZoneService(repo, algebra, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.AnycastVIP != "" {
		bgp := routing.NewGoBGPAdapter(logger)
		if cfg.BGPRouterID != "" {
			bgp.SetConfig(cfg.BGPRouterID, 0, "")
		}
		vipManager := routing.NewSystemVIPAdapter(logger)

		if err := bgp.Start(ctx, cfg.BGPLocalASN, cfg.BGPPeerASN, cfg.BGPPeerIP); err != nil {
			logger.Error("failed to start BGP speaker, anycast will not announce", "error", err)
		} else {
			health := services.NewAnycastHealthManager(repo, algebra, bgp, vipManager,
				cfg.AnycastVIP, cfg.AnycastInterface, cfg.AnycastAccount, logger)
			go health.Start(ctx)
		}
	}

	apiHandler := api.NewAPIHandler(zones, repo, logger)
	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux, authenticator)

	server := &http.Server{Addr: cfg.HTTPListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during HTTP server shutdown", "error", err)
		}
	}()

	fmt.Printf("zonectl listening on %s\n", cfg.HTTPListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
