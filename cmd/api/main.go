package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvael/provision-api/internal/bootstrap"
	"github.com/corvael/provision-api/internal/controller"
	"github.com/corvael/provision-api/internal/provider"
	"github.com/corvael/provision-api/internal/repository/postgres"
	"github.com/corvael/provision-api/internal/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "provision-api", "provision")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	userRepo := postgres.NewUserRepository(app.Pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(app.Pool)

	// --- Services ---
	verifier := provider.NewStripeVerifier(app.Config.Stripe.SecretKey)
	signInIssuer := service.NewJWTLinkIssuer(app.Config.SignIn)
	provisionService := service.NewProvisionService(
		userRepo,
		subscriptionRepo,
		verifier,
		signInIssuer,
		app.Metrics,
	)

	// --- Router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		ProvisionService: provisionService,
		Limiter:          app.Limiter,
		Metrics:          app.Metrics,
		Logger:           app.Logger,
		CORSConfig:       app.Config.Server.CORS,
		EnableTracing:    app.Config.Observability.EnableTracing,
	})

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-quit:
			app.Logger.Info().Msg("Shutting down server...")
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Fatal().Err(err).Msg("Server error")
	}
	app.Logger.Info().Msg("Server exited")
}
