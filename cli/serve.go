package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vnkhanh/erp-questionnaire/config"
	"github.com/vnkhanh/erp-questionnaire/controllers"
	"github.com/vnkhanh/erp-questionnaire/middleware"
	"github.com/vnkhanh/erp-questionnaire/routes"
	"github.com/vnkhanh/erp-questionnaire/storage"
	"github.com/vnkhanh/erp-questionnaire/utils"
)

// NewServeCmd builds the CLI subcommand to start the HTTP server.
func NewServeCmd(configPath *string) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the questionnaire API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	tokens, err := utils.NewTokenIssuer(cfg.Auth.JWTSecret, config.Duration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}
	admins := utils.Credentials{}
	for _, u := range cfg.Auth.Admins {
		admins[u.Username] = u.PasswordHash
	}
	if len(admins) == 0 {
		a.log.Warn("no admin users configured")
	}

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(a.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	r.MaxMultipartMemory = cfg.Upload.MaxBytes

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.SubmitPerMinute, cfg.RateLimit.Burst, 10*time.Minute)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go limiter.Run(limiterCtx)

	deps := controllers.Deps{
		Store:          a.store,
		Catalog:        a.catalog,
		Submitter:      a.submitter,
		Progress:       a.progress,
		Exporter:       a.exporter,
		Importer:       a.importer,
		Tokens:         tokens,
		Admins:         admins,
		UploadMaxBytes: cfg.Upload.MaxBytes,
		Logger:         a.log,
	}
	if mem, ok := a.blobs.(*storage.Memory); ok {
		deps.Files = mem
	}
	h := controllers.New(deps)
	routes.SetupRoutes(r, h, tokens, limiter)

	port := portFlag
	if port == "" {
		port = cfg.Server.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", slog.String("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		a.log.Info("shutting down server")
	case <-ctx.Done():
		a.log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	a.exporter.Wait()
	return err
}
