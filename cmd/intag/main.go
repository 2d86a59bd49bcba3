package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hylla/intag/internal/adapters/publish"
	"github.com/hylla/intag/internal/adapters/server/httpapi"
	"github.com/hylla/intag/internal/adapters/storage/sqlite"
	"github.com/hylla/intag/internal/app"
	"github.com/hylla/intag/internal/config"
	"github.com/hylla/intag/internal/domain"
	"github.com/hylla/intag/internal/platform"
)

// version stores a package-level helper value.
var version = "dev"

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("intag", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		addr       string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("INTAG_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("INTAG_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "intag"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&addr, "addr", "", "listen address for serve")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "intag %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "serve", "seed":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("INTAG_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("INTAG_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	defaultCfg := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if strings.TrimSpace(addr) != "" {
		cfg.Server.Addr = addr
	}

	logger := newLogger(stderr, appName, cfg.Logging.Level)
	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	var publisher app.Publisher
	if cfg.Shopify.Enabled {
		client, err := publish.NewClient(cfg.Shopify.ShopDomain, cfg.Shopify.AccessToken, logger)
		if err != nil {
			return fmt.Errorf("configure shopify client: %w", err)
		}
		publisher = client
		logger.Info("external publishing enabled", "shop_domain", cfg.Shopify.ShopDomain)
	} else {
		logger.Info("external publishing disabled")
	}

	svc := app.NewService(repo, repo, publisher, uuid.NewString, time.Now, logger, app.ServiceConfig{
		SLAOffset: time.Duration(cfg.SLA.OffsetHours) * time.Hour,
	})
	logger.Debug("application service initialized", "sla_offset_hours", cfg.SLA.OffsetHours)

	switch command {
	case "seed":
		logger.Info("command flow start", "command", "seed")
		if err := runSeed(ctx, svc, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "seed", "err", err)
			return fmt.Errorf("run seed command: %w", err)
		}
		logger.Info("command flow complete", "command", "seed")
		return nil
	default:
		logger.Info("command flow start", "command", "serve")
		if err := runServe(ctx, svc, cfg.Server.Addr, logger); err != nil {
			logger.Error("command flow failed", "command", "serve", "err", err)
			return fmt.Errorf("run serve command: %w", err)
		}
		logger.Info("command flow complete", "command", "serve")
		return nil
	}
}

// runServe hosts the REST API until the context is canceled or a shutdown
// signal arrives.
func runServe(ctx context.Context, svc *app.Service, addr string, logger *charmLog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", httpapi.NewHandler(svc)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

// runSeed bootstraps one user per workflow role so a fresh install has
// actors for every permission path.
func runSeed(ctx context.Context, svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("intag seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		domainPart string
		password   string
	)
	fs.StringVar(&domainPart, "email-domain", "example.com", "email domain for seeded users")
	fs.StringVar(&password, "password", "", "shared password for seeded users (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("seed requires -password")
	}

	seeds := []struct {
		username string
		role     domain.Role
	}{
		{"admin", domain.RoleSuperAdmin},
		{"manager", domain.RoleWarehouseManager},
		{"editor", domain.RoleEditor},
		{"auditor", domain.RoleAuditor},
	}
	for _, seed := range seeds {
		user, err := svc.CreateUser(ctx, app.CreateUserInput{
			Username: seed.username,
			Email:    fmt.Sprintf("%s@%s", seed.username, domainPart),
			Password: password,
			Role:     seed.role,
		})
		if err != nil {
			if errors.Is(err, app.ErrUsernameTaken) || errors.Is(err, app.ErrEmailTaken) {
				_, _ = fmt.Fprintf(stdout, "skip %s: already present\n", seed.username)
				continue
			}
			return fmt.Errorf("seed user %s: %w", seed.username, err)
		}
		_, _ = fmt.Fprintf(stdout, "created %s (%s) id=%s\n", user.Username, user.Role, user.ID)
	}
	return nil
}

// newLogger builds the runtime logger at the configured level.
func newLogger(w io.Writer, appName, level string) *charmLog.Logger {
	logger := charmLog.NewWithOptions(w, charmLog.Options{
		ReportTimestamp: true,
		Prefix:          appName,
	})
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "debug":
		logger.SetLevel(charmLog.DebugLevel)
	case "warn":
		logger.SetLevel(charmLog.WarnLevel)
	case "error":
		logger.SetLevel(charmLog.ErrorLevel)
	default:
		logger.SetLevel(charmLog.InfoLevel)
	}
	return logger
}

// firstArg returns the first positional argument, if any.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

// parseBoolEnv reads one boolean environment variable.
func parseBoolEnv(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return parsed, true
}
