package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/agent"
	"github.com/Kjdragan/codescribe/internal/auth"
	"github.com/Kjdragan/codescribe/internal/db"
	"github.com/Kjdragan/codescribe/internal/extract"
	"github.com/Kjdragan/codescribe/internal/handlers"
	"github.com/Kjdragan/codescribe/internal/logger"
	"github.com/Kjdragan/codescribe/internal/notifier"
	"github.com/Kjdragan/codescribe/internal/oauth"
	"github.com/Kjdragan/codescribe/internal/repl"
	"github.com/Kjdragan/codescribe/internal/store"
)

const usage = `Usage: codescribe [command]

Commands:
  agent        interactive customer agent (default)
  setup-db     create the customers table and seed sample data
  serve        run the HTTP API
  extract      run the entity extraction demo
  oauth        obtain Google OAuth credentials for the extraction demo
  oauth clear  delete the stored OAuth token
  help         show this message
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: cfg.LogPretty})

	cmd := "agent"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "agent":
		err = runAgent(ctx, cfg, log)
	case "setup-db":
		err = runSetupDB(ctx, cfg, log)
	case "serve":
		err = runServe(ctx, cfg, log)
	case "extract":
		err = runExtract(ctx, cfg)
	case "oauth":
		err = runOAuth(ctx, cfg, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}

// connect opens the database, creates the schema and seeds it when empty.
// Seeding problems are not fatal.
func connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	conn, err := db.Open(cfg.Database, cfg.Debug)
	if err != nil {
		return nil, err
	}
	if err := db.SetupSchema(ctx, conn); err != nil {
		return nil, err
	}
	if _, err := db.Seed(ctx, conn); err != nil {
		log.Warn().Err(err).Msg("seeding failed, the database might already be seeded")
	}
	return conn, nil
}

func buildAgent(cfg *config.Config, customers *store.CustomerStore, n notifier.Notifier) (*agent.Agent, error) {
	if err := cfg.ValidateModel(); err != nil {
		return nil, err
	}

	registry := agent.NewRegistry(agent.CustomerTools(customers, n.CustomerCreated)...)
	a := agent.New(agent.NewOpenAIModel(cfg.Model), registry, agent.Options{
		ToolRetries:   cfg.Model.ToolRetries,
		MaxIterations: cfg.Model.MaxIterations,
	})
	return a, nil
}

func runAgent(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	conn, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}

	n, err := notifier.New(ctx, cfg.Email)
	if err != nil {
		return err
	}
	a, err := buildAgent(cfg, store.NewCustomerStore(conn), n)
	if err != nil {
		return err
	}

	repl.New(a, repl.Options{Name: cfg.ProjectName}).Start(ctx)
	return nil
}

func runSetupDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	conn, err := db.Open(cfg.Database, cfg.Debug)
	if err != nil {
		return err
	}
	if err := db.SetupSchema(ctx, conn); err != nil {
		return err
	}

	inserted, err := db.Seed(ctx, conn)
	if err != nil {
		log.Warn().Err(err).Msg("seeding failed, the database might already be seeded")
		return nil
	}
	if inserted == 0 {
		fmt.Println("Database already contains customers, skipping seed.")
		return nil
	}
	fmt.Printf("Database setup complete, inserted %d sample customers.\n", inserted)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.Server.ValidateSession(); err != nil {
		return err
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	customers := store.NewCustomerStore(conn)

	authenticator, err := auth.New(ctx, cfg.Server)
	if err != nil {
		return err
	}
	if cfg.Server.AuthDisabled {
		log.Warn().Msg("authentication is disabled, the API is open to anyone")
	}

	n, err := notifier.New(ctx, cfg.Email)
	if err != nil {
		return err
	}

	deps := handlers.RouterDeps{
		SessionSecret: cfg.Server.SessionSecret,
		Auth:          authenticator,
		Customers:     handlers.NewCustomerHandler(customers, n),
	}
	if cfg.Model.APIKey != "" {
		a, err := buildAgent(cfg, customers, n)
		if err != nil {
			return err
		}
		deps.Agent = handlers.NewAgentHandler(a)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, /api/agent/query is disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}

func runExtract(ctx context.Context, cfg *config.Config) error {
	client, err := extract.New(ctx, cfg.Extraction)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nMake sure you have:")
		fmt.Println("1. Set GOOGLE_API_KEY (or LANGEXTRACT_API_KEY) in your environment")
		fmt.Println("2. Or set GOOGLE_GENAI_USE_VERTEXAI=true with GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION and GOOGLE_APPLICATION_CREDENTIALS")
		return err
	}

	if cfg.Extraction.UseVertexAI {
		fmt.Printf("Configured for Vertex AI (project %s, location %s)\n", cfg.Extraction.VertexProject(), cfg.Extraction.Location)
	} else {
		fmt.Println("Configured for AI Studio with API key")
	}

	// an extraction failure is reported but does not fail the command
	_ = extract.RunDemo(ctx, client, cfg.Extraction.ModelID, os.Stdout)
	return nil
}

func runOAuth(ctx context.Context, cfg *config.Config, args []string) error {
	helper := oauth.NewHelper(cfg.OAuth.ProjectRoot)

	if len(args) > 0 && args[0] == "clear" {
		removed, err := helper.Clear()
		if err != nil {
			return err
		}
		if removed {
			fmt.Println("Cleared stored credentials")
		} else {
			fmt.Println("No stored credentials to clear")
		}
		return nil
	}

	path, err := helper.SetupEnvironment(ctx)
	if err != nil {
		fmt.Println("OAuth2 setup failed.")
		if errors.Is(err, oauth.ErrNoCredentials) {
			fmt.Printf("Make sure you have downloaded %s from Google Cloud Console:\n", helper.CredentialsPath())
			fmt.Println("https://console.cloud.google.com/apis/credentials")
		}
		return err
	}

	fmt.Println("OAuth2 setup successful!")
	fmt.Printf("Point GOOGLE_APPLICATION_CREDENTIALS at %s and set GOOGLE_GENAI_USE_VERTEXAI=true to use Vertex AI.\n", path)
	return nil
}
