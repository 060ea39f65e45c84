package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-insights/internal/receipt"
	"github.com/zombor/receipt-insights/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("receipt-insights")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		publicURL     = fs.StringLong("public-url", "", "Externally reachable base URL (default http://localhost:<port>)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		dbPath        = fs.StringLong("db", "receipt-insights.db", "BoltDB file path")
		postgresDSN   = fs.StringLong("postgres-dsn", "", "PostgreSQL connection string; replaces BoltDB when set")
		storagePath   = fs.StringLong("storage", "./uploads", "Local storage directory path")
		gcsBucket     = fs.StringLong("gcs-bucket", "", "Google Cloud Storage bucket; replaces local storage when set")
		completerType = fs.StringLong("completer", "gemini", "AI provider: 'gemini', 'genai' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		vertexProject = fs.StringLong("vertex-project", "", "Vertex AI project for the genai provider")
		vertexRegion  = fs.StringLong("vertex-location", "us-central1", "Vertex AI location for the genai provider")
		imageByURI    = fs.BoolLong("image-by-uri", "Send the uploaded image URL instead of its bytes (genai provider)")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2.5vl, llama3.2-vision)")
		authUser      = fs.StringLong("auth-user", "", "Login username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Login password (optional)")
		sessionSecret = fs.StringLong("session-secret", "", "Secret used to sign session cookies (random when empty)")
		sessionTTL    = fs.DurationLong("session-ttl", 24*time.Hour, "Session cookie lifetime")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_INSIGHTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()
	if *publicURL == "" {
		*publicURL = fmt.Sprintf("http://localhost:%d", *port)
	}

	// Initialize database
	var db receipt.DB
	var err error
	if *postgresDSN != "" {
		slog.Info("Initializing PostgreSQL database...")
		db, err = receipt.NewPostgresDB(ctx, *postgresDSN)
	} else {
		slog.Info("Initializing database...", "path", *dbPath)
		db, err = receipt.NewBoltDB(*dbPath)
	}
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize completer based on type
	var completer scanning.Completer
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	switch *completerType {
	case "gemini":
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini completer...", "model", *geminiModel)
		completer, err = scanning.NewGemini(apiKey, *geminiModel)
	case "genai":
		slog.Info("Initializing GenAI completer...", "model", *geminiModel, "vertex_project", *vertexProject)
		completer, err = scanning.NewGenAI(ctx, scanning.GenAIConfig{
			APIKey:     apiKey,
			Model:      *geminiModel,
			Project:    *vertexProject,
			Location:   *vertexRegion,
			ImageByURI: *imageByURI,
		})
	case "ollama":
		slog.Info("Initializing Ollama completer...", "url", *ollamaURL, "model", *ollamaModel)
		completer, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid completer type", "type", *completerType, "valid", "gemini, genai or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize completer", "type", *completerType, "error", err)
		os.Exit(1)
	}
	defer completer.Close()

	// Initialize storage
	var store receipt.Storage
	if *gcsBucket != "" {
		slog.Info("Initializing GCS storage...", "bucket", *gcsBucket)
		gcs, err := receipt.NewGCSStorage(ctx, *gcsBucket)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		defer gcs.Close()
		store = gcs
	} else {
		slog.Info("Initializing storage...", "path", *storagePath)
		local, err := receipt.NewLocalStorage(*storagePath, strings.TrimSuffix(*publicURL, "/")+"/files")
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = local
	}

	auth, err := receipt.NewAuth(receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}, *sessionSecret, *sessionTTL)
	if err != nil {
		slog.Error("Failed to initialize auth", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, completer, store)
	server := receipt.NewServer(receiptService, receipt.NewSessions(), auth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", *publicURL, "version", version)
	if auth.Enabled() {
		slog.Info("Login enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
