package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/castellan-bot/castellan/internal/bot"
	"github.com/castellan-bot/castellan/internal/kingshot"
	"github.com/castellan-bot/castellan/internal/messaging"
	"github.com/castellan-bot/castellan/internal/ocr"
	"github.com/castellan-bot/castellan/internal/redeem"
	"github.com/castellan-bot/castellan/internal/schedule"
	"github.com/castellan-bot/castellan/internal/store"
	"github.com/castellan-bot/castellan/internal/translate"
	"github.com/castellan-bot/castellan/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Castellan state data
	DefaultStateDir = "/var/lib/castellan"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "castellan.db"
	// DefaultPumpInterval is how often due notifications are checked
	DefaultPumpInterval = time.Minute
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("Castellan failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Castellan exited successfully")
}

// Config holds environment configuration
type Config struct {
	DiscordToken  string
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	KingshotURL   string
	SchemaFile    string
	PumpInterval  time.Duration
	AutoTranslate bool
}

// Flags holds command line flag values
type Flags struct {
	discordToken  *string
	dbDSN         *string
	openaiKey     *string
	kingshotURL   *string
	schemaFile    *string
	pumpInterval  *time.Duration
	autoTranslate *bool
}

// initializeLogger sets up structured logging; debug level behind CASTELLAN_DEBUG
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CASTELLAN_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("CASTELLAN_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		KingshotURL:   os.Getenv("KINGSHOT_API_URL"),
		SchemaFile:    os.Getenv("OCR_SCHEMA_FILE"),
		PumpInterval:  util.ParseDurationEnv("PUMP_INTERVAL", DefaultPumpInterval),
		AutoTranslate: util.ParseBoolEnv("AUTO_TRANSLATE", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CASTELLAN_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DISCORD_TOKEN_SET", config.DiscordToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CASTELLAN_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"KINGSHOT_API_URL", config.KingshotURL,
		"OCR_SCHEMA_FILE", config.SchemaFile,
		"PUMP_INTERVAL", config.PumpInterval,
		"AUTO_TRANSLATE", config.AutoTranslate)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		discordToken:  flag.String("discord-token", config.DiscordToken, "Discord bot token (overrides $DISCORD_TOKEN)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the redemption ledger (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		kingshotURL:   flag.String("kingshot-api-url", config.KingshotURL, "game API base URL (overrides $KINGSHOT_API_URL)"),
		schemaFile:    flag.String("ocr-schema-file", config.SchemaFile, "OCR schema registry YAML (overrides $OCR_SCHEMA_FILE)"),
		pumpInterval:  flag.Duration("pump-interval", config.PumpInterval, "due notification poll interval (overrides $PUMP_INTERVAL)"),
		autoTranslate: flag.Bool("auto-translate", config.AutoTranslate, "auto-translate ordinary chat messages to English (overrides $AUTO_TRANSLATE)"),
	}
	flag.Parse()

	slog.Debug("flags parsed",
		"discordTokenSet", *flags.discordToken != "",
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"kingshotURL", *flags.kingshotURL,
		"schemaFile", *flags.schemaFile,
		"pumpInterval", *flags.pumpInterval,
		"autoTranslate", *flags.autoTranslate)

	return flags
}

// buildStore selects a storage backend from the DSN.
func buildStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

func run(flags Flags) error {
	st, err := buildStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	var kingshotOpts []kingshot.Option
	if *flags.kingshotURL != "" {
		kingshotOpts = append(kingshotOpts, kingshot.WithBaseURL(*flags.kingshotURL))
	}
	apiClient := kingshot.NewClient(kingshotOpts...)
	coordinator := redeem.NewCoordinator(st, apiClient)

	var translator *translate.Translator
	var extractor *ocr.Extractor
	if *flags.openaiKey != "" {
		translator, err = translate.NewTranslator(translate.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		ocrOpts := []ocr.Option{ocr.WithAPIKey(*flags.openaiKey)}
		if *flags.schemaFile != "" {
			ocrOpts = append(ocrOpts, ocr.WithSchemaFile(*flags.schemaFile))
		}
		extractor, err = ocr.NewExtractor(ocrOpts...)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("OPENAI_API_KEY not set, translation and OCR commands disabled")
	}

	msgService, err := messaging.NewDiscordService(*flags.discordToken)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := msgService.Start(ctx); err != nil {
		return err
	}
	defer msgService.Stop()

	schedules := schedule.NewStore()
	pump := schedule.NewPump(schedules, schedule.DispatcherFunc(msgService.SendMessage), *flags.pumpInterval)
	if err := pump.Start(ctx); err != nil {
		return err
	}
	defer pump.Stop()

	// translator/extractor are optional; pass nil interfaces only when unset.
	var botTranslator bot.Translator
	if translator != nil {
		botTranslator = translator
	}
	var botExtractor bot.Extractor
	if extractor != nil {
		botExtractor = extractor
	}

	b := bot.New(msgService, st, coordinator, schedules, apiClient, botTranslator, botExtractor,
		bot.WithAutoTranslate(*flags.autoTranslate))
	go b.Run(ctx)

	slog.Info("Castellan is running", "pumpInterval", *flags.pumpInterval)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	slog.Info("Shutdown signal received")
	cancel()
	return nil
}
