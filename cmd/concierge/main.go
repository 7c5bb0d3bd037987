package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/olkaphoto/concierge/internal/bot"
	"github.com/olkaphoto/concierge/internal/flow"
	"github.com/olkaphoto/concierge/internal/genai"
	"github.com/olkaphoto/concierge/internal/kb"
	"github.com/olkaphoto/concierge/internal/leadlog"
	"github.com/olkaphoto/concierge/internal/lockfile"
	"github.com/olkaphoto/concierge/internal/messaging"
	"github.com/olkaphoto/concierge/internal/models"
	"github.com/olkaphoto/concierge/internal/store"
	"github.com/olkaphoto/concierge/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for concierge state data
	DefaultStateDir = "/var/lib/concierge"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "concierge.db"
	// DefaultLeadsFileName is the default CSV lead log filename
	DefaultLeadsFileName = "leads.csv"
	// DefaultDialogFileName is the default dialogue audit log filename
	DefaultDialogFileName = "dialog_log.txt"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if *flags.botToken == "" {
		slog.Error("BOT_TOKEN is empty; set it in the environment or .env")
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var completer flow.Completer
	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Error("Failed to initialize GenAI client", "error", err)
			os.Exit(1)
		}
		completer = client
	} else {
		slog.Warn("OPENAI_API_KEY is empty; model-backed chat is disabled")
	}

	msg, err := messaging.NewTelegramService(*flags.botToken, telegramOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize Telegram transport", "error", err)
		os.Exit(1)
	}

	knowledge := kb.New()
	leads := leadlog.New(filepath.Join(*flags.stateDir, DefaultLeadsFileName))
	dialog := bot.NewDialogLog(filepath.Join(*flags.stateDir, DefaultDialogFileName))

	survey := flow.NewSurvey(st, leads, msg, *flags.ownerID)
	pipeline := flow.NewPipeline(st, knowledge, completer, msg, dialog, kb.Facts, *flags.historyCap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping concierge bot",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"owner_set", *flags.ownerID != 0,
		"model_enabled", completer != nil)
	if err := bot.New(msg, st, survey, pipeline, dialog).Run(ctx); err != nil {
		slog.Error("Concierge bot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Concierge bot exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken   string
	OpenAIKey  string
	OwnerID    int64
	DBDSN      string
	StateDir   string
	HistoryCap int
	Debug      bool
}

// Flags holds command line flag values
type Flags struct {
	botToken   *string
	openaiKey  *string
	ownerID    *int64
	dbDSN      *string
	stateDir   *string
	historyCap *int
	tgDebug    *bool
}

// initializeLogger sets up structured logging; debug level when
// CONCIERGE_DEBUG is set.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CONCIERGE_DEBUG", false) {
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
		BotToken:   os.Getenv("BOT_TOKEN"),
		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		OwnerID:    util.ParseInt64Env("OWNER_ID", 0),
		DBDSN:      os.Getenv("DATABASE_URL"),
		StateDir:   os.Getenv("CONCIERGE_STATE_DIR"),
		HistoryCap: util.ParseIntEnv("HISTORY_CAP", models.DefaultHistoryCap),
		Debug:      util.ParseBoolEnv("TELEGRAM_DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CONCIERGE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DBDSN)
	}

	slog.Debug("environment variables loaded",
		"BOT_TOKEN_SET", config.BotToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OWNER_ID_SET", config.OwnerID != 0,
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"CONCIERGE_STATE_DIR", config.StateDir,
		"HISTORY_CAP", config.HistoryCap)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		botToken:   flag.String("bot-token", config.BotToken, "Telegram bot token (overrides $BOT_TOKEN)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		ownerID:    flag.Int64("owner-id", config.OwnerID, "Telegram chat id notified about new leads (overrides $OWNER_ID)"),
		dbDSN:      flag.String("db-dsn", config.DBDSN, "database DSN: SQLite path or PostgreSQL URL (overrides $DATABASE_URL)"),
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for concierge data (overrides $CONCIERGE_STATE_DIR)"),
		historyCap: flag.Int("history-cap", config.HistoryCap, "max per-user conversation history length (overrides $HISTORY_CAP)"),
		tgDebug:    flag.Bool("telegram-debug", config.Debug, "verbose Telegram API logging (overrides $TELEGRAM_DEBUG)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"botTokenSet", *flags.botToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"ownerSet", *flags.ownerID != 0,
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"historyCap", *flags.historyCap)

	// Track the state dir if the DSN was left at the derived default
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildStore selects the store backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// telegramOptions constructs transport configuration options.
func telegramOptions(flags Flags) []messaging.Option {
	var opts []messaging.Option
	if *flags.tgDebug {
		opts = append(opts, messaging.WithDebug())
	}
	return opts
}
