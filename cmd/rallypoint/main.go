package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/rallypointza/rallypoint/internal/api"
	"github.com/rallypointza/rallypoint/internal/flow"
	"github.com/rallypointza/rallypoint/internal/location"
	"github.com/rallypointza/rallypoint/internal/messaging"
	"github.com/rallypointza/rallypoint/internal/store"
	"github.com/rallypointza/rallypoint/internal/whatsapp"
)

const (
	// DefaultStateDir is the default directory for Rallypoint state data.
	DefaultStateDir = "/var/lib/rallypoint"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "rallypoint.db"
	// DefaultSessionDBFileName is the default whatsmeow session database
	// filename.
	DefaultSessionDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	st, err := openStore(flags)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	chatService, err := buildChatService(flags)
	if err != nil {
		slog.Error("failed to build chat service", "error", err)
		os.Exit(1)
	}

	engineOpts := []flow.Option{
		flow.WithLocationResolver(location.NewResolver()),
		flow.WithShareSender(chatService),
	}

	smsService := buildSMSService(flags)
	if smsService != nil {
		engineOpts = append(engineOpts, flow.WithWelcomeSender(smsService))
	}

	engine := flow.NewEngine(st, st, st, engineOpts...)

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(st, engine, chatService, apiOpts...)

	slog.Info("bootstrapping Rallypoint")
	if err := server.Run(); err != nil {
		slog.Error("Rallypoint failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Rallypoint exited")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL string
	SessionDSN  string
	StateDir    string
	APIAddr     string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// Flags holds command line flag values.
type Flags struct {
	qrOutput    *string
	numeric     *bool
	stateDir    *string
	dbDSN       *string
	sessionDSN  *string
	apiAddr     *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
	mockChat    *bool
}

// initializeLogger sets up structured logging with debug level.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and a
// .env file when present.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SessionDSN:  os.Getenv("WHATSAPP_SESSION_DSN"),
		StateDir:    os.Getenv("RALLYPOINT_STATE_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("no RALLYPOINT_STATE_DIR set, using default", "state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("no DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.SessionDSN == "" {
		config.SessionDSN = filepath.Join(config.StateDir, DefaultSessionDBFileName)
		slog.Debug("no WHATSAPP_SESSION_DSN provided, defaulting to SQLite", "sqlite_path", config.SessionDSN)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_SESSION_DSN_SET", config.SessionDSN != "",
		"RALLYPOINT_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for Rallypoint data (overrides $RALLYPOINT_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the main store (overrides $DATABASE_URL)"),
		sessionDSN:  flag.String("session-dsn", config.SessionDSN, "database DSN for the WhatsApp session (overrides $WHATSAPP_SESSION_DSN)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:   flag.String("twilio-sid", config.TwilioSID, "Twilio account SID for welcome SMS (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: flag.String("twilio-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  flag.String("twilio-from", config.TwilioFrom, "Twilio sending number (overrides $TWILIO_FROM_NUMBER)"),
		mockChat:    flag.Bool("mock-chat", false, "use a mock WhatsApp client instead of connecting"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"state_dir", *flags.stateDir,
		"db_dsn_set", *flags.dbDSN != "",
		"session_dsn_set", *flags.sessionDSN != "",
		"api_addr", *flags.apiAddr,
		"mock_chat", *flags.mockChat)

	// Follow a moved state directory when the DSNs were derived from it.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		if *flags.sessionDSN == filepath.Join(config.StateDir, DefaultSessionDBFileName) {
			*flags.sessionDSN = filepath.Join(*flags.stateDir, DefaultSessionDBFileName)
		}
	}

	return flags
}

// openStore picks the store backend from the DSN.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildChatService constructs the WhatsApp delivery service.
func buildChatService(flags Flags) (messaging.Service, error) {
	if *flags.mockChat {
		slog.Info("using mock WhatsApp client")
		return messaging.NewWhatsAppService(whatsapp.NewMockClient()), nil
	}

	var waOpts []whatsapp.Option
	if *flags.sessionDSN != "" {
		waOpts = append(waOpts, whatsapp.WithSessionDSN(*flags.sessionDSN))
	}
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}

	client, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return nil, err
	}
	return messaging.NewWhatsAppService(client), nil
}

// buildSMSService constructs the Twilio SMS service for campaign welcome
// texts. Welcome texts are optional; missing credentials disable them.
func buildSMSService(flags Flags) messaging.Service {
	if *flags.twilioSID == "" || *flags.twilioToken == "" || *flags.twilioFrom == "" {
		slog.Info("Twilio credentials not configured, welcome SMS disabled")
		return nil
	}
	sms, err := messaging.NewSMSService(
		messaging.WithAccountSID(*flags.twilioSID),
		messaging.WithAuthToken(*flags.twilioToken),
		messaging.WithFromNumber(*flags.twilioFrom),
	)
	if err != nil {
		slog.Warn("failed to build SMS service, welcome SMS disabled", "error", err)
		return nil
	}
	return sms
}
