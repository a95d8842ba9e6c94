// ClinicFlow bridges WhatsApp conversations to a clinic's appointment
// calendar, bookkeeping spreadsheet and AI assistant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicflow/clinicflow/internal/api"
	"github.com/clinicflow/clinicflow/internal/flow"
	"github.com/clinicflow/clinicflow/internal/gcal"
	"github.com/clinicflow/clinicflow/internal/genai"
	"github.com/clinicflow/clinicflow/internal/gsheets"
	"github.com/clinicflow/clinicflow/internal/twiliowhatsapp"
	"github.com/clinicflow/clinicflow/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultTimezone is the timezone appointments are booked in.
	DefaultTimezone = "America/Caracas"
	// DefaultBackend is the messaging backend used when none is configured.
	DefaultBackend = "cloudapi"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	loc, err := time.LoadLocation(*flags.timezone)
	if err != nil {
		slog.Error("Invalid timezone", "error", err, "timezone", *flags.timezone)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := buildGateway(flags)
	if err != nil {
		slog.Error("Failed to create messaging gateway", "error", err, "backend", *flags.backend)
		os.Exit(1)
	}

	knowledge, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to create knowledge client", "error", err)
		os.Exit(1)
	}

	calendarClient, err := gcal.NewClient(ctx, buildCalendarOptions(flags, loc)...)
	if err != nil {
		slog.Error("Failed to create calendar client", "error", err)
		os.Exit(1)
	}
	sheetClient, err := gsheets.NewClient(ctx, buildSheetOptions(flags)...)
	if err != nil {
		slog.Error("Failed to create sheets client", "error", err)
		os.Exit(1)
	}

	states := flow.NewInMemoryStateStore(resolveIdleTimeout(flags))
	defer states.Stop()
	timer := flow.NewUserTimer()
	defer timer.Stop()

	dispatcher := flow.NewDispatcher(
		gateway,
		knowledge,
		&bookingStore{calendar: calendarClient, sheet: sheetClient},
		states,
		timer,
		buildDispatcherOptions(flags, loc)...,
	)

	server, err := api.NewServer(dispatcher, buildAPIOptions(flags, calendarClient)...)
	if err != nil {
		slog.Error("Failed to create API server", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping ClinicFlow", "backend", *flags.backend, "timezone", loc.String())
	if err := server.Run(ctx); err != nil {
		slog.Error("ClinicFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ClinicFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	Backend           string
	APIAddr           string
	VerifyToken       string
	Timezone          string
	OpenRouterKey     string
	OpenRouterModel   string
	MinSeparation     string
	IdleTimeout       string
	MenuDelay         string
	GoogleCredentials string
	CalendarID        string
	SheetID           string
	LogLevel          string
}

// Flags holds command line flag values
type Flags struct {
	backend       *string
	apiAddr       *string
	verifyToken   *string
	timezone      *string
	openRouterKey *string
	model         *string
	minSeparation *string
	idleTimeout   *string
	menuDelay     *string
	credentials   *string
	calendarID    *string
	sheetID       *string
}

// initializeLogger sets up structured logging, honoring $LOG_LEVEL.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
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
		Backend:           os.Getenv("MESSAGING_BACKEND"),
		APIAddr:           os.Getenv("API_ADDR"),
		VerifyToken:       os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		Timezone:          os.Getenv("BOOKING_TIMEZONE"),
		OpenRouterKey:     os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   os.Getenv("OPENROUTER_MODEL"),
		MinSeparation:     os.Getenv("BOOKING_MIN_SEPARATION"),
		IdleTimeout:       os.Getenv("STATE_IDLE_TIMEOUT"),
		MenuDelay:         os.Getenv("MENU_FOLLOWUP_DELAY"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		CalendarID:        os.Getenv("GOOGLE_CALENDAR_ID"),
		SheetID:           os.Getenv("GOOGLE_SHEET_ID"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}

	if config.Backend == "" {
		config.Backend = DefaultBackend
		slog.Debug("No MESSAGING_BACKEND set, using default", "backend", config.Backend)
	}
	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
		slog.Debug("No BOOKING_TIMEZONE set, using default", "timezone", config.Timezone)
	}

	slog.Debug("environment variables loaded",
		"MESSAGING_BACKEND", config.Backend,
		"API_ADDR", config.APIAddr,
		"WEBHOOK_VERIFY_TOKEN_SET", config.VerifyToken != "",
		"BOOKING_TIMEZONE", config.Timezone,
		"OPENROUTER_API_KEY_SET", config.OpenRouterKey != "",
		"BOOKING_MIN_SEPARATION", config.MinSeparation,
		"GOOGLE_CALENDAR_ID", config.CalendarID,
		"GOOGLE_SHEET_ID_SET", config.SheetID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		backend:       flag.String("backend", config.Backend, "messaging backend, cloudapi or twilio (overrides $MESSAGING_BACKEND)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken:   flag.String("verify-token", config.VerifyToken, "webhook verification token (overrides $WEBHOOK_VERIFY_TOKEN)"),
		timezone:      flag.String("timezone", config.Timezone, "booking timezone (overrides $BOOKING_TIMEZONE)"),
		openRouterKey: flag.String("openrouter-api-key", config.OpenRouterKey, "OpenRouter API key (overrides $OPENROUTER_API_KEY)"),
		model:         flag.String("model", config.OpenRouterModel, "OpenRouter model identifier (overrides $OPENROUTER_MODEL)"),
		minSeparation: flag.String("min-separation", config.MinSeparation, "minimum separation between appointments, e.g. 30m (overrides $BOOKING_MIN_SEPARATION)"),
		idleTimeout:   flag.String("idle-timeout", config.IdleTimeout, "idle time before an unfinished conversation expires (overrides $STATE_IDLE_TIMEOUT)"),
		menuDelay:     flag.String("menu-delay", config.MenuDelay, "pause before the follow-up menu is resent (overrides $MENU_FOLLOWUP_DELAY)"),
		credentials:   flag.String("google-credentials", config.GoogleCredentials, "Google service account credentials file (overrides $GOOGLE_APPLICATION_CREDENTIALS)"),
		calendarID:    flag.String("calendar-id", config.CalendarID, "Google Calendar id (overrides $GOOGLE_CALENDAR_ID)"),
		sheetID:       flag.String("sheet-id", config.SheetID, "Google Sheets spreadsheet id (overrides $GOOGLE_SHEET_ID)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"backend", *flags.backend,
		"apiAddr", *flags.apiAddr,
		"verifyTokenSet", *flags.verifyToken != "",
		"timezone", *flags.timezone,
		"openRouterKeySet", *flags.openRouterKey != "",
		"model", *flags.model,
		"minSeparation", *flags.minSeparation,
		"idleTimeout", *flags.idleTimeout,
		"calendarID", *flags.calendarID,
		"sheetIDSet", *flags.sheetID != "")

	return flags
}

// resolveIdleTimeout parses the configured idle timeout, falling back to the
// flow default.
func resolveIdleTimeout(flags Flags) time.Duration {
	if *flags.idleTimeout == "" {
		return flow.DefaultIdleTimeout
	}
	d, err := time.ParseDuration(*flags.idleTimeout)
	if err != nil {
		slog.Warn("Invalid STATE_IDLE_TIMEOUT, using default", "error", err, "value", *flags.idleTimeout)
		return flow.DefaultIdleTimeout
	}
	return d
}

// buildGateway selects and constructs the messaging backend.
func buildGateway(flags Flags) (flow.Gateway, error) {
	switch strings.ToLower(*flags.backend) {
	case "twilio":
		return twiliowhatsapp.NewClient()
	default:
		return whatsapp.NewClient()
	}
}

// buildGenAIOptions constructs knowledge client configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openRouterKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openRouterKey))
	}
	if *flags.model != "" {
		opts = append(opts, genai.WithModel(*flags.model))
	}
	return opts
}

// buildCalendarOptions constructs calendar client configuration options
func buildCalendarOptions(flags Flags, loc *time.Location) []gcal.Option {
	opts := []gcal.Option{gcal.WithLocation(loc)}
	if *flags.credentials != "" {
		opts = append(opts, gcal.WithCredentialsFile(*flags.credentials))
	}
	if *flags.calendarID != "" {
		opts = append(opts, gcal.WithCalendarID(*flags.calendarID))
	}
	return opts
}

// buildSheetOptions constructs sheets client configuration options
func buildSheetOptions(flags Flags) []gsheets.Option {
	var opts []gsheets.Option
	if *flags.credentials != "" {
		opts = append(opts, gsheets.WithCredentialsFile(*flags.credentials))
	}
	if *flags.sheetID != "" {
		opts = append(opts, gsheets.WithSpreadsheetID(*flags.sheetID))
	}
	return opts
}

// buildDispatcherOptions constructs dispatcher configuration options
func buildDispatcherOptions(flags Flags, loc *time.Location) []flow.Option {
	opts := []flow.Option{flow.WithLocation(loc)}
	if *flags.minSeparation != "" {
		sep, err := time.ParseDuration(*flags.minSeparation)
		if err != nil {
			slog.Warn("Invalid BOOKING_MIN_SEPARATION, using default", "error", err, "value", *flags.minSeparation)
		} else {
			opts = append(opts, flow.WithMinSeparation(sep))
		}
	}
	if *flags.menuDelay != "" {
		delay, err := time.ParseDuration(*flags.menuDelay)
		if err != nil {
			slog.Warn("Invalid MENU_FOLLOWUP_DELAY, using default", "error", err, "value", *flags.menuDelay)
		} else {
			opts = append(opts, flow.WithMenuFollowUpDelay(delay))
		}
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, canceler api.EventCanceler) []api.Option {
	opts := []api.Option{api.WithEventCanceler(canceler)}
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		opts = append(opts, api.WithVerifyToken(*flags.verifyToken))
	}
	return opts
}
