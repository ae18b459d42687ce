package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quest-lookout/internal/audio"
	"quest-lookout/internal/headset"
	"quest-lookout/internal/journal"
	app "quest-lookout/internal/lookout/application"
	lookouthttp "quest-lookout/internal/lookout/interfaces/http"
	"quest-lookout/internal/observability/metrics"
	"quest-lookout/internal/settings"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	doc, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		logger.Fatalf("settings error: %v", err)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = doc.LogFile
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatalf("log file error: %v", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	metrics.Init()

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Fatalf("journal open error: %v", err)
	}
	defer jrnl.Close()

	sessionID, err := jrnl.StartSession(time.Now().UTC())
	if err != nil {
		logger.Fatalf("journal session error: %v", err)
	}
	logger.Printf("session %s started", sessionID)

	sampler := headset.NewMQTTSampler(headset.MQTTConfig{
		Broker:     cfg.MQTTBroker,
		Port:       cfg.MQTTPort,
		Topic:      cfg.MQTTTopic,
		Username:   cfg.MQTTUsername,
		Password:   cfg.MQTTPassword,
		UseTLS:     cfg.MQTTUseTLS,
		StaleAfter: cfg.MQTTStaleAfter,
	}, logger)
	if err := sampler.Start(); err != nil {
		logger.Fatalf("headset connect error: %v", err)
	}
	defer sampler.Close()

	sink := audio.NewConsoleSink(logger)
	broker := lookouthttp.NewSSEBroker()
	recorder := journal.NewRecorder(jrnl, sessionID, logger.Printf)
	notifier := app.NewMultiNotifier(app.NewLogNotifier(logger), recorder, broker)

	engine, err := app.NewEngine(doc, sampler, sink,
		app.WithNotifier(notifier),
		app.WithLogger(logger),
		app.WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		logger.Fatalf("engine error: %v", err)
	}

	handler, err := lookouthttp.NewHandler(engine, cfg.SettingsPath, logger)
	if err != nil {
		logger.Fatalf("handler error: %v", err)
	}
	reportHandler, err := lookouthttp.NewReportHandler(jrnl, logger)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/status", handler)
	mux.Handle("/api/v1/reload", handler)
	mux.Handle("/api/v1/events/stream", lookouthttp.NewStreamHandler(broker))
	mux.Handle("/api/v1/sessions/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		logger.Printf("engine stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if err := jrnl.EndSession(sessionID, time.Now().UTC()); err != nil {
		logger.Printf("journal session close error: %v", err)
	}
	logger.Printf("session %s ended", sessionID)
}

type config struct {
	SettingsPath   string
	JournalPath    string
	LogFile        string
	HTTPAddr       string
	PollInterval   time.Duration
	MQTTBroker     string
	MQTTPort       int
	MQTTTopic      string
	MQTTUsername   string
	MQTTPassword   string
	MQTTUseTLS     bool
	MQTTStaleAfter time.Duration
}

func loadConfig() config {
	cfg := config{
		SettingsPath:   getenvDefault("SETTINGS_PATH", "settings.yaml"),
		JournalPath:    getenvDefault("JOURNAL_PATH", "lookout.db"),
		LogFile:        getenvDefault("LOG_FILE", ""),
		HTTPAddr:       getenvDefault("HTTP_ADDR", "127.0.0.1:8712"),
		PollInterval:   getenvDuration("POLL_INTERVAL", app.DefaultPollInterval),
		MQTTBroker:     getenvDefault("MQTT_BROKER", "127.0.0.1"),
		MQTTPort:       getenvIntDefault("MQTT_PORT", 1883),
		MQTTTopic:      getenvDefault("MQTT_TOPIC", "headset/pose"),
		MQTTUsername:   getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:   getenvDefault("MQTT_PASSWORD", ""),
		MQTTUseTLS:     getenvBoolDefault("MQTT_USE_TLS", false),
		MQTTStaleAfter: getenvDuration("MQTT_STALE_AFTER", 500*time.Millisecond),
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
