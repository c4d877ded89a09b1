package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	conf "github.com/bartek5186/mockapi2db/internal/config"
	"github.com/bartek5186/mockapi2db/internal/db"
	"github.com/bartek5186/mockapi2db/internal/importer"
	logs "github.com/bartek5186/mockapi2db/internal/logs"
	"github.com/bartek5186/mockapi2db/internal/metrics"
	"github.com/bartek5186/mockapi2db/internal/mockapi"
)

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

const (
	exitSetup  = 1
	exitImport = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mockapi2db", flag.ContinueOnError)
	profile := fs.String("profile", conf.ProfileEnv, "źródło ustawień bazy: env (DB_* / .env) albo static (stałe)")
	cfgPath := fs.String("config", "", "opcjonalny plik JSON z konfiguracją (tworzony, jeśli brak)")
	dateMode := fs.String("date-mode", "", "normalize | passthrough (nadpisuje config)")
	seed := fs.Int64("seed", 0, "seed losowania klient/produkty dla zamówień (0 = losowy)")
	logFile := fs.String("log-file", "", "plik logów (dopisywanie)")
	logLevel := fs.String("log-level", "info", "poziom logów: debug | info | warn | error")
	sqlLog := fs.Bool("sql-log", false, "loguj zapytania SQL gorma")
	metricsFile := fs.String("metrics-file", "", "zapisz metryki Prometheusa do pliku (textfile collector)")
	migrateOnly := fs.Bool("migrate-only", false, "tylko utwórz tabele i zakończ")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	// --- setup: każdy błąd tutaj kończy proces kodem 1 ---
	cfg, created, err := conf.Load(*profile, *cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ config:", err)
		return exitSetup
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date-mode":
			cfg.DateMode = *dateMode
		case "seed":
			cfg.Seed = *seed
		case "log-file":
			cfg.LogFile = *logFile
		case "metrics-file":
			cfg.MetricsFile = *metricsFile
		}
	})

	log, err := logs.New(cfg.LogFile, true, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ logi:", err)
		return exitSetup
	}
	if created {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", *cfgPath)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("niepoprawna konfiguracja")
		return exitSetup
	}

	runID := uuid.NewString()
	base := log
	log = log.With().Str("run_id", runID).Logger()
	log.Info().
		Str("version", ver).
		Str("profile", cfg.Profile).
		Str("driver", cfg.DB.Driver).
		Msg("🚀 Starting data import")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbh, err := db.Open(cfg.DB, *sqlLog)
	if err != nil {
		log.Error().Err(err).Msg("❌ DB open error")
		return exitSetup
	}
	defer dbh.Close()
	log.Info().Str("db", dbh.Target).Msg("✅ Connected to DB")

	log.Info().Msg("📦 Creating tables...")
	if err := dbh.Migrate(); err != nil {
		log.Error().Err(err).Msg("❌ DB migrate error")
		return exitSetup
	}
	log.Info().Msg("✅ Tables created")
	if *migrateOnly {
		return 0
	}

	// --- import: błąd wycofuje transakcję, kod 2 ---
	reg := metrics.NewRegistry()
	client := mockapi.NewClient(log, cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second)
	imp := importer.New(base, dbh.DB, client, importer.Options{
		DateMode:  cfg.DateMode,
		Seed:      cfg.Seed,
		BatchSize: cfg.BatchSize,
	}, reg)

	_, runErr := imp.Run(ctx, runID)
	writeMetrics(log, reg, cfg.MetricsFile)
	if runErr != nil {
		var se *mockapi.StatusError
		if errors.As(runErr, &se) {
			log.Error().Str("endpoint", se.Endpoint).Int("status", se.StatusCode).Msg("❌ API zwróciło błąd")
		}
		return exitImport
	}

	log.Info().Msg("✅ Data import completed.")
	return 0
}

func writeMetrics(log zerolog.Logger, reg *metrics.Registry, path string) {
	if path == "" {
		return
	}
	if err := reg.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("zapis metryk nieudany")
		return
	}
	log.Debug().Str("path", path).Msg("metryki zapisane")
}
