// internal/config/config.go
package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProfileStatic = "static" // stałe wpisane w kod
	ProfileEnv    = "env"    // DB_* ze środowiska (+ .env)

	DateNormalize   = "normalize"   // ISO-8601 -> "YYYY-MM-DD HH:MM:SS", NULL gdy się nie da
	DatePassthrough = "passthrough" // surowy string z API

	DefaultBaseURL = "https://681b6c5e17018fe5057b864b.mockapi.io/api/v1"
)

// APIConfig opisuje źródło danych (MockAPI)
type APIConfig struct {
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeout_sec"`
}

// DBConfig - dane połączenia; DSN (jeśli podany) wygrywa z resztą pól
type DBConfig struct {
	Driver    string `json:"driver"` // mysql | postgres | sqlite | sqlite3
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Name      string `json:"name"` // dla sqlite: ścieżka do pliku
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`
	DSN       string `json:"dsn,omitempty"`
}

// Config to główna struktura konfiguracyjna importu
type Config struct {
	Profile     string    `json:"-"`
	API         APIConfig `json:"api"`
	DB          DBConfig  `json:"db"`
	DateMode    string    `json:"date_mode"`
	Seed        int64     `json:"seed"` // 0 = losowy seed przy każdym uruchomieniu
	BatchSize   int       `json:"batch_size"`
	LogFile     string    `json:"log_file,omitempty"`
	MetricsFile string    `json:"metrics_file,omitempty"`
}

// Defaults zwraca konfigurację domyślną dla profilu.
func Defaults(profile string) (*Config, error) {
	cfg := &Config{
		Profile:   profile,
		API:       APIConfig{BaseURL: DefaultBaseURL, TimeoutSec: 30},
		BatchSize: 500,
	}
	switch profile {
	case ProfileStatic:
		cfg.DB = DBConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     6000,
			User:     "mockapi_user",
			Password: "mockapiuserpass",
			Name:     "mockapi_db",
		}
		cfg.DateMode = DatePassthrough
	case ProfileEnv:
		cfg.DB = DBConfig{
			Driver:    "mysql",
			Host:      "localhost",
			Port:      3306,
			User:      "root",
			Name:      "test",
			Charset:   "utf8mb4",
			Collation: "utf8mb4_general_ci",
		}
		cfg.DateMode = DateNormalize
	default:
		return nil, fmt.Errorf("nieznany profil %q (dozwolone: %s, %s)", profile, ProfileStatic, ProfileEnv)
	}
	return cfg, nil
}

// Load składa konfigurację: domyślne profilu -> plik JSON (opcjonalnie) -> .env/zmienne środowiskowe (profil env).
// Zwraca true, jeśli plik konfiguracyjny został właśnie utworzony.
func Load(profile, path string) (*Config, bool, error) {
	cfg, err := Defaults(profile)
	if err != nil {
		return nil, false, err
	}

	created := false
	if path != "" {
		created, err = LoadOrCreate(path, cfg)
		if err != nil {
			return nil, false, err
		}
	}

	if profile == ProfileEnv {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("błąd wczytywania .env: %w", err)
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, false, err
		}
	}

	return cfg, created, nil
}

// LoadOrCreate nakłada plik JSON na cfg lub zapisuje cfg jako nowy plik, gdy go brak.
func LoadOrCreate(path string, cfg *Config) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := Save(path, cfg); err != nil {
				return false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return true, nil
		}
		return false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	return false, nil
}

// Save zapisuje config do pliku
func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// ApplyEnv nadpisuje pola wartościami ze środowiska. Puste zmienne są pomijane,
// poza DB_PASSWORD, które może być celowo puste.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && (v != "" || key == "DB_PASSWORD") {
			*dst = v
		}
	}
	set("DB_DRIVER", &c.DB.Driver)
	set("DB_HOST", &c.DB.Host)
	set("DB_USER", &c.DB.User)
	set("DB_PASSWORD", &c.DB.Password)
	set("DB_NAME", &c.DB.Name)
	set("DB_DSN", &c.DB.DSN)
	set("MOCKAPI_BASE_URL", &c.API.BaseURL)

	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DB_PORT=%q nie jest liczbą: %w", v, err)
		}
		c.DB.Port = port
	}
	return nil
}

// Validate sprawdza spójność konfiguracji przed połączeniem z bazą.
func (c *Config) Validate() error {
	switch c.DateMode {
	case DateNormalize, DatePassthrough:
	default:
		return fmt.Errorf("date_mode %q nieobsługiwany (dozwolone: %s, %s)", c.DateMode, DateNormalize, DatePassthrough)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url jest pusty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size musi być > 0 (jest %d)", c.BatchSize)
	}

	switch c.DB.Driver {
	case "mysql", "postgres":
		if c.DB.DSN != "" {
			return nil
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			return fmt.Errorf("db.port %d poza zakresem", c.DB.Port)
		}
		if c.DB.Host == "" || c.DB.Name == "" {
			return errors.New("db.host i db.name są wymagane")
		}
	case "sqlite", "sqlite3":
		if c.DB.DSN == "" && c.DB.Name == "" {
			return errors.New("db.name (ścieżka pliku) jest wymagane dla sqlite")
		}
	default:
		return fmt.Errorf("db.driver %q nieobsługiwany", c.DB.Driver)
	}
	return nil
}
