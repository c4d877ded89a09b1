package db

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	conf "github.com/bartek5186/mockapi2db/internal/config"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	Target string // host:port/baza albo ścieżka pliku - do logów, bez hasła
}

// Open łączy się z bazą wskazaną w konfiguracji. sqlLog=true włącza logowanie zapytań gorma.
func Open(cfg conf.DBConfig, sqlLog bool) (*Handle, error) {
	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if sqlLog {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("połączenie z %s (%s): %w", cfg.Driver, target, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite(cfg.Driver) {
		// jedno połączenie - bez "database is locked" przy transakcji
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s (%s): %w", cfg.Driver, target, err)
	}

	return &Handle{DB: gdb, Driver: cfg.Driver, Target: target}, nil
}

func (h *Handle) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg conf.DBConfig) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = MySQLDSN(cfg)
		}
		return mysql.Open(dsn), hostTarget(cfg), nil
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = PostgresDSN(cfg)
		}
		return postgres.Open(dsn), hostTarget(cfg), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Name + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
		return sqlite.Open(dsn), cfg.Name, nil
	case "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Name + "?_foreign_keys=on&_busy_timeout=5000"
		}
		return cgosqlite.Open(dsn), cfg.Name, nil
	default:
		return nil, "", fmt.Errorf("nieobsługiwany sterownik bazy %q", cfg.Driver)
	}
}

// MySQLDSN buduje DSN dla go-sql-driver; charset/collation odpowiadają SET NAMES przy połączeniu.
func MySQLDSN(cfg conf.DBConfig) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	if cfg.Collation != "" {
		mc.Collation = cfg.Collation
	}
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}
	return mc.FormatDSN()
}

func PostgresDSN(cfg conf.DBConfig) string {
	parts := []string{
		"host=" + pgQuote(cfg.Host),
		"port=" + strconv.Itoa(cfg.Port),
		"user=" + pgQuote(cfg.User),
		"password=" + pgQuote(cfg.Password),
		"dbname=" + pgQuote(cfg.Name),
		"sslmode=disable",
	}
	return strings.Join(parts, " ")
}

func pgQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func hostTarget(cfg conf.DBConfig) string {
	if cfg.DSN != "" {
		return "(dsn)"
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.Name
}

func isSQLite(driver string) bool {
	return driver == "sqlite" || driver == "sqlite3"
}
