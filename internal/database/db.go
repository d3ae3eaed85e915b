package database // package database opens the SQL connection pool and bootstraps the schema

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
)

// Open connects to the configured SQL backend and verifies the connection.
func Open(cfg config.Config) (*sqlx.DB, error) {
	driver, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN returns the driver name and data source name for cfg.  DATABASE_URL
// wins over the individual DB_* parts; a MySQL URL is still forced to
// parseTime=true and loc=UTC since the stores scan DATETIME into time.Time.
func DSN(cfg config.Config) (driver, dsn string, err error) {
	switch cfg.Storage {
	case config.StorageMySQL:
		var mc *mysql.Config
		if cfg.DB.URL != "" {
			if mc, err = mysql.ParseDSN(cfg.DB.URL); err != nil {
				return "", "", fmt.Errorf("parse DATABASE_URL: %w", err)
			}
		} else {
			mc = mysql.NewConfig()
			mc.User = cfg.DB.User
			mc.Passwd = cfg.DB.Pass
			mc.Net = "tcp"
			mc.Addr = cfg.DB.Host + ":" + cfg.DB.Port
			mc.DBName = cfg.DB.Name
			mc.Params = map[string]string{"charset": "utf8mb4"}
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		mc.ParseTime = true
		mc.Loc = time.UTC
		return "mysql", mc.FormatDSN(), nil
	case config.StoragePostgres:
		if cfg.DB.URL != "" {
			return "postgres", cfg.DB.URL, nil
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Name)
		if cfg.DB.Pass != "" {
			dsn += " password=" + cfg.DB.Pass
		}
		return "postgres", dsn, nil
	default:
		return "", "", fmt.Errorf("storage %q has no SQL driver", cfg.Storage)
	}
}
