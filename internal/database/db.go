package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/railway-reservation/internal/config"
)

// DSN builds the driver connection string.  parseTime maps DATETIME to
// time.Time, loc=UTC keeps departure times consistent and clientFoundRows
// makes RowsAffected count matched rather than changed rows.
func DSN(cfg config.DBConfig) string {
	dc := mysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Pass
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.ClientFoundRows = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
