package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "modernc.org/sqlite"

	"github.com/BartekS5/rdbsync/pkg/logger"
)

// Kind identifies a supported relational database.
type Kind string

const (
	MySQL      Kind = "mysql"
	PostgreSQL Kind = "postgresql"
	SQLServer  Kind = "sqlserver"
	SQLite     Kind = "sqlite"
)

// ParseKind accepts the usual aliases for each database.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgresql", "postgres", "pgx":
		return PostgreSQL, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database type %q", s)
}

// DriverName is the database/sql driver registered for the kind.
func (k Kind) DriverName() string {
	switch k {
	case PostgreSQL:
		return "pgx"
	case SQLServer:
		return "sqlserver"
	case SQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (k Kind) Placeholder(n int) string {
	switch k {
	case PostgreSQL:
		return fmt.Sprintf("$%d", n)
	case SQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// QuoteIdent quotes a (possibly schema-qualified) identifier.
func (k Kind) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		switch k {
		case MySQL:
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		case SQLServer:
			parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
		default:
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Describe returns "host/database" for log lines without leaking credentials.
func Describe(kind Kind, dsn string) string {
	switch kind {
	case MySQL:
		if cfg, err := mysql.ParseDSN(dsn); err == nil {
			return cfg.Addr + "/" + cfg.DBName
		}
	case PostgreSQL:
		if cfg, err := pgx.ParseConfig(dsn); err == nil {
			return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
		}
	case SQLServer:
		if cfg, err := msdsn.Parse(dsn); err == nil {
			return cfg.Host + "/" + cfg.Database
		}
	case SQLite:
		if i := strings.IndexByte(dsn, '?'); i >= 0 {
			return dsn[:i]
		}
		return dsn
	}
	return "<unparsed dsn>"
}

func ConnectSQL(ctx context.Context, kind Kind, dsn string) (*sql.DB, error) {
	db, err := sql.Open(kind.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", kind, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database %s (ping failed): %w", kind, Describe(kind, dsn), err)
	}

	logger.Infof("Connected to %s at %s.", kind, Describe(kind, dsn))
	return db, nil
}

func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Info("Connected to MongoDB.")
	return client, nil
}
