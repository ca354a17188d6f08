package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/models"
)

// LoadJob reads and parses a job file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadJob(filePath string) (*models.JobConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file '%s': %w", filePath, err)
	}

	var job *models.JobConfig
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		job, err = models.LoadJobYAML(data)
	default:
		job, err = models.LoadJob(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse job file '%s': %w", filePath, err)
	}
	return job, nil
}

// Apply overlays the environment settings onto a loaded job.
func (c *Config) Apply(job *models.JobConfig) {
	if c.SourceDSN != "" {
		for i := range job.Reader.Connection {
			job.Reader.Connection[i].DSN = c.SourceDSN
		}
	}
	if c.MongoURI != "" && job.Writer.Kind == "mongo" && job.Writer.URI == "" {
		job.Writer.URI = c.MongoURI
	}
}

// Validate checks the parts of a job the engine cannot start without.
func Validate(job *models.JobConfig) error {
	var errs []error

	if _, err := database.ParseKind(job.Reader.DBType); err != nil {
		errs = append(errs, fmt.Errorf("reader.dbType: %w", err))
	}
	if len(job.Reader.Connection) == 0 {
		errs = append(errs, errors.New("reader.connection: at least one connection is required"))
	}
	for i, conn := range job.Reader.Connection {
		if conn.DSN == "" {
			errs = append(errs, fmt.Errorf("reader.connection[%d].dsn is empty", i))
		}
		if len(conn.Table) == 0 && len(conn.QuerySQL) == 0 {
			errs = append(errs, fmt.Errorf("reader.connection[%d]: table or querySql is required", i))
		}
	}
	if job.Reader.QuerySQLBindVars != "" && job.Reader.BindValCnt <= 0 {
		errs = append(errs, errors.New("reader.bindValCnt must be positive when querySqlBindVars is set"))
	}

	for i, t := range job.Transformer {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("transformer[%d].name is empty", i))
		}
	}

	switch job.Writer.Kind {
	case "", "stream":
	case "mongo":
		if job.Writer.URI == "" || job.Writer.Database == "" || job.Writer.Collection == "" {
			errs = append(errs, errors.New("writer: mongo needs uri, database and collection"))
		}
		if len(job.Writer.Column) == 0 {
			errs = append(errs, errors.New("writer.column: mongo needs field names"))
		}
	case "sql":
		if _, err := database.ParseKind(job.Writer.DBType); err != nil {
			errs = append(errs, fmt.Errorf("writer.dbType: %w", err))
		}
		if job.Writer.DSN == "" || job.Writer.Table == "" {
			errs = append(errs, errors.New("writer: sql needs dsn and table"))
		}
		if len(job.Writer.Column) == 0 {
			errs = append(errs, errors.New("writer.column: sql needs column names"))
		}
	default:
		errs = append(errs, fmt.Errorf("writer.kind %q is not one of mongo, sql, stream", job.Writer.Kind))
	}

	if job.Setting.ErrorLimit.Record != nil && *job.Setting.ErrorLimit.Record < 0 {
		errs = append(errs, errors.New("setting.errorLimit.record must not be negative"))
	}
	return errors.Join(errs...)
}
