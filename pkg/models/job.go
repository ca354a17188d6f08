package models

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// JobConfig is the root of a job file.
type JobConfig struct {
	Reader      ReaderConfig        `json:"reader" yaml:"reader"`
	Transformer []TransformerConfig `json:"transformer" yaml:"transformer"`
	Writer      WriterConfig        `json:"writer" yaml:"writer"`
	Setting     SettingConfig       `json:"setting" yaml:"setting"`
}

type ReaderConfig struct {
	DBType            string             `json:"dbType" yaml:"dbType"`
	Username          string             `json:"username" yaml:"username"`
	Password          string             `json:"password" yaml:"password"`
	Connection        []ConnectionConfig `json:"connection" yaml:"connection"`
	Column            []string           `json:"column" yaml:"column"`
	Where             string             `json:"where,omitempty" yaml:"where,omitempty"`
	FetchSize         int                `json:"fetchSize,omitempty" yaml:"fetchSize,omitempty"`
	MandatoryEncoding string             `json:"mandatoryEncoding,omitempty" yaml:"mandatoryEncoding,omitempty"`
	// QuerySQLBindVars is JSON text holding an array of bind groups, e.g. [[1,10],[11,20]].
	QuerySQLBindVars string   `json:"querySqlBindVars,omitempty" yaml:"querySqlBindVars,omitempty"`
	BindValCnt       int      `json:"bindValCnt,omitempty" yaml:"bindValCnt,omitempty"`
	Session          []string `json:"session,omitempty" yaml:"session,omitempty"`
}

type ConnectionConfig struct {
	DSN      string   `json:"dsn" yaml:"dsn"`
	Table    []string `json:"table,omitempty" yaml:"table,omitempty"`
	QuerySQL []string `json:"querySql,omitempty" yaml:"querySql,omitempty"`
}

type TransformerConfig struct {
	Name      string               `json:"name" yaml:"name"`
	Parameter TransformerParameter `json:"parameter" yaml:"parameter"`
}

type TransformerParameter struct {
	ColumnIndex *int         `json:"columnIndex,omitempty" yaml:"columnIndex,omitempty"`
	Paras       []string     `json:"paras,omitempty" yaml:"paras,omitempty"`
	Scope       *ScopeConfig `json:"scope,omitempty" yaml:"scope,omitempty"`
	// Values are step-local context values, consulted before scope vars.
	Values map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

// ScopeConfig describes the isolated evaluation scope a transformer runs in.
type ScopeConfig struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Timezone string            `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Values   map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

type WriterConfig struct {
	Kind string `json:"kind" yaml:"kind"` // mongo, sql or stream

	// Column names the record's columns, in order, for the sink.
	Column []string `json:"column" yaml:"column"`

	// mongo
	URI        string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	IDField    string `json:"idField,omitempty" yaml:"idField,omitempty"`

	// sql
	DBType string `json:"dbType,omitempty" yaml:"dbType,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`

	// stream
	Print bool `json:"print,omitempty" yaml:"print,omitempty"`
}

type SettingConfig struct {
	Speed      SpeedConfig      `json:"speed" yaml:"speed"`
	ErrorLimit ErrorLimitConfig `json:"errorLimit" yaml:"errorLimit"`
	BatchSize  int              `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
}

type SpeedConfig struct {
	Channel int `json:"channel,omitempty" yaml:"channel,omitempty"`
}

type ErrorLimitConfig struct {
	// Record is the number of dirty records tolerated. Nil means unlimited.
	Record *int64 `json:"record,omitempty" yaml:"record,omitempty"`
}

func LoadJob(data []byte) (*JobConfig, error) {
	var j JobConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func LoadJobYAML(data []byte) (*JobConfig, error) {
	var j JobConfig
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
