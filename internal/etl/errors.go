package etl

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeIllegalValue                ErrorCode = "ILLEGAL_VALUE"
	CodeRequiredValue               ErrorCode = "REQUIRED_VALUE"
	CodeUnsupportedType             ErrorCode = "UNSUPPORTED_TYPE"
	CodeTransformerIllegalParameter ErrorCode = "TRANSFORMER_ILLEGAL_PARAMETER"
	CodeSQLExecuteFail              ErrorCode = "SQL_EXECUTE_FAIL"
	CodeErrorLimitExceeded          ErrorCode = "ERROR_LIMIT_EXCEEDED"
)

// DomainError is implemented by the structured errors of this package. They
// signal misconfiguration or a broken connection, never a bad value.
type DomainError interface {
	error
	ErrorCode() ErrorCode
}

// IsDomainError reports whether err wraps a DomainError.
func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

// ConfigError is a fatal configuration problem.
type ConfigError struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
}

func (e *ConfigError) Unwrap() error        { return e.Err }
func (e *ConfigError) ErrorCode() ErrorCode { return e.Code }

// UnsupportedTypeError is raised for a column whose source type has no
// mapping.
type UnsupportedTypeError struct {
	Column   string
	Code     TypeCode
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("[%s] column %q has unsupported type: code=%s, name=%s", CodeUnsupportedType, e.Column, e.Code, e.TypeName)
}

func (e *UnsupportedTypeError) ErrorCode() ErrorCode { return CodeUnsupportedType }

// QueryError wraps a failure while executing or iterating a query.
type QueryError struct {
	DBType    string
	Query     string
	Table     string
	Principal string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("[%s] %s query failed: sql=[%s], table=[%s], user=[%s]: %v",
		CodeSQLExecuteFail, e.DBType, e.Query, e.Table, e.Principal, e.Err)
}

func (e *QueryError) Unwrap() error        { return e.Err }
func (e *QueryError) ErrorCode() ErrorCode { return CodeSQLExecuteFail }

// TransformerError is the dirty-record cause reported when a step fails.
type TransformerError struct {
	Name  string
	Index int
	Err   error
}

func (e *TransformerError) Error() string {
	return fmt.Sprintf("transformer(%s) has Exception(%v)", e.Name, e.Err)
}

func (e *TransformerError) Unwrap() error { return e.Err }

// ErrorLimitExceededError aborts a job once too many records went dirty.
type ErrorLimitExceededError struct {
	Limit  int64
	Actual int64
	Last   error
}

func (e *ErrorLimitExceededError) Error() string {
	return fmt.Sprintf("[%s] dirty records %d exceed the limit %d, last cause: %v", CodeErrorLimitExceeded, e.Actual, e.Limit, e.Last)
}

func (e *ErrorLimitExceededError) Unwrap() error        { return e.Last }
func (e *ErrorLimitExceededError) ErrorCode() ErrorCode { return CodeErrorLimitExceeded }
