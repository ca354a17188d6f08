package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	InfoLog  *log.Logger
	ErrorLog *log.Logger
	WarnLog  *log.Logger
	DebugLog *log.Logger

	logFile *os.File
	level   = INFO
	mu      sync.Mutex
)

const (
	INFO = iota
	DEBUG
)

const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

// InitLogger tees every level to stdout and the given file. An empty
// filename keeps console output only.
func InitLogger(filename string, lvl int) error {
	level = lvl
	if filename == "" {
		setOutput(os.Stdout, os.Stderr)
		return nil
	}

	var err error
	logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	setOutput(io.MultiWriter(os.Stdout, logFile), io.MultiWriter(os.Stderr, logFile))
	return nil
}

// SetOutput redirects all loggers to w.
func SetOutput(w io.Writer) {
	setOutput(w, w)
}

func setOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	InfoLog = log.New(out, "INFO: ", flags)
	WarnLog = log.New(out, "WARN: ", flags)
	DebugLog = log.New(out, "DEBUG: ", flags)
	ErrorLog = log.New(errOut, "ERROR: ", flags)
}

func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Init falls back to console output when nothing configured the loggers yet.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	ensure()
}

func ensure() {
	if InfoLog == nil {
		InfoLog = log.New(os.Stdout, "INFO: ", flags)
		WarnLog = log.New(os.Stdout, "WARN: ", flags)
		DebugLog = log.New(os.Stdout, "DEBUG: ", flags)
		ErrorLog = log.New(os.Stderr, "ERROR: ", flags)
	}
}

// get returns *l, installing console loggers first if needed.
func get(l **log.Logger) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	ensure()
	return *l
}

func Info(format string, v ...interface{}) {
	get(&InfoLog).Output(2, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	get(&InfoLog).Output(2, fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	get(&ErrorLog).Output(2, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	get(&ErrorLog).Output(2, fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	get(&WarnLog).Output(2, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	get(&WarnLog).Output(2, fmt.Sprintf(format, v...))
}

// Debugf only writes when the logger was initialized at DEBUG level.
func Debugf(format string, v ...interface{}) {
	if level < DEBUG {
		return
	}
	get(&DebugLog).Output(2, fmt.Sprintf(format, v...))
}
