package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	stdlog "log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

/*
 *  Request and diagnostics logging for the plug service.  Every entry carries
 *  the process instance, and entries made on behalf of an HTTP request carry
 *  the request's transaction ID.
 */

type ctxKey int

const (
	txnIDKey ctxKey = iota
)

// WithTxnID returns a context which knows its transaction ID
func WithTxnID(ctx context.Context, txnID string) context.Context {
	return context.WithValue(ctx, txnIDKey, txnID)
}

// TxnID returns the transaction ID stored in ctx, if any
func TxnID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	txnID, ok := ctx.Value(txnIDKey).(string)
	return txnID, ok
}

type logger struct {
	entry   *logrus.Entry
	logFile *os.File
}

var gLogger logger
var gInstanceID string

// Logger returns the process logger, decorated with the transaction ID
// when ctx belongs to a request
func Logger(ctx context.Context) *logrus.Entry {
	if txnID, ok := TxnID(ctx); ok {
		return gLogger.entry.WithField("txnid", txnID)
	}

	return gLogger.entry
}

// Device returns a request logger that also names the plug being addressed
func Device(ctx context.Context, address string) *logrus.Entry {
	return Logger(ctx).WithField("device", address)
}

func processFields() logrus.Fields {
	return logrus.Fields{
		"pid":      os.Getpid(),
		"exe":      path.Base(os.Args[0]),
		"instance": gInstanceID,
	}
}

func init() {
	viper.SetDefault("logging.location", "stderr")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.level", "info")

	gInstanceID = uuid.New().String()
	gLogger.entry = logrus.WithFields(processFields())
}

func setOutput(loc string) error {
	var out io.Writer

	switch loc {
	case "stdout":
		out = os.Stdout
	case "stderr", "":
		out = os.Stderr
	default:
		file, err := os.OpenFile(loc, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		gLogger.entry.Debugf("Switching system log to %s", loc)
		if gLogger.logFile != nil {
			gLogger.logFile.Close()
		}
		gLogger.logFile = file
		out = file
	}

	logrus.SetOutput(out)
	gLogger.entry = logrus.WithFields(processFields())
	return nil
}

// Configure sets the log level and output location/format
func Configure(cfg *viper.Viper) error {
	if err := setOutput(cfg.GetString("logging.location")); err != nil {
		return err
	}

	// --debug wins over the configured level
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		level := cfg.GetString("logging.level")
		val, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("bad log level: [%s]", level)
		}
		logrus.SetLevel(val)
	}

	switch format := cfg.GetString("logging.format"); format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{})
	default:
		return fmt.Errorf("bad log format: [%s]", format)
	}

	// The vendor SDK and net/http log through the standard logger
	stdlog.SetOutput(Logger(nil).WriterLevel(logrus.DebugLevel))

	return nil
}
