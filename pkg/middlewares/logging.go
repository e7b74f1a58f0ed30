package middlewares

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/handlers"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
)

// TxnIDHeader carries the per-request transaction ID back to the caller
const TxnIDHeader = "X-Txn-ID"

type responseWriterEx struct {
	http.ResponseWriter

	statusCode       int
	size             int
	logData          bool
	ctx              context.Context
	hasLoggedHeaders bool
}

func newResponseWriterEx(ctx context.Context, logData bool, rw http.ResponseWriter) *responseWriterEx {
	return &responseWriterEx{
		ResponseWriter: rw,
		statusCode:     http.StatusOK,
		logData:        logData,
		ctx:            ctx,
	}
}

func (rw *responseWriterEx) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriterEx) Write(b []byte) (int, error) {
	if rw.logData && !rw.hasLoggedHeaders {
		logging.Logger(rw.ctx).Debugf("wrote headers: %+v", rw.ResponseWriter.Header())
		rw.hasLoggedHeaders = true
	}

	size, err := rw.ResponseWriter.Write(b)
	rw.size += size

	if err == nil && rw.logData {
		logging.Logger(rw.ctx).Debugf("wrote %d bytes: %s", size, b[:size])
	}
	return size, err
}

// Wrapper around an io.ReadCloser that logs every read as a string
type loggingReader struct {
	io.ReadCloser
	ctx context.Context
}

func newLoggingReader(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	return loggingReader{
		ReadCloser: rc,
		ctx:        ctx,
	}
}

func (lr loggingReader) Read(b []byte) (size int, err error) {
	size, err = lr.ReadCloser.Read(b)
	if size > 0 {
		logging.Logger(lr.ctx).Debugf("read %d bytes: --:--%s--:--", size, b[:size])
	}

	return size, err
}

type LoggingMw struct {
	logRequests bool
	next        http.Handler
}

func NewLoggingMw(reqLogging bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewLogging(reqLogging, next)
	}
}

func NewLogging(reqLogging bool, next http.Handler) *LoggingMw {
	return &LoggingMw{next: next, logRequests: reqLogging}
}

func (mw *LoggingMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	txnID := uuid.New().String()
	startTime := time.Now()

	// Set the output header now before something writes any response body
	rw.Header().Set(TxnIDHeader, txnID)

	r = r.WithContext(logging.WithTxnID(r.Context(), txnID))

	if mw.logRequests {
		logging.Logger(r.Context()).Debugf("request headers: %+v", r.Header)
		if r.Body != nil {
			r.Body = newLoggingReader(r.Context(), r.Body)
		}
	}

	rwex := newResponseWriterEx(r.Context(), mw.logRequests, rw)
	mw.next.ServeHTTP(rwex, r)

	fields := logrus.Fields{
		"entrytype": "audit",
		"status":    rwex.statusCode,
		"method":    r.Method,
		"proto":     r.Proto,
		"host":      r.Host,
		"remote":    r.RemoteAddr,
		"start":     startTime.Format(time.RFC3339Nano),
		"duration":  time.Since(startTime),
		"path":      r.URL.String(),
		"size":      rwex.size,
	}

	// Registered with Router.Use, so the route's variables are known here
	if address, ok := mux.Vars(r)[handlers.AddressVar]; ok {
		fields["device"] = address
	}

	entry := logging.Logger(r.Context()).WithFields(fields)
	if rwex.statusCode >= http.StatusInternalServerError {
		entry.Warn(http.StatusText(rwex.statusCode))
		return
	}
	entry.Info(http.StatusText(rwex.statusCode))
}
