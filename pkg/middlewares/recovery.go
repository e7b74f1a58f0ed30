package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/handlers"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
)

type RecoveryMw struct {
	next http.Handler
}

func NewRecoveryMw() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewRecovery(next)
	}
}

func NewRecovery(next http.Handler) *RecoveryMw {
	return &RecoveryMw{next: next}
}

// A panicking handler answers like any other failed call and the listener
// keeps serving
func (mw *RecoveryMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	defer func() {
		if p := recover(); p != nil {
			logging.Logger(r.Context()).Errorf("caught panic: %v : %s", p, debug.Stack())

			handlers.SendError(rw, r, errors.Errorf("internal error: %v", p))
		}
	}()

	mw.next.ServeHTTP(rw, r)
}
