package middlewares

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// AnyMethod in Options.AllowedMethods allows every request method
const AnyMethod = "*"

var commonMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

type CorsMw struct {
	opts      cors.Options
	next      http.Handler
	h         http.Handler
	anyMethod bool
}

// PermissiveOptions accepts any origin, method and header, with
// credentials.  The origin is echoed back rather than answered with "*" so
// browsers honour credentialed requests.
func PermissiveOptions() cors.Options {
	return cors.Options{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowedMethods:   []string{AnyMethod},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}

func NewCorsMw(opts cors.Options) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewCors(opts, next)
	}
}

// Preflight requests never match a route, so wrap the router itself rather
// than registering this with Router.Use
//
func NewCors(opts cors.Options, next http.Handler) *CorsMw {
	mw := &CorsMw{next: next}

	// rs/cors only matches methods from a fixed list
	var methods []string
	for _, m := range opts.AllowedMethods {
		if m == AnyMethod {
			mw.anyMethod = true
			continue
		}
		methods = append(methods, m)
	}
	if mw.anyMethod {
		methods = append(methods, commonMethods...)
	}
	opts.AllowedMethods = methods

	mw.opts = opts
	mw.h = cors.New(opts).Handler(next)
	return mw
}

func (mw *CorsMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if mw.anyMethod {
		if method := requestedMethod(r); method != "" && !mw.listed(method) {
			opts := mw.opts
			opts.AllowedMethods = append(append([]string{}, mw.opts.AllowedMethods...), method)
			cors.New(opts).Handler(mw.next).ServeHTTP(rw, r)
			return
		}
	}

	mw.h.ServeHTTP(rw, r)
}

// requestedMethod is the method a CORS request is checked against
func requestedMethod(r *http.Request) string {
	if r.Header.Get("Origin") == "" {
		return ""
	}

	if r.Method == http.MethodOptions {
		if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
			return strings.ToUpper(m)
		}
	}

	return strings.ToUpper(r.Method)
}

func (mw *CorsMw) listed(method string) bool {
	for _, m := range mw.opts.AllowedMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}

	return false
}
