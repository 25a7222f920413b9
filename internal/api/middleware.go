package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"klovn-bot/internal/model"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

// RequestIDHeader echoes the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

// UserFrom returns the authenticated user stored by the auth middleware.
func UserFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey).(model.User)
	return u, ok
}

// RequestID returns the id of the current request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// CORS answers preflight requests and lets the mini-app origin call the API.
func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+InitDataHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging assigns a request id and logs every request once it completes.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		event := log.Info()
		if rec.status >= http.StatusInternalServerError {
			event = log.Error()
		} else if r.URL.Path == "/health" {
			event = log.Debug()
		}
		event.
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// Recovery turns a panic in a handler into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("Recovered from panic in HTTP handler")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalError})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// userHandler is a route that needs the calling user.
type userHandler func(w http.ResponseWriter, r *http.Request, user model.User)

// authed verifies the init data header, registers the user and calls next.
func (h *Handler) authed(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := h.verifier.Verify(r.Header.Get(InitDataHeader))
		if err != nil {
			log.Debug().
				Str("request_id", RequestID(r.Context())).
				Err(err).
				Msg("Rejected init data")
			writeError(w, r, err)
			return
		}

		user, err := h.accounts.EnsureUser(r.Context(), data.User.ID, data.User.Username, data.User.FirstName)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, *user)
		next(w, r.WithContext(ctx), *user)
	})
}
