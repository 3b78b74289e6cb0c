package route

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"attendex/src-server/access"
	"attendex/src-server/jwt"
	"attendex/src-server/metric"
	"attendex/src-server/model"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	viewerCtxKey ctxKey = iota
	staleCtxKey
)

const SessionCookieName = "attendex_session"

// viewer is the signed-in user of a request.
type viewer struct {
	session *model.Session
	payload *jwt.Payload
}

func viewerFrom(ctx context.Context) *viewer {
	v, _ := ctx.Value(viewerCtxKey).(*viewer)
	return v
}

// staleSession reports whether the request carried a session cookie that no
// longer maps to a live session.
func staleSession(ctx context.Context) bool {
	stale, _ := ctx.Value(staleCtxKey).(bool)
	return stale
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Secret,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.as.Config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.as.Config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

// loadSession resolves the session cookie into a viewer. Sessions that are
// gone, expired or hold an undecodable token are dropped and the request
// continues anonymously, flagged as stale.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := func() string {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil {
				return strings.TrimSpace(cookie.Value)
			}
			return ""
		}()
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		startTimer := time.Now()
		sess, err := model.FindSession(r.Context(), s.as.BunDb, secret)
		metric.SessionStoreRead.Set(float64(time.Since(startTimer).Microseconds()))
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			s.dropStale(w, r, next, "")
			return
		case err != nil:
			slog.Error("can't look up session", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		now := s.now()
		payload, err := jwt.Decode(sess.Token)
		if err != nil {
			slog.Warn("stored token can't be decoded", "error", err)
			s.dropStale(w, r, next, secret)
			return
		}
		if sess.Expired(now) || payload.Expired(now) {
			s.dropStale(w, r, next, secret)
			return
		}

		ctx := context.WithValue(r.Context(), viewerCtxKey, &viewer{session: sess, payload: payload})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) dropStale(w http.ResponseWriter, r *http.Request, next http.Handler, secret string) {
	if secret != "" {
		if err := model.DeleteSession(r.Context(), s.as.BunDb, secret); err != nil {
			slog.Error("can't delete stale session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), staleCtxKey, true)))
}

func (s *Server) enforceAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload *jwt.Payload
		if v := viewerFrom(r.Context()); v != nil {
			payload = v.payload
		}
		d := s.as.Policy.Decide(r.URL.Path, payload, s.now())
		switch d.Outcome {
		case access.Allow:
			next.ServeHTTP(w, r)
		case access.Redirect:
			location := d.Location
			if staleSession(r.Context()) && location == s.as.Policy.LoginURL(false) {
				location = s.as.Policy.LoginURL(true)
			}
			http.Redirect(w, r, location, http.StatusSeeOther)
		default:
			s.renderError(w, r, http.StatusForbidden, "Forbidden", "You do not have access to this page.")
		}
	})
}
