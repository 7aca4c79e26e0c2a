package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	HeaderRole   = "X-Draft-Role"
	HeaderTeamID = "X-Team-ID"
)

type contextKey string

const participantKey contextKey = "participant"

// Participant is the self-declared caller of a request.
type Participant struct {
	Role   models.UserRole
	TeamID *uuid.UUID
}

// requestLogger logs each request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// identify reads the participant headers. A missing role is a viewer.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Participant{Role: models.UserRoleViewer}
		if s := r.Header.Get(HeaderRole); s != "" {
			role, ok := models.ParseUserRole(s)
			if !ok {
				errorResponse(w, http.StatusBadRequest, "bad_request", "unknown role "+s)
				return
			}
			p.Role = role
		}
		if s := r.Header.Get(HeaderTeamID); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				errorResponse(w, http.StatusBadRequest, "bad_request", "invalid team id")
				return
			}
			p.TeamID = &id
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), participantKey, p)))
	})
}

// requireRole rejects participants without role.
func requireRole(role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if participantFrom(r.Context()).Role != role {
				errorResponse(w, http.StatusForbidden, "forbidden", "requires role "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func participantFrom(ctx context.Context) Participant {
	if p, ok := ctx.Value(participantKey).(Participant); ok {
		return p
	}
	return Participant{Role: models.UserRoleViewer}
}
