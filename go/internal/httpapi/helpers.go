package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/mcdev12/draftroom/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

type jsonResponse map[string]interface{}

const maxBodyBytes = 1_048_576

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(js, '\n')); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, jsonResponse{"error": message, "code": code})
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
}

// mapErrorToHTTP translates app, session and selection errors into responses.
func mapErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	code := gateway.ErrorCode(err)
	switch {
	case errors.Is(err, rooms.ErrValidation):
		errorResponse(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, recordstore.ErrNotFound):
		errorResponse(w, http.StatusNotFound, "not_found", "the requested resource could not be found")
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, selection.ErrNotYourTurn),
		errors.Is(err, selection.ErrPlayerUnavailable):
		errorResponse(w, http.StatusConflict, code, err.Error())
	case errors.Is(err, gateway.ErrForbidden):
		errorResponse(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, recordstore.ErrStoreUnavailable):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		errorResponse(w, http.StatusServiceUnavailable, code, "the record store is unavailable")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("internal server error")
		errorResponse(w, http.StatusInternalServerError, "internal", "the server encountered a problem and could not process your request")
	}
}

// roomIDFromURL returns nil on routes without a roomID parameter (the global session).
func roomIDFromURL(r *http.Request) (*uuid.UUID, error) {
	s := chi.URLParam(r, "roomID")
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid room id %q", s)
	}
	return &id, nil
}
