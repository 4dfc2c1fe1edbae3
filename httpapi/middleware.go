package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/rs/zerolog"
)

//RequestIDHeader is the header used to pass and return the request id
const RequestIDHeader = "X-Request-ID"

type handlerResponse struct {
	Code int
	Body interface{}
	User *api.User
	Err  error
}

type returnHandler func(http.ResponseWriter, *http.Request) *handlerResponse

func logMiddleware(next returnHandler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		resp := next(w, r.WithContext(ctx))

		var e *zerolog.Event
		switch {
		case resp.Code >= 500:
			e = logger.Error()
		case resp.Err != nil:
			e = logger.Warn()
		default:
			e = logger.Info()
		}

		e = e.Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("code", resp.Code).
			Str("status", http.StatusText(resp.Code)).
			Dur("duration", time.Since(start))

		if r.URL.RawQuery != "" {
			e = e.Str("query", r.URL.RawQuery)
		}
		if resp.User != nil {
			e = e.Int64("user_id", resp.User.ID).Str("email", resp.User.Email)
		}
		if resp.Err != nil {
			e = e.Err(resp.Err)
		}

		e.Msg("request")
	})
}

func jsonMiddleware(next returnHandler) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		var resp *handlerResponse

		if r.Method != "GET" {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				resp = handleError(http.StatusBadRequest, errors.New("Could not parse Content-Type"))
				goto serve
			}
			if mediaType != "application/json" {
				resp = handleError(http.StatusBadRequest, errors.New("Content-Type not application/json"))
				goto serve
			}
		}

		resp = next(w, r)

	serve:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Code)
		e := json.NewEncoder(w)
		err := e.Encode(resp.Body)
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could encode json: %v", err))
		}
		return resp
	}
}

//sessionKey returns the session key from the X-Session-Key header or a bearer Authorization header
func sessionKey(r *http.Request) string {
	if key := r.Header.Get("X-Session-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

//authenticate returns the User for the request's session key, or a handlerResponse if authentication failed
func authenticate(r *http.Request, s SessionStore) (*api.User, *handlerResponse) {
	key := sessionKey(r)
	if key == "" {
		return nil, handleError(http.StatusUnauthorized, errors.New("X-Session-Key and Authorization headers empty"))
	}

	sess, err := s.Check(r.Context(), key)
	if err != nil {
		return nil, handleError(http.StatusInternalServerError, fmt.Errorf("Could not check session key: %v", err))
	}
	if sess == nil {
		return nil, handleError(http.StatusUnauthorized, errors.New("Could not find session"))
	}

	user, err := api.ReadUser(r.Context(), sess.UserID)
	if resp := checkAPIError(err); resp != nil {
		return nil, resp
	}
	if user == nil {
		return nil, handleError(http.StatusUnauthorized, fmt.Errorf("Could not find session user %d", sess.UserID))
	}

	return user, nil
}

func authMiddleware(next returnHandler, s SessionStore) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		user, resp := authenticate(r, s)
		if resp != nil {
			return resp
		}

		ctx := context.WithValue(r.Context(), api.UserKey, user)
		resp = next(w, r.WithContext(ctx))
		resp.User = user

		return resp
	}
}

//optionalAuthMiddleware authenticates the request if it carries a session key
func optionalAuthMiddleware(next returnHandler, s SessionStore) returnHandler {
	authed := authMiddleware(next, s)
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		if sessionKey(r) == "" {
			return next(w, r)
		}
		return authed(w, r)
	}
}

func txMiddleware(next returnHandler, db *sql.DB) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		tx, err := db.BeginTx(r.Context(), nil)
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not begin transaction: %v", err))
		}

		ctx := context.WithValue(r.Context(), api.TransactionKey, tx)
		resp := next(w, r.WithContext(ctx))

		if resp.Code >= 500 {
			if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
				return handleError(http.StatusInternalServerError, fmt.Errorf("Could not rollback transaction: %v", rErr))
			}
			return resp
		}

		if err = tx.Commit(); err != nil {
			if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
				return handleError(http.StatusInternalServerError, fmt.Errorf("Could not rollback transaction: %v", rErr))
			}
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not commit transaction: %v", err))
		}

		return resp
	}
}
