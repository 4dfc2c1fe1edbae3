package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/korylprince/knowledge-chatbot/chatbot"
	"github.com/rs/zerolog"
)

//APIPrefix is the path prefix of all API routes
const APIPrefix = "/api/1.0"

//NewRouter returns an HTTP router for the HTTP API
func NewRouter(logger zerolog.Logger, s SessionStore, db *sql.DB, agent *chatbot.Agent) http.Handler {

	//construct middleware
	var m = func(h returnHandler) http.Handler {
		return logMiddleware(jsonMiddleware(txMiddleware(authMiddleware(h, s), db)), logger)
	}

	//unauthenticated middleware
	var u = func(h returnHandler) http.Handler {
		return logMiddleware(jsonMiddleware(txMiddleware(h, db)), logger)
	}

	r := mux.NewRouter()

	r.Path("/users/").Methods("POST").Handler(logMiddleware(jsonMiddleware(txMiddleware(optionalAuthMiddleware(handleCreateUserWithCredentials, s), db)), logger))
	r.Path("/users/{id:[0-9]+}").Methods("GET").Handler(m(handleReadUser))
	r.Path("/users/{id:[0-9]+}").Methods("POST").Handler(m(handleUpdateUser))
	r.Path("/users/{id:[0-9]+}/password").Methods("POST").Handler(m(handleChangeUserPassword))

	r.Path("/auth").Methods("POST").Handler(u(handleAuthenticate(s)))

	r.Path("/knowledge/get-conv").Methods("POST").Handler(m(handleGetConversation(agent)))

	r.NotFoundHandler = u(notFoundHandler)

	return http.StripPrefix(APIPrefix, r)
}
