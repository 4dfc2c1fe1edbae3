// Package webui hosts a conversation panel in a local browser page.
//
// Every panel change is pushed to open pages over a websocket as a snapshot of the rendered log,
// so charts and markdown are drawn by the browser.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/render"
	"github.com/rs/zerolog/log"
)

const chartErrorHTML = `<p class="chart-error">Chart could not be displayed</p>`

//Snapshot is the state pushed to the page
type Snapshot struct {
	HTML     string `json:"html"`
	Busy     bool   `json:"busy"`
	Messages int    `json:"messages"`
}

type submitRequest struct {
	Prompt string `json:"prompt"`
}

//Server serves a single panel to any number of pages
type Server struct {
	ctx    context.Context
	mu     sync.Mutex
	panel  *conversation.Panel
	html   *render.HTML
	hub    *hub
	router *mux.Router
}

//NewServer returns a Server hosting a new panel over gateway. ctx bounds gateway requests.
func NewServer(ctx context.Context, gateway conversation.Gateway, opts conversation.Options) *Server {
	s := &Server{
		ctx:  ctx,
		html: render.NewHTML(),
		hub:  newHub(),
	}

	onChange := opts.OnChange
	opts.OnChange = func() {
		if msg, err := json.Marshal(s.snapshot()); err == nil {
			s.hub.broadcast(msg)
		}
		if onChange != nil {
			onChange()
		}
	}
	s.panel = conversation.New(gateway, opts)

	r := mux.NewRouter()
	r.Methods("GET").Path("/").HandlerFunc(s.pageHandler)
	r.Methods("GET").Path("/state").HandlerFunc(s.stateHandler)
	r.Methods("POST").Path("/submit").HandlerFunc(s.submitHandler)
	r.Methods("GET").Path("/ws").HandlerFunc(s.wsHandler)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

//Close disconnects all pages
func (s *Server) Close() {
	s.hub.closeAll()
}

//snapshot must be called with mu held
func (s *Server) snapshot() Snapshot {
	msgs := s.panel.Messages()

	var b strings.Builder
	for _, m := range msgs {
		if !m.Kind.Known() {
			continue
		}
		out, err := s.html.Render(m)
		if err != nil {
			log.Debug().Err(err).Int64("id", m.ID).Msg("webui: could not render message")
			out = chartErrorHTML
		}
		fmt.Fprintf(&b, "<div class=\"message %s\" data-id=\"%d\">\n%s</div>\n", strings.ToLower(m.Author.String()), m.ID, out)
	}

	return Snapshot{HTML: b.String(), Busy: s.panel.Busy(), Messages: len(msgs)}
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, newPageData(snap)); err != nil {
		log.Error().Err(err).Msg("webui: could not write page")
	}
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	var sr submitRequest
	if err := json.NewDecoder(r.Body).Decode(&sr); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not decode request"})
		return
	}

	s.mu.Lock()
	busy := s.panel.Busy()
	s.panel.SetDraft(sr.Prompt)
	req, ok := s.panel.Begin()
	snap := s.snapshot()
	s.mu.Unlock()

	if !ok {
		if busy {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a request is already in flight"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is empty"})
		return
	}

	go s.resolve(req)

	writeJSON(w, http.StatusAccepted, snap)
}

//resolve performs the round trip and applies it to the panel
func (s *Server) resolve(req conversation.Request) {
	resp, err := s.panel.Send(s.ctx, req)

	s.mu.Lock()
	outcome := s.panel.Complete(resp, err)
	s.mu.Unlock()

	log.Debug().Stringer("outcome", outcome).Msg("webui: request resolved")
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("webui: websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	//register under the panel lock so no change is missed between the first snapshot and the broadcasts
	s.mu.Lock()
	msg, err := json.Marshal(s.snapshot())
	if err == nil {
		c.send <- msg
	}
	s.hub.add(c)
	s.mu.Unlock()

	go c.writePump()
	c.readPump(s.hub)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("webui: could not write response")
	}
}
