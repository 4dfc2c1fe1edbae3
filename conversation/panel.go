// Package conversation holds the state of a chat panel: the conversation log, the rolling
// history window sent to the knowledge endpoint, the draft input, and the busy flag that allows
// only one request in flight.
//
// A Panel is owned by a single event loop and is not safe for concurrent use. Hosts that run the
// gateway call asynchronously use Begin and Complete; synchronous hosts use Submit.
package conversation

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

//Greeting is the first System message of a new panel
const Greeting = "Hello! Can i assist you today?"

//FallbackText is shown when the endpoint reports a failure
const FallbackText = "Something went wrong, please try again"

//Request is the input of a single round trip
type Request struct {
	Prompt  string
	History []HistoryEntry
}

//Response is the endpoint's reply. StatusCode is the status reported by the endpoint, not necessarily the HTTP status.
type Response struct {
	StatusCode int
	Kind       Kind
	Content    string
	History    []HistoryEntry
}

//Gateway performs the round trip to the knowledge endpoint.
//A nil Response or a non-nil error means no result was received.
type Gateway interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

//Outcome is how a submission resolved
type Outcome int

//Outcomes
const (
	OutcomeIgnored Outcome = iota //empty draft, busy panel, or completion without a request
	OutcomeSuccess
	OutcomeFailure
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeEmpty:
		return "empty"
	default:
		return "ignored"
	}
}

//Options configure a new Panel
type Options struct {
	//Greeting is appended as a System message on creation. Empty means no greeting.
	Greeting string
	//History is the initial history window
	History []HistoryEntry
	//Clock is used for message ids; defaults to the real clock
	Clock clockwork.Clock
	//OnChange is called after every state change, from the goroutine that made the change
	OnChange func()
}

//DefaultOptions returns the options of a freshly opened panel: a greeting and two empty history entries
func DefaultOptions() Options {
	return Options{
		Greeting: Greeting,
		History:  []HistoryEntry{{}, {}},
	}
}

//Panel is the state of one conversation
type Panel struct {
	gateway  Gateway
	clock    clockwork.Clock
	onChange func()

	messages []Message
	history  []HistoryEntry
	draft    string
	busy     bool
	lastID   int64
}

//New returns a new Panel using the given Gateway
func New(gateway Gateway, opts Options) *Panel {
	p := &Panel{
		gateway:  gateway,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		history:  cloneHistory(opts.History),
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if opts.Greeting != "" {
		p.append(System, KindText, opts.Greeting)
	}
	return p
}

//Messages returns a copy of the conversation log in display order
func (p *Panel) Messages() []Message {
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

//History returns a copy of the current history window
func (p *Panel) History() []HistoryEntry {
	return cloneHistory(p.history)
}

//Draft returns the current draft
func (p *Panel) Draft() string {
	return p.draft
}

//SetDraft replaces the draft. It is ignored while busy.
func (p *Panel) SetDraft(draft string) {
	if p.busy {
		return
	}
	p.draft = draft
}

//Busy returns true while a request is outstanding
func (p *Panel) Busy() bool {
	return p.busy
}

//Append adds a message to the log and returns it
func (p *Panel) Append(author Author, kind Kind, payload string) Message {
	m := p.append(author, kind, payload)
	p.changed()
	return m
}

func (p *Panel) append(author Author, kind Kind, payload string) Message {
	id := p.clock.Now().UnixMilli()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id

	m := Message{ID: id, Author: author, Kind: kind, Payload: payload}
	p.messages = append(p.messages, m)
	return m
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

//Begin starts a submission of the current draft. It appends the draft as a User message, sets busy,
//clears the draft, and returns the Request to send. ok is false, and nothing changes, if the draft is
//blank or a request is already outstanding.
func (p *Panel) Begin() (req Request, ok bool) {
	if p.busy || strings.TrimSpace(p.draft) == "" {
		return Request{}, false
	}

	prompt := p.draft
	p.append(User, KindText, prompt)
	p.busy = true
	p.draft = ""
	p.changed()

	return Request{Prompt: prompt, History: cloneHistory(p.history)}, true
}

//Send passes req to the Panel's Gateway. It does not touch Panel state and may be called from any goroutine.
func (p *Panel) Send(ctx context.Context, req Request) (*Response, error) {
	return p.gateway.Send(ctx, req)
}

//Complete applies the result of the outstanding request and clears busy.
//It returns OutcomeIgnored if no request is outstanding.
func (p *Panel) Complete(resp *Response, err error) Outcome {
	if !p.busy {
		return OutcomeIgnored
	}

	var outcome Outcome
	switch {
	case err != nil || resp == nil:
		outcome = OutcomeEmpty
		log.Debug().Err(err).Msg("conversation: no result from gateway")
	case resp.StatusCode != 200:
		outcome = OutcomeFailure
		p.append(System, KindText, FallbackText)
		log.Debug().Int("status", resp.StatusCode).Msg("conversation: gateway reported failure")
	default:
		outcome = OutcomeSuccess
		p.append(System, resp.Kind, resp.Content)
		p.history = cloneHistory(resp.History)
	}

	p.busy = false
	p.draft = ""
	p.changed()

	return outcome
}

//Submit sends the current draft and waits for the result
func (p *Panel) Submit(ctx context.Context) Outcome {
	req, ok := p.Begin()
	if !ok {
		return OutcomeIgnored
	}
	return p.Complete(p.Send(ctx, req))
}
