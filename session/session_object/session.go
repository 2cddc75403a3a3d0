package session_object

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/newsagent/utils"
)

// Turn is one completed dispatch of the agent loop. Immutable after creation.
type Turn struct {
	ID         string    `json:"id"`
	Iteration  int       `json:"iteration"`
	Request    string    `json:"request"`
	Category   string    `json:"category"`
	Concepts   []string  `json:"concepts"`
	SnippetIDs []string  `json:"snippet_ids,omitempty"`
	Action     string    `json:"action"`
	Args       []string  `json:"args,omitempty"`
	Result     string    `json:"result"`
	Success    bool      `json:"success"`
	Duration   int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// TurnHit is one search result over the session's turn log.
type TurnHit struct {
	TurnID  string  `json:"turn_id"`
	Request string  `json:"request"`
	Action  string  `json:"action"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Summary is the derived aggregate over a session's log, computed on read.
type Summary struct {
	TotalTurns     int                      `json:"total_turns"`
	TotalRequests  int                      `json:"total_requests"`
	Successes      int                      `json:"successes"`
	Failures       int                      `json:"failures"`
	SuccessRate    float64                  `json:"success_rate"`
	ToolCalls      map[string]int           `json:"tool_calls"`
	AverageLatency map[string]time.Duration `json:"average_latency"`
	LastResponse   string                   `json:"last_response"`
}

// State is the serialized form of a session, used for export/import and for
// snapshot persistence.
type State struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Requests      []string          `json:"requests"`
	Turns         []Turn            `json:"turns"`
	Facts         map[string]string `json:"facts"`
	ToolCalls     map[string]int    `json:"tool_calls"`
	ToolLatencyMS map[string]int64  `json:"tool_latency_ms"`
	LastResponse  string            `json:"last_response"`
}

// Session is the append-only state log for one agent session. Appends are
// mutually exclusive; reads observe a consistent prefix.
type Session struct {
	id           string
	createdAt    time.Time
	expiresAt    time.Time
	requests     []string
	turns        []Turn
	facts        map[string]string
	toolCalls    map[string]int
	toolLatency  map[string]time.Duration
	lastResponse string
	bleve        bleve.Index
	mu           sync.RWMutex
}

// turnDoc is the shape indexed per turn for text search.
type turnDoc struct {
	Request string `json:"request"`
	Action  string `json:"action"`
	Result  string `json:"result"`
}

func NewSession(id string, ttl time.Duration) (*Session, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Session{
		id:          id,
		createdAt:   time.Now(),
		expiresAt:   time.Now().Add(ttl),
		facts:       make(map[string]string),
		toolCalls:   make(map[string]int),
		toolLatency: make(map[string]time.Duration),
		bleve:       index,
	}, nil
}

// NewSessionFromState rebuilds a session from an exported state, re-indexing
// every turn.
func NewSessionFromState(st State, ttl time.Duration) (*Session, error) {
	s, err := NewSession(st.ID, ttl)
	if err != nil {
		return nil, err
	}
	s.createdAt = st.CreatedAt
	s.requests = append(s.requests, st.Requests...)
	s.lastResponse = st.LastResponse
	for k, v := range st.Facts {
		s.facts[k] = v
	}
	for k, v := range st.ToolCalls {
		s.toolCalls[k] = v
	}
	for k, ms := range st.ToolLatencyMS {
		s.toolLatency[k] = time.Duration(ms) * time.Millisecond
	}
	for _, t := range st.Turns {
		s.turns = append(s.turns, t)
		if err := s.bleve.Index(t.ID, turnDoc{Request: t.Request, Action: t.Action, Result: t.Result}); err != nil {
			return nil, fmt.Errorf("reindexing turn %s: %w", t.ID, err)
		}
	}
	return s, nil
}

func (s *Session) ID() string               { return s.id }
func (s *Session) CreatedAt() time.Time     { return s.createdAt }
func (s *Session) Expire(ttl time.Duration) { s.expiresAt = time.Now().Add(ttl) }

// RecordRequest appends an incoming request to the session log.
func (s *Session) RecordRequest(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, text)
}

// RecordFact stores a derived fact. Later writes to the same key win.
func (s *Session) RecordFact(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[key] = value
}

// RecordToolCall bumps the invocation counter and cumulative latency for a
// dispatched tool. Callers must only record tools that were actually looked
// up and invoked.
func (s *Session) RecordToolCall(name string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls[name]++
	s.toolLatency[name] += latency
}

// AppendTurn appends a completed turn and indexes it for search. The last
// response always tracks the most recent turn's result.
func (s *Session) AppendTurn(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Iteration = len(s.turns) + 1
	s.turns = append(s.turns, t)
	s.lastResponse = t.Result
	return s.bleve.Index(t.ID, turnDoc{Request: t.Request, Action: t.Action, Result: t.Result})
}

// RecordResponse sets the last response without appending a turn. Used when
// a run ends with a final answer rather than a tool dispatch.
func (s *Session) RecordResponse(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResponse = text
}

// LastTurn returns the most recent turn, if any.
func (s *Session) LastTurn() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// Turns returns a copy of all turns in append order.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Facts returns a copy of the recorded facts.
func (s *Session) Facts() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out
}

func (s *Session) LastResponse() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResponse
}

// ToolCalls returns a copy of the per-tool invocation counters.
func (s *Session) ToolCalls() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.toolCalls))
	for k, v := range s.toolCalls {
		out[k] = v
	}
	return out
}

// Summary derives the aggregate view of the log. Nothing is cached; the
// result always reflects every append that returned before the call.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{
		TotalTurns:     len(s.turns),
		TotalRequests:  len(s.requests),
		ToolCalls:      make(map[string]int, len(s.toolCalls)),
		AverageLatency: make(map[string]time.Duration, len(s.toolLatency)),
		LastResponse:   s.lastResponse,
	}
	for _, t := range s.turns {
		if t.Success {
			sum.Successes++
		} else {
			sum.Failures++
		}
	}
	if sum.TotalTurns > 0 {
		sum.SuccessRate = float64(sum.Successes) / float64(sum.TotalTurns)
	}
	for k, v := range s.toolCalls {
		sum.ToolCalls[k] = v
		if v > 0 {
			sum.AverageLatency[k] = s.toolLatency[k] / time.Duration(v)
		}
	}
	return sum
}

// IterationHistory renders one line per turn for the planner prompt.
func (s *Session) IterationHistory() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.turns))
	for i, t := range s.turns {
		out = append(out, fmt.Sprintf("In iteration %d you called %s, and it returned %s.",
			i+1, t.Action, utils.Truncate(t.Result, 200)))
	}
	return out
}

// SearchTurns runs a text search over the indexed turn log.
func (s *Session) SearchTurns(q string, k int) ([]TurnHit, error) {
	if k <= 0 {
		k = 10
	}
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := s.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	byID := make(map[string]Turn, len(s.turns))
	for _, t := range s.turns {
		byID[t.ID] = t
	}
	s.mu.RUnlock()

	var out []TurnHit
	for i, hit := range res.Hits {
		t, ok := byID[hit.ID]
		if !ok {
			continue
		}
		out = append(out, TurnHit{
			TurnID:  t.ID,
			Request: t.Request,
			Action:  t.Action,
			Snippet: utils.Truncate(t.Result, 300),
			Score:   hit.Score,
			Rank:    i + 1,
		})
	}
	return out, nil
}

// ExportState serializes the session for persistence or transfer.
func (s *Session) ExportState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		ID:            s.id,
		CreatedAt:     s.createdAt,
		Requests:      append([]string(nil), s.requests...),
		Turns:         append([]Turn(nil), s.turns...),
		Facts:         make(map[string]string, len(s.facts)),
		ToolCalls:     make(map[string]int, len(s.toolCalls)),
		ToolLatencyMS: make(map[string]int64, len(s.toolLatency)),
		LastResponse:  s.lastResponse,
	}
	for k, v := range s.facts {
		st.Facts[k] = v
	}
	for k, v := range s.toolCalls {
		st.ToolCalls[k] = v
	}
	for k, v := range s.toolLatency {
		st.ToolLatencyMS[k] = v.Milliseconds()
	}
	return st
}

// MarshalState renders the exported state as JSON.
func (s *Session) MarshalState() ([]byte, error) {
	return json.Marshal(s.ExportState())
}

// MemoryBlock renders the session for the planner prompt: facts, counters
// and the iteration history.
func (s *Session) MemoryBlock() string {
	sum := s.Summary()
	facts := s.Facts()
	history := s.IterationHistory()

	out := fmt.Sprintf("Turns so far: %d (success rate %.0f%%)\n", sum.TotalTurns, sum.SuccessRate*100)
	if len(sum.ToolCalls) > 0 {
		names := make([]string, 0, len(sum.ToolCalls))
		for name := range sum.ToolCalls {
			names = append(names, name)
		}
		sort.Strings(names)
		out += "Tool usage:\n"
		for _, name := range names {
			out += fmt.Sprintf("  %s: %d\n", name, sum.ToolCalls[name])
		}
	}
	if len(facts) > 0 {
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out += "Known facts:\n"
		for _, k := range keys {
			out += fmt.Sprintf("  %s: %s\n", k, facts[k])
		}
	}
	if len(history) > 0 {
		out += "History:\n"
		for _, line := range history {
			out += "  " + line + "\n"
		}
	}
	if sum.LastResponse != "" {
		out += "Last response: " + utils.Truncate(sum.LastResponse, 200) + "\n"
	}
	return out
}
