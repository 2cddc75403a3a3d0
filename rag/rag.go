// Package rag provides keyword-overlap retrieval over a fixed snippet corpus.
// The corpus is loaded once at construction and never mutated.
package rag

import (
	"fmt"
	"sort"
	"strings"
)

// Snippet is a short hand-authored document with a keyword set used for scoring.
type Snippet struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Keywords []string `json:"keywords"`

	keywordSet map[string]struct{}
}

// Result is one retrieved snippet with its overlap score.
type Result struct {
	Snippet Snippet `json:"snippet"`
	Score   int     `json:"score"`
}

// Store holds the read-only snippet corpus.
type Store struct {
	snippets []Snippet
}

// New builds a Store from the given snippets. Panics if the corpus is empty:
// an empty retrieval store is a programming error, not a runtime condition.
func New(snippets []Snippet) *Store {
	if len(snippets) == 0 {
		panic("rag: empty snippet corpus")
	}
	out := make([]Snippet, len(snippets))
	copy(out, snippets)
	for i := range out {
		set := make(map[string]struct{}, len(out[i].Keywords))
		for _, kw := range out[i].Keywords {
			set[strings.ToLower(kw)] = struct{}{}
		}
		out[i].keywordSet = set
	}
	return &Store{snippets: out}
}

// NewDefault builds a Store over the built-in corpus.
func NewDefault() *Store {
	return New(defaultCorpus)
}

// Retrieve returns up to k snippets scored by keyword overlap with the query,
// highest score first. Ties keep corpus order. Snippets with zero score are
// never returned, so the result may be empty.
func (s *Store) Retrieve(query string, k int) []Result {
	if k <= 0 {
		return nil
	}
	words := queryWords(query)

	type scored struct {
		res Result
		pos int
	}
	var hits []scored
	for i, sn := range s.snippets {
		score := 0
		for _, w := range words {
			if _, ok := sn.keywordSet[w]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{res: Result{Snippet: sn, Score: score}, pos: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].res.Score != hits[b].res.Score {
			return hits[a].res.Score > hits[b].res.Score
		}
		return hits[a].pos < hits[b].pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.res)
	}
	return out
}

// EnhanceContext formats retrieved snippets into a prompt-ready block.
func EnhanceContext(results []Result) string {
	if len(results) == 0 {
		return "No relevant context found."
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("**%s**: %s", r.Snippet.Title, r.Snippet.Body))
	}
	return strings.Join(parts, "\n")
}

// Recommendations scans snippet bodies for mentions of known tool names and
// returns them in first-seen order. The planner surfaces these as hints.
func Recommendations(results []Result, toolNames []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		body := strings.ToLower(r.Snippet.Body)
		for _, name := range toolNames {
			if _, dup := seen[name]; dup {
				continue
			}
			if strings.Contains(body, strings.ToLower(name)) {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

// SnippetIDs projects the retrieved results onto their snippet identifiers.
func SnippetIDs(results []Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Snippet.ID)
	}
	return ids
}

func queryWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
