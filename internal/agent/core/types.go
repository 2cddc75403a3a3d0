package core

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
)

// Request represents one incoming user request bound to a session
type Request struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at"`
}

// Category is the coarse request class assigned by the classifier
type Category string

const (
	CategoryNewsFetching   Category = "news_fetching"
	CategoryMathematical   Category = "mathematical"
	CategoryVisual         Category = "visual"
	CategoryComputation    Category = "computation"
	CategoryDataProcessing Category = "data_processing"
	CategoryGeneral        Category = "general"
)

// ClassificationResult is derived from a request each iteration. It is not
// persisted beyond the turn it informs.
type ClassificationResult struct {
	Category           Category `json:"category"`
	Concepts           []string `json:"concepts"`
	NeedsVisualization bool     `json:"needs_visualization"`
}

// DecisionKind tags the parsed planner reply
type DecisionKind string

const (
	DecisionToolCall    DecisionKind = "tool_call"
	DecisionFinalAnswer DecisionKind = "final_answer"
)

// TokenUsage captures one LLM round-trip's consumption
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Decision is the parsed planner reply: either a tool invocation or a final
// answer. Unparseable replies are folded into a final answer carrying the
// raw text.
type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Tool   string       `json:"tool,omitempty"`
	Args   []string     `json:"args,omitempty"`
	Answer string       `json:"answer,omitempty"`
	Raw    string       `json:"-"`
	Usage  TokenUsage   `json:"usage"`
}

// ToolInvocation is produced by the planner and consumed by the executor
type ToolInvocation struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// ToolResult is what a tool handler returns on success. Artifact optionally
// names a file the tool produced.
type ToolResult struct {
	Output   string `json:"output"`
	Artifact string `json:"artifact,omitempty"`
}

// Args carries coerced tool arguments keyed by parameter name
type Args map[string]any

func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

func (a Args) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

func (a Args) Float(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

func (a Args) Ints(name string) []int {
	v, _ := a[name].([]int)
	return v
}

// ToolHandler executes one registered tool with coerced arguments
type ToolHandler func(ctx context.Context, args Args) (ToolResult, error)

// Outcome is the executor's record of one dispatch attempt. Dispatched is
// false when the tool name had no registered handler; counters must not be
// touched in that case.
type Outcome struct {
	Output     string        `json:"output"`
	Artifact   string        `json:"artifact,omitempty"`
	Success    bool          `json:"success"`
	Dispatched bool          `json:"dispatched"`
	Duration   time.Duration `json:"duration"`
}

// RunResult represents the final outcome of processing one request
type RunResult struct {
	ID             string                `json:"id"`
	SessionID      string                `json:"session_id"`
	Request        string                `json:"request"`
	Category       string                `json:"category"`
	FinalAnswer    string                `json:"final_answer"`
	Iterations     int                   `json:"iterations"`
	HitCeiling     bool                  `json:"hit_ceiling"`
	ToolsUsed      []string              `json:"tools_used,omitempty"`
	Turns          []session_object.Turn `json:"turns,omitempty"`
	ProcessingTime time.Duration         `json:"processing_time"`
	TokensUsed     int64                 `json:"tokens_used"`
	CostEstimate   float64               `json:"cost_estimate"`
	ModelUsed      string                `json:"model_used"`
	CreatedAt      time.Time             `json:"created_at"`
}

// RunStatus represents the live status of a run moving through the loop
type RunStatus struct {
	RunID         string          `json:"run_id"`
	SessionID     string          `json:"session_id"`
	State         models.RunState `json:"state"`
	Iteration     int             `json:"iteration"`
	MaxIterations int             `json:"max_iterations"`
	CurrentStep   string          `json:"current_step,omitempty"`
	Error         string          `json:"error,omitempty"`
	LastUpdated   time.Time       `json:"last_updated"`
	CreatedAt     time.Time       `json:"created_at"`
}
