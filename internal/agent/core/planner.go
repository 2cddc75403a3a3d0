package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsagent/provider"
)

// Planner turns the classified request, retrieved context and session memory
// into a prompt, sends it to the text provider and parses the reply into a
// Decision.
type Planner struct {
	cfg       config.LLMConfig
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// PlanInput is everything one planning round needs.
type PlanInput struct {
	Request         string
	Classification  ClassificationResult
	Context         string
	Memory          string
	ToolDocs        string
	Recommendations []string
	Iteration       int
	MaxIterations   int
}

// NewPlanner creates a new planner instance
func NewPlanner(cfg config.LLMConfig, llmProvider provider.Provider, telemetry *telemetry.Telemetry) *Planner {
	return &Planner{
		cfg:       cfg,
		provider:  llmProvider,
		telemetry: telemetry,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Decide runs one planning round. It returns an error only when the provider
// call itself fails; any reply text, however malformed, parses into a valid
// Decision.
func (p *Planner) Decide(ctx context.Context, in PlanInput) (Decision, error) {
	startTime := time.Now()

	systemPrompt := p.buildSystemPrompt(in.ToolDocs)
	userPrompt := p.buildUserPrompt(in)

	raw, inputTokens, outputTokens, err := p.provider.GenerateWithTokens(ctx, systemPrompt, userPrompt)
	latency := time.Since(startTime)
	if err != nil {
		return Decision{}, fmt.Errorf("generating decision: %w", err)
	}

	cost := p.telemetry.CalculateCost(int64(inputTokens), int64(outputTokens), p.cfg.CostPer1KInput, p.cfg.CostPer1KOutput)
	p.telemetry.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Model:        p.cfg.Model,
		InputTokens:  int64(inputTokens),
		OutputTokens: int64(outputTokens),
		Latency:      latency,
		Cost:         cost,
	})

	decision := ParseDecision(raw)
	decision.Usage = TokenUsage{InputTokens: inputTokens, OutputTokens: outputTokens, Cost: cost}

	switch decision.Kind {
	case DecisionToolCall:
		p.logger.Printf("Decision in %v: call %s with %d args", latency, decision.Tool, len(decision.Args))
	default:
		p.logger.Printf("Decision in %v: final answer", latency)
	}
	return decision, nil
}

// buildSystemPrompt renders the fixed instruction block with the tool
// catalogue substituted in.
func (p *Planner) buildSystemPrompt(toolDocs string) string {
	return fmt.Sprintf(`You are an intelligent agent solving problems in iterations. You have access to various mathematical, visualization, and news tools.

Available tools:
%s

You must respond with EXACTLY ONE line in one of these formats (no additional text):
1. For function calls:
   FUNCTION_CALL: function_name|param1|param2|...

2. For final answers:
   FINAL_ANSWER: [result]

Important:
- Think step by step about what needs to be done
- When a function returns multiple values, you need to process all of them
- Only give FINAL_ANSWER when you have completed all necessary calculations
- Do not repeat function calls with the same parameters
- Use appropriate tools for visualization when needed
- For news: First fetch headlines, then display in browser if requested

Examples:
- FUNCTION_CALL: add|5|3
- FUNCTION_CALL: strings_to_chars_to_int|INDIA
- FUNCTION_CALL: fetch_bbc_headlines|10
- FUNCTION_CALL: display_headlines_in_browser
- FINAL_ANSWER: [42]

DO NOT include any explanations or additional text.
Your entire response should be a single line starting with either FUNCTION_CALL: or FINAL_ANSWER:`, toolDocs)
}

// buildUserPrompt assembles the per-iteration query: the request, retrieved
// context, classification signals and the session memory.
func (p *Planner) buildUserPrompt(in PlanInput) string {
	var b strings.Builder
	b.WriteString(in.Request)

	if in.Context != "" {
		b.WriteString("\n\n=== KNOWLEDGE BASE CONTEXT ===\n")
		b.WriteString(in.Context)
	}

	b.WriteString("\n\nContext Information:\n")
	fmt.Fprintf(&b, "- Query type: %s\n", in.Classification.Category)
	if len(in.Classification.Concepts) > 0 {
		fmt.Fprintf(&b, "- Key concepts: %s\n", strings.Join(in.Classification.Concepts, ", "))
	}
	if in.Classification.NeedsVisualization || len(in.Recommendations) > 0 {
		b.WriteString("Decision Guidelines:\n")
		if in.Classification.NeedsVisualization {
			b.WriteString("- Visualization required\n")
		}
		if len(in.Recommendations) > 0 {
			fmt.Fprintf(&b, "- Recommended tools: %s\n", strings.Join(in.Recommendations, ", "))
		}
	}

	if in.Memory != "" {
		b.WriteString("\nSession memory:\n")
		b.WriteString(in.Memory)
	}

	fmt.Fprintf(&b, "\nIteration %d of %d. What should I do next?", in.Iteration, in.MaxIterations)
	return b.String()
}

// ParseDecision parses a reply using the line-prefix convention. The first
// line starting with a recognized marker wins; a reply with no marker is a
// final answer equal to the raw text.
func ParseDecision(raw string) Decision {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "FUNCTION_CALL:"):
			rest := strings.TrimPrefix(line, "FUNCTION_CALL:")
			parts := strings.Split(rest, "|")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if parts[0] == "" {
				break // empty tool name, treat the reply as free text
			}
			return Decision{Kind: DecisionToolCall, Tool: parts[0], Args: parts[1:], Raw: raw}
		case strings.HasPrefix(line, "FINAL_ANSWER:"):
			answer := strings.TrimSpace(strings.TrimPrefix(line, "FINAL_ANSWER:"))
			if strings.HasPrefix(answer, "[") && strings.HasSuffix(answer, "]") && len(answer) >= 2 {
				answer = strings.TrimSpace(answer[1 : len(answer)-1])
			}
			return Decision{Kind: DecisionFinalAnswer, Answer: answer, Raw: raw}
		}
	}
	return Decision{Kind: DecisionFinalAnswer, Answer: strings.TrimSpace(raw), Raw: raw}
}
