package core

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsagent/internal/capability"
	"github.com/mohammad-safakhou/newsagent/models"
)

// Opener opens a generated artifact for the user to look at, blocking until
// the display window is done.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// Executor dispatches tool invocations against the registered handler table.
// Dispatch fails closed: an unknown tool name yields a failure outcome, never
// a panic or a silent no-op.
type Executor struct {
	registry  *capability.Registry
	handlers  map[string]ToolHandler
	opener    Opener
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewExecutor creates a new executor instance
func NewExecutor(registry *capability.Registry, handlers map[string]ToolHandler, opener Opener, telemetry *telemetry.Telemetry) *Executor {
	return &Executor{
		registry:  registry,
		handlers:  handlers,
		opener:    opener,
		telemetry: telemetry,
		logger:    log.New(log.Writer(), "[EXECUTOR] ", log.LstdFlags),
	}
}

// Dispatch runs one tool invocation. The outcome's Dispatched flag is false
// only for unknown tool names; callers must skip counter updates in that
// case. When the request asked for visual output and the tool produced a
// visual artifact, the display step runs before Dispatch returns.
func (e *Executor) Dispatch(ctx context.Context, inv ToolInvocation, needsVisualization bool) Outcome {
	card, ok := e.registry.Tool(inv.Name)
	handler, hasHandler := e.handlers[inv.Name]
	if !ok || !hasHandler {
		e.logger.Printf("Unknown tool requested: %s", inv.Name)
		return Outcome{
			Output:  fmt.Sprintf("%v: %s", models.ErrUnknownTool, inv.Name),
			Success: false,
		}
	}

	args, err := coerceArgs(card, inv.Args)
	if err != nil {
		e.logger.Printf("Argument coercion failed for %s: %v", inv.Name, err)
		e.telemetry.RecordToolEvent(ctx, telemetry.ToolEvent{Name: inv.Name, Success: false, Error: err.Error()})
		return Outcome{
			Output:     fmt.Sprintf("invalid arguments for %s: %v", inv.Name, err),
			Success:    false,
			Dispatched: true,
		}
	}

	start := time.Now()
	result, err := handler(ctx, args)
	duration := time.Since(start)

	event := telemetry.ToolEvent{Name: inv.Name, Duration: duration, Success: err == nil}
	if err != nil {
		event.Error = err.Error()
	}
	e.telemetry.RecordToolEvent(ctx, event)

	if err != nil {
		e.logger.Printf("Tool %s failed after %v: %v", inv.Name, duration, err)
		return Outcome{
			Output:     fmt.Sprintf("tool %s failed: %v", inv.Name, err),
			Success:    false,
			Dispatched: true,
			Duration:   duration,
		}
	}

	e.logger.Printf("Tool %s completed in %v", inv.Name, duration)
	outcome := Outcome{
		Output:     result.Output,
		Artifact:   result.Artifact,
		Success:    true,
		Dispatched: true,
		Duration:   duration,
	}

	if needsVisualization && card.Visual && result.Artifact != "" && e.opener != nil {
		e.logger.Printf("Opening %s for display", result.Artifact)
		if err := e.opener.Open(ctx, result.Artifact); err != nil {
			e.logger.Printf("Display step failed: %v", err)
		}
	}

	return outcome
}

// coerceArgs maps pipe-delimited positional arguments onto the card's
// parameter specs, applying declared types and defaults. A trailing int_array
// parameter consumes all remaining arguments.
func coerceArgs(card capability.ToolCard, raw []string) (Args, error) {
	args := make(Args, len(card.Params))
	pos := 0
	for i, p := range card.Params {
		if pos >= len(raw) {
			if p.Default != "" {
				v, err := parseScalar(p.Type, p.Default)
				if err != nil {
					return nil, fmt.Errorf("default for %s: %w", p.Name, err)
				}
				args[p.Name] = v
				continue
			}
			if p.Required {
				return nil, fmt.Errorf("missing required parameter %s", p.Name)
			}
			continue
		}

		if p.Type == "int_array" && i == len(card.Params)-1 {
			vals, err := parseIntArray(raw[pos:])
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			args[p.Name] = vals
			pos = len(raw)
			continue
		}

		v, err := parseScalar(p.Type, raw[pos])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		args[p.Name] = v
		pos++
	}
	if pos < len(raw) {
		return nil, fmt.Errorf("too many arguments: got %d, want at most %d", len(raw), len(card.Params))
	}
	return args, nil
}

func parseScalar(typ, value string) (any, error) {
	switch typ {
	case "string":
		return value, nil
	case "integer":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		return n, nil
	case "number":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value)
		}
		return f, nil
	case "int_array":
		return parseIntArray([]string{value})
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", typ)
	}
}

// parseIntArray accepts either one token in "[73, 78]" or "73,78" form, or a
// series of already-split integer tokens.
func parseIntArray(tokens []string) ([]int, error) {
	if len(tokens) == 1 {
		t := strings.TrimSpace(tokens[0])
		t = strings.TrimPrefix(t, "[")
		t = strings.TrimSuffix(t, "]")
		tokens = strings.Split(t, ",")
	}
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.Trim(strings.TrimSpace(tok), "'\"")
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", tok)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty integer list")
	}
	return out, nil
}
