package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsagent/internal/capability"
	"github.com/mohammad-safakhou/newsagent/models"
	"github.com/mohammad-safakhou/newsagent/provider"
	"github.com/mohammad-safakhou/newsagent/rag"
	"github.com/mohammad-safakhou/newsagent/session"
	"github.com/mohammad-safakhou/newsagent/session/session_object"
	"github.com/mohammad-safakhou/newsagent/tools/display"
	"github.com/mohammad-safakhou/newsagent/utils"
)

// Orchestrator drives the agent loop: classify the request, retrieve
// knowledge, ask the planner for a decision, dispatch tools, and repeat until
// a final answer or the iteration ceiling.
type Orchestrator struct {
	config    *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	// Core components
	classifier  *Classifier
	knowledge   *rag.Store
	planner     *Planner
	executor    *Executor
	registry    *capability.Registry
	toolset     *Toolset
	llmProvider provider.Provider
	sessions    session.Store

	// Processing state
	processing map[string]*RunStatus
	mu         sync.RWMutex
}

// NewOrchestrator creates a new orchestrator instance
func NewOrchestrator(cfg *config.Config, logger *log.Logger, telem *telemetry.Telemetry, sessions session.Store) (*Orchestrator, error) {
	llmProvider, err := NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	toolset, err := NewToolset(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build toolset: %w", err)
	}

	registry, err := capability.NewRegistry(toolset.Cards, cfg.Capability.SigningSecret, cfg.Capability.RequiredTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build capability registry: %w", err)
	}

	opener, err := display.NewOpener(cfg.Agent.DisplayMode, cfg.Agent.DisplayWait)
	if err != nil {
		return nil, fmt.Errorf("failed to build display opener: %w", err)
	}

	o := &Orchestrator{
		config:      cfg,
		logger:      logger,
		telemetry:   telem,
		classifier:  NewClassifier(DefaultRules()),
		knowledge:   rag.NewDefault(),
		planner:     NewPlanner(cfg.LLM, llmProvider, telem),
		executor:    NewExecutor(registry, toolset.Handlers, opener, telem),
		registry:    registry,
		toolset:     toolset,
		llmProvider: llmProvider,
		sessions:    sessions,
		processing:  make(map[string]*RunStatus),
	}
	return o, nil
}

// LLM exposes the orchestrator's underlying LLM provider.
func (o *Orchestrator) LLM() provider.Provider {
	return o.llmProvider
}

// Tools returns the registered tool cards.
func (o *Orchestrator) Tools() []capability.ToolCard {
	return o.registry.Cards()
}

// ProcessRequest runs the agent loop for one request and returns the final
// result. The loop re-reads the original request every iteration; what moves
// it forward is the growing session memory fed to the planner.
func (o *Orchestrator) ProcessRequest(ctx context.Context, req Request) (RunResult, error) {
	startTime := time.Now()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = startTime
	}
	if strings.TrimSpace(req.Content) == "" {
		return RunResult{}, fmt.Errorf("request content is empty")
	}

	sess, err := o.sessions.EnsureSession(req.SessionID, o.config.Storage.Session.TTL)
	if err != nil {
		return RunResult{}, fmt.Errorf("ensuring session: %w", err)
	}
	req.SessionID = sess.ID()

	maxIter := o.config.Agent.MaxIterations

	status := &RunStatus{
		RunID:         req.ID,
		SessionID:     req.SessionID,
		State:         models.RunStateAwaitingRequest,
		MaxIterations: maxIter,
		CreatedAt:     time.Now(),
		LastUpdated:   time.Now(),
	}
	o.mu.Lock()
	o.processing[req.ID] = status
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.processing, req.ID)
		o.mu.Unlock()
	}()

	var (
		iterations  int
		toolsUsed   []string
		totalTokens int64
		totalCost   float64
	)

	runEvent := telemetry.RunEvent{
		ID:        req.ID,
		Request:   req.Content,
		StartTime: startTime,
		ModelUsed: o.config.LLM.Model,
	}
	defer func() {
		runEvent.EndTime = time.Now()
		runEvent.Duration = runEvent.EndTime.Sub(runEvent.StartTime)
		runEvent.Iterations = iterations
		runEvent.ToolsUsed = toolsUsed
		runEvent.TokensUsed = totalTokens
		runEvent.Cost = totalCost
		o.telemetry.RecordRunEvent(ctx, runEvent)
	}()

	o.logger.Printf("Starting run %s: %s", req.ID, utils.Truncate(req.Content, 80))
	sess.RecordRequest(req.Content)

	var (
		answered    bool
		finalAnswer string
		category    string
		lastOutcome Outcome
		turns       []session_object.Turn
	)

	for iteration := 1; iteration <= maxIter; iteration++ {
		iterations = iteration

		o.updateStatus(status, models.RunStateClassifying, iteration, "Classifying request")
		classification := o.classifier.Classify(req.Content)

		o.updateStatus(status, models.RunStateRetrieving, iteration, "Retrieving knowledge")
		results := o.knowledge.Retrieve(req.Content, o.config.Agent.TopK)
		snippetIDs := rag.SnippetIDs(results)

		if iteration == 1 {
			category = string(classification.Category)
			sess.RecordFact("category", category)
			if len(snippetIDs) > 0 {
				sess.RecordFact("snippets", strings.Join(snippetIDs, ","))
			}
		}

		o.updateStatus(status, models.RunStatePlanning, iteration, "Deciding next step")
		decision, err := o.planner.Decide(ctx, PlanInput{
			Request:         req.Content,
			Classification:  classification,
			Context:         rag.EnhanceContext(results),
			Memory:          sess.MemoryBlock(),
			ToolDocs:        CapabilitiesDoc(o.registry),
			Recommendations: rag.Recommendations(results, o.toolset.Names()),
			Iteration:       iteration,
			MaxIterations:   maxIter,
		})
		if err != nil {
			// The session log stays as it was: a run that never reached
			// dispatch appends no turn.
			o.setError(status, err)
			runEvent.Success = false
			runEvent.Error = err.Error()
			return RunResult{}, fmt.Errorf("planning failed: %w", err)
		}
		totalTokens += int64(decision.Usage.InputTokens + decision.Usage.OutputTokens)
		totalCost += decision.Usage.Cost

		if decision.Kind == DecisionFinalAnswer {
			answered = true
			finalAnswer = decision.Answer
			sess.RecordResponse(finalAnswer)
			break
		}

		o.updateStatus(status, models.RunStateExecuting, iteration, fmt.Sprintf("Executing %s", decision.Tool))
		outcome := o.executor.Dispatch(ctx, ToolInvocation{Name: decision.Tool, Args: decision.Args}, classification.NeedsVisualization)
		lastOutcome = outcome

		turn := session_object.Turn{
			ID:         uuid.New().String(),
			Request:    req.Content,
			Category:   string(classification.Category),
			Concepts:   classification.Concepts,
			SnippetIDs: snippetIDs,
			Action:     decision.Tool,
			Args:       decision.Args,
			Result:     outcome.Output,
			Success:    outcome.Success,
			Duration:   outcome.Duration.Milliseconds(),
			Timestamp:  time.Now(),
		}
		if err := sess.AppendTurn(turn); err != nil {
			o.logger.Printf("warn: appending turn for run %s failed: %v", req.ID, err)
		}
		turn.Iteration = iteration
		turns = append(turns, turn)
		if outcome.Dispatched {
			sess.RecordToolCall(decision.Tool, outcome.Duration)
			toolsUsed = append(toolsUsed, decision.Tool)
		}
	}

	if !answered {
		// Ceiling reached without a final answer. Not an error: the last
		// tool result stands in as the answer.
		finalAnswer = lastOutcome.Output
		sess.RecordResponse(finalAnswer)
	}

	o.updateStatus(status, models.RunStateDone, iterations, "Run complete")
	runEvent.Success = true

	result := RunResult{
		ID:             req.ID,
		SessionID:      req.SessionID,
		Request:        req.Content,
		Category:       category,
		FinalAnswer:    finalAnswer,
		Iterations:     iterations,
		HitCeiling:     !answered,
		ToolsUsed:      toolsUsed,
		Turns:          turns,
		ProcessingTime: time.Since(startTime),
		TokensUsed:     totalTokens,
		CostEstimate:   totalCost,
		ModelUsed:      o.config.LLM.Model,
		CreatedAt:      time.Now(),
	}
	o.logger.Printf("Run %s finished after %d iteration(s) in %.2fs", req.ID, iterations, time.Since(startTime).Seconds())

	// Persistence of the result is handled by the API server layer.
	return result, nil
}

// updateStatus updates the live run status
func (o *Orchestrator) updateStatus(status *RunStatus, state models.RunState, iteration int, step string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	status.State = state
	status.Iteration = iteration
	status.CurrentStep = step
	status.LastUpdated = time.Now()
}

func (o *Orchestrator) setError(status *RunStatus, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	status.State = models.RunStateFailed
	status.Error = err.Error()
	status.LastUpdated = time.Now()
}

// GetStatus returns the live status of an in-flight run.
func (o *Orchestrator) GetStatus(runID string) (RunStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status, exists := o.processing[runID]
	if !exists {
		return RunStatus{}, fmt.Errorf("%w: %s", models.ErrRunNotFound, runID)
	}
	return *status, nil
}

// PerformanceMetrics returns aggregate metrics, cost summary and the rendered
// report.
func (o *Orchestrator) PerformanceMetrics() map[string]interface{} {
	return map[string]interface{}{
		"metrics": o.telemetry.GetMetrics(),
		"costs":   o.telemetry.GetCostSummary(),
		"report":  o.telemetry.GetPerformanceReport(),
	}
}
