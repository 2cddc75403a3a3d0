package telemetry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors shared by all Telemetry instances. They feed the
// /metrics endpoint exposed by the HTTP server.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_runs_total",
		Help: "Completed agent runs by outcome",
	}, []string{"status"})
	runIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsagent_run_iterations",
		Help:    "Iterations consumed per agent run",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
	})
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_tool_executions_total",
		Help: "Tool dispatches by tool name and outcome",
	}, []string{"tool", "status"})
	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsagent_tool_duration_seconds",
		Help:    "Tool execution latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_llm_tokens_total",
		Help: "LLM tokens consumed by model and direction",
	}, []string{"model", "kind"})
)

// Telemetry provides monitoring and cost tracking for agent runs
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	mu          sync.RWMutex
}

// Metrics holds various performance metrics
type Metrics struct {
	// Run metrics
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	// Tool metrics
	ToolExecutions   map[string]int64
	ToolSuccessRates map[string]float64
	ToolAverageTimes map[string]time.Duration

	// LLM metrics
	LLMRequests       map[string]int64
	LLMTokensUsed     map[string]int64
	LLMAverageLatency map[string]time.Duration
}

// CostTracker tracks LLM spend across models
type CostTracker struct {
	ModelCosts  map[string]float64 // model -> cost
	TotalCost   float64
	TotalTokens int64
}

// RunEvent represents one complete agent run, from the incoming request
// to the final answer.
type RunEvent struct {
	ID         string
	Request    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Iterations int
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ToolsUsed  []string
	ModelUsed  string
}

// ToolEvent represents a single tool dispatch
type ToolEvent struct {
	Name     string
	Duration time.Duration
	Success  bool
	Error    string
}

// LLMEvent represents one planner round-trip to the text provider
type LLMEvent struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	Latency      time.Duration
	Cost         float64
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(config config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: config,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			ToolExecutions:    make(map[string]int64),
			ToolSuccessRates:  make(map[string]float64),
			ToolAverageTimes:  make(map[string]time.Duration),
			LLMRequests:       make(map[string]int64),
			LLMTokensUsed:     make(map[string]int64),
			LLMAverageLatency: make(map[string]time.Duration),
		},
		costTracker: &CostTracker{
			ModelCosts: make(map[string]float64),
		},
	}

	// Periodic snapshot logging can be disabled via config
	if config.Enabled && config.PeriodicLogs {
		go t.startMetricsCollection()
	}

	return t
}

// RecordRunEvent records a complete agent run
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Success {
		t.metrics.SuccessfulRuns++
		runsTotal.WithLabelValues("success").Inc()
	} else {
		t.metrics.FailedRuns++
		runsTotal.WithLabelValues("failure").Inc()
	}
	runIterations.Observe(float64(event.Iterations))

	// Update average run time
	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	t.costTracker.TotalCost += event.Cost
	t.costTracker.TotalTokens += event.TokensUsed

	t.logger.Printf("Run Event: ID=%s, Success=%t, Iterations=%d, Duration=%v, Cost=$%.4f, Tokens=%d",
		event.ID, event.Success, event.Iterations, event.Duration, event.Cost, event.TokensUsed)
}

// RecordToolEvent records a tool dispatch
func (t *Telemetry) RecordToolEvent(ctx context.Context, event ToolEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.ToolExecutions[event.Name]++

	status := "success"
	if !event.Success {
		status = "failure"
	}
	toolExecutions.WithLabelValues(event.Name, status).Inc()
	toolDuration.WithLabelValues(event.Name).Observe(event.Duration.Seconds())

	// Update success rate
	currentSuccess := t.metrics.ToolSuccessRates[event.Name] * float64(t.metrics.ToolExecutions[event.Name]-1)
	if event.Success {
		currentSuccess += 1.0
	}
	t.metrics.ToolSuccessRates[event.Name] = currentSuccess / float64(t.metrics.ToolExecutions[event.Name])

	// Update average time
	currentAvg := t.metrics.ToolAverageTimes[event.Name]
	executions := t.metrics.ToolExecutions[event.Name]
	if executions == 1 {
		t.metrics.ToolAverageTimes[event.Name] = event.Duration
	} else {
		total := currentAvg * time.Duration(executions-1)
		t.metrics.ToolAverageTimes[event.Name] = (total + event.Duration) / time.Duration(executions)
	}

	t.logger.Printf("Tool Event: Name=%s, Success=%t, Duration=%v", event.Name, event.Success, event.Duration)
}

// RecordLLMEvent records a planner call against the text provider
func (t *Telemetry) RecordLLMEvent(ctx context.Context, event LLMEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.LLMRequests[event.Model]++
	tokens := event.InputTokens + event.OutputTokens
	t.metrics.LLMTokensUsed[event.Model] += tokens
	llmTokens.WithLabelValues(event.Model, "input").Add(float64(event.InputTokens))
	llmTokens.WithLabelValues(event.Model, "output").Add(float64(event.OutputTokens))

	// Update average latency
	currentAvg := t.metrics.LLMAverageLatency[event.Model]
	requests := t.metrics.LLMRequests[event.Model]
	if requests == 1 {
		t.metrics.LLMAverageLatency[event.Model] = event.Latency
	} else {
		total := currentAvg * time.Duration(requests-1)
		t.metrics.LLMAverageLatency[event.Model] = (total + event.Latency) / time.Duration(requests)
	}

	if t.config.CostTracking {
		t.costTracker.ModelCosts[event.Model] += event.Cost
	}

	t.logger.Printf("LLM Event: Model=%s, Tokens=%d, Latency=%v, Cost=$%.4f",
		event.Model, tokens, event.Latency, event.Cost)
}

// GetMetrics returns current metrics snapshot
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Copy to avoid races with concurrent recorders
	metrics := *t.metrics
	metrics.ToolExecutions = make(map[string]int64)
	metrics.ToolSuccessRates = make(map[string]float64)
	metrics.ToolAverageTimes = make(map[string]time.Duration)
	metrics.LLMRequests = make(map[string]int64)
	metrics.LLMTokensUsed = make(map[string]int64)
	metrics.LLMAverageLatency = make(map[string]time.Duration)

	for k, v := range t.metrics.ToolExecutions {
		metrics.ToolExecutions[k] = v
	}
	for k, v := range t.metrics.ToolSuccessRates {
		metrics.ToolSuccessRates[k] = v
	}
	for k, v := range t.metrics.ToolAverageTimes {
		metrics.ToolAverageTimes[k] = v
	}
	for k, v := range t.metrics.LLMRequests {
		metrics.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMTokensUsed {
		metrics.LLMTokensUsed[k] = v
	}
	for k, v := range t.metrics.LLMAverageLatency {
		metrics.LLMAverageLatency[k] = v
	}

	return metrics
}

// CostSummary provides a summary of LLM spend
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	ModelCosts  map[string]float64
}

// GetCostSummary returns current cost summary
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := CostSummary{
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
		ModelCosts:  make(map[string]float64),
	}
	for k, v := range t.costTracker.ModelCosts {
		summary.ModelCosts[k] = v
	}
	return summary
}

// CalculateCost calculates the cost for a given number of tokens
func (t *Telemetry) CalculateCost(inputTokens, outputTokens int64, costPer1KInput, costPer1KOutput float64) float64 {
	inputCost := float64(inputTokens) / 1000.0 * costPer1KInput
	outputCost := float64(outputTokens) / 1000.0 * costPer1KOutput
	return inputCost + outputCost
}

// startMetricsCollection starts periodic metrics logging
func (t *Telemetry) startMetricsCollection() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		metrics := t.GetMetrics()
		costs := t.GetCostSummary()

		t.logger.Printf("Metrics Snapshot: Runs=%d/%d, AvgTime=%v, TotalCost=$%.4f, TotalTokens=%d",
			metrics.SuccessfulRuns, metrics.TotalRuns,
			metrics.AverageRunTime, costs.TotalCost, costs.TotalTokens)
	}
}

// Shutdown logs a final report
func (t *Telemetry) Shutdown() {
	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	if metrics.TotalRuns == 0 {
		t.logger.Println("Final Report: no runs recorded")
		return
	}

	t.logger.Printf("Final Report:")
	t.logger.Printf("  Total Runs: %d", metrics.TotalRuns)
	t.logger.Printf("  Success Rate: %.2f%%", float64(metrics.SuccessfulRuns)/float64(metrics.TotalRuns)*100)
	t.logger.Printf("  Average Run Time: %v", metrics.AverageRunTime)
	t.logger.Printf("  Total Cost: $%.4f", costs.TotalCost)
	t.logger.Printf("  Total Tokens: %d", costs.TotalTokens)
}

// GetPerformanceReport returns a detailed performance report
func (t *Telemetry) GetPerformanceReport() string {
	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	successPct := 0.0
	failurePct := 0.0
	if metrics.TotalRuns > 0 {
		successPct = float64(metrics.SuccessfulRuns) / float64(metrics.TotalRuns) * 100
		failurePct = float64(metrics.FailedRuns) / float64(metrics.TotalRuns) * 100
	}

	report := fmt.Sprintf(`
=== PERFORMANCE REPORT ===
Overall Metrics:
  Total Runs: %d
  Successful: %d (%.2f%%)
  Failed: %d (%.2f%%)
  Average Run Time: %v
  Total Cost: $%.4f
  Total Tokens: %d

Tool Performance:
`, metrics.TotalRuns, metrics.SuccessfulRuns, successPct,
		metrics.FailedRuns, failurePct,
		metrics.AverageRunTime, costs.TotalCost, costs.TotalTokens)

	for _, tool := range sortedKeys(metrics.ToolExecutions) {
		executions := metrics.ToolExecutions[tool]
		successRate := metrics.ToolSuccessRates[tool]
		avgTime := metrics.ToolAverageTimes[tool]
		report += fmt.Sprintf("  %s: %d executions, %.2f%% success, %v avg time\n",
			tool, executions, successRate*100, avgTime)
	}

	report += "\nLLM Usage:\n"
	for _, model := range sortedKeys(metrics.LLMRequests) {
		requests := metrics.LLMRequests[model]
		tokens := metrics.LLMTokensUsed[model]
		cost := costs.ModelCosts[model]
		report += fmt.Sprintf("  %s: %d requests, %d tokens, $%.4f\n",
			model, requests, tokens, cost)
	}

	return report
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
