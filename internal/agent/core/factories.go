package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/capability"
	"github.com/mohammad-safakhou/newsagent/news"
	"github.com/mohammad-safakhou/newsagent/provider"
	"github.com/mohammad-safakhou/newsagent/tools/article"
	"github.com/mohammad-safakhou/newsagent/tools/display"
	"github.com/mohammad-safakhou/newsagent/tools/draw"
	"github.com/mohammad-safakhou/newsagent/tools/headlines"
	"github.com/mohammad-safakhou/newsagent/tools/mathops"
)

// NewLLMProvider creates an LLM provider from configuration.
func NewLLMProvider(cfg config.LLMConfig) (provider.Provider, error) {
	return provider.NewProvider(provider.Client(cfg.Provider), provider.Options{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})
}

// Toolset bundles tool handlers with the registry cards describing them.
// Handlers and cards are keyed by the same names; the registry enforces that
// required tools are present, the executor enforces that dispatched names
// have a handler.
type Toolset struct {
	Handlers map[string]ToolHandler
	Cards    []capability.ToolCard
}

// Names returns the tool names in card order.
func (ts *Toolset) Names() []string {
	out := make([]string, 0, len(ts.Cards))
	for _, c := range ts.Cards {
		out = append(out, c.Name)
	}
	return out
}

// NewToolset builds every built-in tool. Cards get a checksum always and a
// signature when a signing secret is configured.
func NewToolset(cfg *config.Config) (*Toolset, error) {
	source, err := news.NewSource(news.SourceTypeRSS, cfg.Feeds.BBC.URL, cfg.Feeds.BBC.Timeout)
	if err != nil {
		return nil, fmt.Errorf("creating news source: %w", err)
	}

	fetcher := headlines.New(source, cfg.Agent.ArtifactsDir)
	shower := display.New(cfg.Agent.ArtifactsDir, cfg.Agent.DisplayWait)
	painter := draw.New(cfg.Agent.ArtifactsDir)
	reader, err := article.NewDefault(cfg.General.DefaultTimeout, article.DefaultMaxChars)
	if err != nil {
		return nil, fmt.Errorf("creating article reader: %w", err)
	}

	handlers := map[string]ToolHandler{
		"fetch_bbc_headlines": func(ctx context.Context, args Args) (ToolResult, error) {
			output, artifact, err := fetcher.Fetch(ctx, args.Int("num_headlines"))
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Output: output, Artifact: artifact}, nil
		},
		"display_headlines_in_browser": func(ctx context.Context, args Args) (ToolResult, error) {
			output, artifact, err := shower.Show()
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Output: output, Artifact: artifact}, nil
		},
		"draw_rectangle": func(ctx context.Context, args Args) (ToolResult, error) {
			output, artifact, err := painter.Rectangle(args.Int("width"), args.Int("height"), args.String("text"))
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Output: output, Artifact: artifact}, nil
		},
		"read_article": func(ctx context.Context, args Args) (ToolResult, error) {
			res, err := reader.Exec(ctx, args.String("url"))
			if err != nil {
				return ToolResult{}, err
			}
			output := res.Text
			if res.Title != "" {
				output = res.Title + "\n\n" + res.Text
			}
			return ToolResult{Output: output}, nil
		},
		"add": func(ctx context.Context, args Args) (ToolResult, error) {
			sum := mathops.Add(args.Int("a"), args.Int("b"))
			return ToolResult{Output: strconv.Itoa(sum)}, nil
		},
		"strings_to_chars_to_int": func(ctx context.Context, args Args) (ToolResult, error) {
			s := args.String("string")
			if strings.TrimSpace(s) == "" {
				return ToolResult{}, fmt.Errorf("string must not be empty")
			}
			return ToolResult{Output: mathops.FormatInts(mathops.StringsToCharsToInt(s))}, nil
		},
		"int_list_to_exponential_sum": func(ctx context.Context, args Args) (ToolResult, error) {
			vals := args.Ints("int_list")
			if len(vals) == 0 {
				return ToolResult{}, fmt.Errorf("int_list must not be empty")
			}
			return ToolResult{Output: mathops.FormatFloat(mathops.IntListToExponentialSum(vals))}, nil
		},
	}

	cards, err := buildCards(cfg)
	if err != nil {
		return nil, err
	}
	return &Toolset{Handlers: handlers, Cards: cards}, nil
}

func buildCards(cfg *config.Config) ([]capability.ToolCard, error) {
	cards := defaultToolCards(cfg.Feeds.BBC.DefaultCount)
	for i := range cards {
		if err := capability.ValidateToolCard(cards[i]); err != nil {
			return nil, err
		}
		sum, err := capability.ComputeChecksum(cards[i])
		if err != nil {
			return nil, fmt.Errorf("checksum for %s: %w", cards[i].Name, err)
		}
		cards[i].Checksum = sum
		if cfg.Capability.SigningSecret != "" {
			sig, err := capability.SignToolCard(cards[i], cfg.Capability.SigningSecret)
			if err != nil {
				return nil, fmt.Errorf("signing %s: %w", cards[i].Name, err)
			}
			cards[i].Signature = sig
		}
	}
	return cards, nil
}

func defaultToolCards(defaultHeadlines int) []capability.ToolCard {
	return []capability.ToolCard{
		{
			Name:        "fetch_bbc_headlines",
			Version:     "1.0.0",
			Description: "Fetch latest BBC news headlines and save them to a file",
			Params: []capability.ParamSpec{
				{Name: "num_headlines", Type: "integer", Default: strconv.Itoa(defaultHeadlines)},
			},
			Returns:     "numbered list of headlines",
			SideEffects: []string{"network", "writes " + headlines.FileName},
		},
		{
			Name:        "display_headlines_in_browser",
			Version:     "1.0.0",
			Description: "Display the previously fetched BBC headlines in a browser window",
			Returns:     "confirmation message",
			SideEffects: []string{"writes " + display.FileName, "opens browser"},
			Visual:      true,
		},
		{
			Name:        "draw_rectangle",
			Version:     "1.0.0",
			Description: "Draw a rectangle, optionally with text inside, and save it as an image",
			Params: []capability.ParamSpec{
				{Name: "width", Type: "integer", Default: strconv.Itoa(draw.DefaultWidth)},
				{Name: "height", Type: "integer", Default: strconv.Itoa(draw.DefaultHeight)},
				{Name: "text", Type: "string"},
			},
			Returns:     "confirmation message",
			SideEffects: []string{"writes " + draw.FileName},
			Visual:      true,
		},
		{
			Name:        "read_article",
			Version:     "1.0.0",
			Description: "Fetch a news article by URL and extract its readable text",
			Params: []capability.ParamSpec{
				{Name: "url", Type: "string", Required: true},
			},
			Returns:     "article title and body text",
			SideEffects: []string{"network"},
		},
		{
			Name:        "add",
			Version:     "1.0.0",
			Description: "Add two numbers",
			Params: []capability.ParamSpec{
				{Name: "a", Type: "integer", Required: true},
				{Name: "b", Type: "integer", Required: true},
			},
			Returns: "sum of the two numbers",
		},
		{
			Name:        "strings_to_chars_to_int",
			Version:     "1.0.0",
			Description: "Return the ASCII values of the characters in a word",
			Params: []capability.ParamSpec{
				{Name: "string", Type: "string", Required: true},
			},
			Returns: "list of ASCII values",
		},
		{
			Name:        "int_list_to_exponential_sum",
			Version:     "1.0.0",
			Description: "Return sum of exponentials of numbers in a list",
			Params: []capability.ParamSpec{
				{Name: "int_list", Type: "int_array", Required: true},
			},
			Returns: "sum of e raised to each number",
		},
	}
}
