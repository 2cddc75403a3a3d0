package core

import (
	"log"
	"strings"
)

// CategoryRule maps trigger words to a category. Rules are checked in order;
// the first hit wins.
type CategoryRule struct {
	Category Category
	Words    []string
}

// Rules holds the classifier's word lists. The lists are data, not logic:
// swap them out to retarget the classifier.
type Rules struct {
	Categories  []CategoryRule
	Vocabulary  []string
	VisualWords []string
}

// DefaultRules returns the stock word lists for the news agent demo.
func DefaultRules() Rules {
	return Rules{
		Categories: []CategoryRule{
			{Category: CategoryNewsFetching, Words: []string{"bbc", "headlines", "news"}},
			{Category: CategoryMathematical, Words: []string{"sum", "add"}},
			{Category: CategoryVisual, Words: []string{"draw", "show", "display"}},
			{Category: CategoryComputation, Words: []string{"find", "calculate"}},
			{Category: CategoryDataProcessing, Words: []string{"ascii", "exponential"}},
		},
		Vocabulary: []string{
			"ascii", "exponential", "sum", "india", "values", "characters",
			"bbc", "headlines", "news", "browser", "paint", "draw",
		},
		VisualWords: []string{
			"draw", "show", "display", "graph", "window",
			"paint", "turtle", "browser", "visualize", "visualise",
		},
	}
}

// Classifier tags a request with a category, extracts known concepts and
// decides whether the request asks for visual output. It never fails; an
// unmatched request falls through to the general category.
type Classifier struct {
	rules  Rules
	logger *log.Logger
}

// NewClassifier creates a classifier with the given rules.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{
		rules:  rules,
		logger: log.New(log.Writer(), "[CLASSIFIER] ", log.LstdFlags),
	}
}

// Classify derives a ClassificationResult from raw request text. Matching is
// case-insensitive substring containment.
func (c *Classifier) Classify(request string) ClassificationResult {
	lower := strings.ToLower(request)

	result := ClassificationResult{Category: CategoryGeneral}
	for _, rule := range c.rules.Categories {
		if containsAny(lower, rule.Words) {
			result.Category = rule.Category
			break
		}
	}

	for _, word := range c.rules.Vocabulary {
		if strings.Contains(lower, word) {
			result.Concepts = append(result.Concepts, word)
		}
	}

	result.NeedsVisualization = containsAny(lower, c.rules.VisualWords)

	c.logger.Printf("Classified request as %s (concepts=%v, visual=%t)",
		result.Category, result.Concepts, result.NeedsVisualization)
	return result
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
