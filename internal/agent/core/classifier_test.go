package core

import (
	"testing"
)

func TestClassifyBBCRequest(t *testing.T) {
	c := NewClassifier(DefaultRules())

	result := c.Classify("Get BBC headlines")
	if result.Category != CategoryNewsFetching {
		t.Fatalf("expected news_fetching, got %s", result.Category)
	}
	if result.NeedsVisualization {
		t.Fatal("plain headline request should not need visualization")
	}

	found := map[string]bool{}
	for _, concept := range result.Concepts {
		found[concept] = true
	}
	if !found["bbc"] || !found["headlines"] {
		t.Fatalf("expected bbc and headlines concepts, got %v", result.Concepts)
	}
}

func TestClassifyBrowserRequestNeedsVisualization(t *testing.T) {
	c := NewClassifier(DefaultRules())

	result := c.Classify("Get BBC headlines and show in browser")
	if result.Category != CategoryNewsFetching {
		t.Fatalf("expected news_fetching, got %s", result.Category)
	}
	if !result.NeedsVisualization {
		t.Fatal("browser request should need visualization")
	}
}

func TestClassifyCategoryPriorityOrder(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// "show" alone is visual, but "sum" matches the earlier mathematical rule
	if got := c.Classify("show me the sum").Category; got != CategoryMathematical {
		t.Fatalf("expected mathematical, got %s", got)
	}
	if got := c.Classify("draw something nice").Category; got != CategoryVisual {
		t.Fatalf("expected visual, got %s", got)
	}
	if got := c.Classify("calculate my taxes").Category; got != CategoryComputation {
		t.Fatalf("expected computation, got %s", got)
	}
	if got := c.Classify("exponential growth data").Category; got != CategoryDataProcessing {
		t.Fatalf("expected data_processing, got %s", got)
	}
}

func TestClassifyUnmatchedFallsBackToGeneral(t *testing.T) {
	c := NewClassifier(DefaultRules())

	result := c.Classify("hello there")
	if result.Category != CategoryGeneral {
		t.Fatalf("expected general, got %s", result.Category)
	}
	if len(result.Concepts) != 0 {
		t.Fatalf("expected no concepts, got %v", result.Concepts)
	}
	if result.NeedsVisualization {
		t.Fatal("expected no visualization flag")
	}
}

func TestClassifyConceptsSubsetOfVocabulary(t *testing.T) {
	rules := DefaultRules()
	c := NewClassifier(rules)

	vocab := map[string]bool{}
	for _, w := range rules.Vocabulary {
		vocab[w] = true
	}

	for _, request := range []string{
		"Get BBC headlines",
		"Find the ASCII values of characters in INDIA",
		"sum of exponentials",
		"draw a rectangle in paint",
		"completely unrelated text",
	} {
		for _, concept := range c.Classify(request).Concepts {
			if !vocab[concept] {
				t.Fatalf("concept %q from %q not in vocabulary", concept, request)
			}
		}
	}
}

func TestClassifyIsCaseInsensitiveSubstring(t *testing.T) {
	c := NewClassifier(DefaultRules())

	result := c.Classify("SUMMARY OF THE DAY")
	// "summary" contains "sum", which is how the word lists are meant to match
	if result.Category != CategoryMathematical {
		t.Fatalf("expected mathematical via substring, got %s", result.Category)
	}
}
