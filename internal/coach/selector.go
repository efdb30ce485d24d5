package coach

import (
	"strings"

	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
)

// Tier picks between the low latency and the higher quality model.
type Tier string

const (
	TierFast    Tier = "fast"
	TierQuality Tier = "quality"
)

// Selection is the set of capabilities a message needs.
type Selection struct {
	Search bool
	Maps   bool
	Tier   Tier
}

// Tools converts the selection to provider tools.
func (s Selection) Tools() []ml.Tool {
	var tools []ml.Tool
	if s.Search {
		tools = append(tools, ml.ToolSearch)
	}
	if s.Maps {
		tools = append(tools, ml.ToolMaps)
	}
	return tools
}

// Classifier decides which capabilities a user message needs.
type Classifier interface {
	Classify(text string) Selection
}

// KeywordClassifier matches lowercase substrings from two keyword lists.
type KeywordClassifier struct {
	search []string
	maps   []string
}

func NewKeywordClassifier(search, maps []string) *KeywordClassifier {
	return &KeywordClassifier{search: lowerAll(search), maps: lowerAll(maps)}
}

func (c *KeywordClassifier) Classify(text string) Selection {
	text = strings.ToLower(text)
	sel := Selection{
		Search: containsAny(text, c.search),
		Maps:   containsAny(text, c.maps),
		Tier:   TierQuality,
	}
	// augmented calls are latency sensitive
	if sel.Search || sel.Maps {
		sel.Tier = TierFast
	}
	return sel
}

// LocaleClassifier classifies with the keyword lists of the active locale
// pack, so a reloaded pack takes effect on the next message.
type LocaleClassifier struct {
	store *locale.Store
}

func NewLocaleClassifier(store *locale.Store) *LocaleClassifier {
	return &LocaleClassifier{store: store}
}

func (c *LocaleClassifier) Classify(text string) Selection {
	kw := c.store.Current().Keywords
	return NewKeywordClassifier(kw.Search, kw.Maps).Classify(text)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
