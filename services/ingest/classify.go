package ingest

import (
	"slices"
	"strings"

	"mealplan-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Other is the category and subcategory of locations no rule matches.
const Other = "Other"

// Rule assigns Value to every location that mentions Keyword.
type Rule struct {
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
}

// DefaultCategories maps the dining commons to the campus area they serve.
var DefaultCategories = []Rule{
	{Keyword: "Findlay", Value: "East"},
	{Keyword: "Warnock", Value: "North"},
	{Keyword: "Redifer", Value: "South"},
	{Keyword: "Pollock", Value: "Pollock"},
	{Keyword: "HUB", Value: "Central"},
	{Keyword: "Waring", Value: "West"},
}

var DefaultSubcategories = []Rule{
	{Keyword: "Market", Value: "Convenience"},
	{Keyword: "Starbucks", Value: "Coffee"},
	{Keyword: "Commons", Value: "Dining Hall"},
	{Keyword: "Bluespoon", Value: "Cafe"},
	{Keyword: "WEPA", Value: "Printing"},
}

// DefaultSimilarity is the Jaro-Winkler similarity above which a word of a
// location is taken as a misspelling of a keyword.
const DefaultSimilarity = 0.9

// words shorter than this are never fuzzily matched
const minFuzzyLength = 4

// a ledger rarely mentions more than a few dozen distinct locations
const cacheSize = 512

type rule struct {
	Rule
	normalized string
}

// Classifier assigns a category and subcategory to a ledger location. Rules
// are tried in order, an exact (case and punctuation insensitive) mention of
// a keyword wins over a fuzzy match of a single word.
type Classifier struct {
	categories    []rule
	subcategories []rule
	similarity    float64
	cache         *lru.Cache[string, classification]
}

type classification struct {
	category    string
	subcategory string
}

func compile(rules []Rule) []rule {
	out := make([]rule, 0, len(rules))
	for _, r := range rules {
		normalized := textutil.NormalizeName(r.Keyword)
		if normalized == "" {
			continue
		}
		out = append(out, rule{Rule: r, normalized: normalized})
	}
	return out
}

func NewClassifier(categories, subcategories []Rule, similarity float64) Classifier {
	cache, err := lru.New[string, classification](cacheSize)
	if err != nil {
		panic(err)
	}
	return Classifier{
		categories:    compile(categories),
		subcategories: compile(subcategories),
		similarity:    similarity,
		cache:         cache,
	}
}

// DefaultClassifier knows the main campus dining locations.
func DefaultClassifier() Classifier {
	return NewClassifier(DefaultCategories, DefaultSubcategories, DefaultSimilarity)
}

// Classify returns the category and subcategory of location, Other when
// nothing matches.
func (c Classifier) Classify(location string) (category, subcategory string) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(location); ok {
			return cached.category, cached.subcategory
		}
	}
	category = c.match(c.categories, location)
	subcategory = c.match(c.subcategories, location)
	if c.cache != nil {
		c.cache.Add(location, classification{category: category, subcategory: subcategory})
	}
	return category, subcategory
}

func (c Classifier) match(rules []rule, location string) string {
	normalized := textutil.NormalizeName(location)
	words := textutil.Words(location)
	for _, r := range rules {
		// short keywords such as "HUB" only match whole words
		if len(r.normalized) < minFuzzyLength {
			if slices.Contains(words, r.normalized) {
				return r.Value
			}
			continue
		}
		if strings.Contains(normalized, r.normalized) {
			return r.Value
		}
	}
	if c.similarity <= 0 {
		return Other
	}

	var mostSimilarity float64
	mostSimilar := Other
	for _, word := range words {
		if len(word) < minFuzzyLength {
			continue
		}
		for _, r := range rules {
			if len(r.normalized) < minFuzzyLength {
				continue
			}
			similarity := matchr.JaroWinkler(word, r.normalized, false)
			if similarity >= c.similarity && similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilar = r.Value
			}
		}
	}
	return mostSimilar
}
