package core

import "strings"

// CategoryRule maps one category to the lowercase substrings that select it.
// A rule flagged Fallback is the catch-all; its keywords are ignored.
type CategoryRule struct {
	Name     string
	Keywords []string
	Fallback bool
}

// KeywordIndex matches free text to a category by substring search.
//
// Rules are scanned in configuration order and the first category with a
// matching keyword wins. The fallback category is never part of the scan: it
// is returned only when no other rule matched, regardless of where it sits
// in the configured order.
type KeywordIndex struct {
	rules    []CategoryRule
	fallback string
}

// NewKeywordIndex builds an index from rules in configuration order.
// Exactly one rule must be flagged as fallback. Keywords are trimmed and
// lowercased; empty keywords are dropped and never match.
func NewKeywordIndex(rules []CategoryRule) (*KeywordIndex, error) {
	ix := &KeywordIndex{rules: make([]CategoryRule, 0, len(rules))}
	for _, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, ErrEmptyCategory
		}
		if r.Fallback {
			if ix.fallback != "" {
				return nil, ErrMultipleFallback
			}
			ix.fallback = name
			continue
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		ix.rules = append(ix.rules, CategoryRule{Name: name, Keywords: kws})
	}
	if ix.fallback == "" {
		return nil, ErrNoFallback
	}
	return ix, nil
}

// Fallback returns the catch-all category name.
func (ix *KeywordIndex) Fallback() string {
	return ix.fallback
}

// CategoryFor returns the first category in configuration order with a
// keyword contained in text, or the fallback category when nothing matches.
// Matching is over lowercased text.
func (ix *KeywordIndex) CategoryFor(text string) string {
	text = strings.ToLower(text)
	for _, r := range ix.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Name
			}
		}
	}
	return ix.fallback
}

// Categorize derives the category for a transaction from its merchant and
// note text. Pure over (transaction, index): the same inputs always produce
// the same category.
func (ix *KeywordIndex) Categorize(t Transaction) string {
	return ix.CategoryFor(t.MatchText())
}
