package detect

import (
	"fmt"

	"markettrack-api/internal/model"
)

// InitialCreation is the summary written when an entity is observed for
// the first time.
const InitialCreation = "Initial creation"

// SummarySeparator joins multi-field summaries on the live write path.
// The offline cleaner later normalizes stored summaries to comma form.
const SummarySeparator = " | "

// Result is the outcome of comparing a fresh snapshot against the last
// stored state of the same entity.
type Result struct {
	Changed bool
	// Fields maps each materially changed field name to its new value.
	Fields map[string]any
	// Summary holds one human-readable line per detected change, in
	// render order. Join with SummarySeparator for persistence.
	Summary []string
}

// MarketResult extends Result with the membership diff of a market.
// Added and Removed are always disjoint.
type MarketResult struct {
	Result
	Added   []string
	Removed []string
	// Suggestions is the fresh suggestion sequence in source order;
	// it is what gets stored even when it only differs in order.
	Suggestions []string
}

// fieldSpec statically pairs a tracked field name with accessors on
// both the snapshot and the change-record side. The value is reported
// as absent when the scrape did not observe it, so a transient scrape
// failure never shows up as a change.
type fieldSpec struct {
	name     string
	current  func(*model.ProductSnapshot) (any, bool)
	previous func(*model.ProductChange) (any, bool)
}

func strField(s string) (any, bool)      { return s, s != "" }
func floatField(p *float64) (any, bool) { // nil means unobserved
	if p == nil {
		return nil, false
	}
	return *p, true
}
func intField(p *int64) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

// productFields is the single declared list of tracked product fields.
// The title is handled separately because its change is surfaced as a
// sentinel line instead of echoing the full text.
var productFields = []fieldSpec{
	{"price",
		func(s *model.ProductSnapshot) (any, bool) { return floatField(s.Price) },
		func(c *model.ProductChange) (any, bool) { return floatField(c.Price) }},
	{"bought_last_month",
		func(s *model.ProductSnapshot) (any, bool) { return intField(s.BoughtLastMonth) },
		func(c *model.ProductChange) (any, bool) { return intField(c.BoughtLastMonth) }},
	{"main_category",
		func(s *model.ProductSnapshot) (any, bool) { return strField(s.MainCategory) },
		func(c *model.ProductChange) (any, bool) { return strField(c.MainCategory) }},
	{"main_category_rank",
		func(s *model.ProductSnapshot) (any, bool) { return intField(s.MainCategoryRank) },
		func(c *model.ProductChange) (any, bool) { return intField(c.MainCategoryRank) }},
	{"second_category",
		func(s *model.ProductSnapshot) (any, bool) { return strField(s.SecondCategory) },
		func(c *model.ProductChange) (any, bool) { return strField(c.SecondCategory) }},
	{"second_category_rank",
		func(s *model.ProductSnapshot) (any, bool) { return intField(s.SecondCategoryRank) },
		func(c *model.ProductChange) (any, bool) { return intField(c.SecondCategoryRank) }},
	{"review_count",
		func(s *model.ProductSnapshot) (any, bool) { return intField(s.ReviewCount) },
		func(c *model.ProductChange) (any, bool) { return intField(c.ReviewCount) }},
	{"rating",
		func(s *model.ProductSnapshot) (any, bool) { return floatField(s.Rating) },
		func(c *model.ProductChange) (any, bool) { return floatField(c.Rating) }},
	{"store",
		func(s *model.ProductSnapshot) (any, bool) { return strField(s.Store) },
		func(c *model.ProductChange) (any, bool) { return strField(c.Store) }},
	{"manufacturer",
		func(s *model.ProductSnapshot) (any, bool) { return strField(s.Manufacturer) },
		func(c *model.ProductChange) (any, bool) { return strField(c.Manufacturer) }},
}

// Product compares a fresh product snapshot against the last stored
// change record. A field counts as changed only when the new value was
// actually observed AND differs from the stored one: missing values in
// an unreliable scrape must not generate spurious history, even when
// they would overwrite a previously known value.
func Product(prev *model.ProductChange, cur *model.ProductSnapshot) Result {
	if prev == nil {
		return Result{Changed: true, Summary: []string{InitialCreation}}
	}

	res := Result{Fields: map[string]any{}}

	// Title sentinel goes first: titles are long and noisy, so the
	// summary never echoes old/new text.
	if cur.Title != "" && cur.Title != prev.Title {
		res.Changed = true
		res.Fields["title"] = cur.Title
		res.Summary = append(res.Summary, "title changed")
	}

	for _, f := range productFields {
		curVal, ok := f.current(cur)
		if !ok {
			continue
		}
		prevVal, prevOK := f.previous(prev)
		if prevOK && curVal == prevVal {
			continue
		}
		res.Changed = true
		res.Fields[f.name] = curVal
		res.Summary = append(res.Summary, fmt.Sprintf("%s changed: %s → %v", f.name, renderOld(prevVal, prevOK), curVal))
	}

	if !res.Changed {
		res.Fields = nil
	}
	return res
}

func renderOld(v any, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%v", v)
}

// Market compares a fresh market snapshot against the market's live
// member set and its last stored change record. Membership and
// suggestions are compared as sets; order alone never triggers a
// change, but the fresh sequence order is what gets stored.
func Market(prev *model.MarketChange, liveMembers []string, cur *model.MarketSnapshot) MarketResult {
	res := MarketResult{Suggestions: cur.TopSuggestions}
	fresh := cur.ASINs()

	if prev == nil {
		res.Changed = true
		res.Summary = []string{InitialCreation}
		res.Added = fresh
		return res
	}

	live := toSet(liveMembers)
	freshSet := toSet(fresh)
	for _, asin := range fresh {
		if _, ok := live[asin]; !ok {
			res.Added = append(res.Added, asin)
		}
	}
	for _, asin := range liveMembers {
		if _, ok := freshSet[asin]; !ok {
			res.Removed = append(res.Removed, asin)
		}
	}

	if len(res.Added) > 0 {
		res.Changed = true
		res.Summary = append(res.Summary, "Neue Produkte: "+joinCSV(res.Added))
	}
	if len(res.Removed) > 0 {
		res.Changed = true
		res.Summary = append(res.Summary, "Entfernte Produkte: "+joinCSV(res.Removed))
	}
	if !sameSet(cur.TopSuggestions, prev.TopSuggestions) {
		res.Changed = true
		res.Summary = append(res.Summary, "Suchvorschläge geändert")
	}
	return res
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func sameSet(a, b []string) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

func joinCSV(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
