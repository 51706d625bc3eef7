package timeseries

import (
	"errors"
	"time"

	"markettrack-api/internal/model"
)

// ErrNoData is returned when a series is requested for an entity with
// zero change history. Callers surface this as "not found".
var ErrNoData = errors.New("no change history")

const dayLayout = "2006-01-02"

// FieldSeries is one named value sequence, positionally aligned to the
// shared x-axis of its Series.
type FieldSeries struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// Series is the chart payload: one daily x-axis shared by every field.
type Series struct {
	XAxis  []string      `json:"x_axis"`
	Series []FieldSeries `json:"series"`
}

// fieldValue maps a chartable field name to its accessor on a change
// record. Nil means the record carries no datum for that field.
var fieldValue = map[string]func(*model.ProductChange) *float64{
	"price":   func(c *model.ProductChange) *float64 { return c.Price },
	"revenue": func(c *model.ProductChange) *float64 { return c.Revenue },
	"rating":  func(c *model.ProductChange) *float64 { return c.Rating },
	"bought_last_month":    intValue(func(c *model.ProductChange) *int64 { return c.BoughtLastMonth }),
	"review_count":         intValue(func(c *model.ProductChange) *int64 { return c.ReviewCount }),
	"main_category_rank":   intValue(func(c *model.ProductChange) *int64 { return c.MainCategoryRank }),
	"second_category_rank": intValue(func(c *model.ProductChange) *int64 { return c.SecondCategoryRank }),
}

func intValue(get func(*model.ProductChange) *int64) func(*model.ProductChange) *float64 {
	return func(c *model.ProductChange) *float64 {
		v := get(c)
		if v == nil {
			return nil
		}
		f := float64(*v)
		return &f
	}
}

// KnownField reports whether a field name can be charted.
func KnownField(name string) bool {
	_, ok := fieldValue[name]
	return ok
}

// Build reconstructs a dense per-day series from irregularly sampled
// change records using forward-fill interpolation.
//
// changes must be ordered ascending by capture time; when several
// records share a day, the last one wins. Every returned field series
// is aligned to one shared x-axis. The axis starts at the latest
// first-observation day across the requested fields, so no series ever
// needs a value from before its own first observation; fields with no
// observation at all are omitted from the output entirely.
func Build(changes []model.ProductChange, fields []string) (*Series, error) {
	if len(changes) == 0 {
		return nil, ErrNoData
	}

	start := day(changes[0].CapturedAt)
	end := day(changes[len(changes)-1].CapturedAt)

	// Sparse day->value map per field, observed days only.
	type sparse struct {
		name   string
		values map[string]float64
		first  time.Time
	}
	var observed []sparse
	sharedStart := start
	for _, name := range fields {
		get, ok := fieldValue[name]
		if !ok {
			continue
		}
		sp := sparse{name: name, values: map[string]float64{}}
		for i := range changes {
			v := get(&changes[i])
			if v == nil {
				continue
			}
			d := day(changes[i].CapturedAt)
			if len(sp.values) == 0 {
				sp.first = d
			}
			sp.values[d.Format(dayLayout)] = *v
		}
		if len(sp.values) == 0 {
			continue
		}
		observed = append(observed, sp)
		if sp.first.After(sharedStart) {
			sharedStart = sp.first
		}
	}

	out := &Series{}
	if len(observed) == 0 {
		return out, nil
	}

	for d := sharedStart; !d.After(end); d = d.AddDate(0, 0, 1) {
		out.XAxis = append(out.XAxis, d.Format(dayLayout))
	}

	for _, sp := range observed {
		series := FieldSeries{Name: sp.name}
		// Warm up the carried value over days before the shared start.
		var last float64
		for d := sp.first; d.Before(sharedStart); d = d.AddDate(0, 0, 1) {
			if v, ok := sp.values[d.Format(dayLayout)]; ok {
				last = v
			}
		}
		for d := sharedStart; !d.After(end); d = d.AddDate(0, 0, 1) {
			if v, ok := sp.values[d.Format(dayLayout)]; ok {
				last = v
			}
			series.Data = append(series.Data, last)
		}
		out.Series = append(out.Series, series)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
