package core

// aggregate.go reduces a record collection into the dashboard summaries.
//
// Both reductions are pure and recomputed for every snapshot. They are
// order-independent and total: a nil or empty collection yields an empty
// summary rather than an error.

import "sort"

// HealthSummary counts records per raw status value.
type HealthSummary struct {
	Counts map[Status]int `json:"counts"`
	Total  int            `json:"total"`
}

// HealthSlice is one non-empty segment of the health chart.
type HealthSlice struct {
	Status   Status   `json:"status"`
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

// Health counts records per status.
func Health(records []AuditRecord) HealthSummary {
	h := HealthSummary{Counts: make(map[Status]int)}
	for _, r := range records {
		h.Counts[r.Status]++
		h.Total++
	}
	return h
}

// Count returns the number of records with status s.
func (h HealthSummary) Count(s Status) int {
	return h.Counts[s]
}

// CleanTotal is the "verified clean" figure: CLEAN plus RESOLVED.
func (h HealthSummary) CleanTotal() int {
	return h.Counts[StatusClean] + h.Counts[StatusResolved]
}

// Critical returns the number of open critical mismatches.
func (h HealthSummary) Critical() int {
	return h.Counts[StatusCriticalMismatch]
}

// Ghost returns the number of open ghost-page errors.
func (h HealthSummary) Ghost() int {
	return h.Counts[StatusGhostError]
}

// Unknown returns the number of records whose status is not recognised.
func (h HealthSummary) Unknown() int {
	n := 0
	for s, c := range h.Counts {
		if !s.Known() {
			n += c
		}
	}
	return n
}

// ChartInput returns the chart segments with zero-count statuses omitted.
// Known statuses come first in lifecycle order, then unknown values sorted
// by name.
func (h HealthSummary) ChartInput() []HealthSlice {
	slices := make([]HealthSlice, 0, len(h.Counts))
	for _, s := range Statuses() {
		if n := h.Counts[s]; n > 0 {
			c, _ := Classify(s)
			slices = append(slices, HealthSlice{Status: s, Label: c.Label, Severity: c.Severity, Count: n})
		}
	}

	var unknown []Status
	for s, n := range h.Counts {
		if n > 0 && !s.Known() {
			unknown = append(unknown, s)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, s := range unknown {
		c, _ := Classify(s)
		slices = append(slices, HealthSlice{Status: s, Label: c.Label, Severity: c.Severity, Count: h.Counts[s]})
	}
	return slices
}

// TypeBucket is the total/error count for one sheet type.
type TypeBucket struct {
	SheetType SheetType `json:"sheet_type"`
	Total     int       `json:"total"`
	Errors    int       `json:"errors"`
}

// Distribution groups records by sheet type. Empty or unrecognised types are
// grouped under SheetTypeUnknown. Buckets are returned in SheetTypes order
// followed by the unknown bucket; types with no records are omitted.
func Distribution(records []AuditRecord) []TypeBucket {
	buckets := make(map[SheetType]*TypeBucket)
	for _, r := range records {
		t := r.NormalizedSheetType()
		b, ok := buckets[t]
		if !ok {
			b = &TypeBucket{SheetType: t}
			buckets[t] = b
		}
		b.Total++
		if r.Status.IsError() {
			b.Errors++
		}
	}

	order := append(SheetTypes(), SheetTypeUnknown)
	out := make([]TypeBucket, 0, len(buckets))
	for _, t := range order {
		if b, ok := buckets[t]; ok {
			out = append(out, *b)
		}
	}
	return out
}
