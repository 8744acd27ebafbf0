// Package catalog defines the closed set of report-comparison metrics rrgen
// can request from the scoring engine, and how each one maps onto the
// engine's configuration flags and result keys.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Metric names one catalog metric.
type Metric string

const (
	RadCliQ   Metric = "radcliq"
	BLEU      Metric = "bleu"
	BERTScore Metric = "bertscore"
	// SembScore is computed from CheXbert label embeddings, which is why the
	// engine knows it as do_chexbert.
	SembScore Metric = "semb"
	RadGraph  Metric = "radgraph"
	RaTEScore Metric = "ratescore"
	GREEN     Metric = "green"
)

type entry struct {
	metric      Metric
	engineFlag  string
	resultKeys  []string
	description string
}

// table is the single source of truth for the catalog. Order matters: it is
// the default selection order and the order metrics are printed in.
var table = []entry{
	{RadCliQ, "do_radcliq", []string{"radcliq"}, "RadCliQ-v1 composite"},
	{BLEU, "do_bleu", []string{"bleu"}, "BLEU n-gram overlap"},
	{BERTScore, "do_bertscore", []string{"bertscore"}, "BERTScore"},
	{SembScore, "do_chexbert", []string{"semb", "chexbert"}, "SembScore (CheXbert embeddings)"},
	{RadGraph, "do_radgraph", []string{"radgraph"}, "RadGraph entity/relation F1"},
	{RaTEScore, "do_ratescore", []string{"ratescore"}, "RaTEScore"},
	{GREEN, "do_green", []string{"green"}, "GREEN"},
}

var byName = func() map[Metric]*entry {
	m := make(map[Metric]*entry, len(table))
	for i := range table {
		m[table[i].metric] = &table[i]
	}
	return m
}()

// All returns every catalog metric in canonical order.
func All() []Metric {
	out := make([]Metric, len(table))
	for i, e := range table {
		out[i] = e.metric
	}
	return out
}

// Names returns every catalog metric name in canonical order.
func Names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = string(e.metric)
	}
	return out
}

// Parse looks name up in the catalog. Matching is exact.
func Parse(name string) (Metric, bool) {
	e, ok := byName[Metric(name)]
	if !ok {
		return "", false
	}
	return e.metric, true
}

// EngineFlag is the scoring engine keyword that switches this metric on.
func (m Metric) EngineFlag() string {
	if e, ok := byName[m]; ok {
		return e.engineFlag
	}
	return ""
}

// ResultPrefixes lists the lowercase prefixes of engine result keys that
// belong to this metric.
func (m Metric) ResultPrefixes() []string {
	if e, ok := byName[m]; ok {
		return e.resultKeys
	}
	return nil
}

// Description is a short human-readable label.
func (m Metric) Description() string {
	if e, ok := byName[m]; ok {
		return e.description
	}
	return ""
}

func (m Metric) String() string { return string(m) }

// InvalidMetricError is returned when a selection names metrics outside the
// catalog.
type InvalidMetricError struct {
	Invalid   []string
	Available []string
}

func (e *InvalidMetricError) Error() string {
	return fmt.Sprintf("invalid metrics: %s. Available: %s",
		strings.Join(e.Invalid, ", "), strings.Join(e.Available, ", "))
}

// Selection is a validated, de-duplicated set of metrics in request order.
type Selection struct {
	metrics []Metric
}

// ParseSelection validates names against the catalog. An empty list selects
// the whole catalog.
func ParseSelection(names []string) (Selection, error) {
	if len(names) == 0 {
		return Selection{metrics: All()}, nil
	}

	var invalid []string
	seenInvalid := make(map[string]bool)
	seen := make(map[Metric]bool)
	metrics := make([]Metric, 0, len(names))

	for _, name := range names {
		m, ok := Parse(name)
		if !ok {
			if !seenInvalid[name] {
				seenInvalid[name] = true
				invalid = append(invalid, name)
			}
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		metrics = append(metrics, m)
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Selection{}, &InvalidMetricError{Invalid: invalid, Available: Names()}
	}
	return Selection{metrics: metrics}, nil
}

// Metrics returns the selected metrics in request order.
func (s Selection) Metrics() []Metric {
	out := make([]Metric, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// Names returns the selected metric names in request order.
func (s Selection) Names() []string {
	out := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		out[i] = string(m)
	}
	return out
}

// Contains reports whether m is selected.
func (s Selection) Contains(m Metric) bool {
	for _, sm := range s.metrics {
		if sm == m {
			return true
		}
	}
	return false
}

// Len is the number of selected metrics.
func (s Selection) Len() int { return len(s.metrics) }
