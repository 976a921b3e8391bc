package models

import (
	"time"
)

// Snapshot is one immutable batch load of every input table. The engine is
// a pure function of a snapshot: components read it, none mutates it, and a
// refreshed load fully replaces the prior snapshot rather than patching it.
type Snapshot struct {
	// Version is the content/version key supplied by the dataset source
	// (max file mtime for CSV, max updated-at for Postgres). Caches of
	// derived output are keyed on it.
	Version  string    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`

	Orders         []OrderLine           `json:"orders"`
	Clustered      []ClusteredOrder      `json:"clustered"`
	Events         []DailyEventStat      `json:"events"`
	Pages          []PageStat            `json:"pages"`
	Clicks         []ClickStat           `json:"clicks"`
	ClusterChannel []ClusterChannelShare `json:"cluster_channel"`
	Efficiency     []ProductEfficiency   `json:"efficiency"`

	// Optional analytic tables. Nil when the source does not provide them;
	// the LTV, interval and attribution components then answer
	// "data unavailable" instead of failing the whole engine.
	LTV         []CustomerLTVRecord        `json:"ltv,omitempty"`
	Intervals   []OrderIntervalRecord      `json:"intervals,omitempty"`
	Attribution []ChannelAttributionRecord `json:"attribution,omitempty"`
}

// HasLTV reports whether the optional LTV table was loaded.
func (s *Snapshot) HasLTV() bool { return len(s.LTV) > 0 }

// HasIntervals reports whether the optional order-interval table was loaded.
func (s *Snapshot) HasIntervals() bool { return len(s.Intervals) > 0 }

// HasAttribution reports whether the optional attribution table was loaded.
func (s *Snapshot) HasAttribution() bool { return len(s.Attribution) > 0 }
