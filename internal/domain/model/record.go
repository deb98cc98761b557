// Package model contains domain models passed between layers.
package model

import "time"

// TimestampLayout renders record timestamps as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// InputSample is one validated form submission.
type InputSample struct {
	TransportKm float64 // distance travelled by car
	Meals       int     // meat meals eaten
	EnergyKWh   float64 // electricity consumed
}

// EstimateRecord is one entry of a session log. Field names and JSON tags
// form the stored layout and must not change.
type EstimateRecord struct {
	Transport float64 `json:"transport"`
	Meals     int     `json:"meals"`
	Energy    float64 `json:"energy"`
	Total     float64 `json:"total"`
	TS        string  `json:"ts"`
}

// NewEstimateRecord builds a record for sample stamped with at.
func NewEstimateRecord(sample InputSample, total float64, at time.Time) EstimateRecord {
	return EstimateRecord{
		Transport: sample.TransportKm,
		Meals:     sample.Meals,
		Energy:    sample.EnergyKWh,
		Total:     total,
		TS:        FormatTimestamp(at),
	}
}

// FormatTimestamp formats t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the record timestamp.
func (r EstimateRecord) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, r.TS)
}
