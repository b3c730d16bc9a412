// Package audit records access decisions and answers queries over them.
package audit

import (
	"context"
	"time"

	"github.com/okian/facegate/internal/domain/model"
)

// Decision is the access outcome of one attempt.
type Decision string

// Decisions.
const (
	Granted Decision = "GRANTED"
	Denied  Decision = "DENIED"
)

// Record is one access attempt. Identity is empty when nobody was matched.
type Record struct {
	Time       time.Time    `json:"time"`
	Identity   string       `json:"identity,omitempty"`
	Confidence float64      `json:"confidence"`
	Decision   Decision     `json:"decision"`
	Status     model.Status `json:"status"`
	Mode       string       `json:"mode,omitempty"`
}

// Sink receives access records. Implementations log and count their own
// failures; recording never fails the caller.
type Sink interface {
	Record(ctx context.Context, r Record)
}

// DayStats counts the decisions of one calendar day.
type DayStats struct {
	Total   int64 `json:"total"`
	Granted int64 `json:"granted"`
	Denied  int64 `json:"denied"`
}

// Stats summarizes the recorded attempts.
type Stats struct {
	Today            DayStats `json:"today"`
	TotalRecords     int64    `json:"total_records"`
	UniqueIdentities int64    `json:"unique_identities"`
}

// Reader queries recorded attempts.
type Reader interface {
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Stats summarizes all records, with today's counts taken in now's
	// location.
	Stats(ctx context.Context, now time.Time) (Stats, error)
	// Purge deletes records older than before and returns how many.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Store is a sink that can also be queried.
type Store interface {
	Sink
	Reader
}

// startOfDay returns local midnight of t's day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Tee fans a record out to several sinks in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Record(ctx context.Context, r Record) {
	for _, s := range t {
		s.Record(ctx, r)
	}
}
