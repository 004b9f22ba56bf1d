// Package progress is the durable run ledger. Every processed item is
// appended to a JSONL log and synced before the orchestrator moves on,
// so a crash at any point resumes from the last recorded item with no
// manual intervention. Counters are derived by replaying the log on
// load; there is no snapshot to corrupt with a partial write.
package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Outcome of one processed item.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// event is one JSONL line. Item events carry a key and outcome; meta
// events update run-level fields.
type event struct {
	Type      string    `json:"type"` // "start", "total", "partition", "item"
	At        time.Time `json:"at"`
	Key       string    `json:"key,omitempty"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Total     int       `json:"total,omitempty"`
	Partition string    `json:"partition,omitempty"`
}

// Store is the open ledger for one run.
type Store struct {
	path string
	f    *os.File

	startedAt time.Time
	updatedAt time.Time
	total     int
	partition string
	processed map[string]Outcome
	succeeded int
	failed    int
	resumed   bool
}

// Open loads the ledger at path, replaying any prior incomplete run,
// and keeps the file open for appending. A truncated final line (crash
// mid-write) is dropped and cut from the file so later appends land on
// their own lines.
func Open(path string) (*Store, error) {
	s := &Store{
		path:      path,
		processed: make(map[string]Outcome),
	}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		good := s.replay(data)
		s.resumed = len(s.processed) > 0
		if good < int64(len(data)) {
			// A crash mid-write left a torn tail. Cut it off before
			// appending, so new events start on a fresh line instead of
			// merging into the corrupt one and being lost on the next
			// replay.
			if err := os.Truncate(path, good); err != nil {
				return nil, fmt.Errorf("truncate torn progress ledger: %w", err)
			}
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read progress ledger: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open progress ledger: %w", err)
	}
	s.f = f

	if !s.resumed {
		if err := s.append(event{Type: "start", At: time.Now()}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

// replay applies every complete, parseable line and returns the byte
// offset of the last good line's terminator. Anything past that offset
// is a torn trailing write and is unusable.
func (s *Store) replay(data []byte) int64 {
	var good int64
	for off := 0; off < len(data); {
		nl := bytes.IndexByte(data[off:], '\n')
		if nl < 0 {
			break // unterminated tail
		}
		line := data[off : off+nl]
		if len(line) > 0 {
			var ev event
			if err := json.Unmarshal(line, &ev); err != nil {
				break
			}
			s.apply(ev)
		}
		off += nl + 1
		good = int64(off)
	}
	return good
}

func (s *Store) apply(ev event) {
	s.updatedAt = ev.At
	switch ev.Type {
	case "start":
		s.startedAt = ev.At
	case "total":
		s.total = ev.Total
	case "partition":
		s.partition = ev.Partition
	case "item":
		if _, dup := s.processed[ev.Key]; dup {
			return
		}
		s.processed[ev.Key] = ev.Outcome
		if ev.Outcome == OutcomeError {
			s.failed++
		} else {
			s.succeeded++
		}
	}
}

// append writes one line and syncs before returning. Sync ordering is
// the crash-safety contract: the caller's next decision point must not
// precede the durable record.
func (s *Store) append(ev event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append progress event: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync progress ledger: %w", err)
	}
	s.apply(ev)
	return nil
}

// Record marks an item processed with the given outcome.
func (s *Store) Record(key string, outcome Outcome) error {
	if _, dup := s.processed[key]; dup {
		return nil
	}
	return s.append(event{Type: "item", At: time.Now(), Key: key, Outcome: outcome})
}

// IsDone reports whether an item was already processed in this run or
// a prior interrupted one.
func (s *Store) IsDone(key string) bool {
	_, ok := s.processed[key]
	return ok
}

// SetTotal records the run's target item count.
func (s *Store) SetTotal(n int) error {
	return s.append(event{Type: "total", At: time.Now(), Total: n})
}

// SetPartition records the currently-active partition.
func (s *Store) SetPartition(p string) error {
	return s.append(event{Type: "partition", At: time.Now(), Partition: p})
}

// Resumed reports whether this store picked up a prior incomplete run.
func (s *Store) Resumed() bool { return s.resumed }

// Counts returns processed, succeeded and failed item counts.
func (s *Store) Counts() (processed, succeeded, failed int) {
	return len(s.processed), s.succeeded, s.failed
}

// Total returns the recorded target count, zero if never set.
func (s *Store) Total() int { return s.total }

// Partition returns the last recorded active partition.
func (s *Store) Partition() string { return s.partition }

// Keys returns the set of processed item keys.
func (s *Store) Keys() map[string]Outcome {
	out := make(map[string]Outcome, len(s.processed))
	for k, v := range s.processed {
		out[k] = v
	}
	return out
}

// Clear closes and deletes the ledger. Called only after a run
// completes with zero errors and full coverage.
func (s *Store) Clear() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close progress ledger: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove progress ledger: %w", err)
	}
	return nil
}

// Close flushes and closes the ledger, retaining it for resume.
func (s *Store) Close() error {
	return s.f.Close()
}
