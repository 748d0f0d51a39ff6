package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Circular buffer size
	MaxEventsPerSec    = 2000                   // Rate limit for domain events
	BatchFlushSize     = 64                     // Records per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
)

// ErrJournalGap means records are missing from a journal, usually because the
// buffer overflowed. Such a journal cannot be replayed.
var ErrJournalGap = errors.New("journal has missing records")

// RecordKind tags a journal line.
type RecordKind string

const (
	RecordHeader RecordKind = "header"
	RecordFrame  RecordKind = "frame"
	RecordEvent  RecordKind = "event"
)

// JournalHeader pins everything needed to rebuild the engine for replay.
type JournalHeader struct {
	Version   uint8     `json:"version"`
	Seed      int64     `json:"seed"`
	Epoch     time.Time `json:"epoch"`
	Placement string    `json:"placement"`
	Tuning    Tuning    `json:"tuning"`
}

// Record is one line of the journal (newline-delimited JSON).
type Record struct {
	Seq    uint64         `json:"seq"`
	Kind   RecordKind     `json:"kind"`
	Header *JournalHeader `json:"header,omitempty"`
	Frame  *Frame         `json:"frame,omitempty"`
	Event  *Event         `json:"event,omitempty"`
}

// EventLog is a bounded, append-only journal of frames and domain events.
//
// Frames are never rate limited since replay needs every one of them; domain
// events are, so a flood of hits cannot starve the writer. When the buffer is
// full the oldest record is dropped and the journal will fail replay with
// ErrJournalGap rather than replaying something different.
type EventLog struct {
	// Circular buffer
	mu        sync.Mutex
	buffer    [EventBufferSize]Record
	writeHead uint64 // next sequence number
	readHead  uint64 // next sequence to flush

	limiter *rate.Limiter

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// Output
	out    io.Writer
	closer io.Closer
	outMu  sync.Mutex

	// Stats
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writeErrors  uint64 // atomic
}

// NewEventLog creates a new bounded journal.
func NewEventLog() *EventLog {
	return &EventLog{
		limiter:  rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan: make(chan struct{}),
	}
}

// Start truncates filePath and begins the async writer. A journal holds one
// session, so a restarted server never appends a second header to an old file.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	el.closer = file
	el.StartWriter(file)
	return nil
}

// StartWriter begins the async writer on w. The caller keeps ownership of w.
func (el *EventLog) StartWriter(w io.Writer) {
	if el.running.Swap(true) {
		return
	}
	el.out = w
	el.writerWg.Add(1)
	go el.writerLoop()
}

// Stop flushes everything buffered and shuts the writer down.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.outMu.Lock()
		if el.closer != nil {
			el.closer.Close()
		}
		el.outMu.Unlock()
	})
}

// RecordHeader writes the replay header. It should be the first record.
func (el *EventLog) RecordHeader(h JournalHeader) bool {
	return el.append(Record{Kind: RecordHeader, Header: &h})
}

// RecordFrame journals a frame. Frames bypass the rate limiter.
func (el *EventLog) RecordFrame(f Frame) bool {
	return el.append(Record{Kind: RecordFrame, Frame: &f})
}

// Emit journals a domain event with rate limiting.
// Returns false if rate limited or not running.
func (el *EventLog) Emit(ev Event) bool {
	if !el.running.Load() {
		return false
	}
	if !el.limiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}
	return el.append(Record{Kind: RecordEvent, Event: &ev})
}

// HandleEvent lets the journal be registered as an EventSink.
func (el *EventLog) HandleEvent(ev Event) {
	el.Emit(ev)
}

func (el *EventLog) append(r Record) bool {
	if !el.running.Load() {
		return false
	}

	el.mu.Lock()
	// Drop oldest when full; the resulting gap is detected on load
	if el.writeHead-el.readHead >= EventBufferSize {
		el.readHead++
		atomic.AddUint64(&el.droppedCount, 1)
	}
	r.Seq = el.writeHead
	el.buffer[r.Seq%EventBufferSize] = r
	el.writeHead++
	el.mu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// writerLoop batches and writes records asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush drains the whole buffer
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					break
				}
				el.flushBatch(batch)
			}
		}
	}
}

// collectBatch reads available records from the circular buffer
func (el *EventLog) collectBatch(batch []Record) []Record {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
		el.readHead++
	}
	return batch
}

// flushBatch writes records as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Record) {
	el.outMu.Lock()
	defer el.outMu.Unlock()

	if el.out == nil {
		return
	}

	for _, r := range batch {
		data, err := json.Marshal(r)
		if err != nil {
			atomic.AddUint64(&el.writeErrors, 1)
			continue
		}
		data = append(data, '\n')
		if _, err := el.out.Write(data); err != nil {
			atomic.AddUint64(&el.writeErrors, 1)
		}
	}
}

// GetStats returns journal metrics.
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.writeHead - el.readHead
	el.mu.Unlock()

	return map[string]interface{}{
		"total":       atomic.LoadUint64(&el.totalCount),
		"dropped":     atomic.LoadUint64(&el.droppedCount),
		"writeErrors": atomic.LoadUint64(&el.writeErrors),
		"pending":     pending,
		"running":     el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped records
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of records accepted
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}

// Journal is a decoded event log.
type Journal struct {
	Header JournalHeader
	Frames []Frame
	Events []Event
}

// LoadJournal decodes a journal written by EventLog.
func LoadJournal(r io.Reader) (*Journal, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		j         Journal
		haveHdr   bool
		expectSeq uint64
		line      int
	)
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		if rec.Seq != expectSeq {
			return nil, fmt.Errorf("%w: expected seq %d, got %d", ErrJournalGap, expectSeq, rec.Seq)
		}
		expectSeq++

		switch rec.Kind {
		case RecordHeader:
			if haveHdr || rec.Header == nil {
				return nil, fmt.Errorf("journal line %d: unexpected header", line)
			}
			j.Header = *rec.Header
			haveHdr = true
		case RecordFrame:
			if !haveHdr {
				return nil, fmt.Errorf("journal line %d: frame before header", line)
			}
			if rec.Frame != nil {
				j.Frames = append(j.Frames, *rec.Frame)
			}
		case RecordEvent:
			if rec.Event != nil {
				j.Events = append(j.Events, *rec.Event)
			}
		default:
			// Unknown kinds from newer writers are skipped
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if !haveHdr {
		return nil, errors.New("journal has no header")
	}
	return &j, nil
}
