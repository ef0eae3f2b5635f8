package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"containerCracker/internal/core/domain"
)

// HistoryRecord is one finished attack in the history file. The recovered
// password is never written.
type HistoryRecord struct {
	Timestamp     time.Time           `json:"timestamp"`
	RunID         string              `json:"run_id"`
	Status        domain.AttackStatus `json:"status"`
	Mode          domain.AttackMode   `json:"mode"`
	Target        string              `json:"target"`
	Tried         int64               `json:"tried"`
	Total         int64               `json:"total"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	Rate          float64             `json:"rate"`
	CPUPeak       float64             `json:"cpu_peak"`
	CPUAverage    float64             `json:"cpu_avg"`
	MemoryUsedPct float64             `json:"memory_used_pct"`
	AllocBytes    uint64              `json:"alloc_bytes,omitempty"`
	GCCycles      uint32              `json:"gc_cycles,omitempty"`
}

func NewHistoryRecord(result *domain.AttackResult, stats RunStats) HistoryRecord {
	return HistoryRecord{
		Timestamp:     time.Now().UTC(),
		RunID:         result.RunID,
		Status:        result.Status,
		Mode:          result.Mode,
		Target:        result.Target,
		Tried:         result.Tried,
		Total:         result.Total,
		ElapsedMS:     result.Elapsed.Milliseconds(),
		Rate:          result.Rate,
		CPUPeak:       result.Resources.CPUPeak,
		CPUAverage:    result.Resources.CPUAverage,
		MemoryUsedPct: result.Resources.MemoryUsedPct,
		AllocBytes:    stats.AllocBytes,
		GCCycles:      stats.GCCycles,
	}
}

// Reporter appends history records to a file, one JSON document per line.
type Reporter struct {
	mu      sync.Mutex
	logFile *os.File
	pending []HistoryRecord
}

func NewReporter(logPath string) (*Reporter, error) {
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &Reporter{logFile: file}, nil
}

func (r *Reporter) Record(record HistoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, record)
}

func (r *Reporter) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.pending {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := r.logFile.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	r.pending = r.pending[:0]
	return nil
}

func (r *Reporter) Close() error {
	if err := r.Flush(); err != nil {
		return fmt.Errorf("failed to flush history: %w", err)
	}
	return r.logFile.Close()
}
