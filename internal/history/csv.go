package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// csvColumns is the fixed column order the history CSV schema requires.
var csvColumns = []string{
	"timestamp", "event_type", "position_id", "scenario", "exchange_a", "exchange_b",
	"symbol_a", "symbol_b", "order_type", "side", "quantity", "price", "pnl", "status",
	"error_message", "metadata",
}

// csvSink is the append-only, human-readable archive sink. It is the
// authoritative record; the relational sink is only a query index.
type csvSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

func newCSVSink(path string) (*csvSink, error) {
	needsHeader := false
	if info, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat csv sink: %w", err)
		}
		needsHeader = true
	} else if info.Size() == 0 {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv sink: %w", err)
	}

	w := csv.NewWriter(f)
	s := &csvSink{file: f, w: w}
	if needsHeader {
		if err := s.w.Write(csvColumns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}
	return s, nil
}

func (s *csvSink) append(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *csvSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.file.Close()
}
