// Package history implements the append-only event log: a CSV archive plus
// a SQLite query index, and the event-folding reconstruction that lets the
// process recover open positions after a restart.
package history

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"arbitrage/internal/position"
	"arbitrage/pkg/types"
)

const defaultRetention = 24 * time.Hour

// Store is the HistoryStore façade: Record writes to both sinks best-effort
// (a sink failure is logged, never returned to the caller, per the
// never-fail-the-event contract), while reads go through the SQLite index.
type Store struct {
	csv    *csvSink
	sql    *sqliteSink
	logger *slog.Logger
}

// Open creates (or attaches to) trades.csv and trades.db under dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	csvSink, err := newCSVSink(filepath.Join(dir, "trades.csv"))
	if err != nil {
		return nil, err
	}

	sqlSink, err := newSQLiteSink(filepath.Join(dir, "trades.db"), defaultRetention)
	if err != nil {
		csvSink.close()
		return nil, err
	}

	return &Store{csv: csvSink, sql: sqlSink, logger: logger}, nil
}

// Close releases both sinks' file handles.
func (s *Store) Close() error {
	csvErr := s.csv.close()
	sqlErr := s.sql.close()
	if csvErr != nil {
		return csvErr
	}
	return sqlErr
}

// Record appends event to both sinks. A sink failure is logged and does
// not fail the event: the CSV is the authoritative archive, the relational
// store is only a query index.
func (s *Store) Record(e types.HistoryEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := s.csv.append(eventToCSVRow(e)); err != nil {
		s.logger.Error("history csv write failed", "error", err, "event_type", e.EventType, "position_id", e.PositionID)
	}
	if err := s.sql.append(e); err != nil {
		s.logger.Error("history sqlite write failed", "error", err, "event_type", e.EventType, "position_id", e.PositionID)
	}
}

// RecentTrades returns events from the last `hours` hours, newest first.
func (s *Store) RecentTrades(hours int) ([]types.HistoryEvent, error) {
	return s.sql.recentTrades(hours)
}

// PositionHistory returns every event recorded for positionID, oldest first.
func (s *Store) PositionHistory(positionID string) ([]types.HistoryEvent, error) {
	return s.sql.positionHistory(positionID)
}

// ListPositions enumerates distinct position ids and loads each, optionally
// filtering by status.
func (s *Store) ListPositions(statusFilter types.PositionStatus) ([]*position.Position, error) {
	ids, err := s.sql.distinctPositionIDs()
	if err != nil {
		return nil, err
	}
	var out []*position.Position
	for _, id := range ids {
		p, err := s.LoadPosition(id)
		if err != nil {
			return nil, fmt.Errorf("load position %s: %w", id, err)
		}
		if p == nil {
			continue
		}
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// CountOpenPositions counts positions whose latest lifecycle event has
// status OPENED.
func (s *Store) CountOpenPositions() (int, error) {
	positions, err := s.ListPositions(types.PositionOpened)
	if err != nil {
		return 0, err
	}
	return len(positions), nil
}

func eventToCSVRow(e types.HistoryEvent) []string {
	meta, _ := marshalMetadata(e.Metadata)
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.EventType),
		e.PositionID,
		string(e.Scenario),
		e.VenueA,
		e.VenueB,
		e.SymbolA,
		e.SymbolB,
		e.OrderType,
		string(e.Side),
		decimalString(e.Quantity),
		decimalString(e.Price),
		decimalString(e.PnL),
		e.Status,
		e.ErrorMessage,
		meta,
	}
}

func decimalString(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return d.String()
}
