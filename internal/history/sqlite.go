package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"arbitrage/pkg/types"
)

// sqliteSink is the indexed query backend: same schema as the CSV plus an
// auto-increment id, with indexes on timestamp and position_id. It is
// rebuilt from nothing tolerant of loss — the CSV is the archive of record.
type sqliteSink struct {
	db        *sql.DB
	stmtWrite *sql.Stmt
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trades (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT NOT NULL,
	event_type    TEXT NOT NULL,
	position_id   TEXT NOT NULL,
	scenario      TEXT,
	exchange_a    TEXT,
	exchange_b    TEXT,
	symbol_a      TEXT,
	symbol_b      TEXT,
	order_type    TEXT,
	side          TEXT,
	quantity      REAL,
	price         REAL,
	pnl           REAL,
	status        TEXT,
	error_message TEXT,
	metadata      TEXT
);
CREATE INDEX IF NOT EXISTS idx_timestamp ON trades(timestamp);
CREATE INDEX IF NOT EXISTS idx_position_id ON trades(position_id);
`

const writeSQL = `INSERT INTO trades
	(timestamp, event_type, position_id, scenario, exchange_a, exchange_b,
	 symbol_a, symbol_b, order_type, side, quantity, price, pnl, status,
	 error_message, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func newSQLiteSink(path string, retention time.Duration) (*sqliteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink: %w", err)
	}
	return newSQLiteSinkFromDB(db, retention)
}

// newSQLiteSinkFromDB wraps an already-open *sql.DB (a real sqlite3 handle,
// or a sqlmock in tests) with schema init, retention cleanup, and the
// prepared write statement.
func newSQLiteSinkFromDB(db *sql.DB, retention time.Duration) (*sqliteSink, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	cutoff := time.Now().Add(-retention).Format(time.RFC3339)
	if _, err := db.Exec(`DELETE FROM trades WHERE timestamp < ?`, cutoff); err != nil {
		db.Close()
		return nil, fmt.Errorf("retention cleanup: %w", err)
	}

	stmt, err := db.Prepare(writeSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare write statement: %w", err)
	}

	return &sqliteSink{db: db, stmtWrite: stmt}, nil
}

func (s *sqliteSink) append(e types.HistoryEvent) error {
	metaJSON, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.stmtWrite.Exec(
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
		decimalToFloat(e.Quantity),
		decimalToFloat(e.Price),
		decimalToFloat(e.PnL),
		e.Status,
		e.ErrorMessage,
		metaJSON,
	)
	return err
}

func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *sqliteSink) recentTrades(hours int) ([]types.HistoryEvent, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour).UTC().Format(time.RFC3339)
	rows, err := s.db.Query(selectColumns+` WHERE timestamp > ? ORDER BY timestamp DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *sqliteSink) positionHistory(positionID string) ([]types.HistoryEvent, error) {
	rows, err := s.db.Query(selectColumns+` WHERE position_id = ? ORDER BY timestamp ASC, id ASC`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *sqliteSink) distinctPositionIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT position_id FROM trades WHERE position_id != '' ORDER BY position_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const selectColumns = `SELECT id, timestamp, event_type, position_id, scenario, exchange_a, exchange_b,
	symbol_a, symbol_b, order_type, side, quantity, price, pnl, status, error_message, metadata
	FROM trades`

func scanEvents(rows *sql.Rows) ([]types.HistoryEvent, error) {
	var out []types.HistoryEvent
	for rows.Next() {
		var (
			e                          types.HistoryEvent
			ts                         string
			eventType, scenario, side  string
			quantity, price, pnl      float64
			metaJSON                  string
		)
		if err := rows.Scan(
			&e.ID, &ts, &eventType, &e.PositionID, &scenario, &e.VenueA, &e.VenueB,
			&e.SymbolA, &e.SymbolB, &e.OrderType, &side, &quantity, &price, &pnl,
			&e.Status, &e.ErrorMessage, &metaJSON,
		); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			parsed = time.Time{}
		}
		e.Timestamp = parsed
		e.EventType = types.HistoryEventType(eventType)
		e.Scenario = types.Scenario(scenario)
		e.Side = types.Side(side)
		e.Quantity = decimal.NewFromFloat(quantity)
		e.Price = decimal.NewFromFloat(price)
		e.PnL = decimal.NewFromFloat(pnl)
		if metaJSON != "" {
			var m map[string]any
			if err := json.Unmarshal([]byte(metaJSON), &m); err == nil {
				e.Metadata = m
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteSink) close() error {
	if err := s.stmtWrite.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
