package storage

// sqlite.go: ledger de paper trading.
//
// Estrategia:
//   - `positions`: una fila por posición. El StopState se guarda como JSON y se
//     reescribe en cada tick que lo mueve; las transiciones terminales solo se
//     aplican si la fila sigue OPEN (idempotente).
//   - `ladders`: cabecera de cada LadderPlan; sus legs son posiciones con ladder_id.
//   - `signals`: solo señales accionables (TRADE/LADDER). FAIR no aporta histórico.
//   - Prune automático al arrancar: signals > 30d. Las posiciones no se borran nunca:
//     las stats se recalculan desde ellas.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    event_id      TEXT NOT NULL,
    event_slug    TEXT NOT NULL DEFAULT '',
    bucket_id     TEXT NOT NULL,
    label         TEXT NOT NULL DEFAULT '',
    ladder_id     TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL,
    side          TEXT NOT NULL,
    entry_price   REAL NOT NULL,
    shares        REAL NOT NULL,
    cost          REAL NOT NULL,
    status        TEXT NOT NULL DEFAULT 'OPEN',
    stop_state    TEXT NOT NULL DEFAULT '{}',
    exit_price    REAL NOT NULL DEFAULT 0,
    exit_reason   TEXT NOT NULL DEFAULT '',
    payout        REAL NOT NULL DEFAULT 0,
    realized_pnl  REAL NOT NULL DEFAULT 0,
    event_date    TEXT NOT NULL,
    opened_at     TEXT NOT NULL,
    resolved_at   TEXT
);

CREATE TABLE IF NOT EXISTS ladders (
    id          TEXT PRIMARY KEY,
    event_id    TEXT NOT NULL,
    peak_index  INTEGER NOT NULL,
    legs        INTEGER NOT NULL,
    total_cost  REAL NOT NULL,
    budget      REAL NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id    TEXT NOT NULL,
    bucket_id   TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    probability REAL NOT NULL,
    edge_yes    REAL NOT NULL,
    edge_no     REAL NOT NULL,
    direction   TEXT NOT NULL,
    price       REAL NOT NULL,
    edge        REAL NOT NULL,
    confidence  REAL NOT NULL,
    verdict     TEXT NOT NULL,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_event  ON positions(event_id);
CREATE INDEX IF NOT EXISTS idx_positions_ladder ON positions(ladder_id);
CREATE INDEX IF NOT EXISTS idx_signals_created  ON signals(created_at DESC);
`

// migrations añade columnas que pueden no existir en schemas anteriores.
var migrations = []string{
	"ALTER TABLE positions ADD COLUMN event_slug TEXT NOT NULL DEFAULT ''",
	"ALTER TABLE positions ADD COLUMN label TEXT NOT NULL DEFAULT ''",
}

const retentionSignals = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.LedgerStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia señales antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	for _, stmt := range migrations {
		db.Exec(stmt) // falla si la columna ya existe, lo cual está bien
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina señales antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(time.Now().Add(-retentionSignals))
	s.db.ExecContext(ctx, `DELETE FROM signals WHERE created_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}
