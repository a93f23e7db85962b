package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// SaveSignals persiste las señales accionables de un ciclo en una transacción.
func (s *SQLiteStorage) SaveSignals(ctx context.Context, signals []domain.Signal) error {
	var toWrite []domain.Signal
	for _, sig := range signals {
		if sig.Actionable() {
			toWrite = append(toWrite, sig)
		}
	}
	if len(toWrite) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSignals: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (event_id, bucket_id, label, probability, edge_yes, edge_no,
		                     direction, price, edge, confidence, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveSignals: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sig := range toWrite {
		if _, err := stmt.ExecContext(ctx,
			sig.EventID, sig.Bucket.ID, sig.Bucket.Label, sig.Probability,
			sig.EdgeYes, sig.EdgeNo, string(sig.Direction), sig.Price, sig.Edge,
			sig.Confidence, string(sig.Verdict), formatTime(sig.CreatedAt),
		); err != nil {
			return fmt.Errorf("storage.SaveSignals: insert %s: %w", sig.Bucket.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSignals: commit: %w", err)
	}
	return nil
}

// GetSignals devuelve las señales registradas en el rango dado, las de mayor edge primero.
func (s *SQLiteStorage) GetSignals(ctx context.Context, from, to time.Time) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, bucket_id, label, probability, edge_yes, edge_no,
		       direction, price, edge, confidence, verdict, created_at
		FROM signals
		WHERE created_at BETWEEN ? AND ?
		ORDER BY edge DESC
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetSignals: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var (
			sig                         domain.Signal
			direction, verdict, created string
		)
		if err := rows.Scan(
			&sig.EventID, &sig.Bucket.ID, &sig.Bucket.Label, &sig.Probability,
			&sig.EdgeYes, &sig.EdgeNo, &direction, &sig.Price, &sig.Edge,
			&sig.Confidence, &verdict, &created,
		); err != nil {
			return nil, fmt.Errorf("storage.GetSignals: scan row: %w", err)
		}
		sig.Direction = domain.Side(direction)
		sig.Verdict = domain.Verdict(verdict)
		sig.CreatedAt = parseTime(created)
		out = append(out, sig)
	}
	return out, rows.Err()
}
