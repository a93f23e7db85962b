package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

const positionColumns = `id, event_id, event_slug, bucket_id, label, ladder_id, category, side,
	entry_price, shares, cost, status, stop_state, exit_price, exit_reason, payout,
	realized_pnl, event_date, opened_at, resolved_at`

const insertPosition = `INSERT INTO positions (` + positionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// execer lo cumplen *sql.DB y *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SavePosition inserta una posición recién abierta.
func (s *SQLiteStorage) SavePosition(ctx context.Context, p domain.Position) error {
	if err := insertPositionRow(ctx, s.db, p); err != nil {
		return fmt.Errorf("storage.SavePosition: %w", err)
	}
	return nil
}

func insertPositionRow(ctx context.Context, db execer, p domain.Position) error {
	stop, err := json.Marshal(p.Stop)
	if err != nil {
		return fmt.Errorf("marshal stop of %s: %w", p.ID, err)
	}
	_, err = db.ExecContext(ctx, insertPosition,
		p.ID, p.EventID, p.EventSlug, p.BucketID, p.Label, p.LadderID,
		string(p.Category), string(p.Side), p.EntryPrice, p.Shares, p.Cost,
		string(p.Status), string(stop), p.ExitPrice, string(p.ExitReason), p.Payout,
		p.RealizedPnL, p.EventDate.Format("2006-01-02"), formatTime(p.OpenedAt),
		resolvedAt(p),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePositionStop persiste el StopState de un tick. Si el tick disparó un stop
// también guarda el cierre. Solo toca filas OPEN.
func (s *SQLiteStorage) UpdatePositionStop(ctx context.Context, p domain.Position) error {
	stop, err := json.Marshal(p.Stop)
	if err != nil {
		return fmt.Errorf("storage.UpdatePositionStop: marshal stop: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE positions
		SET stop_state = ?, status = ?, exit_price = ?, exit_reason = ?,
		    payout = ?, realized_pnl = ?, resolved_at = ?
		WHERE id = ? AND status = 'OPEN'`,
		string(stop), string(p.Status), p.ExitPrice, string(p.ExitReason),
		p.Payout, p.RealizedPnL, resolvedAt(p), p.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdatePositionStop %s: %w", p.ID, err)
	}
	return nil
}

// ResolvePosition marca la posición como WON/LOST. Es idempotente: si la fila ya
// no está OPEN no se modifica y devuelve false.
func (s *SQLiteStorage) ResolvePosition(ctx context.Context, p domain.Position) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, exit_reason = ?, payout = ?,
		    realized_pnl = ?, resolved_at = ?
		WHERE id = ? AND status = 'OPEN'`,
		string(p.Status), p.ExitPrice, string(p.ExitReason), p.Payout,
		p.RealizedPnL, resolvedAt(p), p.ID,
	)
	if err != nil {
		return false, fmt.Errorf("storage.ResolvePosition %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.ResolvePosition %s: rows affected: %w", p.ID, err)
	}
	return n == 1, nil
}

// GetOpenPositions devuelve las posiciones OPEN, las más antiguas primero.
func (s *SQLiteStorage) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	return s.queryPositions(ctx, `SELECT `+positionColumns+` FROM positions
		WHERE status = 'OPEN' ORDER BY opened_at, id`)
}

// GetAllPositions devuelve el ledger completo.
func (s *SQLiteStorage) GetAllPositions(ctx context.Context) ([]domain.Position, error) {
	return s.queryPositions(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY opened_at, id`)
}

// SaveLadder persiste la cabecera del plan y las posiciones de sus legs en una
// sola transacción: o se abren todas o ninguna.
func (s *SQLiteStorage) SaveLadder(ctx context.Context, plan domain.LadderPlan, legs []domain.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveLadder %s: begin tx: %w", plan.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ladders (id, event_id, peak_index, legs, total_cost, budget, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.EventID, plan.PeakIndex, len(legs), plan.TotalCost,
		plan.Budget, formatTime(plan.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveLadder %s: %w", plan.ID, err)
	}
	for _, p := range legs {
		if err := insertPositionRow(ctx, tx, p); err != nil {
			return fmt.Errorf("storage.SaveLadder %s: %w", plan.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveLadder %s: commit: %w", plan.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) queryPositions(ctx context.Context, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryPositions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var (
			p                                  domain.Position
			category, side, status, exitReason string
			stop, eventDate, openedAt          string
			resolved                           sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.EventSlug, &p.BucketID, &p.Label, &p.LadderID,
			&category, &side, &p.EntryPrice, &p.Shares, &p.Cost, &status, &stop,
			&p.ExitPrice, &exitReason, &p.Payout, &p.RealizedPnL, &eventDate,
			&openedAt, &resolved,
		); err != nil {
			return nil, fmt.Errorf("storage.queryPositions: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(stop), &p.Stop); err != nil {
			return nil, fmt.Errorf("storage.queryPositions: stop state of %s: %w", p.ID, err)
		}
		p.Category = domain.ParseCategory(category)
		p.Side = domain.Side(side)
		p.Status = domain.PositionStatus(status)
		p.ExitReason = domain.ExitReason(exitReason)
		p.EventDate = parseDate(eventDate)
		p.OpenedAt = parseTime(openedAt)
		if resolved.Valid {
			t := parseTime(resolved.String)
			p.ResolvedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func resolvedAt(p domain.Position) any {
	if p.ResolvedAt == nil {
		return nil
	}
	return formatTime(*p.ResolvedAt)
}
