package seatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/escrowcore/internal/seat"
)

// PG persiste snapshots en postgres, un row por seat con el snapshot como
// jsonb. El esquema vive en migrations/postgres.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG abre un pool contra el DSN dado y verifica la conexión.
func NewPG(ctx context.Context, dsn string) (*PG, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("seatstore pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seatstore pg: ping: %w", err)
	}
	return &PG{pool: pool}, nil
}

func (p *PG) Save(ctx context.Context, snap seat.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("seatstore pg: marshal %s: %w", snap.ID, err)
	}
	const q = `
		INSERT INTO seat_snapshots (seat_id, state, snapshot, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (seat_id)
		DO UPDATE SET state = EXCLUDED.state, snapshot = EXCLUDED.snapshot, updated_at = NOW()`

	_, err = p.pool.Exec(ctx, q, snap.ID, snap.State, data)
	return err
}

func (p *PG) Load(ctx context.Context, seatID string) (seat.Snapshot, error) {
	const q = `SELECT snapshot FROM seat_snapshots WHERE seat_id = $1`

	var data []byte
	err := p.pool.QueryRow(ctx, q, seatID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return seat.Snapshot{}, ErrNotFound
		}
		return seat.Snapshot{}, err
	}
	var snap seat.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return seat.Snapshot{}, fmt.Errorf("seatstore pg: decode %s: %w", seatID, err)
	}
	return snap, nil
}

func (p *PG) List(ctx context.Context) ([]seat.Snapshot, error) {
	const q = `SELECT snapshot FROM seat_snapshots ORDER BY seat_id`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []seat.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var snap seat.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("seatstore pg: decode: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (p *PG) Delete(ctx context.Context, seatID string) error {
	const q = `DELETE FROM seat_snapshots WHERE seat_id = $1`
	_, err := p.pool.Exec(ctx, q, seatID)
	return err
}

func (p *PG) Close() error {
	p.pool.Close()
	return nil
}
