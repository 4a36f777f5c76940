package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/util"
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists curve_cache (
  params_key  text primary key,
  mode        text not null,
  model       text not null,
  points      integer not null,
  params_json jsonb not null,
  points_json jsonb not null,
  created_at  timestamptz not null default now()
);
create index if not exists curve_cache_created_at_idx on curve_cache (created_at);`

type CurveRepo struct{ DB *sql.DB }

func NewCurveRepo(db *sql.DB) *CurveRepo { return &CurveRepo{DB: db} }

// Key is the cache key of a resolved plan: sha256 of its canonical JSON.
func Key(plan curve.Plan) string {
	js, _ := json.Marshal(plan)
	return util.SHA256Hex(js)
}

func (r *CurveRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create curve_cache: %w", err)
	}
	return nil
}

// Find returns the cached curve for key. If maxAge > 0 and the row is older,
// or its JSON does not decode, it returns ErrNotFound so the caller recomputes.
func (r *CurveRepo) Find(ctx context.Context, key string, maxAge time.Duration) ([]curve.Point, error) {
	const q = `select points_json, created_at from curve_cache where params_key=$1`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, key).Scan(&js, &ts); err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return nil, ErrNotFound
	}
	var pts []curve.Point
	if err := json.Unmarshal(js, &pts); err != nil {
		return nil, ErrNotFound
	}
	return pts, nil
}

func (r *CurveRepo) Upsert(ctx context.Context, key string, plan curve.Plan, pts []curve.Point) error {
	params, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	body, err := json.Marshal(pts)
	if err != nil {
		return err
	}
	const q = `
insert into curve_cache(params_key, mode, model, points, params_json, points_json)
values ($1,$2,$3,$4,$5,$6)
on conflict (params_key)
do update set points_json=excluded.points_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, key, string(plan.Mode), plan.Model.String(), plan.Points, params, body)
	return err
}

func (r *CurveRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from curve_cache where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func (r *CurveRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
