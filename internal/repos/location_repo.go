package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"garagesale/internal/domain"
)

type LocationRepo struct{ db *sqlx.DB }

func NewLocationRepo(db *sqlx.DB) *LocationRepo { return &LocationRepo{db: db} }

func (r *LocationRepo) Provinces(ctx context.Context) ([]domain.Province, error) {
	out := []domain.Province{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM provinces ORDER BY name`)
	return out, err
}

func (r *LocationRepo) Localities(ctx context.Context) ([]domain.Locality, error) {
	out := []domain.Locality{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT lo.id, lo.name, lo.province_id, p.name AS province_name, lo.latitude, lo.longitude
	  FROM localities lo JOIN provinces p ON p.id = lo.province_id
	  ORDER BY lo.name`)
	return out, err
}

// Resolve maps a location name to a province, falling back to a locality.
// Unknown names resolve to the zero Scope, which does not filter.
func (r *LocationRepo) Resolve(ctx context.Context, name string) (Scope, error) {
	if name == "" {
		return Scope{}, nil
	}
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM provinces WHERE name = ?`, name)
	if err == nil {
		return Scope{ProvinceID: id}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Scope{}, err
	}
	err = r.db.GetContext(ctx, &id, `SELECT id FROM localities WHERE name = ? ORDER BY id LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Scope{}, nil
	}
	if err != nil {
		return Scope{}, err
	}
	return Scope{LocalityID: id}, nil
}
