package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"garagesale/internal/domain"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

type listingRow struct {
	ID            int64   `db:"id"`
	Title         string  `db:"title"`
	Description   string  `db:"description"`
	Price         float64 `db:"price"`
	Condition     string  `db:"condition"`
	EndsAt        string  `db:"ends_at"`
	Available     bool    `db:"available"`
	Views         int64   `db:"views"`
	Searches      int64   `db:"searches"`
	Featured      bool    `db:"featured"`
	CreatedAt     string  `db:"created_at"`
	SellerID      int64   `db:"seller_id"`
	SellerName    string  `db:"seller_name"`
	SellerContact string  `db:"seller_contact"`
	LocalityID    int64   `db:"locality_id"`
	LocalityName  string  `db:"locality_name"`
	ProvinceID    int64   `db:"province_id"`
	ProvinceName  string  `db:"province_name"`
}

func (r listingRow) toDomain() domain.Listing {
	l := domain.Listing{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Condition:   domain.Condition(r.Condition),
		Seller:      domain.Seller{ID: r.SellerID, Name: r.SellerName, Contact: r.SellerContact},
		EndsAt:      parseTS(r.EndsAt),
		Available:   r.Available,
		Views:       r.Views,
		Searches:    r.Searches,
		Featured:    r.Featured,
		CreatedAt:   parseTS(r.CreatedAt),
		Categories:  []domain.Category{},
		Images:      []string{},
	}
	if r.LocalityID != 0 {
		l.Locality = &domain.Locality{ID: r.LocalityID, Name: r.LocalityName, ProvinceID: r.ProvinceID, ProvinceName: r.ProvinceName}
	}
	return l
}

const listingSelect = `
  SELECT
    l.id, l.title, COALESCE(l.description,'') AS description, l.price, l.condition,
    l.ends_at, l.available, l.views, l.searches, l.featured,
    COALESCE(l.created_at,'') AS created_at,
    s.id AS seller_id, s.name AS seller_name, s.contact AS seller_contact,
    COALESCE(lo.id,0) AS locality_id, COALESCE(lo.name,'') AS locality_name,
    COALESCE(lo.province_id,0) AS province_id, COALESCE(p.name,'') AS province_name`

const listingFrom = `
  FROM listings l
  JOIN sellers s ON s.id = l.seller_id
  LEFT JOIN localities lo ON lo.id = l.locality_id
  LEFT JOIN provinces p ON p.id = lo.province_id`

// listingOrder keeps pagination deterministic: id breaks every tie.
const listingOrder = ` ORDER BY l.searches DESC, l.views DESC, l.id DESC`

// Scope is a resolved location filter: at most one of the ids is set.
type Scope struct {
	ProvinceID int64
	LocalityID int64
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// indexSearchText rebuilds search_text for the listings matching where: the
// folded title, description, seller, locality and category names, one per
// line so a term never matches across two fields.
func indexSearchText(ctx context.Context, q sqlx.ExtContext, where string, args ...any) error {
	var rows []struct {
		ID          int64  `db:"id"`
		Title       string `db:"title"`
		Description string `db:"description"`
		Seller      string `db:"seller"`
		Locality    string `db:"locality"`
		Categories  string `db:"categories"`
	}
	err := sqlx.SelectContext(ctx, q, &rows, `
	  SELECT l.id, l.title, COALESCE(l.description,'') AS description, s.name AS seller,
	    COALESCE(lo.name,'') AS locality,
	    COALESCE((SELECT group_concat(c.name, char(10)) FROM listing_categories lc
	      JOIN categories c ON c.id = lc.category_id WHERE lc.listing_id = l.id),'') AS categories
	  FROM listings l
	  JOIN sellers s ON s.id = l.seller_id
	  LEFT JOIN localities lo ON lo.id = l.locality_id
	  WHERE `+where, args...)
	if err != nil {
		return err
	}
	for _, r := range rows {
		text := domain.Fold(strings.Join([]string{r.Title, r.Description, r.Seller, r.Locality, r.Categories}, "\n"))
		if _, err := q.ExecContext(ctx, `UPDATE listings SET search_text = ? WHERE id = ?`, text, r.ID); err != nil {
			return err
		}
	}
	return nil
}

func buildWhere(f domain.ListingFilter, scope Scope, now time.Time) (string, []any) {
	where := []string{"1=1"}
	args := []any{}

	if f.Search != "" {
		where = append(where, `l.search_text LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(domain.Fold(f.Search)))
	}
	if f.Category != "" {
		where = append(where, `EXISTS (SELECT 1 FROM listing_categories lc JOIN categories c ON c.id = lc.category_id
		  WHERE lc.listing_id = l.id AND c.name = ?)`)
		args = append(args, f.Category)
	}
	if f.Condition != "" {
		where = append(where, `l.condition = ?`)
		args = append(args, string(f.Condition))
	}
	if scope.ProvinceID != 0 {
		where = append(where, `lo.province_id = ?`)
		args = append(args, scope.ProvinceID)
	}
	if scope.LocalityID != 0 {
		where = append(where, `l.locality_id = ?`)
		args = append(args, scope.LocalityID)
	}
	if f.LocalityID != 0 {
		where = append(where, `l.locality_id = ?`)
		args = append(args, f.LocalityID)
	}
	if f.PriceMin != nil {
		where = append(where, `l.price >= ?`)
		args = append(args, *f.PriceMin)
	}
	if f.PriceMax != nil {
		where = append(where, `l.price <= ?`)
		args = append(args, *f.PriceMax)
	}
	if f.EndsIn != "" {
		after, until := f.EndsIn.Window(now)
		if after != nil {
			where = append(where, `l.ends_at > ?`)
			args = append(args, formatTS(*after))
		}
		if until != nil {
			where = append(where, `l.ends_at <= ?`)
			args = append(args, formatTS(*until))
		}
	}
	if f.ActiveOnly {
		where = append(where, `l.ends_at > ? AND l.available = 1`)
		args = append(args, formatTS(now))
	}
	if f.FeaturedOnly {
		where = append(where, `l.featured = 1`)
	}
	if f.SellerID != 0 {
		where = append(where, `l.seller_id = ?`)
		args = append(args, f.SellerID)
	}
	return strings.Join(where, " AND "), args
}

// Query returns one page of listings matching f and the total match count.
func (r *ListingRepo) Query(ctx context.Context, f domain.ListingFilter, scope Scope, now time.Time) ([]domain.Listing, int, error) {
	where, args := buildWhere(f, scope, now)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+listingFrom+` WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Listing{}, 0, nil
	}

	rows := []listingRow{}
	q := listingSelect + listingFrom + ` WHERE ` + where + listingOrder + ` LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, q, append(args, f.PageSize, f.Offset())...); err != nil {
		return nil, 0, err
	}
	items, err := r.hydrate(ctx, rows)
	return items, total, err
}

// ListActive returns every active listing, optionally limited to a category,
// in rank order. Used by autocomplete and the featured batch.
func (r *ListingRepo) ListActive(ctx context.Context, category string, now time.Time) ([]domain.Listing, error) {
	where, args := buildWhere(domain.ListingFilter{Category: category, ActiveOnly: true}, Scope{}, now)
	rows := []listingRow{}
	if err := r.db.SelectContext(ctx, &rows, listingSelect+listingFrom+` WHERE `+where+listingOrder, args...); err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows)
}

func (r *ListingRepo) Get(ctx context.Context, id int64) (domain.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row, listingSelect+listingFrom+` WHERE l.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, err
	}
	items, err := r.hydrate(ctx, []listingRow{row})
	if err != nil {
		return domain.Listing{}, err
	}
	return items[0], nil
}

func (r *ListingRepo) hydrate(ctx context.Context, rows []listingRow) ([]domain.Listing, error) {
	out := make([]domain.Listing, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, len(rows))
	pos := make(map[int64]int, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
		ids[i] = row.ID
		pos[row.ID] = i
	}

	type catRow struct {
		ListingID int64  `db:"listing_id"`
		ID        int64  `db:"id"`
		Name      string `db:"name"`
	}
	q, args, err := sqlx.In(`
	  SELECT lc.listing_id, c.id, c.name
	  FROM listing_categories lc JOIN categories c ON c.id = lc.category_id
	  WHERE lc.listing_id IN (?)
	  ORDER BY lc.listing_id, c.name`, ids)
	if err != nil {
		return nil, err
	}
	var cats []catRow
	if err := r.db.SelectContext(ctx, &cats, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, c := range cats {
		i := pos[c.ListingID]
		out[i].Categories = append(out[i].Categories, domain.Category{ID: c.ID, Name: c.Name})
	}

	type imgRow struct {
		ListingID int64  `db:"listing_id"`
		Filename  string `db:"filename"`
	}
	q, args, err = sqlx.In(`
	  SELECT listing_id, filename FROM listing_images
	  WHERE listing_id IN (?)
	  ORDER BY listing_id, position, id`, ids)
	if err != nil {
		return nil, err
	}
	var imgs []imgRow
	if err := r.db.SelectContext(ctx, &imgs, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, img := range imgs {
		i := pos[img.ListingID]
		out[i].Images = append(out[i].Images, img.Filename)
	}
	return out, nil
}

// Create publishes a listing. The seller is reused by contact handle or
// created; category names must already exist.
func (r *ListingRepo) Create(ctx context.Context, n domain.NewListing, now time.Time) (int64, error) {
	cond, _ := domain.ParseCondition(n.Condition)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var localityOK int
	if err := tx.GetContext(ctx, &localityOK, `SELECT COUNT(*) FROM localities WHERE id = ?`, n.LocalityID); err != nil {
		return 0, err
	}
	if localityOK == 0 {
		return 0, fmt.Errorf("%w: unknown locality %d", domain.ErrInvalidListing, n.LocalityID)
	}

	var sellerID int64
	err = tx.GetContext(ctx, &sellerID, `SELECT id FROM sellers WHERE contact = ?`, n.SellerContact)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `INSERT INTO sellers(name,contact,locality_id,created_at) VALUES(?,?,?,?)`,
			n.SellerName, n.SellerContact, n.LocalityID, formatTS(now))
		if err != nil {
			return 0, err
		}
		if sellerID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	}

	q, args, err := sqlx.In(`SELECT id FROM categories WHERE name IN (?)`, n.Categories)
	if err != nil {
		return 0, err
	}
	var catIDs []int64
	if err := tx.SelectContext(ctx, &catIDs, tx.Rebind(q), args...); err != nil {
		return 0, err
	}
	if len(catIDs) != len(uniqueStrings(n.Categories)) {
		return 0, fmt.Errorf("%w: unknown category in %v", domain.ErrInvalidListing, n.Categories)
	}

	res, err := tx.ExecContext(ctx, `
	  INSERT INTO listings(title,description,price,condition,locality_id,seller_id,ends_at,available,created_at)
	  VALUES(?,?,?,?,?,?,?,1,?)`,
		n.Title, n.Description, n.Price, string(cond), n.LocalityID, sellerID, formatTS(n.EndsAt), formatTS(now))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, cid := range catIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO listing_categories(listing_id,category_id) VALUES(?,?)`, id, cid); err != nil {
			return 0, err
		}
	}
	for i, img := range n.Images {
		if _, err := tx.ExecContext(ctx, `INSERT INTO listing_images(listing_id,filename,position) VALUES(?,?,?)`, id, strings.TrimSpace(img), i); err != nil {
			return 0, err
		}
	}
	if err := indexSearchText(ctx, tx, `l.id = ?`, id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// IncrementViews adds exactly one view and returns the new count.
func (r *ListingRepo) IncrementViews(ctx context.Context, id int64) (int64, error) {
	return r.bump(ctx, "views", id)
}

// IncrementSearches adds exactly one search hit and returns the new count.
func (r *ListingRepo) IncrementSearches(ctx context.Context, id int64) (int64, error) {
	return r.bump(ctx, "searches", id)
}

func (r *ListingRepo) bump(ctx context.Context, column string, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrNotFound
	}
	var v int64
	err = r.db.GetContext(ctx, &v, `SELECT `+column+` FROM listings WHERE id = ?`, id)
	return v, err
}

func (r *ListingRepo) SetFeatured(ctx context.Context, id int64, featured bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET featured = ? WHERE id = ?`, featured, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecomputeFeatured promotes the top `slots` active listings by searches
// (ties by id ascending) and demotes every other featured listing, expired
// ones included, in a single transaction.
func (r *ListingRepo) RecomputeFeatured(ctx context.Context, slots int, now time.Time) (promoted, demoted []int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var top []int64
	if err := tx.SelectContext(ctx, &top, `
	  SELECT id FROM listings
	  WHERE ends_at > ? AND available = 1
	  ORDER BY searches DESC, id ASC
	  LIMIT ?`, formatTS(now), slots); err != nil {
		return nil, nil, err
	}

	promoted, demoted = []int64{}, []int64{}
	if len(top) > 0 {
		q, args, err := sqlx.In(`SELECT id FROM listings WHERE featured = 0 AND id IN (?) ORDER BY id`, top)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.SelectContext(ctx, &promoted, tx.Rebind(q), args...); err != nil {
			return nil, nil, err
		}
		q, args, err = sqlx.In(`SELECT id FROM listings WHERE featured = 1 AND id NOT IN (?) ORDER BY id`, top)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.SelectContext(ctx, &demoted, tx.Rebind(q), args...); err != nil {
			return nil, nil, err
		}
	} else if err := tx.SelectContext(ctx, &demoted, `SELECT id FROM listings WHERE featured = 1 ORDER BY id`); err != nil {
		return nil, nil, err
	}

	for _, id := range promoted {
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET featured = 1 WHERE id = ?`, id); err != nil {
			return nil, nil, err
		}
	}
	for _, id := range demoted {
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET featured = 0 WHERE id = ?`, id); err != nil {
			return nil, nil, err
		}
	}
	return promoted, demoted, tx.Commit()
}
