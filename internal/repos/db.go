package repos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libsql / Turso
	_ "modernc.org/sqlite"                               // local sqlite
)

// tsLayout is how timestamps are stored. It sorts lexicographically and
// matches sqlite's CURRENT_TIMESTAMP.
const tsLayout = "2006-01-02 15:04:05"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.ParseInLocation(tsLayout, s, time.UTC)
	if err != nil {
		// rows written by other tools may carry RFC3339
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

// OpenDB opens the store, creates the schema and seeds reference data
// (provinces, localities, categories). A libsql:// or wss:// DSN selects the
// libsql driver; anything else is a local sqlite file or ":memory:".
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		driver = "libsql"
		sqlx.BindDriver(driver, sqlx.QUESTION)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// One connection: keeps ":memory:" a single database and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := seedReference(db); err != nil {
		return nil, fmt.Errorf("seed reference data: %w", err)
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS provinces(
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS localities(
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  province_id INTEGER NOT NULL REFERENCES provinces(id),
  latitude REAL,
  longitude REAL
);
CREATE INDEX IF NOT EXISTS idx_localities_province ON localities(province_id);
CREATE INDEX IF NOT EXISTS idx_localities_name     ON localities(name);

CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS sellers(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  contact TEXT NOT NULL UNIQUE,
  locality_id INTEGER REFERENCES localities(id),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS listings(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  condition TEXT NOT NULL CHECK (condition IN ('New','Used')),
  locality_id INTEGER REFERENCES localities(id),
  seller_id INTEGER NOT NULL REFERENCES sellers(id),
  ends_at TEXT NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  views INTEGER NOT NULL DEFAULT 0,
  searches INTEGER NOT NULL DEFAULT 0,
  featured INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  search_text TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_listings_ends_at  ON listings(ends_at);
CREATE INDEX IF NOT EXISTS idx_listings_seller   ON listings(seller_id);
CREATE INDEX IF NOT EXISTS idx_listings_locality ON listings(locality_id);
CREATE INDEX IF NOT EXISTS idx_listings_rank     ON listings(searches DESC, views DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_listings_featured ON listings(featured);

CREATE TABLE IF NOT EXISTS listing_categories(
  listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  PRIMARY KEY (listing_id, category_id)
);

CREATE TABLE IF NOT EXISTS listing_images(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  filename TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_listing_images_listing ON listing_images(listing_id, position);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// stores created before search_text existed
	var has int
	if err := db.Get(&has, `SELECT COUNT(*) FROM pragma_table_info('listings') WHERE name = 'search_text'`); err != nil {
		return err
	}
	if has == 0 {
		if _, err := db.Exec(`ALTER TABLE listings ADD COLUMN search_text TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	return indexSearchText(context.Background(), db, `l.search_text = ''`)
}

// seedReference is idempotent; safe to run every start.
func seedReference(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO provinces(id,name) VALUES
	    (1,'Ciudad Autónoma de Buenos Aires'),
	    (2,'Buenos Aires'),
	    (3,'Córdoba'),
	    (4,'Santa Fe'),
	    (5,'Mendoza')
	  ON CONFLICT(id) DO NOTHING`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
	  INSERT INTO localities(id,name,province_id,latitude,longitude) VALUES
	    (1,'Palermo',1,-34.5889,-58.4306),
	    (2,'Belgrano',1,-34.5627,-58.4583),
	    (3,'Recoleta',1,-34.5875,-58.3974),
	    (4,'Vicente López',2,-34.5266,-58.4791),
	    (5,'San Isidro',2,-34.4708,-58.5286),
	    (6,'Pilar',2,-34.4587,-58.9142),
	    (7,'La Plata',2,-34.9205,-57.9536),
	    (8,'Córdoba',3,-31.4201,-64.1888),
	    (9,'Villa Carlos Paz',3,-31.4241,-64.4978),
	    (10,'Rosario',4,-32.9442,-60.6505),
	    (11,'Mendoza',5,-32.8895,-68.8458)
	  ON CONFLICT(id) DO NOTHING`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
	  INSERT INTO categories(id,name) VALUES
	    (1,'Electrónica'),
	    (2,'Muebles'),
	    (3,'Ropa y Accesorios'),
	    (4,'Deportes'),
	    (5,'Hogar y Jardín'),
	    (6,'Juguetes'),
	    (7,'Libros'),
	    (8,'Instrumentos Musicales'),
	    (9,'Otros')
	  ON CONFLICT(id) DO NOTHING`); err != nil {
		return err
	}
	return tx.Commit()
}

// SeedDemo inserts a handful of listings when the store has none.
func SeedDemo(db *sqlx.DB, now time.Time) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM listings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO sellers(id,name,contact,locality_id) VALUES
	    (1,'Juan Pérez','+5491122334455',1),
	    (2,'María García','+5491166778899',2),
	    (3,'Carlos Rodríguez','+5491165478932',3),
	    (4,'Ana Martínez','+5491143215678',4)
	  ON CONFLICT(contact) DO NOTHING`); err != nil {
		return err
	}

	day := 24 * time.Hour
	demo := []struct {
		title, desc, cond string
		price             float64
		locality, seller  int64
		ends              time.Duration
		cat               int64
		img               string
	}{
		{"Sillón de dos cuerpos", "Sillón de pana en buen estado", "Used", 45000, 1, 1, 10 * day, 2, "demo/sillon.jpg"},
		{"Guitarra criolla", "Guitarra criolla con funda", "Used", 38000, 2, 2, 3 * day, 8, "demo/guitarra.jpg"},
		{"Notebook 14 pulgadas", "8GB RAM, SSD 256GB", "Used", 250000, 3, 3, 35 * day, 1, "demo/notebook.jpg"},
		{"Bicicleta rodado 26", "Bicicleta de montaña, cambios Shimano", "Used", 90000, 4, 4, 12 * time.Hour, 4, "demo/bicicleta.jpg"},
		{"Libros de cocina", "Lote de 5 libros de cocina", "Used", 0, 1, 1, 8 * day, 7, "demo/libros.jpg"},
		{"Lámpara de pie", "Lámpara de pie nueva, sin uso", "New", 22000, 2, 2, 2 * day, 5, "demo/lampara.jpg"},
		{"Pelota de fútbol", "Pelota número 5", "New", 15000, 3, 3, 40 * day, 4, "demo/pelota.jpg"},
	}
	for _, d := range demo {
		res, err := tx.Exec(`
		  INSERT INTO listings(title,description,price,condition,locality_id,seller_id,ends_at,created_at)
		  VALUES(?,?,?,?,?,?,?,?)`,
			d.title, d.desc, d.price, d.cond, d.locality, d.seller, formatTS(now.Add(d.ends)), formatTS(now))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO listing_categories(listing_id,category_id) VALUES(?,?)`, id, d.cat); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO listing_images(listing_id,filename,position) VALUES(?,?,0)`, id, d.img); err != nil {
			return err
		}
	}
	if err := indexSearchText(context.Background(), tx, `l.search_text = ''`); err != nil {
		return err
	}
	return tx.Commit()
}
