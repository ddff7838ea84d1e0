package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

// PostgresStore implements Store over a relational schema with the same
// semantics as the flat document: ids assigned max+1 inside a
// transaction, no foreign key on sales.product_id (deleting a product
// must not cascade and orphaned references stay tolerated).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the three tables when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id   BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS products (
			id          BIGINT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       DOUBLE PRECISION NOT NULL DEFAULT 0,
			brand       TEXT NOT NULL DEFAULT '',
			category_id BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS sales (
			id          BIGINT PRIMARY KEY,
			product_id  BIGINT NOT NULL,
			quantity    BIGINT NOT NULL DEFAULT 0,
			total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			sale_date   TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name
			FROM categories
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Category, 0, 16)
		for rows.Next() {
			var c Category
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, description, price, brand, category_id
			FROM products
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Brand, &p.CategoryID); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListSales(ctx context.Context) ([]Sale, error) {
	var out []Sale
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, product_id, quantity, total_price, sale_date
			FROM sales
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Sale, 0, 16)
		for rows.Next() {
			var sl Sale
			if err := rows.Scan(&sl.ID, &sl.ProductID, &sl.Quantity, &sl.TotalPrice, &sl.Date); err != nil {
				return err
			}
			out = append(out, sl)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := s.retryOnIDClash(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO categories (id, name)
			SELECT COALESCE(MAX(id), 0) + 1, $1 FROM categories
			RETURNING id
		`, c.Name).Scan(&c.ID)
	})
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := s.retryOnIDClash(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO products (id, name, description, price, brand, category_id)
			SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5 FROM products
			RETURNING id
		`, p.Name, p.Description, p.Price, p.Brand, p.CategoryID).Scan(&p.ID)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	err := s.retryOnIDClash(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
		`, sale.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO sales (id, product_id, quantity, total_price, sale_date)
			SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4 FROM sales
			RETURNING id
		`, sale.ProductID, sale.Quantity, sale.TotalPrice, sale.Date).Scan(&sale.ID); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (s *PostgresStore) BulkAddCategories(ctx context.Context, batch []Category) (int, error) {
	inserted := 0
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO categories (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range batch {
			res, err := stmt.ExecContext(ctx, c.ID, c.Name)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *PostgresStore) BulkAddProducts(ctx context.Context, batch []Product) (int, error) {
	inserted := 0
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (id, name, description, price, brand, category_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range batch {
			res, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.Price, p.Brand, p.CategoryID)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *PostgresStore) BulkAddSales(ctx context.Context, batch []Sale) (int, error) {
	inserted := 0
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales (id, product_id, quantity, total_price, sale_date)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sl := range batch {
			res, err := stmt.ExecContext(ctx, sl.ID, sl.ProductID, sl.Quantity, sl.TotalPrice, sl.Date)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, id int, patch CategoryPatch) (Category, bool, error) {
	var (
		c     Category
		found bool
	)
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		err = tx.QueryRowContext(ctx, `
			SELECT id, name FROM categories WHERE id = $1 FOR UPDATE
		`, id).Scan(&c.ID, &c.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		c = patch.applyTo(c)
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET name = $2 WHERE id = $1
		`, c.ID, c.Name); err != nil {
			return err
		}

		found = true
		return tx.Commit()
	})
	if err != nil {
		return Category{}, false, err
	}
	return c, found, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id int, patch ProductPatch) (Product, bool, error) {
	var (
		p     Product
		found bool
	)
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		err = tx.QueryRowContext(ctx, `
			SELECT id, name, description, price, brand, category_id
			FROM products WHERE id = $1 FOR UPDATE
		`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Brand, &p.CategoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		p = patch.applyTo(p)
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET name = $2, description = $3, price = $4, brand = $5, category_id = $6
			WHERE id = $1
		`, p.ID, p.Name, p.Description, p.Price, p.Brand, p.CategoryID); err != nil {
			return err
		}

		found = true
		return tx.Commit()
	})
	if err != nil {
		return Product{}, false, err
	}
	return p, found, nil
}

func (s *PostgresStore) UpdateSale(ctx context.Context, id int, patch SalePatch) (Sale, bool, error) {
	var (
		sl    Sale
		found bool
	)
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		err = tx.QueryRowContext(ctx, `
			SELECT id, product_id, quantity, total_price, sale_date
			FROM sales WHERE id = $1 FOR UPDATE
		`, id).Scan(&sl.ID, &sl.ProductID, &sl.Quantity, &sl.TotalPrice, &sl.Date)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		// product_id is deliberately absent from the update list.
		sl = patch.applyTo(sl)
		if _, err := tx.ExecContext(ctx, `
			UPDATE sales
			SET quantity = $2, total_price = $3, sale_date = $4
			WHERE id = $1
		`, sl.ID, sl.Quantity, sl.TotalPrice, sl.Date); err != nil {
			return err
		}

		found = true
		return tx.Commit()
	})
	if err != nil {
		return Sale{}, false, err
	}
	return sl, found, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		return err
	})
}

func (s *PostgresStore) DashboardStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM sales
		`).Scan(&st.TotalSalesCount, &st.TotalRevenue)
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// retryOnIDClash runs fn once more when two concurrent creates race on
// the same max+1 id and one hits the primary key.
func (s *PostgresStore) retryOnIDClash(ctx context.Context, fn func(ctx context.Context) error) error {
	err := withTimeout(ctx, queryTimeout, fn)
	if isUniqueViolation(err) {
		err = withTimeout(ctx, queryTimeout, fn)
	}
	return err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
