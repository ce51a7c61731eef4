package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdv/internal/domain"
	"pdv/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository is the Postgres implementation of store.TxStore.
type Repository struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

var _ store.TxStore = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithinTx runs fn against a Repository bound to one transaction. The
// transaction commits only if fn returns nil. Nested calls join the outer
// transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{pool: r.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// batch runs fn in a transaction of its own unless r is already inside one.
func (r *Repository) batch(ctx context.Context, name string, fn func(q querier) error) error {
	if r.inTx {
		return fn(r.db)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", name, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}
	return nil
}

const productColumns = `
		id,
		owner_id,
		name,
		price,
		cost_price,
		code,
		stock,
		supplier_id,
		created_at,
		updated_at
`

func (r *Repository) GetProduct(ctx context.Context, ownerID, productID string) (domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND owner_id = $2`, productID, ownerID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, &domain.NotFoundError{Entity: "product", ID: productID}
		}
		return domain.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	return product, nil
}

func (r *Repository) ListProducts(ctx context.Context, ownerID string, filter store.ProductFilter) ([]domain.Product, error) {
	limit := store.NormalizeLimit(filter.Limit)
	offset := store.NormalizeOffset(filter.Offset)
	search := strings.TrimSpace(filter.Search)

	base := `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1`
	args := []any{ownerID}
	if search != "" {
		base += ` AND (name ILIKE $2 OR code ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	base += fmt.Sprintf(" ORDER BY LOWER(name), id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, base, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *Repository) UpsertProducts(ctx context.Context, ownerID string, rows []domain.CatalogImportRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	created := 0
	updated := 0
	err := r.batch(ctx, "import", func(q querier) error {
		for _, line := range rows {
			name := strings.TrimSpace(line.Name)
			if name == "" {
				continue
			}

			var existingID string
			err := q.QueryRow(ctx,
				"SELECT id FROM products WHERE owner_id = $1 AND LOWER(name) = LOWER($2) FOR UPDATE",
				ownerID, name,
			).Scan(&existingID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("query existing product %q: %w", name, err)
			}

			if errors.Is(err, pgx.ErrNoRows) {
				if _, err := q.Exec(ctx, `
					INSERT INTO products (
						id,
						owner_id,
						name,
						price,
						cost_price,
						code,
						stock
					) VALUES ($1, $2, $3, $4, $5, $6, $7)
				`,
					newID(),
					ownerID,
					name,
					line.Price,
					line.CostPrice,
					line.Code,
					line.Stock,
				); err != nil {
					return fmt.Errorf("insert imported product %q: %w", name, err)
				}
				created++
				continue
			}

			// Columns missing from the sheet keep their stored value.
			if _, err := q.Exec(ctx, `
				UPDATE products
				SET
					name = $2,
					price = $3,
					cost_price = COALESCE($4, cost_price),
					code = COALESCE($5, code),
					stock = COALESCE($6, stock),
					updated_at = NOW()
				WHERE id = $1
			`,
				existingID,
				name,
				line.Price,
				line.CostPrice,
				line.Code,
				line.Stock,
			); err != nil {
				return fmt.Errorf("update imported product %q: %w", name, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (r *Repository) AdjustStock(ctx context.Context, ownerID, productID string, delta int) (*int, error) {
	var stock int
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock + $3, updated_at = NOW()
		WHERE id = $1
		  AND owner_id = $2
		  AND stock IS NOT NULL
		  AND stock + $3 >= 0
		RETURNING stock
	`, productID, ownerID, delta).Scan(&stock)
	if err == nil {
		return &stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjust stock of %s: %w", productID, err)
	}

	// Nothing matched: tell a missing product from an untracked one and
	// from a guard rejection.
	var current *int
	err = r.db.QueryRow(ctx, "SELECT stock FROM products WHERE id = $1 AND owner_id = $2", productID, ownerID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "product", ID: productID}
		}
		return nil, fmt.Errorf("read stock of %s: %w", productID, err)
	}
	if current == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("adjust stock of %s by %d: %w", productID, delta, store.ErrStockConflict)
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p         domain.Product
		costPrice decimal.NullDecimal
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Price,
		&costPrice,
		&p.Code,
		&p.Stock,
		&p.SupplierID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	p.CostPrice = nullDecimal(costPrice)
	return p, nil
}
