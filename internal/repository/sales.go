package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdv/internal/domain"

	"github.com/jackc/pgx/v5"
)

const saleColumns = `
		id,
		owner_id,
		items,
		subtotal,
		discount_mode,
		discount_percent,
		discount_absolute,
		total,
		original_total,
		payment_method,
		payment_details,
		cash_received,
		change_due,
		employee_id,
		customer_id,
		created_at,
		due_date,
		has_open_debt,
		revision,
		edited_at
`

const closedSaleColumns = saleColumns + `,
		batch_id,
		closed_at
`

func (r *Repository) InsertSale(ctx context.Context, sale domain.Sale) error {
	args, err := saleArgs(sale)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}
	if _, err := r.db.Exec(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, args...); err != nil {
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}
	return nil
}

// GetOpenSale locks the row when called inside a transaction so a
// concurrent edit or cancel of the same sale waits for this one.
func (r *Repository) GetOpenSale(ctx context.Context, ownerID, saleID string) (domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 AND owner_id = $2`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	sale, err := scanSale(r.db.QueryRow(ctx, query, saleID, ownerID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sale{}, &domain.NotFoundError{Entity: "sale", ID: saleID}
		}
		return domain.Sale{}, fmt.Errorf("get sale %s: %w", saleID, err)
	}
	return sale, nil
}

func (r *Repository) UpdateOpenSale(ctx context.Context, sale domain.Sale) error {
	args, err := saleArgs(sale)
	if err != nil {
		return fmt.Errorf("update sale %s: %w", sale.ID, err)
	}
	cmd, err := r.db.Exec(ctx, `
		UPDATE sales
		SET
			items = $3,
			subtotal = $4,
			discount_mode = $5,
			discount_percent = $6,
			discount_absolute = $7,
			total = $8,
			original_total = $9,
			payment_method = $10,
			payment_details = $11,
			cash_received = $12,
			change_due = $13,
			employee_id = $14,
			customer_id = $15,
			created_at = $16,
			due_date = $17,
			has_open_debt = $18,
			revision = $19,
			edited_at = $20
		WHERE id = $1 AND owner_id = $2
	`, args...)
	if err != nil {
		return fmt.Errorf("update sale %s: %w", sale.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "sale", ID: sale.ID}
	}
	return nil
}

func (r *Repository) DeleteOpenSale(ctx context.Context, ownerID, saleID string) error {
	cmd, err := r.db.Exec(ctx, "DELETE FROM sales WHERE id = $1 AND owner_id = $2", saleID, ownerID)
	if err != nil {
		return fmt.Errorf("delete sale %s: %w", saleID, err)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "sale", ID: saleID}
	}
	return nil
}

// DeleteOpenSales removes every given sale or none of them. Rows are matched
// on id and revision so a sale edited after it was read is left in place.
func (r *Repository) DeleteOpenSales(ctx context.Context, ownerID string, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	revisions := make([]int32, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
		revisions = append(revisions, int32(sale.Revision))
	}
	return r.batch(ctx, "delete sales", func(q querier) error {
		rows, err := q.Query(ctx, `
			DELETE FROM sales AS s
			USING unnest($2::text[], $3::int[]) AS expected (id, revision)
			WHERE s.owner_id = $1
				AND s.id = expected.id
				AND s.revision = expected.revision
			RETURNING s.id
		`, ownerID, ids, revisions)
		if err != nil {
			return fmt.Errorf("delete sales: %w", err)
		}
		deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("delete sales: %w", err)
		}
		if len(deleted) == len(ids) {
			return nil
		}
		gone := make(map[string]bool, len(deleted))
		for _, id := range deleted {
			gone[id] = true
		}
		for _, id := range ids {
			if !gone[id] {
				return &domain.ConflictError{Entity: "sale", ID: id, Reason: "changed or removed since it was read"}
			}
		}
		return fmt.Errorf("delete sales: removed %d of %d", len(deleted), len(ids))
	})
}

// ListOpenSales locks the listed rows when called inside a transaction.
func (r *Repository) ListOpenSales(ctx context.Context, ownerID string, period domain.Period) ([]domain.Sale, error) {
	query, args := withPeriod(`SELECT `+saleColumns+` FROM sales WHERE owner_id = $1`, []any{ownerID}, "created_at", period)
	query += ` ORDER BY created_at, id`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return collectSales(rows, false)
}

func (r *Repository) GetClosedSale(ctx context.Context, ownerID, saleID string) (domain.Sale, error) {
	query := `SELECT ` + closedSaleColumns + ` FROM closed_sales WHERE id = $1 AND owner_id = $2`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	sale, err := scanSale(r.db.QueryRow(ctx, query, saleID, ownerID), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sale{}, &domain.NotFoundError{Entity: "closed sale", ID: saleID}
		}
		return domain.Sale{}, fmt.Errorf("get closed sale %s: %w", saleID, err)
	}
	return sale, nil
}

func (r *Repository) DeleteClosedSale(ctx context.Context, ownerID, saleID string) error {
	cmd, err := r.db.Exec(ctx, "DELETE FROM closed_sales WHERE id = $1 AND owner_id = $2", saleID, ownerID)
	if err != nil {
		return fmt.Errorf("delete closed sale %s: %w", saleID, err)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "closed sale", ID: saleID}
	}
	return nil
}

func (r *Repository) ListClosedSales(ctx context.Context, ownerID, batchID string, period domain.Period) ([]domain.Sale, error) {
	query := `SELECT ` + closedSaleColumns + ` FROM closed_sales WHERE owner_id = $1`
	args := []any{ownerID}
	if strings.TrimSpace(batchID) != "" {
		args = append(args, batchID)
		query += fmt.Sprintf(` AND batch_id = $%d`, len(args))
	}
	query, args = withPeriod(query, args, "created_at", period)
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list closed sales: %w", err)
	}
	return collectSales(rows, true)
}

func (r *Repository) ArchiveSales(ctx context.Context, closing domain.TillClosing, sales []domain.Sale) error {
	return r.batch(ctx, "archive", func(q querier) error {
		if _, err := q.Exec(ctx, `
			INSERT INTO till_closings (
				id,
				owner_id,
				start_date,
				end_date,
				sale_count,
				total_cash,
				total_pix,
				total_credit,
				total_debit,
				total_deferred,
				total_sales,
				sale_ids
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			closing.ID,
			closing.OwnerID,
			closing.StartDate,
			closing.EndDate,
			closing.SaleCount,
			closing.Totals.Cash,
			closing.Totals.Pix,
			closing.Totals.Credit,
			closing.Totals.Debit,
			closing.Totals.Deferred,
			closing.Totals.Total,
			nonNilStrings(closing.SaleIDs),
		); err != nil {
			return fmt.Errorf("insert till closing %s: %w", closing.ID, err)
		}

		for _, sale := range sales {
			args, err := saleArgs(sale)
			if err != nil {
				return fmt.Errorf("archive sale %s: %w", sale.ID, err)
			}
			args = append(args, closing.ID, sale.ClosedAt)
			if _, err := q.Exec(ctx, `
				INSERT INTO closed_sales (`+closedSaleColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			`, args...); err != nil {
				return fmt.Errorf("archive sale %s: %w", sale.ID, err)
			}
		}
		return nil
	})
}

func (r *Repository) DeleteTillClosing(ctx context.Context, ownerID, batchID string) error {
	return r.batch(ctx, "delete till closing", func(q querier) error {
		if _, err := q.Exec(ctx,
			"DELETE FROM closed_sales WHERE owner_id = $1 AND batch_id = $2",
			ownerID, batchID,
		); err != nil {
			return fmt.Errorf("delete archived sales of %s: %w", batchID, err)
		}
		cmd, err := q.Exec(ctx, "DELETE FROM till_closings WHERE owner_id = $1 AND id = $2", ownerID, batchID)
		if err != nil {
			return fmt.Errorf("delete till closing %s: %w", batchID, err)
		}
		if cmd.RowsAffected() == 0 {
			return &domain.NotFoundError{Entity: "till closing", ID: batchID}
		}
		return nil
	})
}

func (r *Repository) ListTillClosings(ctx context.Context, ownerID string, period domain.Period) ([]domain.TillClosing, error) {
	query, args := withPeriod(`
		SELECT
			id,
			owner_id,
			start_date,
			end_date,
			sale_count,
			total_cash,
			total_pix,
			total_credit,
			total_debit,
			total_deferred,
			total_sales,
			sale_ids
		FROM till_closings
		WHERE owner_id = $1`, []any{ownerID}, "end_date", period)
	rows, err := r.db.Query(ctx, query+` ORDER BY end_date DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list till closings: %w", err)
	}
	defer rows.Close()

	closings := make([]domain.TillClosing, 0)
	for rows.Next() {
		var c domain.TillClosing
		if err := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.StartDate,
			&c.EndDate,
			&c.SaleCount,
			&c.Totals.Cash,
			&c.Totals.Pix,
			&c.Totals.Credit,
			&c.Totals.Debit,
			&c.Totals.Deferred,
			&c.Totals.Total,
			&c.SaleIDs,
		); err != nil {
			return nil, fmt.Errorf("scan till closing: %w", err)
		}
		closings = append(closings, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate till closings: %w", err)
	}
	return closings, nil
}

func collectSales(rows pgx.Rows, closed bool) ([]domain.Sale, error) {
	defer rows.Close()
	sales := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows, closed)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}
