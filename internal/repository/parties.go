package repository

import (
	"context"
	"errors"
	"fmt"

	"pdv/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetEmployee(ctx context.Context, ownerID, employeeID string) (domain.Employee, error) {
	var e domain.Employee
	err := r.db.QueryRow(ctx,
		"SELECT id, owner_id, name FROM employees WHERE id = $1 AND owner_id = $2",
		employeeID, ownerID,
	).Scan(&e.ID, &e.OwnerID, &e.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Employee{}, &domain.NotFoundError{Entity: "employee", ID: employeeID}
		}
		return domain.Employee{}, fmt.Errorf("get employee %s: %w", employeeID, err)
	}
	return e, nil
}

func (r *Repository) GetCustomer(ctx context.Context, ownerID, customerID string) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.QueryRow(ctx,
		"SELECT id, owner_id, name FROM customers WHERE id = $1 AND owner_id = $2",
		customerID, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, &domain.NotFoundError{Entity: "customer", ID: customerID}
		}
		return domain.Customer{}, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	return c, nil
}
