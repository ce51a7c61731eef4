package cart

import (
	"sync"

	"pdv/internal/domain"

	"github.com/google/uuid"
)

// Registry holds the live carts of every owner.
type Registry struct {
	mu    sync.RWMutex
	carts map[string]map[string]*Cart
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]map[string]*Cart)}
}

func (r *Registry) Create(ownerID string) *Cart {
	c := New(uuid.NewString(), ownerID)

	r.mu.Lock()
	defer r.mu.Unlock()
	owned, ok := r.carts[ownerID]
	if !ok {
		owned = make(map[string]*Cart)
		r.carts[ownerID] = owned
	}
	owned[c.id] = c
	return c
}

func (r *Registry) Get(ownerID, cartID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[ownerID][cartID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "cart", ID: cartID}
	}
	return c, nil
}

func (r *Registry) Delete(ownerID, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := r.carts[ownerID]
	if _, ok := owned[cartID]; !ok {
		return &domain.NotFoundError{Entity: "cart", ID: cartID}
	}
	delete(owned, cartID)
	if len(owned) == 0 {
		delete(r.carts, ownerID)
	}
	return nil
}

func (r *Registry) Len(ownerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts[ownerID])
}
