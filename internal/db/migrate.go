package db

import (
	"fmt"
)

// Migrate tworzy brakujące tabele razem z kluczami obcymi
// (orders.customer_id, order_items.order_id, order_items.product_id).
// Bez wersjonowania - AutoMigrate sam układa kolejność wg zależności.
func (h *Handle) Migrate() error {
	if err := h.DB.AutoMigrate(
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}
