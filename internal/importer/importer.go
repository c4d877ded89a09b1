package importer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	conf "github.com/bartek5186/mockapi2db/internal/config"
	"github.com/bartek5186/mockapi2db/internal/db"
	"github.com/bartek5186/mockapi2db/internal/metrics"
	"github.com/bartek5186/mockapi2db/internal/mockapi"
)

// Source - skąd bierzemy kolekcje (w praktyce *mockapi.Client)
type Source interface {
	Customers(ctx context.Context) ([]mockapi.Customer, error)
	Products(ctx context.Context) ([]mockapi.Product, error)
	Orders(ctx context.Context) ([]mockapi.Order, error)
}

type Options struct {
	DateMode  string
	Seed      int64 // 0 = losowy
	BatchSize int
}

// Summary - wynik jednego przebiegu
type Summary struct {
	RunID          string
	Seed           int64
	Customers      int
	Products       int
	Orders         int
	OrderItems     int
	PriceFallbacks int
	DateFallbacks  int
	Duration       time.Duration
}

type Importer struct {
	log     zerolog.Logger
	db      *gorm.DB
	src     Source
	opts    Options
	metrics *metrics.Registry
}

func New(log zerolog.Logger, gdb *gorm.DB, src Source, opts Options, m *metrics.Registry) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.DateMode == "" {
		opts.DateMode = conf.DateNormalize
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Importer{log: log, db: gdb, src: src, opts: opts, metrics: m}
}

// Run wykonuje cały import w jednej transakcji: customers -> products -> orders (+ order_items).
// Każdy błąd (HTTP, dekodowanie, zapis) wycofuje wszystko, co zapisał ten przebieg.
func (i *Importer) Run(ctx context.Context, runID string) (Summary, error) {
	start := time.Now()
	rng, seed := newRand(i.opts.Seed)
	sum := Summary{RunID: runID, Seed: seed}
	st := &rowStats{}

	log := i.log.With().Str("run_id", runID).Logger()
	log.Info().
		Int64("seed", seed).
		Str("date_mode", i.opts.DateMode).
		Msg("import start")

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		log.Info().Msg("Fetching and inserting customers...")
		customerIDs, err := i.loadCustomers(ctx, tx, st)
		if err != nil {
			return err
		}
		sum.Customers = len(customerIDs)

		log.Info().Msg("Fetching and inserting products...")
		productIDs, err := i.loadProducts(ctx, tx, st)
		if err != nil {
			return err
		}
		sum.Products = len(productIDs)

		log.Info().Msg("Fetching and inserting orders...")
		orders, items, err := i.loadOrders(ctx, tx, st, rng, customerIDs, productIDs)
		if err != nil {
			return err
		}
		sum.Orders, sum.OrderItems = orders, items
		return nil
	})

	sum.PriceFallbacks = st.priceFallbacks
	sum.DateFallbacks = st.dateFallbacks
	sum.Duration = time.Since(start)
	i.metrics.RunDurationSec.Set(sum.Duration.Seconds())

	if err != nil {
		i.metrics.Failed.Set(1)
		log.Error().Err(err).Dur("took", sum.Duration).Msg("import przerwany, transakcja wycofana")
		return sum, err
	}

	i.metrics.Failed.Set(0)
	i.metrics.LastSuccessUnix.SetToCurrentTime()
	i.metrics.PriceFallbacks.Add(float64(sum.PriceFallbacks))
	i.metrics.DateFallbacks.Add(float64(sum.DateFallbacks))

	log.Info().
		Int("customers", sum.Customers).
		Int("products", sum.Products).
		Int("orders", sum.Orders).
		Int("order_items", sum.OrderItems).
		Int("price_fallbacks", sum.PriceFallbacks).
		Int("date_fallbacks", sum.DateFallbacks).
		Dur("took", sum.Duration).
		Msg("Data import completed")
	return sum, nil
}

func (i *Importer) loadCustomers(ctx context.Context, tx *gorm.DB, st *rowStats) ([]string, error) {
	recs, err := i.src.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	i.metrics.Fetched.WithLabelValues(mockapi.EndpointCustomers).Add(float64(len(recs)))

	rows := make([]db.Customer, 0, len(recs))
	for n, c := range recs {
		row, err := CustomerRow(c, i.opts.DateMode, st)
		if err != nil {
			return nil, fmt.Errorf("customers[%d]: %w", n, err)
		}
		rows = append(rows, row)
	}
	rows = dedupeByID(rows, func(c db.Customer) string { return c.ID })

	if err := i.upsert(tx, &rows, len(rows), []string{
		"createdAt", "name", "username", "firstName", "lastName",
		"address_postalCode", "address_city", "profile_firstName", "profile_lastName", "company_name",
	}); err != nil {
		return nil, fmt.Errorf("upsert customers: %w", err)
	}
	i.metrics.Upserted.WithLabelValues(mockapi.EndpointCustomers).Add(float64(len(rows)))

	ids := make([]string, len(rows))
	for n := range rows {
		ids[n] = rows[n].ID
	}
	return ids, nil
}

func (i *Importer) loadProducts(ctx context.Context, tx *gorm.DB, st *rowStats) ([]string, error) {
	recs, err := i.src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	i.metrics.Fetched.WithLabelValues(mockapi.EndpointProducts).Add(float64(len(recs)))

	rows := make([]db.Product, 0, len(recs))
	for n, p := range recs {
		row, err := ProductRow(p, i.opts.DateMode, st)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", n, err)
		}
		rows = append(rows, row)
	}
	rows = dedupeByID(rows, func(p db.Product) string { return p.ID })

	if err := i.upsert(tx, &rows, len(rows), []string{
		"createdAt", "name", "price", "description", "color", "stock",
	}); err != nil {
		return nil, fmt.Errorf("upsert products: %w", err)
	}
	i.metrics.Upserted.WithLabelValues(mockapi.EndpointProducts).Add(float64(len(rows)))

	ids := make([]string, len(rows))
	for n := range rows {
		ids[n] = rows[n].ID
	}
	return ids, nil
}

func (i *Importer) loadOrders(ctx context.Context, tx *gorm.DB, st *rowStats, rng *rand.Rand, customerIDs, productIDs []string) (int, int, error) {
	recs, err := i.src.Orders(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch orders: %w", err)
	}
	i.metrics.Fetched.WithLabelValues(mockapi.EndpointOrders).Add(float64(len(recs)))
	if len(recs) == 0 {
		return 0, 0, nil
	}

	lk, err := newLinker(rng, customerIDs, productIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("link orders: %w", err)
	}

	rows := make([]db.Order, 0, len(recs))
	for n, o := range recs {
		row, err := OrderRow(o, i.opts.DateMode, st)
		if err != nil {
			return 0, 0, fmt.Errorf("orders[%d]: %w", n, err)
		}
		rows = append(rows, row)
	}
	rows = dedupeByID(rows, func(o db.Order) string { return o.ID })

	items := make([]db.OrderItem, 0, len(rows)*2)
	for n := range rows {
		cid := lk.customer()
		rows[n].CustomerID = &cid
		for _, pid := range lk.productsForOrder() {
			items = append(items, db.OrderItem{OrderID: rows[n].ID, ProductID: pid})
		}
	}

	if err := i.upsert(tx, &rows, len(rows), []string{"createdAt", "customer_id"}); err != nil {
		return 0, 0, fmt.Errorf("upsert orders: %w", err)
	}
	i.metrics.Upserted.WithLabelValues(mockapi.EndpointOrders).Add(float64(len(rows)))

	// order_items: zwykły INSERT - przy ponownym imporcie wiersze się dublują
	if err := tx.Omit(clause.Associations).CreateInBatches(&items, i.opts.BatchSize).Error; err != nil {
		return 0, 0, fmt.Errorf("insert order_items: %w", err)
	}
	i.metrics.OrderItems.Add(float64(len(items)))

	return len(rows), len(items), nil
}

// upsert - INSERT ... ON CONFLICT(id) DO UPDATE (w MySQL: ON DUPLICATE KEY UPDATE)
func (i *Importer) upsert(tx *gorm.DB, rows any, n int, cols []string) error {
	if n == 0 {
		return nil
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).CreateInBatches(rows, i.opts.BatchSize).Error
}

// dedupeByID - przy powtórzonym id wygrywa ostatnie wystąpienie, kolejność pierwszych wystąpień zostaje
func dedupeByID[T any](rows []T, id func(T) string) []T {
	pos := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := id(r)
		if p, ok := pos[k]; ok {
			out[p] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}
