package importer_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	conf "github.com/bartek5186/mockapi2db/internal/config"
	"github.com/bartek5186/mockapi2db/internal/db"
	"github.com/bartek5186/mockapi2db/internal/importer"
	"github.com/bartek5186/mockapi2db/internal/metrics"
	"github.com/bartek5186/mockapi2db/internal/mockapi"
)

type fakeSource struct {
	customers    []mockapi.Customer
	products     []mockapi.Product
	orders       []mockapi.Order
	customersErr error
	productsErr  error
	ordersErr    error
}

func (f *fakeSource) Customers(context.Context) ([]mockapi.Customer, error) {
	return f.customers, f.customersErr
}

func (f *fakeSource) Products(context.Context) ([]mockapi.Product, error) {
	return f.products, f.productsErr
}

func (f *fakeSource) Orders(context.Context) ([]mockapi.Order, error) {
	return f.orders, f.ordersErr
}

func text(s string) mockapi.Text { return mockapi.Text{Value: s, Valid: true} }

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	h, err := db.Open(conf.DBConfig{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "import.db")}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.Migrate())
	return h.DB
}

func sampleSource() *fakeSource {
	return &fakeSource{
		customers: []mockapi.Customer{
			{ID: text("1"), CreatedAt: text("2025-05-07T01:41:17.419Z"), Name: text("Jan Kowalski"),
				Address: &mockapi.Address{PostalCode: text("00-001"), City: text("Warszawa")}},
			{ID: text("2"), Name: text("Anna Nowak")},
			{ID: text("3"), Name: text("Piotr Wiśniewski"), Company: &mockapi.Company{CompanyName: text("ACME")}},
		},
		products: []mockapi.Product{
			{ID: text("1"), Name: text("Pizza"), Stock: text("92"),
				Details: &mockapi.ProductDetails{Price: json.RawMessage(`"738.00"`), Color: text("lime")}},
			{ID: text("2"), Name: text("Chair"), Details: &mockapi.ProductDetails{Price: json.RawMessage(`19.99`)}},
			{ID: text("3"), Name: text("Table")},
		},
		orders: []mockapi.Order{
			{ID: text("1"), CreatedAt: text("2025-05-06T10:00:00Z")},
			{ID: text("2")},
			{ID: text("3")},
			{ID: text("4")},
		},
	}
}

func newImporter(gdb *gorm.DB, src importer.Source, seed int64, m *metrics.Registry) *importer.Importer {
	return importer.New(zerolog.Nop(), gdb, src, importer.Options{
		DateMode:  conf.DateNormalize,
		Seed:      seed,
		BatchSize: 2,
	}, m)
}

func count(t *testing.T, gdb *gorm.DB, q string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Raw(q, args...).Row().Scan(&n))
	return n
}

func assertLinksIntact(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	assert.Zero(t, count(t, gdb, `SELECT COUNT(*) FROM orders o LEFT JOIN customers c ON c.id = o.customer_id WHERE c.id IS NULL`),
		"every order points at an existing customer")
	assert.Zero(t, count(t, gdb, `SELECT COUNT(*) FROM order_items oi
		LEFT JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.id IS NULL OR p.id IS NULL`),
		"every order item points at an existing order and product")
}

func TestRunImportsAndLinks(t *testing.T) {
	gdb := openDB(t)

	sum, err := newImporter(gdb, sampleSource(), 42, nil).Run(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, int64(42), sum.Seed)
	assert.Equal(t, 3, sum.Customers)
	assert.Equal(t, 3, sum.Products)
	assert.Equal(t, 4, sum.Orders)
	assert.GreaterOrEqual(t, sum.OrderItems, 4)
	assert.LessOrEqual(t, sum.OrderItems, 8)

	assert.Equal(t, int64(3), count(t, gdb, "SELECT COUNT(*) FROM customers"))
	assert.Equal(t, int64(3), count(t, gdb, "SELECT COUNT(*) FROM products"))
	assert.Equal(t, int64(4), count(t, gdb, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, int64(sum.OrderItems), count(t, gdb, "SELECT COUNT(*) FROM order_items"))
	assert.Zero(t, count(t, gdb, "SELECT COUNT(*) FROM orders WHERE customer_id IS NULL"))
	assertLinksIntact(t, gdb)

	// każde zamówienie ma 1 albo 2 różne produkty
	assert.Zero(t, count(t, gdb, `SELECT COUNT(*) FROM (
		SELECT order_id, COUNT(*) n, COUNT(DISTINCT product_id) d FROM order_items GROUP BY order_id
	) WHERE n < 1 OR n > 2 OR n <> d`))

	var created sql.NullString
	require.NoError(t, gdb.Raw("SELECT CAST(createdAt AS TEXT) FROM customers WHERE id = ?", "1").Row().Scan(&created))
	assert.Equal(t, "2025-05-07 01:41:17", created.String)

	var city sql.NullString
	require.NoError(t, gdb.Raw("SELECT address_city FROM customers WHERE id = ?", "1").Row().Scan(&city))
	assert.Equal(t, "Warszawa", city.String)
	require.NoError(t, gdb.Raw("SELECT address_city FROM customers WHERE id = ?", "2").Row().Scan(&city))
	assert.False(t, city.Valid)

	var price float64
	require.NoError(t, gdb.Raw("SELECT price FROM products WHERE id = ?", "1").Row().Scan(&price))
	assert.InDelta(t, 738.0, price, 0.001)
}

func TestRunSameSeedSameLinks(t *testing.T) {
	links := func() []string {
		gdb := openDB(t)
		_, err := newImporter(gdb, sampleSource(), 99, nil).Run(context.Background(), "r")
		require.NoError(t, err)

		rows, err := gdb.Raw(`SELECT o.id || ':' || o.customer_id || ':' || oi.product_id
			FROM orders o JOIN order_items oi ON oi.order_id = o.id ORDER BY oi.id`).Rows()
		require.NoError(t, err)
		defer rows.Close()
		var out []string
		for rows.Next() {
			var s string
			require.NoError(t, rows.Scan(&s))
			out = append(out, s)
		}
		require.NoError(t, rows.Err())
		return out
	}

	assert.Equal(t, links(), links())
}

func TestRunTwiceUpsertsEntitiesAndAppendsItems(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()

	first, err := newImporter(gdb, src, 1, nil).Run(context.Background(), "r1")
	require.NoError(t, err)

	src.customers[1].Name = text("Anna Zmieniona")
	src.products[1].Details.Price = json.RawMessage(`"25.50"`)
	second, err := newImporter(gdb, src, 2, nil).Run(context.Background(), "r2")
	require.NoError(t, err)

	assert.Equal(t, int64(3), count(t, gdb, "SELECT COUNT(*) FROM customers"))
	assert.Equal(t, int64(3), count(t, gdb, "SELECT COUNT(*) FROM products"))
	assert.Equal(t, int64(4), count(t, gdb, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, int64(first.OrderItems+second.OrderItems), count(t, gdb, "SELECT COUNT(*) FROM order_items"))

	var name string
	require.NoError(t, gdb.Raw("SELECT name FROM customers WHERE id = ?", "2").Row().Scan(&name))
	assert.Equal(t, "Anna Zmieniona", name)

	var price float64
	require.NoError(t, gdb.Raw("SELECT price FROM products WHERE id = ?", "2").Row().Scan(&price))
	assert.InDelta(t, 25.5, price, 0.001)

	assertLinksIntact(t, gdb)
}

func TestRunFallbacks(t *testing.T) {
	gdb := openDB(t)
	src := &fakeSource{
		customers: []mockapi.Customer{{ID: text("1"), CreatedAt: text("not-a-date")}},
		products: []mockapi.Product{
			{ID: text("1"), Details: &mockapi.ProductDetails{Price: json.RawMessage(`"abc"`)}},
			{ID: text("2")},
		},
	}
	m := metrics.NewRegistry()

	sum, err := newImporter(gdb, src, 5, m).Run(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.PriceFallbacks)
	assert.Equal(t, 1, sum.DateFallbacks)
	assert.Equal(t, 0, sum.Orders)
	assert.Equal(t, 0, sum.OrderItems)

	assert.Equal(t, int64(1), count(t, gdb, "SELECT COUNT(*) FROM customers WHERE createdAt IS NULL"))
	assert.Equal(t, int64(2), count(t, gdb, "SELECT COUNT(*) FROM products WHERE price = 0"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PriceFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DateFallbacks))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failed))
}

func TestRunDuplicateIDsLastWins(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	src.customers = append(src.customers, mockapi.Customer{ID: text("1"), Name: text("Jan Drugi")})

	sum, err := newImporter(gdb, src, 8, nil).Run(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Customers)

	var name string
	require.NoError(t, gdb.Raw("SELECT name FROM customers WHERE id = ?", "1").Row().Scan(&name))
	assert.Equal(t, "Jan Drugi", name)
}

func TestRunProductsFailureRollsBackCustomers(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	src.productsErr = &mockapi.StatusError{Endpoint: mockapi.EndpointProducts, StatusCode: http.StatusBadGateway}
	m := metrics.NewRegistry()

	_, err := newImporter(gdb, src, 1, m).Run(context.Background(), "r")
	require.Error(t, err)

	var se *mockapi.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)

	assert.Zero(t, count(t, gdb, "SELECT COUNT(*) FROM customers"), "customers from the failed run must be rolled back")
	assert.Zero(t, count(t, gdb, "SELECT COUNT(*) FROM products"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed))
}

func TestRunOrdersFailureKeepsPreviousData(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	first, err := newImporter(gdb, src, 1, nil).Run(context.Background(), "r1")
	require.NoError(t, err)

	src.customers[0].Name = text("nie zapisze się")
	src.ordersErr = errors.New("connection reset")
	_, err = newImporter(gdb, src, 1, nil).Run(context.Background(), "r2")
	require.Error(t, err)

	var name string
	require.NoError(t, gdb.Raw("SELECT name FROM customers WHERE id = ?", "1").Row().Scan(&name))
	assert.Equal(t, "Jan Kowalski", name)
	assert.Equal(t, int64(first.OrderItems), count(t, gdb, "SELECT COUNT(*) FROM order_items"))
}

func TestRunMissingIDAborts(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	src.orders = append(src.orders, mockapi.Order{CreatedAt: text("2025-01-01T00:00:00Z")})

	_, err := newImporter(gdb, src, 1, nil).Run(context.Background(), "r")
	require.ErrorIs(t, err, importer.ErrMissingID)
	assert.ErrorContains(t, err, "orders[4]")
	assert.Zero(t, count(t, gdb, "SELECT COUNT(*) FROM customers"))
}

func TestRunOrdersWithoutProducts(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	src.products = nil

	_, err := newImporter(gdb, src, 1, nil).Run(context.Background(), "r")
	assert.ErrorIs(t, err, importer.ErrNoProducts)
	assert.Zero(t, count(t, gdb, "SELECT COUNT(*) FROM customers"))
}

func TestRunOrdersWithoutCustomers(t *testing.T) {
	gdb := openDB(t)
	src := sampleSource()
	src.customers = nil

	_, err := newImporter(gdb, src, 1, nil).Run(context.Background(), "r")
	assert.ErrorIs(t, err, importer.ErrNoCustomers)
}

func TestRunAgainstMockAPIServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/customers":
			_, _ = w.Write([]byte(`[{"id":"1","name":"Jan","address":{"postalCode":"00-001","city":"Kraków"}},{"id":2,"name":"Ewa"}]`))
		case "/api/v1/products":
			_, _ = w.Write([]byte(`[{"id":"1","name":"Pizza","details":{"price":"10.00"},"stock":5}]`))
		case "/api/v1/orders":
			_, _ = w.Write([]byte(`[{"id":"1","createdAt":"2025-05-06T10:00:00.000Z"},{"id":"2"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gdb := openDB(t)
	client := mockapi.NewClient(zerolog.Nop(), srv.URL+"/api/v1", 5*time.Second)
	m := metrics.NewRegistry()

	sum, err := newImporter(gdb, client, 3, m).Run(context.Background(), "http")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Customers)
	assert.Equal(t, 1, sum.Products)
	assert.Equal(t, 2, sum.Orders)
	assert.Equal(t, 2, sum.OrderItems, "single product pool gives one item per order")

	var stock string
	require.NoError(t, gdb.Raw("SELECT stock FROM products WHERE id = ?", "1").Row().Scan(&stock))
	assert.Equal(t, "5", stock)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Fetched.WithLabelValues(mockapi.EndpointCustomers)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrderItems))
	assertLinksIntact(t, gdb)
}
