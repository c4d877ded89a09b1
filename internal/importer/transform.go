package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	conf "github.com/bartek5186/mockapi2db/internal/config"
	"github.com/bartek5186/mockapi2db/internal/db"
	"github.com/bartek5186/mockapi2db/internal/mockapi"
)

// ErrMissingID - rekord bez id nie ma czego upsertować
var ErrMissingID = errors.New("rekord bez id")

const dbTimeLayout = "2006-01-02 15:04:05"

// wejściowe warianty ISO-8601 po zdjęciu "Z"; ułamki sekund parsują się same
var isoLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatTimestamp zamienia createdAt z API na wartość kolumny.
// normalize: "2025-05-07T01:41:17.419Z" -> "2025-05-07 01:41:17" (czas jak zapisany, bez przeliczania strefy),
// NULL gdy się nie parsuje. passthrough: surowy string. ok=false oznacza fallback na NULL.
func FormatTimestamp(v mockapi.Text, mode string) (ts db.Timestamp, ok bool) {
	if !v.Valid {
		return db.NullTimestamp(), true
	}
	if mode == conf.DatePassthrough {
		return db.NewTimestamp(v.Value), true
	}

	s := strings.TrimSpace(strings.ReplaceAll(v.Value, "Z", ""))
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return db.NewTimestamp(t.Format(dbTimeLayout)), true
		}
	}
	return db.NullTimestamp(), false
}

// ParsePrice - cena jako liczba lub string; wszystko inne (brak, null, "abc", NaN) to 0.0.
func ParsePrice(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(raw)
	default:
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// rowStats - ile razy zadziałał fallback przy transformacji
type rowStats struct {
	priceFallbacks int
	dateFallbacks  int
}

func (s *rowStats) stamp(v mockapi.Text, mode string) db.Timestamp {
	ts, ok := FormatTimestamp(v, mode)
	if !ok {
		s.dateFallbacks++
	}
	return ts
}

// CustomerRow spłaszcza address/profile/company; brak obiektu = NULL w kolumnach.
func CustomerRow(c mockapi.Customer, mode string, st *rowStats) (db.Customer, error) {
	id := c.ID.Key()
	if id == "" {
		return db.Customer{}, ErrMissingID
	}
	row := db.Customer{
		ID:        id,
		CreatedAt: st.stamp(c.CreatedAt, mode),
		Name:      c.Name.Ptr(),
		Username:  c.Username.Ptr(),
		FirstName: c.FirstName.Ptr(),
		LastName:  c.LastName.Ptr(),
	}
	if c.Address != nil {
		row.AddressPostal = c.Address.PostalCode.Ptr()
		row.AddressCity = c.Address.City.Ptr()
	}
	if c.Profile != nil {
		row.ProfileFirstName = c.Profile.FirstName.Ptr()
		row.ProfileLastName = c.Profile.LastName.Ptr()
	}
	if c.Company != nil {
		row.CompanyName = c.Company.CompanyName.Ptr()
	}
	return row, nil
}

func ProductRow(p mockapi.Product, mode string, st *rowStats) (db.Product, error) {
	id := p.ID.Key()
	if id == "" {
		return db.Product{}, ErrMissingID
	}
	row := db.Product{
		ID:        id,
		CreatedAt: st.stamp(p.CreatedAt, mode),
		Name:      p.Name.Ptr(),
		Stock:     p.Stock.Ptr(),
	}

	var rawPrice json.RawMessage
	if p.Details != nil {
		rawPrice = p.Details.Price
		row.Description = p.Details.Description.Ptr()
		row.Color = p.Details.Color.Ptr()
	}
	price, ok := ParsePrice(rawPrice)
	if !ok {
		st.priceFallbacks++
	}
	row.Price = price
	return row, nil
}

// OrderRow - customer_id uzupełnia linker
func OrderRow(o mockapi.Order, mode string, st *rowStats) (db.Order, error) {
	id := o.ID.Key()
	if id == "" {
		return db.Order{}, ErrMissingID
	}
	return db.Order{
		ID:        id,
		CreatedAt: st.stamp(o.CreatedAt, mode),
	}, nil
}
