// internal/mockapi/types.go
package mockapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text to pole skalarne z API; przyjmuje string, liczbę lub bool.
// MockAPI potrafi zwrócić "stock": 12 albo "stock": "12", id bywa liczbą.
type Text struct {
	Value string
	Valid bool // false = null albo brak pola
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Text{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text{Value: s, Valid: true}
		return nil
	}
	// liczba/bool/obiekt - zapisujemy literał JSON
	*t = Text{Value: string(b), Valid: true}
	return nil
}

// Ptr zwraca nil dla brakującej wartości - gorm zapisze NULL.
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// Key to identyfikator rekordu po przycięciu spacji ("" gdy brak).
func (t Text) Key() string {
	if !t.Valid {
		return ""
	}
	return strings.TrimSpace(t.Value)
}

type Customer struct {
	ID        Text     `json:"id"`
	CreatedAt Text     `json:"createdAt"`
	Name      Text     `json:"name"`
	Username  Text     `json:"username"`
	FirstName Text     `json:"firstName"`
	LastName  Text     `json:"lastName"`
	Address   *Address `json:"address"`
	Profile   *Profile `json:"profile"`
	Company   *Company `json:"company"`
}

type Address struct {
	PostalCode Text `json:"postalCode"`
	City       Text `json:"city"`
}

type Profile struct {
	FirstName Text `json:"firstName"`
	LastName  Text `json:"lastName"`
}

type Company struct {
	CompanyName Text `json:"companyName"`
}

/* Przykładowy produkt z MockAPI
{
  "createdAt": "2025-05-07T01:41:17.419Z",
  "name": "Handcrafted Bronze Pizza",
  "details": {"price": "738.00", "description": "...", "color": "lime"},
  "stock": 92,
  "id": "1"
}
*/
type Product struct {
	ID        Text            `json:"id"`
	CreatedAt Text            `json:"createdAt"`
	Name      Text            `json:"name"`
	Details   *ProductDetails `json:"details"`
	Stock     Text            `json:"stock"`
}

type ProductDetails struct {
	Price       json.RawMessage `json:"price"` // string albo liczba, bywa puste
	Description Text            `json:"description"`
	Color       Text            `json:"color"`
}

// Order - API nie zna klienta ani pozycji zamówienia
type Order struct {
	ID        Text `json:"id"`
	CreatedAt Text `json:"createdAt"`
}
