// internal/db/models.go
package db

// Nazwy kolumn odpowiadają polom MockAPI (camelCase) i spłaszczonym
// obiektom zagnieżdżonym (address_*, profile_*, company_*).

// customers
type Customer struct {
	ID               string    `gorm:"primaryKey;size:255;column:id"`
	CreatedAt        Timestamp `gorm:"column:createdAt;autoCreateTime:false"`
	Name             *string   `gorm:"size:255;column:name"`
	Username         *string   `gorm:"size:255;column:username"`
	FirstName        *string   `gorm:"size:255;column:firstName"`
	LastName         *string   `gorm:"size:255;column:lastName"`
	AddressPostal    *string   `gorm:"size:20;column:address_postalCode"`
	AddressCity      *string   `gorm:"size:255;column:address_city"`
	ProfileFirstName *string   `gorm:"size:255;column:profile_firstName"`
	ProfileLastName  *string   `gorm:"size:255;column:profile_lastName"`
	CompanyName      *string   `gorm:"size:255;column:company_name"`
}

func (Customer) TableName() string { return "customers" }

// products
type Product struct {
	ID          string    `gorm:"primaryKey;size:255;column:id"`
	CreatedAt   Timestamp `gorm:"column:createdAt;autoCreateTime:false"`
	Name        *string   `gorm:"size:255;column:name"`
	Price       float64   `gorm:"type:decimal(10,2);column:price"`
	Description *string   `gorm:"type:text;column:description"`
	Color       *string   `gorm:"size:50;column:color"`
	Stock       *string   `gorm:"size:255;column:stock"` // tekst, tak jak przychodzi z API
}

func (Product) TableName() string { return "products" }

// orders; customer_id losowany - API nie ma tej relacji
type Order struct {
	ID         string    `gorm:"primaryKey;size:255;column:id"`
	CreatedAt  Timestamp `gorm:"column:createdAt;autoCreateTime:false"`
	CustomerID *string   `gorm:"size:255;column:customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID"`
}

func (Order) TableName() string { return "orders" }

// order_items - tylko INSERT, przy ponownym imporcie rekordy się dublują
type OrderItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID   string   `gorm:"size:255;column:order_id"`
	ProductID string   `gorm:"size:255;column:product_id"`
	Order     *Order   `gorm:"foreignKey:OrderID;references:ID"`
	Product   *Product `gorm:"foreignKey:ProductID;references:ID"`
}

func (OrderItem) TableName() string { return "order_items" }
