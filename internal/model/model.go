// Package model contains the domain entities of the Tejon store.
package model

import "time"

// ShippingAddress holds the delivery destination stored on a user profile.
type ShippingAddress struct {
	Address string
	City    string
	Country string
}

// User represents a registered account, optionally flagged as administrator.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	IsAdmin      bool

	// Email verification state. The code expires after a fixed window and
	// stale unverified accounts are removed by the periodic sweep.
	IsVerified              bool
	VerificationCode        *string
	VerificationCodeExpires *time.Time

	// Login throttle state, see throttle.LoginState.
	LoginAttempts     int
	LoginLastAttempt  *time.Time
	LoginBlockedUntil *time.Time

	// Password-reset state. The token is stored hashed; requests are
	// throttled per calendar day.
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
	ResetAttempts     int
	ResetLastAttempt  *time.Time

	Phone           string
	ShippingAddress ShippingAddress

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasShippingProfile reports whether all fields required for checkout are set.
func (u *User) HasShippingProfile() bool {
	return u.Phone != "" &&
		u.ShippingAddress.Address != "" &&
		u.ShippingAddress.City != "" &&
		u.ShippingAddress.Country != ""
}

// Image is a hosted image reference (Cloudinary).
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Category is the closed set of product categories.
type Category string

const (
	CategoryJuvenil  Category = "Juvenil"
	CategoryDama     Category = "Dama"
	CategorySenorial Category = "Señorial"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryJuvenil, CategoryDama, CategorySenorial:
		return true
	}
	return false
}

// SizeMin and SizeMax bound the closed range of shoe sizes a product may offer.
const (
	SizeMin = 35
	SizeMax = 40
)

// Product is a catalog entry. Rating and NumRatings are recomputed from the
// review list on every review insert or delete, never maintained incrementally.
type Product struct {
	ID          int64
	Name        string
	PriceCents  int64
	Description string
	Images      []Image
	Rating      float64
	NumRatings  int
	Category    Category
	Sizes       []int32
	Seller      string
	Stock       int32
	Sold        int32
	CreatedBy   int64
	CreatedAt   time.Time
}

// Review is a customer opinion attached to a product. One per user per product.
type Review struct {
	ID         int64
	ProductID  int64
	UserID     int64
	AuthorName string
	Rating     int
	Comment    string
	Image      *Image
	CreatedAt  time.Time
}

// DeliveryStatus is the tri-state delivery progress of an order. The values
// are the Spanish wire values the existing client understands.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pendiente"
	DeliveryInTransit DeliveryStatus = "en tránsito"
	DeliveryDelivered DeliveryStatus = "entregado"
)

// OrderItem is one product/size/quantity line within an order, with name,
// image and price snapshotted at purchase time.
type OrderItem struct {
	ProductID  int64
	Name       string
	Qty        int32
	Size       *int32
	Image      string
	PriceCents int64
}

// OrderShipping is the address snapshot copied from the user profile when the
// order is created. It is not a live reference.
type OrderShipping struct {
	Address string
	City    string
	Country string
	Phone   string
}

// Order is a checkout transaction with payment and delivery state.
type Order struct {
	ID             int64
	UserID         int64
	Items          []OrderItem
	Shipping       OrderShipping
	ShippingCents  int64
	TotalCents     int64
	IsPaid         bool
	PaidAt         *time.Time
	IsDelivered    bool
	DeliveredAt    *time.Time
	DeliveryStatus DeliveryStatus
	CreatedAt      time.Time
}

// AdminOrder is an order enriched with the owning account's identity for the
// admin search view.
type AdminOrder struct {
	Order
	UserName  string
	UserEmail string
}

// SalesBucket is one date-grouped revenue row of the sales report.
type SalesBucket struct {
	Date       string
	TotalCents int64
}

// BannerAlign is the carousel text alignment.
type BannerAlign string

const (
	AlignLeft  BannerAlign = "left"
	AlignRight BannerAlign = "right"
)

// Banner is a carousel entry. Only the image is mandatory.
type Banner struct {
	ID          int64
	Title       string
	Description string
	Image       Image
	Link        string
	Order       int32
	Align       BannerAlign
	CreatedAt   time.Time
}
