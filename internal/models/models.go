package models

import (
	"time"
)

// Coarse roles carried in the JWT.
const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
)

// Fine-grained roles a staff member can hold inside a brand. This replaced
// the old permission join table.
const (
	StaffRoleBrandManager     = "BrandManager"
	StaffRoleInventoryManager = "InventoryManager"
)

const (
	ApprovalPending  = "Pending"
	ApprovalApproved = "Approved"
	ApprovalRejected = "Rejected"
)

const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentCancelled = "Cancelled"
)

const (
	DeliveryPending    = "Pending"
	DeliveryProcessing = "Processing"
	DeliveryShipped    = "Shipped"
	DeliveryDelivered  = "Delivered"
	DeliveryCancelled  = "Cancelled"
)

// Payment methods. BankCard settles at checkout, COD when the seller
// records the payment.
const (
	PaymentMethodBankCard = "BankCard"
	PaymentMethodCOD      = "COD"
)

type User struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"not null"                 json:"name"`
	Email           string    `gorm:"unique;not null"          json:"email"`
	Password        string    `gorm:"not null"                 json:"-"`
	Role            string    `gorm:"not null"                 json:"role"`
	StaffRole       string    `json:"staff_role"`
	BrandID         *uint     `gorm:"index"                    json:"brand_id"`
	ApprovalStatus  *string   `json:"approval_status"`
	IsEmailVerified bool      `gorm:"default:false"            json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Customer struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"not null"                 json:"name"`
	Email           string    `gorm:"unique;not null"          json:"email"`
	Password        string    `gorm:"not null"                 json:"-"`
	Phone           string    `json:"phone"`
	IsEmailVerified bool      `gorm:"default:false"            json:"is_email_verified"`
	LoyaltyPoints   int       `gorm:"default:0"                json:"loyalty_points"`
	CreatedAt       time.Time `json:"created_at"`

	Addresses []CustomerAddress `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`
}

type Brand struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"not null"                 json:"name"`
	Description     string    `json:"description"`
	OwnerID         uint      `gorm:"index;not null"           json:"owner_id"`
	BackgroundColor string    `json:"background_color"`
	BackgroundImage string    `json:"background_image"`
	CreatedAt       time.Time `json:"created_at"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BrandID     uint      `gorm:"index;not null"           json:"brand_id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	PriceSell   float64   `gorm:"not null"                 json:"price_sell"`
	PriceCost   *float64  `json:"price_cost"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Inventory is 1:1 with Product. StockQuantity must never go below zero;
// every decrement goes through a guarded update.
type Inventory struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"         json:"id"`
	ProductID     uint      `gorm:"uniqueIndex;not null"             json:"product_id"`
	StockQuantity int       `gorm:"not null;check:stock_quantity>=0" json:"stock_quantity"`
	LastUpdated   time.Time `json:"last_updated"`
}

type Cart struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint      `gorm:"uniqueIndex;not null"     json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"  json:"id"`
	CartID    uint `gorm:"index;not null"            json:"cart_id"`
	ProductID uint `gorm:"not null"                  json:"product_id"`
	Quantity  int  `gorm:"not null;check:quantity>0" json:"quantity"`
}

type Order struct {
	ID                    uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	BrandID               uint       `gorm:"index;not null"           json:"brand_id"`
	CustomerID            *uint      `gorm:"index"                    json:"customer_id"`
	FullName              string     `json:"full_name"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	PaymentStatus         string     `gorm:"not null"                 json:"payment_status"`
	DeliveryStatus        string     `gorm:"not null"                 json:"delivery_status"`
	TotalAmount           float64    `gorm:"not null"                 json:"total_amount"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// OrderItem freezes the product name and price at purchase time, so order
// history stays accurate after catalog edits or deletes.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     uint    `gorm:"index;not null"           json:"order_id"`
	ProductID   *uint   `json:"product_id"`
	ProductName string  `gorm:"not null"                 json:"product_name"`
	Quantity    int     `gorm:"not null"                 json:"quantity"`
	Price       float64 `gorm:"not null"                 json:"price"`
}

type Payment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint      `gorm:"uniqueIndex;not null"     json:"order_id"`
	Amount    float64   `gorm:"not null"                 json:"amount"`
	Method    string    `gorm:"not null"                 json:"method"`
	Status    string    `gorm:"not null"                 json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerAddress struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint   `gorm:"index;not null"           json:"customer_id"`
	FullName   string `gorm:"not null"                 json:"full_name"`
	Phone      string `gorm:"not null"                 json:"phone"`
	Address    string `gorm:"not null"                 json:"address"`
	IsDefault  bool   `gorm:"default:false"            json:"is_default"`
}

// OTPCode is the short-lived store for e-mail verification, login 2FA and
// password reset codes. One live code per (email, purpose); re-issuing
// overwrites it.
type OTPCode struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	Email     string    `gorm:"uniqueIndex:idx_otp_email_purpose;not null" json:"email"`
	Purpose   string    `gorm:"uniqueIndex:idx_otp_email_purpose;not null" json:"purpose"`
	Code      string    `gorm:"not null"                                   json:"-"`
	ExpiresAt time.Time `gorm:"not null"                                   json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
