package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/authz"
	"github.com/dabada911/hakibavuong/internal/config"
	"github.com/dabada911/hakibavuong/internal/hash"
	authmw "github.com/dabada911/hakibavuong/internal/middleware/auth"
	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/otp"
	"github.com/dabada911/hakibavuong/internal/token"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Authz  *authz.Service
	OTP    *otp.Service
	Mailer *fakeMailer
	Tokens *token.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	m := &fakeMailer{}
	return &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Authz:  &authz.Service{DB: db},
		OTP:    otp.NewService(db, m, rand.New(rand.NewSource(1)), slog.Default()),
		Mailer: m,
		Tokens: &token.Issuer{Secret: []byte("test-secret")},
	}
}

func (env *testEnv) doJSONRequest(method, target string, payload any) (*httptest.ResponseRecorder, echo.Context) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			env.T.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) asCustomer(c echo.Context, cu *models.Customer) {
	authmw.SetIdentity(c, &token.Identity{
		ID:    cu.ID,
		Email: cu.Email,
		Type:  token.TypeCustomer,
	})
}

func (env *testEnv) asUser(c echo.Context, u *models.User) {
	authmw.SetIdentity(c, &token.Identity{
		ID:      u.ID,
		Email:   u.Email,
		Role:    u.Role,
		Type:    token.TypeUser,
		BrandID: u.BrandID,
	})
}

func (env *testEnv) createCustomer(email string) *models.Customer {
	pw, _ := hash.HashPassword("password")
	cu := &models.Customer{Name: "test_customer", Email: email, Password: pw, IsEmailVerified: true}
	if err := env.DB.Create(cu).Error; err != nil {
		env.T.Fatalf("failed to create customer: %v", err)
	}
	return cu
}

func (env *testEnv) createUser(email, role string) *models.User {
	pw, _ := hash.HashPassword("password")
	u := &models.User{Name: "test_user", Email: email, Password: pw, Role: role, IsEmailVerified: true}
	if err := env.DB.Create(u).Error; err != nil {
		env.T.Fatalf("failed to create user: %v", err)
	}
	return u
}

// createBrandProduct seeds an owner, a brand, one product and its inventory
// row at the given stock level.
func (env *testEnv) createBrandProduct(ownerEmail string, stock int) (*models.User, *models.Brand, *models.Product) {
	owner := env.createUser(ownerEmail, models.RoleStaff)
	brand := &models.Brand{Name: "brand_" + ownerEmail, OwnerID: owner.ID}
	if err := env.DB.Create(brand).Error; err != nil {
		env.T.Fatalf("failed to create brand: %v", err)
	}
	product := &models.Product{BrandID: brand.ID, Name: "test_product", PriceSell: 100}
	if err := env.DB.Create(product).Error; err != nil {
		env.T.Fatalf("failed to create product: %v", err)
	}
	inv := &models.Inventory{ProductID: product.ID, StockQuantity: stock}
	if err := env.DB.Create(inv).Error; err != nil {
		env.T.Fatalf("failed to create inventory: %v", err)
	}
	return owner, brand, product
}

func (env *testEnv) stockOf(productID uint) int {
	var inv models.Inventory
	if err := env.DB.Where("product_id = ?", productID).First(&inv).Error; err != nil {
		env.T.Fatalf("failed to load inventory: %v", err)
	}
	return inv.StockQuantity
}

func (env *testEnv) addCartItem(customerID, productID uint, qty int) *models.Cart {
	cart, err := loadOrCreateCart(env.DB, customerID)
	if err != nil {
		env.T.Fatalf("failed to create cart: %v", err)
	}
	item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
	if err := env.DB.Create(item).Error; err != nil {
		env.T.Fatalf("failed to create cart item: %v", err)
	}
	return cart
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}
