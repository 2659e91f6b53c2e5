package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dabada911/hakibavuong/internal/models"
)

// Subject kinds carried in the "typ" claim. Users are sellers (admin,
// brand owners, staff); customers are shoppers.
const (
	TypeUser     = "user"
	TypeCustomer = "customer"
)

const TokenTTL = 3 * time.Hour

type Issuer struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// Identity is the resolved content of a verified token.
type Identity struct {
	ID      uint
	Email   string
	Role    string
	Type    string
	BrandID *uint
}

func (i Identity) IsAdmin() bool    { return i.Type == TypeUser && i.Role == models.RoleAdmin }
func (i Identity) IsStaff() bool    { return i.Type == TypeUser && i.Role == models.RoleStaff }
func (i Identity) IsCustomer() bool { return i.Type == TypeCustomer }

func (iss *Issuer) SignUser(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  u.Role,
		"typ":   TypeUser,
		"iss":   iss.Issuer,
		"aud":   iss.Audience,
		"exp":   time.Now().Add(TokenTTL).Unix(),
	}
	if u.BrandID != nil {
		claims["brand_id"] = *u.BrandID
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(iss.Secret)
}

func (iss *Issuer) SignCustomer(c *models.Customer) (string, error) {
	claims := jwt.MapClaims{
		"sub":   c.ID,
		"email": c.Email,
		"typ":   TypeCustomer,
		"iss":   iss.Issuer,
		"aud":   iss.Audience,
		"exp":   time.Now().Add(TokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(iss.Secret)
}

func (iss *Issuer) Parse(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{}
	if iss.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(iss.Issuer))
	}
	if iss.Audience != "" {
		opts = append(opts, jwt.WithAudience(iss.Audience))
	}

	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return iss.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	subRaw, ok := claims["sub"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid subject claim")
	}
	typ, _ := claims["typ"].(string)
	if typ != TypeUser && typ != TypeCustomer {
		return nil, fmt.Errorf("invalid typ claim")
	}

	id := &Identity{ID: uint(subRaw), Type: typ}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	if brandRaw, ok := claims["brand_id"].(float64); ok {
		brandID := uint(brandRaw)
		id.BrandID = &brandID
	}
	return id, nil
}
