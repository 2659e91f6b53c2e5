package token

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dabada911/hakibavuong/internal/models"
)

func testIssuer() *Issuer {
	return &Issuer{Secret: []byte("test-secret"), Issuer: "hakibavuong", Audience: "hakibavuong-api"}
}

func TestSignAndParseUser(t *testing.T) {
	iss := testIssuer()
	brandID := uint(7)
	user := &models.User{ID: 3, Email: "staff@test.dev", Role: models.RoleStaff, BrandID: &brandID}

	signed, err := iss.SignUser(user)
	require.NoError(t, err)

	id, err := iss.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, uint(3), id.ID)
	require.Equal(t, "staff@test.dev", id.Email)
	require.Equal(t, models.RoleStaff, id.Role)
	require.Equal(t, TypeUser, id.Type)
	require.NotNil(t, id.BrandID)
	require.Equal(t, brandID, *id.BrandID)
	require.True(t, id.IsStaff())
	require.False(t, id.IsAdmin())
	require.False(t, id.IsCustomer())
}

func TestSignAndParseCustomer(t *testing.T) {
	iss := testIssuer()
	customer := &models.Customer{ID: 9, Email: "buyer@test.dev"}

	signed, err := iss.SignCustomer(customer)
	require.NoError(t, err)

	id, err := iss.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, uint(9), id.ID)
	require.Equal(t, TypeCustomer, id.Type)
	require.True(t, id.IsCustomer())
	require.Nil(t, id.BrandID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := testIssuer().SignCustomer(&models.Customer{ID: 1, Email: "x@test.dev"})
	require.NoError(t, err)

	other := &Issuer{Secret: []byte("different-secret"), Issuer: "hakibavuong", Audience: "hakibavuong-api"}
	_, err = other.Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	bad := &Issuer{Secret: []byte("test-secret"), Issuer: "someone-else", Audience: "hakibavuong-api"}
	signed, err := bad.SignCustomer(&models.Customer{ID: 1, Email: "x@test.dev"})
	require.NoError(t, err)

	_, err = testIssuer().Parse(signed)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testIssuer().Parse("not-a-token")
	require.Error(t, err)
}
