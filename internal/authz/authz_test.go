package authz

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/token"
)

func newTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Brand{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return &Service{DB: db}
}

func seedBrand(t *testing.T, s *Service) (*models.User, *models.Brand) {
	owner := &models.User{Name: "owner", Email: "owner@test.dev", Password: "x", Role: models.RoleStaff}
	require.NoError(t, s.DB.Create(owner).Error)
	brand := &models.Brand{Name: "brand", OwnerID: owner.ID}
	require.NoError(t, s.DB.Create(brand).Error)
	return owner, brand
}

func seedStaff(t *testing.T, s *Service, brandID uint, approval, staffRole string) *models.User {
	u := &models.User{Name: "staff", Email: staffRole + approval + "@test.dev", Password: "x", Role: models.RoleStaff}
	u.BrandID = &brandID
	if approval != "" {
		u.ApprovalStatus = &approval
	}
	u.StaffRole = staffRole
	require.NoError(t, s.DB.Create(u).Error)
	return u
}

func userIdentity(u *models.User) *token.Identity {
	return &token.Identity{ID: u.ID, Email: u.Email, Role: u.Role, Type: token.TypeUser, BrandID: u.BrandID}
}

func TestAdminManagesAnyBrand(t *testing.T) {
	s := newTestService(t)
	_, brand := seedBrand(t, s)

	admin := &token.Identity{ID: 999, Role: models.RoleAdmin, Type: token.TypeUser}
	require.NoError(t, s.CanManageBrand(admin, brand.ID, models.StaffRoleBrandManager))
}

func TestOwnerManagesOwnBrand(t *testing.T) {
	s := newTestService(t)
	owner, brand := seedBrand(t, s)

	require.NoError(t, s.CanManageBrand(userIdentity(owner), brand.ID, models.StaffRoleBrandManager))
}

func TestApprovedStaffNeedsMatchingRole(t *testing.T) {
	s := newTestService(t)
	_, brand := seedBrand(t, s)

	inv := seedStaff(t, s, brand.ID, models.ApprovalApproved, models.StaffRoleInventoryManager)
	require.NoError(t, s.CanManageBrand(userIdentity(inv), brand.ID, models.StaffRoleInventoryManager))
	require.ErrorIs(t, s.CanManageBrand(userIdentity(inv), brand.ID, models.StaffRoleBrandManager), ErrForbidden)

	// BrandManager covers every staff role requirement.
	bm := seedStaff(t, s, brand.ID, models.ApprovalApproved, models.StaffRoleBrandManager)
	require.NoError(t, s.CanManageBrand(userIdentity(bm), brand.ID, models.StaffRoleInventoryManager))
}

func TestPendingStaffForbidden(t *testing.T) {
	s := newTestService(t)
	_, brand := seedBrand(t, s)

	pending := seedStaff(t, s, brand.ID, models.ApprovalPending, models.StaffRoleBrandManager)
	require.ErrorIs(t, s.CanManageBrand(userIdentity(pending), brand.ID, ""), ErrForbidden)
}

func TestStaffOfOtherBrandForbidden(t *testing.T) {
	s := newTestService(t)
	_, brandA := seedBrand(t, s)
	otherOwner := &models.User{Name: "other", Email: "other@test.dev", Password: "x", Role: models.RoleStaff}
	require.NoError(t, s.DB.Create(otherOwner).Error)
	brandB := &models.Brand{Name: "brand_b", OwnerID: otherOwner.ID}
	require.NoError(t, s.DB.Create(brandB).Error)

	staff := seedStaff(t, s, brandB.ID, models.ApprovalApproved, models.StaffRoleBrandManager)
	require.ErrorIs(t, s.CanManageBrand(userIdentity(staff), brandA.ID, ""), ErrForbidden)
}

func TestCustomerForbidden(t *testing.T) {
	s := newTestService(t)
	_, brand := seedBrand(t, s)

	customer := &token.Identity{ID: 1, Type: token.TypeCustomer}
	require.ErrorIs(t, s.CanManageBrand(customer, brand.ID, ""), ErrForbidden)
}

func TestUnknownBrand(t *testing.T) {
	s := newTestService(t)
	owner, _ := seedBrand(t, s)

	require.ErrorIs(t, s.CanManageBrand(userIdentity(owner), 999, ""), ErrBrandNotFound)
}

func TestManagedBrandIDs(t *testing.T) {
	s := newTestService(t)
	owner, brand := seedBrand(t, s)

	ids, err := s.ManagedBrandIDs(userIdentity(owner))
	require.NoError(t, err)
	require.Equal(t, []uint{brand.ID}, ids)

	staff := seedStaff(t, s, brand.ID, models.ApprovalApproved, "")
	ids, err = s.ManagedBrandIDs(userIdentity(staff))
	require.NoError(t, err)
	require.Equal(t, []uint{brand.ID}, ids)

	admin := &token.Identity{ID: 999, Role: models.RoleAdmin, Type: token.TypeUser}
	ids, err = s.ManagedBrandIDs(admin)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}
