package authz

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dabada911/hakibavuong/internal/models"
	"github.com/dabada911/hakibavuong/internal/token"
)

var (
	ErrBrandNotFound = errors.New("brand not found")
	ErrForbidden     = errors.New("forbidden")
)

// Service centralizes the per-brand ownership checks that used to be
// re-derived inside every handler: a staff user may act on a brand they own
// directly, or on the brand they were approved into, following
// User.BrandID -> Brand.OwnerID.
type Service struct {
	DB *gorm.DB
}

// CanManageBrand reports whether id may act on brandID. staffRole, when
// non-empty, additionally requires an approved staff member to hold that
// fine-grained role (BrandManager always qualifies).
func (s *Service) CanManageBrand(id *token.Identity, brandID uint, staffRole string) error {
	if id.IsAdmin() {
		return nil
	}
	if !id.IsStaff() {
		return ErrForbidden
	}

	var brand models.Brand
	if err := s.DB.First(&brand, brandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBrandNotFound
		}
		return err
	}

	if brand.OwnerID == id.ID {
		return nil
	}

	var user models.User
	if err := s.DB.First(&user, id.ID).Error; err != nil {
		return ErrForbidden
	}
	if user.BrandID == nil || *user.BrandID != brandID {
		return ErrForbidden
	}
	if user.ApprovalStatus == nil || *user.ApprovalStatus != models.ApprovalApproved {
		return ErrForbidden
	}
	if staffRole == "" {
		return nil
	}
	if user.StaffRole == staffRole || user.StaffRole == models.StaffRoleBrandManager {
		return nil
	}
	return ErrForbidden
}

// ManagedBrandIDs lists the brands a user may act on: all for admins,
// owned plus approved membership for staff.
func (s *Service) ManagedBrandIDs(id *token.Identity) ([]uint, error) {
	var ids []uint
	if id.IsAdmin() {
		if err := s.DB.Model(&models.Brand{}).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		return ids, nil
	}

	if err := s.DB.Model(&models.Brand{}).Where("owner_id = ?", id.ID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	var user models.User
	if err := s.DB.First(&user, id.ID).Error; err != nil {
		return ids, nil
	}
	if user.BrandID != nil && user.ApprovalStatus != nil && *user.ApprovalStatus == models.ApprovalApproved {
		seen := false
		for _, b := range ids {
			if b == *user.BrandID {
				seen = true
			}
		}
		if !seen {
			ids = append(ids, *user.BrandID)
		}
	}
	return ids, nil
}
