package otp

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dabada911/hakibavuong/internal/mailer"
	"github.com/dabada911/hakibavuong/internal/models"
)

// Purposes a code can be issued for. Each (purpose, email) pair holds at
// most one live code.
const (
	PurposeRegister      = "register"
	PurposeLogin2FA      = "login_2fa"
	PurposeResetPassword = "reset_password"
)

const TTL = 30 * time.Minute

// ErrInvalid is deliberately generic: callers must not learn whether the
// code was wrong, expired or never issued.
var ErrInvalid = errors.New("invalid or expired otp")

type Service struct {
	DB     *gorm.DB
	Mailer mailer.Mailer
	Rand   *rand.Rand
	Now    func() time.Time
	Log    *slog.Logger
}

func NewService(db *gorm.DB, m mailer.Mailer, r *rand.Rand, log *slog.Logger) *Service {
	return &Service{DB: db, Mailer: m, Rand: r, Now: time.Now, Log: log}
}

func (s *Service) code() string {
	return fmt.Sprintf("%06d", s.Rand.Intn(1000000))
}

// Issue generates a 6-digit code for (purpose, email), overwriting any
// previous code for the pair, and mails it. Mail delivery runs in the
// background so a slow SMTP server does not block the request.
func (s *Service) Issue(purpose, email, subject string) error {
	code := s.code()
	now := s.Now()

	entry := models.OTPCode{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "created_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("otp store: %w", err)
	}

	body := fmt.Sprintf("Mã OTP của bạn là: <strong>%s</strong>. Vui lòng sử dụng mã này để hoàn tất quá trình.", code)
	go func() {
		if err := s.Mailer.Send(email, subject, body); err != nil {
			s.Log.Error("otp_mail_failed", "purpose", purpose, "error", err)
		}
	}()

	return nil
}

// Verify consumes the stored code for (purpose, email). The code is deleted
// on success so it can be redeemed at most once. Every failure returns
// ErrInvalid.
func (s *Service) Verify(purpose, email, input string) error {
	var entry models.OTPCode
	err := s.DB.Where("email = ? AND purpose = ?", email, purpose).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.Log.Error("otp_lookup_failed", "purpose", purpose, "error", err)
		}
		return ErrInvalid
	}

	if s.Now().After(entry.ExpiresAt) {
		s.DB.Delete(&entry)
		return ErrInvalid
	}

	if strings.TrimSpace(input) != entry.Code {
		return ErrInvalid
	}

	if err := s.DB.Delete(&entry).Error; err != nil {
		s.Log.Error("otp_consume_failed", "purpose", purpose, "error", err)
		return ErrInvalid
	}
	return nil
}
