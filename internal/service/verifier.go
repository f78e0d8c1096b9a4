// Package service holds the business logic behind the HTTP handlers
package service

import (
	"errors"
	"time"

	"physlab/lab-api/internal/model"
	"physlab/lab-api/pkg/security"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const codeDigits = 6

var (
	ErrResendCooldown = errors.New("a code was sent recently, wait before requesting another")
	ErrCodeExpired    = errors.New("verification code expired or was never requested")
	ErrCodeInvalid    = errors.New("verification code does not match")
)

// Verifier owns the verification-code lifecycle: one live code per
// email, hashed at rest, expired by wall clock. The background sweeper
// only tidies up rows, the authoritative expiry check happens on every
// verification so a lagging sweep can't let a stale code through
type Verifier struct {
	DB             *gorm.DB
	Mailer         Mailer
	TTL            time.Duration
	ResendCooldown time.Duration
}

func NewVerifier(db *gorm.DB, m Mailer, ttl, resendCooldown time.Duration) *Verifier {
	return &Verifier{
		DB:             db,
		Mailer:         m,
		TTL:            ttl,
		ResendCooldown: resendCooldown,
	}
}

// RequestCode generates a fresh code for the email, replacing any
// prior one, and hands it to the mailer. Succeeds for unregistered
// emails too, registration depends on it
func (v *Verifier) RequestCode(email string) error {
	if err := v.checkResendCooldown(email); err != nil {
		return err
	}

	code, err := security.GenerateCode(codeDigits)
	if err != nil {
		return err
	}

	now := time.Now()

	err = v.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&model.VerificationCode{}).Error; err != nil {
			return err
		}

		return tx.Create(&model.VerificationCode{
			Email:     email,
			CodeHash:  security.HashCode(code),
			CreatedAt: now,
			ExpiresAt: now.Add(v.TTL),
		}).Error
	})
	if err != nil {
		return err
	}

	if err := v.Mailer.SendCode(email, code, v.TTL); err != nil {
		return err
	}

	return v.recordSend(email, now)
}

// Check validates a code without consuming it. The stored row is only
// touched when it turns out to be expired
func (v *Verifier) Check(email, code string) error {
	_, err := v.liveRecord(email, code)
	return err
}

// Verify marks a checked code as verified and refreshes its expiry so
// the caller has a full window to finish registration with it
func (v *Verifier) Verify(email, code string) error {
	rec, err := v.liveRecord(email, code)
	if err != nil {
		return err
	}

	return v.DB.Model(&model.VerificationCode{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"verified":   true,
			"expires_at": time.Now().Add(v.TTL),
		}).Error
}

// Consume validates a code and deletes it, ending the lifecycle
func (v *Verifier) Consume(email, code string) error {
	rec, err := v.liveRecord(email, code)
	if err != nil {
		return err
	}

	return v.DB.Delete(&model.VerificationCode{}, rec.ID).Error
}

func (v *Verifier) liveRecord(email, code string) (*model.VerificationCode, error) {
	var rec model.VerificationCode

	err := v.DB.Where("email = ?", email).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeExpired
		}
		return nil, err
	}

	if time.Now().After(rec.ExpiresAt) {
		// The sweeper would get to this row eventually, delete it now
		// so the store's view matches what we just told the caller
		if err := v.DB.Delete(&model.VerificationCode{}, rec.ID).Error; err != nil {
			zap.L().Error("Failed to delete expired verification code", zap.Error(err))
		}
		return nil, ErrCodeExpired
	}

	if !security.VerifyCode(code, rec.CodeHash) {
		return nil, ErrCodeInvalid
	}

	return &rec, nil
}

func (v *Verifier) checkResendCooldown(email string) error {
	if v.ResendCooldown <= 0 {
		return nil
	}

	var rec model.ResendRequest

	err := v.DB.Where("email = ?", email).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if time.Since(rec.LastSent) < v.ResendCooldown {
		return ErrResendCooldown
	}

	return nil
}

func (v *Verifier) recordSend(email string, at time.Time) error {
	var rec model.ResendRequest

	err := v.DB.Where("email = ?", email).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return v.DB.Create(&model.ResendRequest{Email: email, LastSent: at, Count: 1}).Error
	}

	return v.DB.Model(&rec).Updates(map[string]any{
		"last_sent": at,
		"count":     rec.Count + 1,
	}).Error
}

// StartSweeper periodically deletes expired code rows. Advisory
// cleanup only, Check/Verify/Consume never trust it
func (v *Verifier) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)

	zap.L().Debug("Code sweeper attached", zap.Duration("tick_every", interval))

	go func() {
		for range ticker.C {
			v.SweepExpired()
		}
	}()
}

// SweepExpired deletes every code row past its expiry
func (v *Verifier) SweepExpired() {
	err := v.DB.
		Where("expires_at < ?", time.Now()).
		Delete(&model.VerificationCode{}).
		Error
	if err != nil {
		zap.L().Error("Failed to sweep expired verification codes", zap.Error(err))
	}
}
