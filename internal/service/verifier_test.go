package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"physlab/lab-api/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// captureMailer records codes instead of sending them so tests can
// play the user reading their inbox
type captureMailer struct {
	codes []string
}

func (m *captureMailer) SendCode(to, code string, ttl time.Duration) error {
	m.codes = append(m.codes, code)
	return nil
}

func (m *captureMailer) last() string {
	return m.codes[len(m.codes)-1]
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.User{}, model.VerificationCode{}, model.ResendRequest{}))

	return db
}

func newTestVerifier(t *testing.T, ttl time.Duration) (*Verifier, *captureMailer) {
	t.Helper()

	mailer := &captureMailer{}
	return NewVerifier(testDB(t), mailer, ttl, 0), mailer
}

func TestVerifier_WrongCodeLeavesStoredCodeIntact(t *testing.T) {
	v, mailer := newTestVerifier(t, time.Hour)

	require.NoError(t, v.RequestCode("a@x.com"))

	err := v.Check("a@x.com", "000000")
	if mailer.last() == "000000" {
		t.Skip("generated code collided with the deliberately wrong one")
	}
	require.ErrorIs(t, err, ErrCodeInvalid)

	// The failed attempt must not have burned the stored code
	require.NoError(t, v.Check("a@x.com", mailer.last()))
}

func TestVerifier_SecondRequestInvalidatesFirst(t *testing.T) {
	v, mailer := newTestVerifier(t, time.Hour)

	require.NoError(t, v.RequestCode("a@x.com"))
	first := mailer.last()

	require.NoError(t, v.RequestCode("a@x.com"))
	second := mailer.last()

	if first == second {
		t.Skip("two random codes collided")
	}

	require.Error(t, v.Check("a@x.com", first))
	require.NoError(t, v.Check("a@x.com", second))
}

func TestVerifier_TTLBoundary(t *testing.T) {
	// A negative TTL stores the code already expired, standing in for
	// the TTL+epsilon side of the boundary
	v, mailer := newTestVerifier(t, -time.Second)
	require.NoError(t, v.RequestCode("a@x.com"))
	require.ErrorIs(t, v.Check("a@x.com", mailer.last()), ErrCodeExpired)

	// And a generous TTL is the TTL-epsilon side
	v2, mailer2 := newTestVerifier(t, time.Hour)
	require.NoError(t, v2.RequestCode("b@x.com"))
	require.NoError(t, v2.Check("b@x.com", mailer2.last()))
}

func TestVerifier_ExpiredRowIsDeletedOnSight(t *testing.T) {
	v, mailer := newTestVerifier(t, -time.Second)

	require.NoError(t, v.RequestCode("a@x.com"))
	require.ErrorIs(t, v.Check("a@x.com", mailer.last()), ErrCodeExpired)

	var count int64
	require.NoError(t, v.DB.Model(&model.VerificationCode{}).Where("email = ?", "a@x.com").Count(&count).Error)
	require.Zero(t, count)
}

func TestVerifier_ConsumeEndsTheLifecycle(t *testing.T) {
	v, mailer := newTestVerifier(t, time.Hour)

	require.NoError(t, v.RequestCode("a@x.com"))
	code := mailer.last()

	require.NoError(t, v.Consume("a@x.com", code))

	// Gone means gone, the same code can't be spent twice
	require.ErrorIs(t, v.Consume("a@x.com", code), ErrCodeExpired)
}

func TestVerifier_VerifyKeepsCodeUsableForRegistration(t *testing.T) {
	v, mailer := newTestVerifier(t, time.Hour)

	require.NoError(t, v.RequestCode("a@x.com"))
	code := mailer.last()

	// The verify-otp endpoint checks the code, then the register call
	// arrives with the same one
	require.NoError(t, v.Verify("a@x.com", code))
	require.NoError(t, v.Consume("a@x.com", code))
}

func TestVerifier_ResendCooldown(t *testing.T) {
	mailer := &captureMailer{}
	v := NewVerifier(testDB(t), mailer, time.Hour, time.Hour)

	require.NoError(t, v.RequestCode("a@x.com"))

	err := v.RequestCode("a@x.com")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrResendCooldown))

	// Other addresses are unaffected
	require.NoError(t, v.RequestCode("b@x.com"))
}

func TestVerifier_SweepExpiredRemovesOnlyExpiredRows(t *testing.T) {
	db := testDB(t)
	mailer := &captureMailer{}

	expired := NewVerifier(db, mailer, -time.Second, 0)
	require.NoError(t, expired.RequestCode("old@x.com"))

	live := NewVerifier(db, mailer, time.Hour, 0)
	require.NoError(t, live.RequestCode("new@x.com"))

	live.SweepExpired()

	var emails []string
	require.NoError(t, db.Model(&model.VerificationCode{}).Pluck("email", &emails).Error)
	require.Equal(t, []string{"new@x.com"}, emails)
}
