package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"loanDesk/apperrors"
	"loanDesk/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

// testPGPKeys создает пару ключей PGP для шифрования PAN
func testPGPKeys(t *testing.T) (public, private string) {
	t.Helper()

	entity, err := openpgp.NewEntity("Loan Desk KYC", "test", "kyc@example.com", nil)
	require.NoError(t, err)

	var pubBuf bytes.Buffer
	w, err := armor.Encode(&pubBuf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	var privBuf bytes.Buffer
	w, err = armor.Encode(&privBuf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())

	return pubBuf.String(), privBuf.String()
}

func TestProfileService_UpsertAndGet(t *testing.T) {
	db := newTestDatabase(t)
	user := createTestUser(t, db, "kyc")
	public, private := testPGPKeys(t)
	service := NewProfileService(db.DB, public, private, "hmac-key")
	ctx := context.Background()

	view, err := service.Upsert(ctx, user.ID, ProfileDTO{
		City:          "Pune",
		State:         "Maharashtra",
		Occupation:    "Engineer",
		MonthlyIncome: decimal.NewFromInt(85000),
		PAN:           "abcde1234f",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pune", view.City)
	assert.Equal(t, "******234F", view.PANMasked)

	var stored models.UserProfile
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.NotContains(t, stored.PANEncrypted, "ABCDE1234F")
	assert.Len(t, stored.PANHMAC, 64)
	firstCiphertext := stored.PANEncrypted

	// Обновление без PAN сохраняет зашифрованный номер
	view, err = service.Upsert(ctx, user.ID, ProfileDTO{City: "Mumbai", MonthlyIncome: decimal.NewFromInt(90000)})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", view.City)
	assert.True(t, view.MonthlyIncome.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, "******234F", view.PANMasked)

	// Тот же PAN не перешифровывается
	_, err = service.Upsert(ctx, user.ID, ProfileDTO{City: "Mumbai", PAN: "ABCDE1234F"})
	require.NoError(t, err)
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, firstCiphertext, stored.PANEncrypted)

	var count int64
	require.NoError(t, db.DB.Model(&models.UserProfile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	owner, err := service.FindUserByPAN(ctx, "ABCDE1234F")
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner)

	_, err = service.FindUserByPAN(ctx, "ZZZZZ9999Z")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProfileService_Invalid(t *testing.T) {
	db := newTestDatabase(t)
	user := createTestUser(t, db, "badkyc")
	public, private := testPGPKeys(t)
	service := NewProfileService(db.DB, public, private, "hmac-key")
	ctx := context.Background()

	_, err := service.Upsert(ctx, user.ID, ProfileDTO{PAN: "1234567890"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = service.Upsert(ctx, user.ID, ProfileDTO{MonthlyIncome: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = service.Get(ctx, user.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = NewProfileService(db.DB, "", "", "hmac-key").Upsert(ctx, user.ID, ProfileDTO{PAN: "ABCDE1234F"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}
