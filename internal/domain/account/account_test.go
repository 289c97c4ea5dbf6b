package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		acc, err := NewAccount(userID, decimal.NewFromInt(1000), "USD")
		require.NoError(t, err)
		assert.Equal(t, userID, acc.UserID)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, "USD", acc.Currency)
		assert.NotEqual(t, uuid.Nil, acc.ID)
	})

	t.Run("negative initial balance", func(t *testing.T) {
		acc, err := NewAccount(userID, decimal.NewFromInt(-1), "USD")
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("bad currency code", func(t *testing.T) {
		acc, err := NewAccount(userID, decimal.Zero, "USDT")
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, ErrInvalidCurrencyFormat)
	})

	t.Run("balance rounded to 4 decimals", func(t *testing.T) {
		v, err := decimal.NewFromString("10.123456")
		require.NoError(t, err)
		acc, err := NewAccount(userID, v, "EUR")
		require.NoError(t, err)
		assert.Equal(t, "10.1235", acc.Balance.StringFixed(4))
	})
}

func TestAccount_CanWithdraw(t *testing.T) {
	acc, err := NewAccount(uuid.New(), decimal.NewFromInt(100), "USD")
	require.NoError(t, err)

	assert.True(t, acc.CanWithdraw(decimal.NewFromInt(100)))
	assert.True(t, acc.CanWithdraw(decimal.NewFromInt(1)))
	assert.False(t, acc.CanWithdraw(decimal.NewFromFloat(100.0001)))
}
