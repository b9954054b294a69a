package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
)

func TestNewDraft_FixedFields(t *testing.T) {
	amount, err := money.NewAmount("EUR", decimal.RequireFromString("19.99"))
	require.NoError(t, err)

	d, err := NewDraft(amount)
	require.NoError(t, err)
	assert.Equal(t, IntentCapture, d.Intent)
	assert.Equal(t, ShippingNoShipping, d.ShippingPreference)
	assert.Equal(t, UserActionPayNow, d.UserAction)

	_, err = NewDraft(money.Amount{})
	assert.ErrorIs(t, err, ErrMissingAmount)
}

func TestOrder_CapturedOnce(t *testing.T) {
	o, err := Created("5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, "created", o.Label())
	assert.False(t, o.Completed())

	require.NoError(t, o.Captured("COMPLETED"))
	assert.Equal(t, StatusCaptured, o.Status)
	assert.Equal(t, "captured:COMPLETED", o.Label())
	assert.True(t, o.Completed())

	err = o.Captured("COMPLETED")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestOrder_CapturedNotCompleted(t *testing.T) {
	o, err := Created("8XY")
	require.NoError(t, err)

	require.NoError(t, o.Captured("PENDING"))
	assert.Equal(t, "captured:PENDING", o.Label())
	assert.False(t, o.Completed())
}

func TestCreated_RequiresID(t *testing.T) {
	_, err := Created("")
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestNewOrderCapturedEvent(t *testing.T) {
	o, _ := Created("ORDER-1")
	require.NoError(t, o.Captured("COMPLETED"))

	evt := NewOrderCapturedEvent(o)
	assert.Equal(t, "order.captured", evt.EventName())
	assert.Equal(t, "ORDER-1", evt.EventKey())
	assert.Equal(t, "COMPLETED", evt.CaptureStatus)
	assert.NotEmpty(t, evt.ID)
}
