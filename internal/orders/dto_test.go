package orders

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

func TestOrderJSONRendersMoneyWithTwoDigits(t *testing.T) {
	order := OrderDTO{
		ID:   uuid.New(),
		User: uuid.New(),
		Items: []OrderItemDTO{
			{ID: uuid.New(), Product: uuid.New(), Quantity: 2, Price: decimal.RequireFromString("1.1")},
		},
		TotalAmount:    decimal.NewFromInt(2),
		DiscountAmount: decimal.RequireFromString("0.20"),
		Status:         enums.OrderStatusPending,
	}

	raw, err := json.Marshal(order)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "2.00", body["total_amount"])
	assert.Equal(t, "0.20", body["discount_amount"])
	assert.Equal(t, "PENDING", body["status"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "1.10", item["price"])
	assert.EqualValues(t, 2, item["quantity"])

	var decoded OrderDTO
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.TotalAmount.Equal(order.TotalAmount))
	assert.True(t, decoded.Items[0].Price.Equal(order.Items[0].Price))
}
