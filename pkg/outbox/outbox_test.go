package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	return NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard})), repo, conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	svc, _, conn := newTestService(t)
	orderID := uuid.New()
	userID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: userID, Role: string(enums.RoleCustomer)},
			Data: OrderCreatedEvent{
				OrderID:     orderID,
				UserID:      userID,
				Status:      enums.OrderStatusPending,
				TotalAmount: decimal.RequireFromString("12.50"),
			},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	require.NotNil(t, env.Actor)
	assert.Equal(t, userID, env.Actor.UserID)

	var data OrderCreatedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.TotalAmount.Equal(decimal.RequireFromString("12.5")))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	svc, _, conn := newTestService(t)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          OrderCanceledEvent{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	assert.Error(t, err)
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	svc, _, conn := newTestService(t)
	couponID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventCouponExpired,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   couponID,
		Data:          CouponExpiredEvent{CouponID: couponID, Code: "SPRING"},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	svc, repo, conn := newTestService(t)
	ctx := context.Background()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			if err := svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Data:          OrderStatusChangedEvent{},
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	var pending []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		pending, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, pending, 3)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, pending[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, pending[1].ID, errors.New("transient")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, pending[2].ID, errors.New("bad payload"), 3)
	}))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, remaining, 1)
	assert.Equal(t, pending[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "transient", *remaining[0].LastError)
}

func TestDeletePublishedBefore(t *testing.T) {
	_, repo, conn := newTestService(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &old},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &recent},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)},
	}
	require.NoError(t, conn.Create(&rows).Error)

	deleted, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewDefaultRegistry("orders")
	require.NoError(t, err)

	data, _ := json.Marshal(CouponExpiredEvent{Code: "SPRING"})
	body, _ := json.Marshal(PayloadEnvelope{Version: 1, EventID: "evt-1", Data: data})

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventCouponExpired,
		AggregateType: enums.AggregateCoupon,
		Payload:       body,
	})
	require.NoError(t, err)
	assert.Equal(t, "orders", resolved.Descriptor.Topic)
	assert.Equal(t, "evt-1", resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*CouponExpiredEvent)
	require.True(t, ok)
	assert.Equal(t, "SPRING", payload.Code)
}

func TestRegistryResolveRejectsBadRows(t *testing.T) {
	reg, err := NewDefaultRegistry("orders")
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown type":       {EventType: "nope", AggregateType: enums.AggregateOrder, Payload: json.RawMessage(`{}`)},
		"aggregate mismatch": {EventType: enums.EventCouponExpired, AggregateType: enums.AggregateOrder, Payload: json.RawMessage(`{}`)},
		"bad json":           {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: json.RawMessage(`{`)},
		"unknown version":    {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: json.RawMessage(`{"version":9,"data":{}}`)},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			var nonRetry NonRetryableError
			assert.ErrorAs(t, err, &nonRetry)
		})
	}

	_, err = NewDefaultRegistry("")
	assert.Error(t, err)
}
