package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/coupons"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

// maxAmount is the largest value NUMERIC(10,2) can hold.
var maxAmount = decimal.RequireFromString("99999999.99")

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service covers checkout, the order status lifecycle and order reads.
type Service interface {
	Checkout(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]OrderDTO, types.PageMeta, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)

	AdminList(ctx context.Context, filter ListFilter, params pagination.Params) ([]OrderDTO, types.PageMeta, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	AdminUpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusInput) (*OrderDTO, error)
}

type ServiceParams struct {
	Repository Repository
	Carts      cart.Repository
	Coupons    coupons.Repository
	DB         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo    Repository
	carts   cart.Repository
	coupons coupons.Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repository,
		carts:   params.Carts,
		coupons: params.Coupons,
		tx:      params.DB,
		outbox:  params.Outbox,
		logg:    params.Logger,
		now:     now,
	}, nil
}

type line struct {
	productID uuid.UUID
	quantity  int
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(items []LineInput) ([]line, error) {
	index := make(map[uuid.UUID]int, len(items))
	out := make([]line, 0, len(items))
	for i, item := range items {
		if item.Product == uuid.Nil {
			return nil, fieldError(fmt.Sprintf("items[%d].product", i), "product is required")
		}
		if item.Quantity < 1 {
			return nil, fieldError(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
		if pos, ok := index[item.Product]; ok {
			out[pos].quantity += item.Quantity
			continue
		}
		index[item.Product] = len(out)
		out = append(out, line{productID: item.Product, quantity: item.Quantity})
	}
	return out, nil
}

// Checkout places an order atomically: stock is checked and decremented,
// prices are snapshotted, the coupon is applied and order_created is queued.
func (s *service) Checkout(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	lines, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}

	var placed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)

		var sourceCart *models.Cart
		if len(lines) == 0 {
			record, cartLines, err := s.cartLines(ctx, carts, actor.UserID)
			if err != nil {
				return err
			}
			sourceCart, lines = record, cartLines
		}

		products, err := s.lockProducts(ctx, repo, lines)
		if err != nil {
			return err
		}

		order := &models.Order{UserID: actor.UserID, Status: enums.OrderStatusPending}
		subtotal := decimal.Zero
		for _, l := range lines {
			product := products[l.productID]
			if product.Stock < l.quantity {
				return insufficientStock(product, l.quantity)
			}
			if err := repo.DecrementStock(ctx, product.ID, l.quantity); err != nil {
				if errors.Is(err, errInsufficientStock) {
					return insufficientStock(product, l.quantity)
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
			order.Items = append(order.Items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  l.quantity,
				Price:     product.Price,
			})
		}

		if subtotal.GreaterThan(maxAmount) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order subtotal exceeds the supported range").
				WithDetails(map[string]string{"subtotal": subtotal.StringFixed(2), "max": maxAmount.StringFixed(2)})
		}

		var couponCode *string
		percent := 0
		if input.CouponCode != "" {
			coupon, err := s.redeemableCoupon(ctx, tx, input.CouponCode)
			if err != nil {
				return err
			}
			order.CouponID = &coupon.ID
			percent = coupon.DiscountPercent
			couponCode = &coupon.Code
		}
		order.TotalAmount, order.DiscountAmount = applyDiscount(subtotal, percent)

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: outbox.OrderCreatedEvent{
				OrderID:        order.ID,
				UserID:         order.UserID,
				Status:         order.Status,
				TotalAmount:    order.TotalAmount,
				DiscountAmount: order.DiscountAmount,
				CouponCode:     couponCode,
				Items:          orderLines(order.Items),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_created")
		}

		if sourceCart != nil {
			if err := carts.ClearCart(ctx, sourceCart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     placed.ID.String(),
			"total_amount": placed.TotalAmount.StringFixed(2),
			"items":        len(placed.Items),
		})
		s.logg.Info(logCtx, "order placed")
	}
	dto := FromModel(placed)
	return &dto, nil
}

func (s *service) cartLines(ctx context.Context, carts cart.Repository, userID uuid.UUID) (*models.Cart, []line, error) {
	record, err := carts.FindUserCart(ctx, userID)
	if err != nil && !db.IsNotFound(err) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if record == nil || len(record.Items) == 0 {
		return nil, nil, fieldError("items", "cart is empty")
	}
	inputs := make([]LineInput, 0, len(record.Items))
	for _, item := range record.Items {
		inputs = append(inputs, LineInput{Product: item.ProductID, Quantity: item.Quantity})
	}
	lines, err := mergeLines(inputs)
	if err != nil {
		return nil, nil, err
	}
	return record, lines, nil
}

func (s *service) lockProducts(ctx context.Context, repo Repository, lines []line) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.productID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	rows, err := repo.LockProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	for _, l := range lines {
		if _, ok := byID[l.productID]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", l.productID).
				WithDetails(map[string]string{"product": l.productID.String()})
		}
	}
	return byID, nil
}

func (s *service) redeemableCoupon(ctx context.Context, tx *gorm.DB, code string) (*models.Coupon, error) {
	code = coupons.NormalizeCode(code)
	coupon, err := s.coupons.WithTx(tx).FindByCode(ctx, code)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if ok, reason := coupons.Evaluate(coupon, s.now().UTC()); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon cannot be redeemed").
			WithDetails(map[string]string{"coupon_code": reason})
	}
	return coupon, nil
}

// applyDiscount returns the rounded total and the discount it implies.
func applyDiscount(subtotal decimal.Decimal, percent int) (decimal.Decimal, decimal.Decimal) {
	total := subtotal.Mul(decimal.NewFromInt(int64(100 - percent))).Div(hundred).Round(2)
	return total, subtotal.Sub(total).Round(2)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]OrderDTO, types.PageMeta, error) {
	filter.UserID = nil
	rows, total, err := s.repo.ListForUser(ctx, userID, filter, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return fromModels(rows), params.Meta(total), nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID, false)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

// UpdateStatus is the owner-facing PATCH; owners may only cancel.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusInput) (*OrderDTO, error) {
	target, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if target != enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel orders")
	}
	return s.transition(ctx, actor, orderID, target, &actor.UserID)
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, orderID, enums.OrderStatusCancelled, &actor.UserID)
}

func (s *service) AdminList(ctx context.Context, filter ListFilter, params pagination.Params) ([]OrderDTO, types.PageMeta, error) {
	rows, total, err := s.repo.ListAll(ctx, filter, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return fromModels(rows), params.Meta(total), nil
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.Find(ctx, orderID, false)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) AdminUpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusInput) (*OrderDTO, error) {
	target, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, orderID, target, nil)
}

// transition applies one state machine step. A nil owner means the caller is
// not confined to their own orders.
func (s *service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus, owner *uuid.UUID) (*OrderDTO, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var (
			order *models.Order
			err   error
		)
		if owner != nil {
			order, err = repo.FindForUser(ctx, *owner, orderID, true)
		} else {
			order, err = repo.Find(ctx, orderID, true)
		}
		if err != nil {
			return lookupError(err)
		}
		if order.Status == target {
			result = order
			return nil
		}
		if !CanTransition(order.Status, target) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, target).
				WithDetails(map[string]string{"from": order.Status.String(), "to": target.String()})
		}

		now := s.now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, target, now); err != nil {
			return lookupError(err)
		}
		from := order.Status
		order.Status = target
		order.UpdatedAt = now

		event := outbox.DomainEvent{
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
		}
		if target == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := repo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
				}
			}
			event.EventType = enums.EventOrderCanceled
			event.Data = outbox.OrderCanceledEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				From:      from,
				Restocked: orderLines(order.Items),
			}
		} else {
			event.EventType = enums.EventOrderStatusChanged
			event.Data = outbox.OrderStatusChangedEvent{
				OrderID: order.ID,
				UserID:  order.UserID,
				From:    from,
				To:      target,
			}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event.EventType))
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(result)
	return &dto, nil
}

func parseStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", fieldError("status", err.Error())
	}
	return status, nil
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for product %s", product.ID).
		WithDetails(map[string]any{
			"product":   product.ID.String(),
			"requested": requested,
			"available": product.Stock,
		})
}

func orderLines(items []models.OrderItem) []outbox.OrderLine {
	out := make([]outbox.OrderLine, 0, len(items))
	for _, item := range items {
		out = append(out, outbox.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return out
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
