package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eato/internal/cache"
	"eato/internal/events"
	"eato/internal/model"
	"eato/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	orderIDPrefix     = "ORD-"
	orderIDLength     = 10
	orderIDMaxRetries = 10

	defaultPublishTimeout = 2 * time.Second
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	cache       cache.Cache
	ttls        cache.TTLs
	publisher   events.Publisher
	publishWait time.Duration
	newID       func() (string, error)
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	c cache.Cache,
	ttls cache.TTLs,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		cache:       c,
		ttls:        ttls,
		publisher:   publisher,
		publishWait: defaultPublishTimeout,
		newID:       func() (string, error) { return randomToken(orderIDLength) },
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// Place validates every requested size against the live catalog, prices the
// lines and writes the order header and lines in one transaction.
func (s *orderService) Place(ctx context.Context, caller model.Identity, req *model.OrderRequest) (*model.OrderResponse, error) {
	lines, err := s.priceOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", caller.UserID).Msg("failed to load customer")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if user == nil {
		s.logger.Warn().Int64("user_id", caller.UserID).Msg("customer not found")
		return nil, model.ErrUserNotFound
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := s.now().UTC()
	order := &model.Order{
		Email:       user.Email,
		TotalAmount: total,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	for i := range lines {
		lines[i].OrderID = order.ID
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, lines); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Int("item_count", len(lines)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	order.Items = lines

	cache.Invalidate(ctx, s.cache, s.logger, cache.OrdersKey(order.Email), cache.CartKey(order.Email))
	s.publish(ctx, events.OrderPlaced(order))

	s.logger.Info().
		Str("order_id", order.ID).
		Int64("user_id", user.ID).
		Int("item_count", len(lines)).
		Str("total", total.StringFixed(2)).
		Msg("order placed")

	return &model.OrderResponse{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Items:       lines,
	}, nil
}

// insertOrder assigns a fresh id to order and inserts it, regenerating the id
// on collision.
func (s *orderService) insertOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	for attempt := 0; attempt <= orderIDMaxRetries; attempt++ {
		token, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate order id: %w", err)
		}
		order.ID = orderIDPrefix + token

		err = s.orderRepo.CreateOrder(ctx, tx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrIDConflict) {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to create order")
			return fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn().Str("order_id", order.ID).Int("attempt", attempt).Msg("order id collision, regenerating")
	}

	s.logger.Error().Int("retries", orderIDMaxRetries).Msg("order id retries exhausted")
	return model.ErrOrderIDExhausted
}

// priceOrder validates the request and snapshots the current price and
// title of every requested size.
func (s *orderService) priceOrder(ctx context.Context, req *model.OrderRequest) ([]model.OrderLine, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Order must contain at least one item")
	}

	var lines []model.OrderLine
	for i, item := range req.Items {
		id := model.NormaliseID(item.ProductID)
		if id == "" {
			return nil, model.Errorf(model.ErrCodeMissingField, "Item %d: productId is required", i)
		}
		if len(item.ProductDetails) == 0 {
			return nil, model.Errorf(model.ErrCodeMissingField, "Item %d: productDetails are required", i)
		}

		product, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("product_id", id).Msg("failed to load product")
			return nil, fmt.Errorf("failed to load product %s: %w", id, err)
		}
		if product == nil {
			s.logger.Warn().Str("product_id", id).Msg("order references unknown product")
			return nil, model.Errorf(model.ErrCodeProductNotFound, "Product %s not found", id)
		}

		for _, d := range item.ProductDetails {
			size := model.Size(model.NormaliseID(d.Size))
			if !size.Valid() {
				return nil, model.Errorf(model.ErrCodeInvalidSize, "Invalid size %q for product %s", d.Size, id)
			}
			if d.Quantity < 1 {
				return nil, model.Errorf(model.ErrCodeInvalidQuantity, "Quantity for product %s (%s) must be at least 1", id, size)
			}

			ps := product.Size(size)
			if ps == nil {
				return nil, model.Errorf(model.ErrCodeSizeNotFound, "Size %s not found for product %s", size, id)
			}
			if !ps.IsAvailable {
				s.logger.Warn().Str("product_id", id).Str("size", string(size)).Msg("order references unavailable size")
				return nil, model.Errorf(model.ErrCodeSizeUnavailable, "Size %s is not available for product %s", size, id)
			}

			lines = append(lines, model.OrderLine{
				ProductID:   id,
				ProductName: product.Title,
				Size:        size,
				Quantity:    d.Quantity,
				Price:       ps.Price,
			})
		}
	}

	return lines, nil
}

// UpdateStatus locks the order row and moves it to the requested status.
// Any status may follow any other.
func (s *orderService) UpdateStatus(ctx context.Context, req *model.StatusUpdateRequest) (*model.StatusUpdateResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "orderId is required")
	}
	orderID := strings.TrimSpace(req.OrderID)

	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return nil, model.Errorf(model.ErrCodeInvalidStatus, "Invalid status %q. Allowed: Pending, Processing, Shipped, Delivered, Cancelled", req.Status)
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var order *model.Order
	order, err = s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		err = model.Errorf(model.ErrCodeOrderNotFound, "Order %s not found", orderID)
		return nil, err
	}
	if order.Status == status {
		err = model.ErrStatusUnchanged
		return nil, err
	}

	now := s.now().UTC()
	if err = s.orderRepo.UpdateStatus(ctx, tx, orderID, status, now); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = now

	cache.Invalidate(ctx, s.cache, s.logger, cache.OrdersKey(order.Email))
	s.publish(ctx, events.StatusChanged(order, previous))

	s.logger.Info().
		Str("order_id", orderID).
		Str("previous_status", string(previous)).
		Str("new_status", string(status)).
		Msg("order status updated")

	return &model.StatusUpdateResponse{
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      status,
	}, nil
}

// GetByID retrieves an order with its lines.
func (s *orderService) GetByID(ctx context.Context, id string) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "orderId is required")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", id).Msg("order not found")
		return nil, model.Errorf(model.ErrCodeOrderNotFound, "Order %s not found", id)
	}

	return order, nil
}

// ListByEmail returns a customer's orders through the cache.
func (s *orderService) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return cache.Fetch(ctx, s.cache, s.logger, cache.OrdersKey(email), s.ttls.Orders,
		func(ctx context.Context) ([]model.Order, error) {
			orders, err := s.orderRepo.ListByEmail(ctx, email)
			if err != nil {
				s.logger.Error().Err(err).Str("email", email).Msg("failed to list orders")
				return nil, fmt.Errorf("failed to list orders: %w", err)
			}
			if orders == nil {
				orders = []model.Order{}
			}
			return orders, nil
		})
}

// ListByUser resolves the account's email and lists its orders.
func (s *orderService) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	return s.ListByEmail(ctx, user.Email)
}

func (s *orderService) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishWait)
	defer cancel()

	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("order_id", e.OrderID).Str("type", e.Type).Msg("order event not published")
	}
}
