package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	"ordercore/internal/metrics"
	repo "ordercore/internal/repository"
	"ordercore/internal/validator"
)

const walkInCustomerName = "CONSUMIDOR FINAL"

type OrderUsecase struct {
	tx             repo.TransactionManager
	pricing        *PricingEngine
	ledger         *InventoryLedger
	compensator    *CompensationUsecase
	paymentMethods repo.PaymentMethodRepository
	notifier       OrderNotifier
	ids            IDGenerator
	clock          Clock
	logger         *slog.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	pricing *PricingEngine,
	ledger *InventoryLedger,
	compensator *CompensationUsecase,
	paymentMethods repo.PaymentMethodRepository,
	ids IDGenerator,
	clock Clock,
	logger *slog.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:             tx,
		pricing:        pricing,
		ledger:         ledger,
		compensator:    compensator,
		paymentMethods: paymentMethods,
		notifier:       noopNotifier{},
		ids:            ids,
		clock:          clock,
		logger:         logger,
	}
}

func (u *OrderUsecase) WithNotifier(n OrderNotifier) *OrderUsecase {
	if n != nil {
		u.notifier = n
	}
	return u
}

type CustomerInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BillingID string `json:"billing_id"`
}

type AddressInput struct {
	Line1        string `json:"line1"`
	Line2        string `json:"line2"`
	Municipality string `json:"municipality"`
	Department   string `json:"department"`
	PostalCode   string `json:"postal_code"`
	Reference    string `json:"reference"`
}

type PlaceOrderInput struct {
	Source          model.OrderSource
	Items           []CartLine
	CouponCode      string
	PaymentMethodID int64
	Customer        CustomerInput
	Shipping        AddressInput

	//POSのみ（JWTから）
	EmployeeID int64

	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID    int64  `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	UnitPrice    string `json:"unit_price"`
	Quantity     int64  `json:"quantity"`
	LineSubtotal string `json:"line_subtotal"`
	LineDiscount string `json:"line_discount"`
	LineTotal    string `json:"line_total"`
}

type PaymentOutput struct {
	ID              string `json:"id"`
	PaymentMethodID int64  `json:"payment_method_id"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	ProviderRef     string `json:"provider_ref,omitempty"`
}

type StatusEventOutput struct {
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderOutput struct {
	ID              string                 `json:"id"`
	Source          string                 `json:"source"`
	Status          string                 `json:"status"`
	Customer        model.CustomerSnapshot `json:"customer"`
	Shipping        model.AddressSnapshot  `json:"shipping"`
	Subtotal        string                 `json:"subtotal"`
	Discount        string                 `json:"discount"`
	Total           string                 `json:"total"`
	CouponCode      *string                `json:"coupon_code,omitempty"`
	PaymentMethodID int64                  `json:"payment_method_id"`
	EmployeeID      *int64                 `json:"employee_id,omitempty"`
	PosSessionID    *string                `json:"pos_session_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	Items           []OrderItemOutput      `json:"items"`
	Payment         *PaymentOutput         `json:"payment,omitempty"`
	History         []StatusEventOutput    `json:"history"`
}

type PreviewInput struct {
	Items      []CartLine
	CouponCode string
}

type PricingOutput struct {
	Items      []OrderItemOutput `json:"items"`
	Subtotal   string            `json:"subtotal"`
	Discount   string            `json:"discount"`
	Total      string            `json:"total"`
	CouponCode string            `json:"coupon_code,omitempty"`
}

// カート確認用。何も書き込まない
func (u *OrderUsecase) Preview(ctx context.Context, in PreviewInput) (PricingOutput, error) {
	priced, err := u.pricing.Price(ctx, in.Items, in.CouponCode)
	if err != nil {
		return PricingOutput{}, toHTTPError(err)
	}

	items := make([]OrderItemOutput, 0, len(priced.Lines))
	for _, l := range priced.Lines {
		items = append(items, OrderItemOutput{
			ProductID:    l.ProductID,
			SKU:          l.SKU,
			Name:         l.Name,
			UnitPrice:    money(l.UnitPrice),
			Quantity:     l.Quantity,
			LineSubtotal: money(l.LineSubtotal),
			LineDiscount: money(l.LineDiscount),
			LineTotal:    money(l.LineTotal),
		})
	}
	return PricingOutput{
		Items:      items,
		Subtotal:   money(priced.Subtotal),
		Discount:   money(priced.Discount),
		Total:      money(priced.Total),
		CouponCode: priced.CouponCode,
	}, nil
}

// 注文確定。完成した注文を返すか、何も残さないかのどちらか
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (OrderOutput, error) {
	if err := validatePlaceOrder(&in); err != nil {
		return OrderOutput{}, err
	}

	// 同じキーなら同じ結果
	if in.IdempotencyKey != "" {
		existing, found, err := u.findByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return OrderOutput{}, err
		}
		if found {
			return existing, nil
		}
	}

	method, err := u.paymentMethods.FindByID(ctx, in.PaymentMethodID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !method.IsActive) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method_id")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//POSは開いているレジが必要
	var sessionID string
	if in.Source == model.OrderSourcePOS {
		sessionID, err = u.openSessionID(ctx, in.EmployeeID)
		if err != nil {
			metrics.OrderFailures.WithLabelValues("no_open_session").Inc()
			return OrderOutput{}, toHTTPError(err)
		}
	}

	priced, err := u.pricing.Price(ctx, in.Items, in.CouponCode)
	if err != nil {
		metrics.OrderFailures.WithLabelValues("pricing").Inc()
		return OrderOutput{}, toHTTPError(err)
	}

	reservation, err := u.ledger.Reserve(ctx, in.Items)
	if err != nil {
		var se *StockConflictError
		if errors.As(err, &se) {
			metrics.OrderFailures.WithLabelValues("insufficient_stock").Inc()
		} else {
			metrics.OrderFailures.WithLabelValues("reservation").Inc()
		}
		return OrderOutput{}, toHTTPError(err)
	}

	// ここから先で失敗したら必ず在庫を戻す
	orderID := u.ids.NewID()
	out, err := u.persist(ctx, orderID, in, method, sessionID, priced, reservation)
	if err != nil {
		u.compensator.Compensate(ctx, reservation.ID, orderID, err)

		//同時リトライで別のリクエストが先に作っていた
		if errors.Is(err, repo.ErrDuplicate) && in.IdempotencyKey != "" {
			existing, found, lookupErr := u.findByIdempotencyKey(context.WithoutCancel(ctx), in.IdempotencyKey)
			if lookupErr == nil && found {
				return existing, nil
			}
		}

		metrics.OrderFailures.WithLabelValues("persistence").Inc()
		u.logger.Warn("order persistence failed",
			"order_attempt_id", orderID,
			"reservation_id", reservation.ID,
			"error", err,
		)
		return OrderOutput{}, toHTTPError(err)
	}

	metrics.OrdersPlaced.WithLabelValues(string(in.Source)).Inc()
	u.notify(ctx, out)
	return out, nil
}

// 注文・明細・履歴・支払い・引当の消費を1つのTxで書く
func (u *OrderUsecase) persist(
	ctx context.Context,
	orderID string,
	in PlaceOrderInput,
	method model.PaymentMethod,
	sessionID string,
	priced PricingResult,
	reservation Reservation,
) (OrderOutput, error) {
	now := u.clock.Now()

	order := model.Order{
		ID:     orderID,
		Source: in.Source,
		Status: model.OrderStatusCreated,
		Customer: model.CustomerSnapshot{
			Name:      in.Customer.Name,
			Email:     in.Customer.Email,
			Phone:     in.Customer.Phone,
			BillingID: in.Customer.BillingID,
		},
		Shipping: model.AddressSnapshot{
			Line1:        in.Shipping.Line1,
			Line2:        in.Shipping.Line2,
			Municipality: in.Shipping.Municipality,
			Department:   in.Shipping.Department,
			PostalCode:   in.Shipping.PostalCode,
			Reference:    in.Shipping.Reference,
		},
		Subtotal:        priced.Subtotal,
		Discount:        priced.Discount,
		Total:           priced.Total,
		PaymentMethodID: method.ID,
		ReservationID:   reservation.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if priced.CouponCode != "" {
		code := priced.CouponCode
		order.CouponCode = &code
	}
	var actor *int64
	if in.Source == model.OrderSourcePOS {
		emp := in.EmployeeID
		sid := sessionID
		order.EmployeeID = &emp
		order.PosSessionID = &sid
		actor = &emp
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}

	//明細は価格計算の結果をそのまま写す（カタログは読み直さない）
	items := make([]model.OrderItem, 0, len(priced.Lines))
	for _, l := range priced.Lines {
		items = append(items, model.OrderItem{
			ProductID:           l.ProductID,
			SKUSnapshot:         l.SKU,
			ProductNameSnapshot: l.Name,
			UnitPriceSnapshot:   l.UnitPrice,
			Quantity:            l.Quantity,
			LineSubtotal:        l.LineSubtotal,
			LineDiscount:        l.LineDiscount,
			LineTotal:           l.LineTotal,
			CreatedAt:           now,
		})
	}

	//POSでその場で確定する支払い方法ならPAID
	settleNow := in.Source == model.OrderSourcePOS && method.SettlesImmediately
	payment := model.Payment{
		ID:              u.ids.NewID(),
		OrderID:         orderID,
		PaymentMethodID: method.ID,
		Amount:          priced.Total,
		Status:          model.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if settleNow {
		payment.Status = model.PaymentStatusPaid
	}

	events := []model.OrderStatusEvent{{
		OrderID:   orderID,
		ToStatus:  model.OrderStatusCreated,
		Reason:    "order placed",
		ActorID:   actor,
		CreatedAt: now,
	}}
	if settleNow {
		events = append(events, model.OrderStatusEvent{
			OrderID:    orderID,
			FromStatus: model.OrderStatusCreated,
			ToStatus:   model.OrderStatusPaid,
			Reason:     "paid at checkout",
			ActorID:    actor,
			CreatedAt:  now,
		})
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if in.Source == model.OrderSourcePOS {
			//確認後に閉じられていないか
			s, err := r.PosSessions().FindOpenByEmployee(ctx, in.EmployeeID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && s.ID != sessionID) {
				return ErrNoOpenSession
			}
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		if err := r.OrderEvents().Append(ctx, events[0]); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		if err := r.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if settleNow {
			ok, err := r.Orders().UpdateStatusIf(ctx, orderID, model.OrderStatusCreated, model.OrderStatusPaid)
			if err != nil {
				return fmt.Errorf("mark paid: %w", err)
			}
			if !ok {
				return ErrInvalidTransition
			}
			if err := r.OrderEvents().Append(ctx, events[1]); err != nil {
				return fmt.Errorf("append event: %w", err)
			}
			order.Status = model.OrderStatusPaid
		}

		//スイーパーに戻された引当では注文にしない
		ok, err := r.Reservations().MarkConsumed(ctx, reservation.ID, orderID, now)
		if err != nil {
			return fmt.Errorf("consume reservation: %w", err)
		}
		if !ok {
			return ErrReservationNotHeld
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	return toOrderOutput(order, items, &payment, events), nil
}

// 注文詳細（明細・支払い・履歴つき）
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID string) (OrderOutput, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out, err = loadOrderOutput(ctx, r, o)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) findByIdempotencyKey(ctx context.Context, key string) (OrderOutput, bool, error) {
	var (
		out   OrderOutput
		found bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, ok, err := r.Orders().FindByIdempotencyKey(ctx, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !ok {
			return nil
		}
		found = true
		out, err = loadOrderOutput(ctx, r, o)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, false, err
	}
	return out, found, nil
}

func (u *OrderUsecase) openSessionID(ctx context.Context, employeeID int64) (string, error) {
	var id string
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.PosSessions().FindOpenByEmployee(ctx, employeeID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}
		id = s.ID
		return nil
	})
	return id, err
}

// 通知はベストエフォート（panicも注文には影響させない）
func (u *OrderUsecase) notify(ctx context.Context, out OrderOutput) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.NotificationsDropped.Inc()
			u.logger.Error("order notifier panicked", "order_id", out.ID, "panic", rec)
		}
	}()
	u.notifier.NotifyOrderPlaced(context.WithoutCancel(ctx), out)
}

func validatePlaceOrder(in *PlaceOrderInput) error {
	switch in.Source {
	case model.OrderSourceEcommerce, model.OrderSourcePOS:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid source")
	}
	if len(in.Items) == 0 {
		return newCodedError(http.StatusBadRequest, string(PricingEmptyCart), "items required", nil, nil)
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 || it.Quantity > MaxLineQuantity {
			return newCodedError(http.StatusBadRequest, string(PricingInvalidQuantity),
				fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity),
				map[string]int64{"product_id": it.ProductID}, nil)
		}
	}
	if in.PaymentMethodID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid payment_method_id")
	}

	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Shipping.Line1 = strings.TrimSpace(in.Shipping.Line1)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	in.CouponCode = strings.TrimSpace(in.CouponCode)

	//POSの名前なし客は「消費者」扱い
	if in.Customer.Name == "" && in.Source == model.OrderSourcePOS {
		in.Customer.Name = walkInCustomerName
	}
	if in.Customer.Name == "" {
		return NewHTTPError(http.StatusBadRequest, "customer name required")
	}
	if len(in.IdempotencyKey) > 255 {
		return NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	switch in.Source {
	case model.OrderSourceEcommerce:
		if in.Customer.Email == "" {
			return NewHTTPError(http.StatusBadRequest, "customer email required")
		}
		if in.Shipping.Line1 == "" {
			return NewHTTPError(http.StatusBadRequest, "shipping line1 required")
		}
	case model.OrderSourcePOS:
		if in.EmployeeID <= 0 {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
	}

	if err := validator.ValidateContact(in.Customer.Email, in.Customer.Phone); err != nil {
		return NewHTTPError(http.StatusBadRequest, "customer "+err.Error())
	}
	for _, s := range []string{in.Customer.Name, in.Customer.BillingID, in.Shipping.Line1, in.Shipping.Line2, in.Shipping.Municipality, in.Shipping.Department, in.Shipping.Reference} {
		if err := validator.MaxLen(s, 255); err != nil {
			return NewHTTPError(http.StatusBadRequest, "customer or shipping field too long")
		}
	}
	return nil
}

func loadOrderOutput(ctx context.Context, r repo.TxRepos, o model.Order) (OrderOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, err
	}
	events, err := r.OrderEvents().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, err
	}

	var payment *model.Payment
	p, err := r.Payments().FindByOrderID(ctx, o.ID)
	switch {
	case err == nil:
		payment = &p
	case errors.Is(err, repo.ErrNotFound):
	default:
		return OrderOutput{}, err
	}

	return toOrderOutput(o, items, payment, events), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, payment *model.Payment, events []model.OrderStatusEvent) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:    it.ProductID,
			SKU:          it.SKUSnapshot,
			Name:         it.ProductNameSnapshot,
			UnitPrice:    money(it.UnitPriceSnapshot),
			Quantity:     it.Quantity,
			LineSubtotal: money(it.LineSubtotal),
			LineDiscount: money(it.LineDiscount),
			LineTotal:    money(it.LineTotal),
		})
	}

	history := make([]StatusEventOutput, 0, len(events))
	for _, e := range events {
		history = append(history, StatusEventOutput{
			From:      string(e.FromStatus),
			To:        string(e.ToStatus),
			Reason:    e.Reason,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt,
		})
	}

	out := OrderOutput{
		ID:              o.ID,
		Source:          string(o.Source),
		Status:          string(o.Status),
		Customer:        o.Customer,
		Shipping:        o.Shipping,
		Subtotal:        money(o.Subtotal),
		Discount:        money(o.Discount),
		Total:           money(o.Total),
		CouponCode:      o.CouponCode,
		PaymentMethodID: o.PaymentMethodID,
		EmployeeID:      o.EmployeeID,
		PosSessionID:    o.PosSessionID,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
		History:         history,
	}
	if payment != nil {
		out.Payment = &PaymentOutput{
			ID:              payment.ID,
			PaymentMethodID: payment.PaymentMethodID,
			Amount:          money(payment.Amount),
			Status:          string(payment.Status),
			ProviderRef:     payment.ProviderRef,
		}
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
