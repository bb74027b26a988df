package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/domain/pricing"
	"app/internal/repository"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	users    repository.UserRepository
	verifier PasswordVerifier
	clock    Clock

	//注文作成からのキャンセル可能時間
	cancelWindow time.Duration
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	users repository.UserRepository,
	verifier PasswordVerifier,
	clock Clock,
	cancelWindow time.Duration,
) *OrderUsecase {
	return &OrderUsecase{
		tx:           tx,
		users:        users,
		verifier:     verifier,
		clock:        clock,
		cancelWindow: cancelWindow,
	}
}

type PlaceOrderItemInput struct {
	ProductID int64
	Quantity  int64
}

// クライアントはカートの中身（商品IDと数量）だけを送る。
// 価格は一切受け取らない。単価はここでカタログから読み直して確定する。
type PlaceOrderInput struct {
	Items []PlaceOrderItemInput

	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string

	PaymentMethod  string
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type TrackingEventOutput struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderOutput struct {
	ID            int64                 `json:"id"`
	UserID        int64                 `json:"user_id"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	PaymentStatus string                `json:"payment_status"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	DeliveredAt   *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []OrderItemOutput     `json:"items"`
	Tracking      []TrackingEventOutput `json:"tracking,omitempty"`
}

// ステータスごとの追跡メッセージ
func trackingMessage(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusProcessing:
		return "Order received"
	case model.OrderStatusPacking:
		return "Order is being packed"
	case model.OrderStatusShipped:
		return "Order has been shipped"
	case model.OrderStatusOutForDelivery:
		return "Order is out for delivery"
	case model.OrderStatusDelivered:
		return "Order delivered"
	case model.OrderStatusCancelled:
		return "Order cancelled by user"
	case model.OrderStatusRejected:
		return "Order rejected by store"
	default:
		return string(s)
	}
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "order has no items")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid items")
		}
	}

	//配送先は全項目必須
	if strings.TrimSpace(in.FullName) == "" ||
		strings.TrimSpace(in.Address) == "" ||
		strings.TrimSpace(in.City) == "" ||
		strings.TrimSpace(in.PostalCode) == "" ||
		strings.TrimSpace(in.Country) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping address incomplete")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	now := u.clock.Now()
	var out OrderOutput

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(existing, items, nil)
			return nil
		}

		orderItems := make([]model.OrderItem, 0, len(in.Items))
		total := decimal.Zero

		for _, it := range in.Items {
			//商品はサーバー側の値を読む（クライアント申告の価格は信用しない）
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}

			//割引と期限からこの時点の実効単価を確定
			unit := pricing.EffectiveUnitPrice(p.Price, p.Discount, p.DiscountExpiry, now)

			//在庫減算と販売数加算（足りないなら false）
			ok, err := r.Inventory().SellStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "out of stock")
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:         it.ProductID,
				TitleSnapshot:     p.Title,
				UnitPriceSnapshot: unit,
				Quantity:          it.Quantity,
				CreatedAt:         now,
			})

			total = total.Add(unit.Mul(decimal.NewFromInt(it.Quantity)))
		}

		// 注文作成
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:         userID,
			FullName:       strings.TrimSpace(in.FullName),
			Address:        strings.TrimSpace(in.Address),
			City:           strings.TrimSpace(in.City),
			PostalCode:     strings.TrimSpace(in.PostalCode),
			Country:        strings.TrimSpace(in.Country),
			PaymentMethod:  strings.TrimSpace(in.PaymentMethod),
			PaymentStatus:  model.PaymentStatusPending,
			Status:         model.OrderStatusProcessing,
			TotalAmount:    total,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			//競合（同時で同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ex2, items2, nil)
				return nil
			}
			return NewHTTPError(http.StatusBadRequest, "idempotency conflict")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//最初の追跡エントリ
		initial := model.TrackingEvent{
			OrderID:   orderID,
			Status:    model.OrderStatusProcessing,
			Message:   trackingMessage(model.OrderStatusProcessing),
			CreatedAt: now,
		}
		if err := r.Tracking().Append(ctx, initial); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == nil {
			if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Carts().Clear(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created := model.Order{
			ID:            orderID,
			UserID:        userID,
			PaymentMethod: strings.TrimSpace(in.PaymentMethod),
			PaymentStatus: model.PaymentStatusPending,
			Status:        model.OrderStatusProcessing,
			TotalAmount:   total,
			CreatedAt:     now,
		}
		out = toOrderOutput(created, orderItems, []model.TrackingEvent{initial})
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelOrder は本人による注文キャンセル。
// 取り返しがつかない操作なのでパスワードの再確認を要求する。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64, password string) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	//ステップアップ認証。どの段階で落ちたかは返さない。
	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return NewHTTPError(http.StatusUnauthorized, "incorrect credential")
	}
	if !u.verifier.Verify(password, user.PasswordHash) {
		return NewHTTPError(http.StatusUnauthorized, "incorrect credential")
	}

	now := u.clock.Now()

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		//終端ガード。二重キャンセルは在庫を二重に戻さない。
		switch o.Status {
		case model.OrderStatusCancelled:
			return NewHTTPError(http.StatusConflict, "already cancelled")
		case model.OrderStatusDelivered:
			return NewHTTPError(http.StatusConflict, "already delivered")
		case model.OrderStatusRejected:
			return NewHTTPError(http.StatusConflict, "already rejected")
		}

		//キャンセル可能時間は作成時刻から判定する
		if now.Sub(o.CreatedAt) > u.cancelWindow {
			return NewHTTPError(http.StatusConflict, "cancellation window expired")
		}

		//補償：明細ごとに在庫を戻し販売数を巻き戻す
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventory().RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Tracking().Append(ctx, model.TrackingEvent{
			OrderID:   orderID,
			Status:    model.OrderStatusCancelled,
			Message:   trackingMessage(model.OrderStatusCancelled),
			CreatedAt: now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items, nil))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		tracking, err := r.Tracking().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items, tracking)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, tracking []model.TrackingEvent) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Title:     it.TitleSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	var outTracking []TrackingEventOutput
	for _, ev := range tracking {
		outTracking = append(outTracking, TrackingEventOutput{
			Status:    string(ev.Status),
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
		Tracking:      outTracking,
	}
}
