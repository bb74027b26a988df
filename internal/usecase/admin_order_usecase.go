package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	clock     Clock

	//trueなら配送段階の逆行・足踏みを拒否する
	strictTracking bool
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	auditRepo repo.AuditLogRepository,
	clock Clock,
	strictTracking bool,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:             tx,
		auditRepo:      auditRepo,
		clock:          clock,
		strictTracking: strictTracking,
	}
}

type AdvanceTrackingInput struct {
	Status string
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

// AdvanceTracking は配送ステータスを進める。在庫には触らない。
// デフォルトでは5段階のどこへでも飛べる（運用上の柔軟性を残す）。
// strictTrackingが有効な場合のみ前進遷移だけを許す。
func (u *AdminOrderUsecase) AdvanceTracking(ctx context.Context, actorAdminUserID int64, orderID int64, in AdvanceTrackingInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !model.IsForwardStatus(newStatus) {
		//Cancelled/Rejectedはここからは設定できない（専用操作がある）
		return NewHTTPError(http.StatusBadRequest, "invalid status")
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

		// 終端ガード
		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusConflict, "order already finalized")
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}

		if u.strictTracking && newStatus.Stage() <= o.Status.Stage() {
			return NewHTTPError(http.StatusConflict, "status must move forward")
		}

		beforeStatus := string(o.Status)

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//配達完了の付帯処理
		if newStatus == model.OrderStatusDelivered {
			if err := r.Orders().SetDeliveredAt(ctx, orderID, now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			//代引きは受け渡しで入金完了になる
			if o.PaymentMethod == "COD" {
				if err := r.Orders().SetPaymentStatus(ctx, orderID, model.PaymentStatusCompleted); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		if err := r.Tracking().Append(ctx, model.TrackingEvent{
			OrderID:   orderID,
			Status:    newStatus,
			Message:   trackingMessage(newStatus),
			CreatedAt: now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}

// Reject は店舗側の注文拒否。明細分の在庫と販売数を戻す。
func (u *AdminOrderUsecase) Reject(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
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

		//終端ガード。二重拒否で在庫を二重に戻さない。
		switch o.Status {
		case model.OrderStatusRejected:
			return NewHTTPError(http.StatusConflict, "already rejected")
		case model.OrderStatusDelivered:
			return NewHTTPError(http.StatusConflict, "already delivered")
		case model.OrderStatusCancelled:
			return NewHTTPError(http.StatusConflict, "already cancelled")
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

		beforeStatus := string(o.Status)

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusRejected); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Tracking().Append(ctx, model.TrackingEvent{
			OrderID:   orderID,
			Status:    model.OrderStatusRejected,
			Message:   trackingMessage(model.OrderStatusRejected),
			CreatedAt: now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（REJECT_ORDER）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + string(model.OrderStatusRejected) + `"}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionRejectOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
