package repository

import (
	"app/internal/domain/model"
	"context"
)

// 在庫の増減。全て単一UPDATEの原子操作。
// アプリ側でstockを読んでから書き戻すことは絶対にしない（同時購入で過剰販売になる）。
type InventoryRepository interface {
	// 在庫が足りるときだけ stock -= qty, num_sales += qty をまとめて行う。
	// 足りなければfalse（行更新なし）。
	SellStock(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル/拒否の補償）。stock += qty, num_sales -= qty。
	RestoreStock(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値を設定（管理者の手動調整）
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
