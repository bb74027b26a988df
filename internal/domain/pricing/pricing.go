package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice は販売時点の実効単価を計算する純関数。
// 割引が設定されていて、期限が無い（永続）か期限がnowより後なら割引後価格。
// 期限切れの割引は黙って基本価格に戻す（エラーではなくポリシー）。
// priceは必ずサーバー側で読んだ値を渡すこと。クライアント申告価格は渡さない。
func EffectiveUnitPrice(price decimal.Decimal, discount int, discountExpiry *time.Time, now time.Time) decimal.Decimal {
	if discount <= 0 {
		return price
	}
	if discountExpiry != nil && !discountExpiry.After(now) {
		return price
	}

	rate := decimal.NewFromInt(int64(100 - discount)).Div(hundred)
	return price.Mul(rate).Round(2)
}
