package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// 1商品あたりの数量上限（同じ商品の行をまとめた後の合計にもかかる）
const MaxLineQuantity int64 = 10000

type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// 1行分の計算結果（注文明細のスナップショットになる）
type PricedLine struct {
	ProductID    int64
	SKU          string
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int64
	LineSubtotal decimal.Decimal
	LineDiscount decimal.Decimal
	LineTotal    decimal.Decimal
}

type PricingResult struct {
	Lines      []PricedLine
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
}

// 価格計算。読むだけで何も書き込まない
type PricingEngine struct {
	products repo.ProductRepository
	coupons  repo.CouponRepository
	clock    Clock
}

func NewPricingEngine(products repo.ProductRepository, coupons repo.CouponRepository, clock Clock) *PricingEngine {
	return &PricingEngine{products: products, coupons: coupons, clock: clock}
}

func (e *PricingEngine) Price(ctx context.Context, lines []CartLine, couponCode string) (PricingResult, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return PricingResult{}, err
	}

	ids := make([]int64, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
	}

	//単価は必ずカタログから読む（クライアントの値は使わない）
	products, err := e.products.FindByIDs(ctx, ids)
	if err != nil {
		return PricingResult{}, fmt.Errorf("load products: %w", err)
	}

	res := PricingResult{
		Lines:    make([]PricedLine, 0, len(merged)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, l := range merged {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return PricingResult{}, &PricingError{Code: PricingProductUnavailable, ProductID: l.ProductID}
		}

		//行ごとに丸めてから合計
		lineSubtotal := p.Price.Mul(decimal.NewFromInt(l.Quantity)).Round(2)
		res.Lines = append(res.Lines, PricedLine{
			ProductID:    p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			UnitPrice:    p.Price,
			Quantity:     l.Quantity,
			LineSubtotal: lineSubtotal,
			LineDiscount: decimal.Zero,
			LineTotal:    lineSubtotal,
		})
		res.Subtotal = res.Subtotal.Add(lineSubtotal)
	}

	code := strings.TrimSpace(couponCode)
	if code != "" {
		c, err := e.coupons.FindByCode(ctx, code)
		if errors.Is(err, repo.ErrNotFound) {
			return PricingResult{}, &PricingError{Code: PricingCouponNotFound}
		}
		if err != nil {
			return PricingResult{}, fmt.Errorf("load coupon: %w", err)
		}

		discount, err := CouponDiscount(c, res.Subtotal, e.clock.Now())
		if err != nil {
			return PricingResult{}, err
		}
		res.Discount = discount
		res.CouponCode = c.Code
		allocateDiscount(res.Lines, res.Subtotal, discount)
	}

	res.Total = res.Subtotal.Sub(res.Discount)
	if res.Total.IsNegative() {
		res.Total = decimal.Zero
	}
	return res, nil
}

// クーポンの割引額。0以上、小計以下
func CouponDiscount(c model.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return decimal.Zero, &PricingError{Code: PricingCouponExpired}
	}
	if !c.IsActive {
		return decimal.Zero, &PricingError{Code: PricingCouponInactive}
	}
	if c.MinSubtotal != nil && subtotal.LessThan(*c.MinSubtotal) {
		return decimal.Zero, &PricingError{Code: PricingCouponThresholdNotMet}
	}

	var discount decimal.Decimal
	switch c.Type {
	case model.CouponTypeFixed:
		discount = c.Value.Round(2)
	case model.CouponTypePercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	default:
		//種類が不明なクーポンは使えない扱い
		return decimal.Zero, &PricingError{Code: PricingCouponInactive}
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}

// 同じ商品の行をまとめ、商品ID昇順に並べる
func mergeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, &PricingError{Code: PricingEmptyCart}
	}

	qty := make(map[int64]int64, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return nil, &PricingError{Code: PricingProductUnavailable, ProductID: l.ProductID}
		}
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return nil, &PricingError{Code: PricingInvalidQuantity, ProductID: l.ProductID}
		}
		//合計も上限内に収める（足し算であふれさせない）
		if qty[l.ProductID] > MaxLineQuantity-l.Quantity {
			return nil, &PricingError{Code: PricingInvalidQuantity, ProductID: l.ProductID}
		}
		qty[l.ProductID] += l.Quantity
	}

	out := make([]CartLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, CartLine{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// 割引を行の金額比で配る。行の割引の合計は必ず割引額と一致する
func allocateDiscount(lines []PricedLine, subtotal, discount decimal.Decimal) {
	if !discount.IsPositive() || !subtotal.IsPositive() {
		return
	}

	allocated := decimal.Zero
	for i := range lines {
		share := discount.Mul(lines[i].LineSubtotal).Div(subtotal).Truncate(2)
		if share.GreaterThan(lines[i].LineSubtotal) {
			share = lines[i].LineSubtotal
		}
		lines[i].LineDiscount = share
		allocated = allocated.Add(share)
	}

	//端数は金額の大きい行から1セントずつ
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lines[order[a]].LineSubtotal.GreaterThan(lines[order[b]].LineSubtotal)
	})

	residual := discount.Sub(allocated)
	for residual.IsPositive() {
		moved := false
		for _, i := range order {
			if !residual.IsPositive() {
				break
			}
			if lines[i].LineDiscount.Add(cent).GreaterThan(lines[i].LineSubtotal) {
				continue
			}
			lines[i].LineDiscount = lines[i].LineDiscount.Add(cent)
			residual = residual.Sub(cent)
			moved = true
		}
		if !moved {
			break
		}
	}

	for i := range lines {
		lines[i].LineTotal = lines[i].LineSubtotal.Sub(lines[i].LineDiscount)
	}
}
