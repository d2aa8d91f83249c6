package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// 包邮推断阈值
const (
	// FreeShippingStandardMinOrder 名称含 standard 且最低订单金额达到该值视为包邮
	FreeShippingStandardMinOrder = 100
	// FreeShippingInternationalMinWeight 名称含 international 且最低重量达到该值视为包邮
	FreeShippingInternationalMinWeight = 20
)

// 条件字段
const (
	ConditionFieldTotalPrice  = "TOTAL_PRICE"
	ConditionFieldWeight      = "WEIGHT"
	ConditionFieldTotalWeight = "TOTAL_WEIGHT"
)

// PricedRate 定价后的运费方式
type PricedRate struct {
	Price          decimal.Decimal
	MinOrderAmount decimal.NullDecimal
	MaxOrderAmount decimal.NullDecimal
	MinWeight      decimal.NullDecimal
	FreeShipping   bool
}

// ShippingRulePolicy 由上游运费方式推断最终价格和门槛
type ShippingRulePolicy interface {
	Price(rate shopify.ParsedRate) PricedRate
}

// DefaultShippingRulePolicy 按名称 + 门槛推断包邮
// Shopify 没有统一的包邮标记，只能近似判断
type DefaultShippingRulePolicy struct {
	StandardMinOrder       decimal.Decimal
	InternationalMinWeight decimal.Decimal
}

var _ ShippingRulePolicy = (*DefaultShippingRulePolicy)(nil)

func NewDefaultShippingRulePolicy() *DefaultShippingRulePolicy {
	return &DefaultShippingRulePolicy{
		StandardMinOrder:       decimal.NewFromInt(FreeShippingStandardMinOrder),
		InternationalMinWeight: decimal.NewFromInt(FreeShippingInternationalMinWeight),
	}
}

func (p *DefaultShippingRulePolicy) Price(rate shopify.ParsedRate) PricedRate {
	var out PricedRate
	if rate.ProviderPrice != nil {
		out.Price = *rate.ProviderPrice
	}

	for _, cond := range rate.Conditions {
		switch cond.Field {
		case ConditionFieldTotalPrice:
			switch {
			case isGTE(cond.Operator):
				out.MinOrderAmount = decimal.NewNullDecimal(cond.Value)
			case isLTE(cond.Operator):
				out.MaxOrderAmount = decimal.NewNullDecimal(cond.Value)
			}
		case ConditionFieldWeight, ConditionFieldTotalWeight:
			if isGTE(cond.Operator) {
				out.MinWeight = decimal.NewNullDecimal(cond.Value)
			}
		}
	}

	if p.isFreeShipping(rate.Name, out) {
		out.FreeShipping = true
		out.Price = decimal.Zero
	}
	return out
}

func (p *DefaultShippingRulePolicy) isFreeShipping(name string, r PricedRate) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "free"):
		return true
	case r.MinOrderAmount.Valid && r.MinOrderAmount.Decimal.GreaterThanOrEqual(p.StandardMinOrder) &&
		strings.Contains(lower, "standard"):
		return true
	case r.MinWeight.Valid && r.MinWeight.Decimal.GreaterThanOrEqual(p.InternationalMinWeight) &&
		strings.Contains(lower, "international"):
		return true
	}
	return false
}

func isGTE(op string) bool {
	return op == ">=" || strings.EqualFold(op, "GREATER_THAN_OR_EQUAL_TO")
}

func isLTE(op string) bool {
	return op == "<=" || strings.EqualFold(op, "LESS_THAN_OR_EQUAL_TO")
}
