package shopify

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ==========================================
// DTO: 接收 Shopify Admin API 返回的原始 JSON
// ==========================================

// Money Shopify MoneyV2，amount 为字符串形式的小数
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// DeliverySettingsData deliverySettings 查询结果
type DeliverySettingsData struct {
	DeliverySettings *struct {
		LegacyModeProfiles bool `json:"legacyModeProfiles"`
	} `json:"deliverySettings"`
}

// DeliveryProfilesData deliveryProfiles 查询结果
type DeliveryProfilesData struct {
	DeliveryProfiles struct {
		Edges []struct {
			Node *DeliveryProfile `json:"node"`
		} `json:"edges"`
	} `json:"deliveryProfiles"`
}

// DeliveryProfile 运费配置组
type DeliveryProfile struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Default               bool                   `json:"default"`
	ProfileLocationGroups []ProfileLocationGroup `json:"profileLocationGroups"`

	// DecodeErr 本节点结构不合法时的解码错误，解析时整个 profile 被跳过
	DecodeErr error `json:"-"`
}

// UnmarshalJSON 解码失败不向上返回，只记在 DecodeErr 上
func (d *DeliveryProfile) UnmarshalJSON(b []byte) error {
	type alias DeliveryProfile
	if err := json.Unmarshal(b, (*alias)(d)); err != nil {
		d.DecodeErr = err
	}
	return nil
}

// ProfileLocationGroup 发货地点组
type ProfileLocationGroup struct {
	LocationGroup *struct {
		ID string `json:"id"`
	} `json:"locationGroup"`
	LocationGroupZones *struct {
		Edges []LocationGroupZoneEdge `json:"edges"`
	} `json:"locationGroupZones"`
}

// LocationGroupZoneEdge 可能缺失 node 或 zone
type LocationGroupZoneEdge struct {
	Node *LocationGroupZone `json:"node"`
}

// LocationGroupZone 区域 + 该区域下的运费方式
type LocationGroupZone struct {
	Zone              *DeliveryZone `json:"zone"`
	MethodDefinitions *struct {
		Edges []struct {
			Node *MethodDefinition `json:"node"`
		} `json:"edges"`
	} `json:"methodDefinitions"`

	DecodeErr error `json:"-"`
}

func (z *LocationGroupZone) UnmarshalJSON(b []byte) error {
	type alias LocationGroupZone
	if err := json.Unmarshal(b, (*alias)(z)); err != nil {
		z.DecodeErr = err
	}
	return nil
}

// DeliveryZone 配送区域
type DeliveryZone struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Countries []DeliveryCountry `json:"countries"`
}

// DeliveryCountry 国家，code.countryCode 为 null 时可能是 "rest of world"
type DeliveryCountry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code *struct {
		CountryCode *string `json:"countryCode"`
		RestOfWorld bool    `json:"restOfWorld"`
	} `json:"code"`
	Provinces []DeliveryProvince `json:"provinces"`
}

// DeliveryProvince 省/州
type DeliveryProvince struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// MethodDefinition 一条运费方式
// RateProvider / MethodConditions 由 UnmarshalJSON 按 __typename 解码
type MethodDefinition struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Active           bool              `json:"active"`
	Description      string            `json:"description"`
	RateProvider     RateProvider      `json:"-"`
	MethodConditions []MethodCondition `json:"-"`

	// RawConditions 原样保留 methodConditions，入库到 shipping_rates.conditions
	RawConditions json.RawMessage `json:"-"`

	// DecodeErr 非空时该运费方式被跳过
	DecodeErr error `json:"-"`
}

// UnmarshalJSON 按 __typename 解码 rateProvider / methodConditions
// 任何解码失败都只记录在 DecodeErr 上，不影响同一响应里的其他节点
func (m *MethodDefinition) UnmarshalJSON(b []byte) error {
	m.DecodeErr = m.decode(b)
	return nil
}

func (m *MethodDefinition) decode(b []byte) error {
	type alias MethodDefinition
	aux := struct {
		*alias
		RateProvider     json.RawMessage `json:"rateProvider"`
		MethodConditions json.RawMessage `json:"methodConditions"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	provider, err := decodeRateProvider(aux.RateProvider)
	if err != nil {
		return fmt.Errorf("rateProvider 解析失败: %w", err)
	}
	m.RateProvider = provider

	if isNull(aux.MethodConditions) {
		m.RawConditions = json.RawMessage("[]")
		return nil
	}
	m.RawConditions = aux.MethodConditions
	if err := json.Unmarshal(aux.MethodConditions, &m.MethodConditions); err != nil {
		m.MethodConditions = nil
		return fmt.Errorf("methodConditions 解析失败: %w", err)
	}
	return nil
}

// ==================== RateProvider 变体 ====================

// RateProvider 运费来源：固定价格 或 第三方承运商
type RateProvider interface {
	rateProvider()
}

// RateDefinition DeliveryRateDefinition，固定价格
type RateDefinition struct {
	ID    string `json:"id"`
	Price *Money `json:"price"`
}

// RateParticipant DeliveryParticipant，承运商实时运费
type RateParticipant struct {
	ID                  string  `json:"id"`
	FixedFee            *Money  `json:"fixedFee"`
	PercentageOfRateFee float64 `json:"percentageOfRateFee"`
}

// UnknownRateProvider 无法识别的 __typename
type UnknownRateProvider struct {
	TypeName string
}

func (RateDefinition) rateProvider()      {}
func (RateParticipant) rateProvider()     {}
func (UnknownRateProvider) rateProvider() {}

func decodeRateProvider(raw json.RawMessage) (RateProvider, error) {
	if isNull(raw) {
		return nil, nil
	}

	var head struct {
		TypeName string           `json:"__typename"`
		Price    *json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch {
	case head.TypeName == "DeliveryRateDefinition" || (head.TypeName == "" && head.Price != nil):
		var def RateDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, err
		}
		return def, nil
	case head.TypeName == "DeliveryParticipant":
		var p RateParticipant
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return UnknownRateProvider{TypeName: head.TypeName}, nil
	}
}

// ==================== MethodCondition ====================

// MethodCondition 运费方式的适用条件
type MethodCondition struct {
	ID       string            `json:"id"`
	Field    string            `json:"field"`
	Operator string            `json:"operator"`
	Criteria ConditionCriteria `json:"-"`

	// DecodeErr 非空时该条件被跳过
	DecodeErr error `json:"-"`
}

func (c *MethodCondition) UnmarshalJSON(b []byte) error {
	type alias MethodCondition
	aux := struct {
		*alias
		Criteria json.RawMessage `json:"conditionCriteria"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(b, &aux); err != nil {
		c.DecodeErr = err
		return nil
	}

	criteria, err := decodeCriteria(aux.Criteria)
	if err != nil {
		c.DecodeErr = fmt.Errorf("conditionCriteria 解析失败: %w", err)
		return nil
	}
	c.Criteria = criteria
	return nil
}

// ConditionCriteria 条件阈值：金额 或 重量
type ConditionCriteria interface {
	conditionCriteria()
}

// MoneyCriteria MoneyV2 阈值
type MoneyCriteria struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// WeightCriteria Weight 阈值
type WeightCriteria struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// UnknownCriteria 无法识别的阈值类型
type UnknownCriteria struct {
	TypeName string
}

func (MoneyCriteria) conditionCriteria()   {}
func (WeightCriteria) conditionCriteria()  {}
func (UnknownCriteria) conditionCriteria() {}

func decodeCriteria(raw json.RawMessage) (ConditionCriteria, error) {
	if isNull(raw) {
		return nil, nil
	}

	var head struct {
		TypeName string           `json:"__typename"`
		Amount   *json.RawMessage `json:"amount"`
		Value    *json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch {
	case head.TypeName == "MoneyV2" || (head.TypeName == "" && head.Amount != nil):
		var m MoneyCriteria
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case head.TypeName == "Weight" || (head.TypeName == "" && head.Value != nil):
		var w WeightCriteria
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return w, nil
	default:
		return UnknownCriteria{TypeName: head.TypeName}, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// ==================== REST 资源 ====================

// Product REST products.json 中的商品（仅列表同步需要的字段）
type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"product_type"`
	Status      string `json:"status"`
	UpdatedAt   string `json:"updated_at"`
}

// Webhook REST webhooks.json 中的订阅
type Webhook struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	Address   string `json:"address"`
	Format    string `json:"format"`
	CreatedAt string `json:"created_at,omitempty"`
}
