package shopify

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RestOfWorldCode "其他所有国家" 区域的国家代码占位
const RestOfWorldCode = "REST_OF_WORLD"

// 跳过节点的层级
const (
	SkipLevelProfile       = "profile"
	SkipLevelLocationGroup = "location_group"
	SkipLevelZone          = "zone"
	SkipLevelMethod        = "method_definition"
	SkipLevelCondition     = "condition"
)

// SkipReason 解析过程中被跳过的节点
type SkipReason struct {
	Level  string `json:"level"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// ParsedZone 扁平化后的区域
type ParsedZone struct {
	ProfileID   string
	ProfileName string
	ExternalID  string
	Name        string
	Countries   []string
	Provinces   []string
	Rates       []ParsedRate
}

// ParsedRate 扁平化后的运费方式（未定价）
type ParsedRate struct {
	ExternalID    string
	Name          string
	ProviderPrice *decimal.Decimal // 上游未声明金额时为 nil
	CurrencyCode  string
	Conditions    []ParsedCondition
	RawConditions json.RawMessage
}

// 条件阈值类型
const (
	CriteriaMoney  = "money"
	CriteriaWeight = "weight"
)

// ParsedCondition 归一化的条件
type ParsedCondition struct {
	Field    string          // TOTAL_PRICE / TOTAL_WEIGHT
	Operator string          // GREATER_THAN_OR_EQUAL_TO / LESS_THAN_OR_EQUAL_TO / >= / <=
	Kind     string          // money / weight
	Value    decimal.Decimal // 金额或重量
	Unit     string          // 币种或重量单位
}

// ParseDeliveryProfiles 深度优先遍历 profiles -> location groups -> zones -> method definitions -> conditions
// 结构缺失的子树被跳过并记录原因，不会中断整体解析；输出顺序不保证稳定
func ParseDeliveryProfiles(data *DeliveryProfilesData, logger *zap.Logger) ([]ParsedZone, []SkipReason) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &graphParser{logger: logger}
	if data == nil {
		return nil, nil
	}

	for _, edge := range data.DeliveryProfiles.Edges {
		if edge.Node == nil {
			p.skip(SkipLevelProfile, "", "profile edge 缺少 node")
			continue
		}
		p.walkProfile(edge.Node)
	}
	return p.zones, p.skips
}

type graphParser struct {
	logger *zap.Logger
	zones  []ParsedZone
	skips  []SkipReason
}

func (p *graphParser) skip(level, id, reason string) {
	p.skips = append(p.skips, SkipReason{Level: level, ID: id, Reason: reason})
	p.logger.Warn("[DeliveryParser] 跳过节点",
		zap.String("level", level),
		zap.String("id", id),
		zap.String("reason", reason),
	)
}

func (p *graphParser) walkProfile(profile *DeliveryProfile) {
	if profile.DecodeErr != nil {
		p.skip(SkipLevelProfile, profile.ID, "profile 解析失败: "+profile.DecodeErr.Error())
		return
	}
	if len(profile.ProfileLocationGroups) == 0 {
		p.skip(SkipLevelProfile, profile.ID, "profile 没有 location groups")
		return
	}

	for i := range profile.ProfileLocationGroups {
		group := &profile.ProfileLocationGroups[i]
		groupID := ""
		if group.LocationGroup != nil {
			groupID = group.LocationGroup.ID
		}

		if group.LocationGroupZones == nil || len(group.LocationGroupZones.Edges) == 0 {
			p.skip(SkipLevelLocationGroup, groupID, "location group 没有 zone edges")
			continue
		}

		for _, zoneEdge := range group.LocationGroupZones.Edges {
			if zoneEdge.Node == nil || zoneEdge.Node.Zone == nil {
				p.skip(SkipLevelZone, groupID, "zone edge 缺少 zone")
				continue
			}
			if zoneEdge.Node.DecodeErr != nil {
				p.skip(SkipLevelZone, zoneEdge.Node.Zone.ID, "zone 解析失败: "+zoneEdge.Node.DecodeErr.Error())
				continue
			}
			// 空 id 会让同一品牌下的多个区域落到同一行
			if zoneEdge.Node.Zone.ID == "" {
				p.skip(SkipLevelZone, groupID, "zone 缺少 id")
				continue
			}
			zone := p.walkZone(zoneEdge.Node)
			zone.ProfileID = profile.ID
			zone.ProfileName = profile.Name
			p.zones = append(p.zones, zone)
		}
	}
}

func (p *graphParser) walkZone(lgz *LocationGroupZone) ParsedZone {
	zone := ParsedZone{
		ExternalID: lgz.Zone.ID,
		Name:       lgz.Zone.Name,
		Countries:  make([]string, 0, len(lgz.Zone.Countries)),
		Provinces:  []string{},
	}

	for _, country := range lgz.Zone.Countries {
		if country.Code != nil {
			switch {
			case country.Code.CountryCode != nil && *country.Code.CountryCode != "":
				zone.Countries = append(zone.Countries, *country.Code.CountryCode)
			case country.Code.RestOfWorld:
				zone.Countries = append(zone.Countries, RestOfWorldCode)
			}
		}
		// 省份不去重
		for _, province := range country.Provinces {
			if province.Code != "" {
				zone.Provinces = append(zone.Provinces, province.Code)
			}
		}
	}

	if lgz.MethodDefinitions == nil {
		return zone
	}
	for _, edge := range lgz.MethodDefinitions.Edges {
		if rate, ok := p.walkMethod(zone.ExternalID, edge.Node); ok {
			zone.Rates = append(zone.Rates, rate)
		}
	}
	return zone
}

func (p *graphParser) walkMethod(zoneID string, md *MethodDefinition) (ParsedRate, bool) {
	switch {
	case md == nil:
		p.skip(SkipLevelMethod, zoneID, "method definition edge 缺少 node")
		return ParsedRate{}, false
	case md.ID == "":
		p.skip(SkipLevelMethod, zoneID, "method definition 缺少 id")
		return ParsedRate{}, false
	case md.DecodeErr != nil:
		p.skip(SkipLevelMethod, md.ID, "method definition 解析失败: "+md.DecodeErr.Error())
		return ParsedRate{}, false
	case !md.Active:
		p.skip(SkipLevelMethod, md.ID, "method definition 未启用")
		return ParsedRate{}, false
	}

	rate := ParsedRate{
		ExternalID:    md.ID,
		Name:          md.Name,
		RawConditions: md.RawConditions,
	}

	switch provider := md.RateProvider.(type) {
	case RateDefinition:
		if provider.Price != nil {
			amount := provider.Price.Amount
			rate.ProviderPrice = &amount
			rate.CurrencyCode = provider.Price.CurrencyCode
		}
	case RateParticipant:
		if provider.FixedFee != nil {
			amount := provider.FixedFee.Amount
			rate.ProviderPrice = &amount
			rate.CurrencyCode = provider.FixedFee.CurrencyCode
		}
	case UnknownRateProvider:
		p.logger.Debug("[DeliveryParser] 未知 rateProvider 类型",
			zap.String("method_id", md.ID), zap.String("typename", provider.TypeName))
	case nil:
	}

	for _, cond := range md.MethodConditions {
		parsed, ok := p.walkCondition(md.ID, cond)
		if ok {
			rate.Conditions = append(rate.Conditions, parsed)
		}
	}
	return rate, true
}

func (p *graphParser) walkCondition(methodID string, cond MethodCondition) (ParsedCondition, bool) {
	if cond.DecodeErr != nil {
		p.skip(SkipLevelCondition, methodID, "condition 解析失败: "+cond.DecodeErr.Error())
		return ParsedCondition{}, false
	}

	parsed := ParsedCondition{
		Field:    strings.ToUpper(cond.Field),
		Operator: cond.Operator,
	}

	switch criteria := cond.Criteria.(type) {
	case MoneyCriteria:
		parsed.Kind = CriteriaMoney
		parsed.Value = criteria.Amount
		parsed.Unit = criteria.CurrencyCode
	case WeightCriteria:
		parsed.Kind = CriteriaWeight
		parsed.Value = criteria.Value
		parsed.Unit = criteria.Unit
	case UnknownCriteria:
		p.skip(SkipLevelCondition, methodID, "未知 conditionCriteria 类型: "+criteria.TypeName)
		return ParsedCondition{}, false
	case nil:
		p.skip(SkipLevelCondition, methodID, "condition 缺少 conditionCriteria")
		return ParsedCondition{}, false
	}
	return parsed, true
}
