package shopify

// DeliverySettingsQuery 检查店铺是否仍处于 legacy 运费模式
const DeliverySettingsQuery = `query DeliverySettings {
  deliverySettings {
    legacyModeProfiles
  }
}`

// DeliveryProfilesQuery 拉取运费配置组 -> 地点组 -> 区域 -> 运费方式 -> 条件
const DeliveryProfilesQuery = `query DeliveryProfiles {
  deliveryProfiles(first: 50) {
    edges {
      node {
        id
        name
        default
        profileLocationGroups {
          locationGroup { id }
          locationGroupZones(first: 100) {
            edges {
              node {
                zone {
                  id
                  name
                  countries {
                    id
                    name
                    code { countryCode restOfWorld }
                    provinces { id name code }
                  }
                }
                methodDefinitions(first: 100) {
                  edges {
                    node {
                      id
                      name
                      active
                      description
                      rateProvider {
                        __typename
                        ... on DeliveryRateDefinition {
                          id
                          price { amount currencyCode }
                        }
                        ... on DeliveryParticipant {
                          id
                          fixedFee { amount currencyCode }
                          percentageOfRateFee
                        }
                      }
                      methodConditions {
                        id
                        field
                        operator
                        conditionCriteria {
                          __typename
                          ... on MoneyV2 { amount currencyCode }
                          ... on Weight { unit value }
                        }
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`
