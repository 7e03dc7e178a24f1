// Package scale maps business-size tiers to traffic volume and recommended
// store allocation. Pure lookup logic, no side effects.
package scale

import (
	"fmt"

	"dw-pipeline/internal/models"
)

// Business scale names, smallest to largest.
const (
	Micro      = "微型企业"
	Small      = "小型企业"
	Medium     = "中型企业"
	Large      = "大型企业"
	ExtraLarge = "超大型企业"
)

// Conversion ratios used for volume estimation. They are approximate
// generation targets with bounded variance, not exact output contracts.
const (
	ClickThroughRate = 0.03
	ConversionRate   = 0.05
	AvgOrderValue    = 50000 // cents
)

// Profile describes one business-size tier.
type Profile struct {
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	DailyTrafficPerStore int            `json:"daily_traffic_per_store"`
	VolumeMultiplier     float64        `json:"volume_multiplier"`
	MinStores            int            `json:"min_stores"`
	MaxStores            int            `json:"max_stores"`
	PlatformAllocation   map[string]int `json:"platform_allocation"`
}

var order = []string{Micro, Small, Medium, Large, ExtraLarge}

var profiles = map[string]Profile{
	Micro: {
		Name:                 Micro,
		Description:          "3-5家店铺，月GMV 10-50万",
		DailyTrafficPerStore: 500,
		VolumeMultiplier:     0.5,
		MinStores:            3,
		MaxStores:            5,
		PlatformAllocation:   map[string]int{"天猫": 2, "京东": 2, "抖音": 1},
	},
	Small: {
		Name:                 Small,
		Description:          "6-10家店铺，月GMV 50-200万",
		DailyTrafficPerStore: 1500,
		VolumeMultiplier:     1.0,
		MinStores:            6,
		MaxStores:            10,
		PlatformAllocation:   map[string]int{"天猫": 3, "京东": 3, "抖音": 2, "拼多多": 2},
	},
	Medium: {
		Name:                 Medium,
		Description:          "10-20家店铺，月GMV 200-1000万",
		DailyTrafficPerStore: 3000,
		VolumeMultiplier:     2.0,
		MinStores:            10,
		MaxStores:            20,
		PlatformAllocation:   map[string]int{"天猫": 4, "京东": 4, "抖音": 3, "拼多多": 3, "快手": 2, "小红书": 2},
	},
	Large: {
		Name:                 Large,
		Description:          "20-50家店铺，月GMV 1000-5000万",
		DailyTrafficPerStore: 8000,
		VolumeMultiplier:     5.0,
		MinStores:            20,
		MaxStores:            50,
		PlatformAllocation:   map[string]int{"天猫": 8, "京东": 8, "抖音": 6, "拼多多": 6, "快手": 4, "小红书": 4, "微信": 2},
	},
	ExtraLarge: {
		Name:                 ExtraLarge,
		Description:          "50+家店铺，月GMV 5000万+",
		DailyTrafficPerStore: 20000,
		VolumeMultiplier:     10.0,
		MinStores:            50,
		MaxStores:            100,
		PlatformAllocation:   map[string]int{"天猫": 15, "京东": 15, "抖音": 10, "拼多多": 10, "快手": 6, "小红书": 6, "微信": 4},
	},
}

// Names returns the fixed scale enumeration, smallest to largest.
func Names() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Resolve returns the profile for the given scale name.
func Resolve(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", models.ErrUnknownScale, name)
	}
	return p, nil
}

// Recommend returns the scale whose store range contains storeCount.
// Counts below the smallest range recommend 微型, above the largest 超大型.
func Recommend(storeCount int) string {
	for _, name := range order {
		p := profiles[name]
		if storeCount <= p.MaxStores {
			return name
		}
	}
	return ExtraLarge
}

// IsCompatible reports whether storeCount falls inside the named scale's
// store range. Unknown scales are incompatible with everything.
func IsCompatible(name string, storeCount int) bool {
	p, ok := profiles[name]
	if !ok {
		return false
	}
	return storeCount >= p.MinStores && storeCount <= p.MaxStores
}

// Estimate summarizes the expected dataset volume for a scale, store count
// and time span. Values are UI-facing estimates and generator sizing hints.
type Estimate struct {
	Scale            string `json:"scale"`
	StoreCount       int    `json:"store_count"`
	TimeSpanDays     int    `json:"time_span_days"`
	DailyTraffic     int64  `json:"daily_traffic"`
	TotalImpressions int64  `json:"total_impressions"`
	TotalClicks      int64  `json:"total_clicks"`
	EstimatedOrders  int64  `json:"estimated_orders"`
	EstimatedGMV     int64  `json:"estimated_gmv"`
	EstimatedUsers   int64  `json:"estimated_users"`
}

// Estimated traffic assumes one active user makes about ten visits.
const visitsPerUser = 10

// EstimateVolume computes the traffic funnel for a profile.
func EstimateVolume(name string, storeCount, timeSpanDays int) (Estimate, error) {
	p, err := Resolve(name)
	if err != nil {
		return Estimate{}, err
	}

	perStore := float64(p.DailyTrafficPerStore) * p.VolumeMultiplier
	daily := int64(perStore * float64(storeCount))
	impressions := daily * int64(timeSpanDays)
	clicks := int64(float64(impressions) * ClickThroughRate)
	orders := int64(float64(clicks) * ConversionRate)
	users := clicks / visitsPerUser
	if users < 100 {
		users = 100
	}

	return Estimate{
		Scale:            name,
		StoreCount:       storeCount,
		TimeSpanDays:     timeSpanDays,
		DailyTraffic:     daily,
		TotalImpressions: impressions,
		TotalClicks:      clicks,
		EstimatedOrders:  orders,
		EstimatedGMV:     orders * AvgOrderValue,
		EstimatedUsers:   users,
	}, nil
}
