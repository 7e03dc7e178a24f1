// Package storeconfig builds the {platform → store names} mapping consumed
// by dataset generation.
package storeconfig

import (
	"fmt"
	"math/rand"
	"time"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/scale"
)

// Platforms is the fixed platform enumeration, in display order.
var Platforms = []string{"天猫", "京东", "抖音", "拼多多", "快手", "小红书", "微信"}

var platformSet = func() map[string]struct{} {
	s := make(map[string]struct{}, len(Platforms))
	for _, p := range Platforms {
		s[p] = struct{}{}
	}
	return s
}()

// Config maps a platform to its ordered store display names.
type Config map[string][]string

// Store naming vocabulary, combined as prefix+platform+suffix+sequence.
var (
	namePrefixes = []string{"", "官方", "正品", "品牌", "优选"}
	nameSuffixes = []string{"旗舰店", "专卖店", "官方店", "直营店", "精品店", "体验店"}
)

// Configurator generates store configurations. The rand source is injected
// so tests can pin naming.
type Configurator struct {
	rng *rand.Rand
}

// New creates a configurator with the provided rand source. A nil rng
// falls back to a time-seeded source.
func New(rng *rand.Rand) *Configurator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Configurator{rng: rng}
}

// GenerateNames produces count store names for a platform.
func (c *Configurator) GenerateNames(platform string, count int) []string {
	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		prefix := namePrefixes[c.rng.Intn(len(namePrefixes))]
		suffix := nameSuffixes[c.rng.Intn(len(nameSuffixes))]
		names = append(names, fmt.Sprintf("%s%s%s%d号", prefix, platform, suffix, i))
	}
	return names
}

// ApplyProfile builds a fresh configuration from the scale's platform
// allocation. Destructive recompute: any prior selection is discarded, not
// merged.
func (c *Configurator) ApplyProfile(scaleName string) (Config, error) {
	profile, err := scale.Resolve(scaleName)
	if err != nil {
		return nil, err
	}

	cfg := make(Config, len(profile.PlatformAllocation))
	for _, platform := range Platforms {
		count, ok := profile.PlatformAllocation[platform]
		if !ok || count == 0 {
			continue
		}
		cfg[platform] = c.GenerateNames(platform, count)
	}
	return cfg, nil
}

// AdjustStoreCount grows or shrinks one platform's store list. Growth
// appends newly generated names; shrinking truncates from the end. The
// unaffected prefix keeps its existing names, and a no-op count change
// returns an equal configuration.
func (c *Configurator) AdjustStoreCount(cfg Config, platform string, newCount int) (Config, error) {
	if _, ok := platformSet[platform]; !ok {
		return nil, &models.ConfigurationError{Field: "platform", Reason: fmt.Sprintf("unknown platform %q", platform)}
	}
	if newCount < 0 {
		return nil, &models.ConfigurationError{Field: "count", Reason: "store count must not be negative"}
	}

	out := cfg.Clone()
	current := out[platform]
	switch {
	case newCount > len(current):
		extra := make([]string, 0, newCount-len(current))
		for i := len(current) + 1; i <= newCount; i++ {
			prefix := namePrefixes[c.rng.Intn(len(namePrefixes))]
			suffix := nameSuffixes[c.rng.Intn(len(nameSuffixes))]
			extra = append(extra, fmt.Sprintf("%s%s%s%d号", prefix, platform, suffix, i))
		}
		out[platform] = append(current, extra...)
	case newCount < len(current):
		out[platform] = current[:newCount]
	}
	if newCount == 0 {
		delete(out, platform)
	}
	return out, nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for platform, names := range c {
		out[platform] = append([]string(nil), names...)
	}
	return out
}

// TotalStores counts stores across all platforms.
func (c Config) TotalStores() int {
	total := 0
	for _, names := range c {
		total += len(names)
	}
	return total
}

// Validate checks every platform key against the fixed platform set and
// rejects empty store lists.
func (c Config) Validate() error {
	if len(c) == 0 {
		return &models.ConfigurationError{Field: "platformStores", Reason: "at least one platform is required"}
	}
	for platform, names := range c {
		if _, ok := platformSet[platform]; !ok {
			return &models.ConfigurationError{Field: "platformStores", Reason: fmt.Sprintf("unknown platform %q", platform)}
		}
		if len(names) == 0 {
			return &models.ConfigurationError{Field: "platformStores", Reason: fmt.Sprintf("platform %q has no stores", platform)}
		}
	}
	return nil
}
