package storeconfig

import (
	"math/rand"
	"testing"

	"dw-pipeline/internal/scale"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigurator() *Configurator {
	return New(rand.New(rand.NewSource(1)))
}

func TestApplyProfileMatchesAllocation(t *testing.T) {
	c := newTestConfigurator()

	for _, name := range scale.Names() {
		profile, err := scale.Resolve(name)
		require.NoError(t, err)

		cfg, err := c.ApplyProfile(name)
		require.NoError(t, err)

		for platform, want := range profile.PlatformAllocation {
			assert.Len(t, cfg[platform], want, "scale %s platform %s", name, platform)
		}
		assert.Len(t, cfg, len(profile.PlatformAllocation))
		assert.NoError(t, cfg.Validate())
	}
}

func TestApplyProfileIsDestructiveRecompute(t *testing.T) {
	c := newTestConfigurator()

	first, err := c.ApplyProfile(scale.Small)
	require.NoError(t, err)
	second, err := c.ApplyProfile(scale.Small)
	require.NoError(t, err)

	// Names may differ between applications but platform sets and per
	// platform counts must match the allocation exactly.
	require.Len(t, second, len(first))
	for platform, names := range first {
		assert.Len(t, second[platform], len(names), "platform %s", platform)
	}
}

func TestApplyProfileUnknownScale(t *testing.T) {
	c := newTestConfigurator()
	_, err := c.ApplyProfile("不存在")
	assert.Error(t, err)
}

func TestAdjustStoreCountGrow(t *testing.T) {
	c := newTestConfigurator()
	cfg, err := c.ApplyProfile(scale.Micro)
	require.NoError(t, err)

	before := append([]string(nil), cfg["天猫"]...)
	grown, err := c.AdjustStoreCount(cfg, "天猫", len(before)+2)
	require.NoError(t, err)

	require.Len(t, grown["天猫"], len(before)+2)
	assert.Equal(t, before, grown["天猫"][:len(before)], "existing prefix must be preserved")

	// The input configuration must not be mutated.
	assert.Equal(t, before, cfg["天猫"])
}

func TestAdjustStoreCountShrink(t *testing.T) {
	c := newTestConfigurator()
	cfg, err := c.ApplyProfile(scale.Small)
	require.NoError(t, err)

	before := append([]string(nil), cfg["京东"]...)
	shrunk, err := c.AdjustStoreCount(cfg, "京东", 1)
	require.NoError(t, err)

	require.Len(t, shrunk["京东"], 1)
	assert.Equal(t, before[0], shrunk["京东"][0])
}

func TestAdjustStoreCountNoopIsIdempotent(t *testing.T) {
	c := newTestConfigurator()
	cfg, err := c.ApplyProfile(scale.Small)
	require.NoError(t, err)

	same, err := c.AdjustStoreCount(cfg, "抖音", len(cfg["抖音"]))
	require.NoError(t, err)
	assert.Equal(t, cfg, same)
}

func TestAdjustStoreCountUnknownPlatform(t *testing.T) {
	c := newTestConfigurator()
	cfg, err := c.ApplyProfile(scale.Small)
	require.NoError(t, err)

	_, err = c.AdjustStoreCount(cfg, "亚马逊", 3)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	cfg := Config{"火星商城": {"店1"}}
	assert.Error(t, cfg.Validate())

	empty := Config{}
	assert.Error(t, empty.Validate())

	ok := Config{"天猫": {"官方天猫旗舰店1号"}}
	assert.NoError(t, ok.Validate())
}

func TestGenerateNamesSequential(t *testing.T) {
	c := newTestConfigurator()
	names := c.GenerateNames("京东", 4)
	require.Len(t, names, 4)
	for i, name := range names {
		assert.Contains(t, name, "京东")
		assert.Contains(t, name, "号")
		for j := i + 1; j < len(names); j++ {
			assert.NotEqual(t, name, names[j])
		}
	}
}
