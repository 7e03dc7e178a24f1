package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"dw-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	in := ConnectionInfo{
		Host:     "db.internal",
		Port:     3307,
		Database: "warehouse",
		User:     "etl",
		Password: "s3cret",
	}
	require.NoError(t, s.SaveConnection(in))

	out, err := s.LoadConnection()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestConnectionFileUsesFullWidthColons(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.SaveConnection(DefaultConnection()))

	raw, err := os.ReadFile(filepath.Join(dir, "数据库信息"))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "数据库类型：mysql")
	assert.Contains(t, content, "数据库地址：localhost")
	assert.Contains(t, content, "端口：3306")
	assert.Contains(t, content, "数据库名：datas")
	assert.Contains(t, content, "用户名：root")
	assert.Contains(t, content, "密码：")
	assert.NotContains(t, content, "host:")
}

func TestLoadConnectionMissingFileReturnsDefaults(t *testing.T) {
	s := New(t.TempDir())
	info, err := s.LoadConnection()
	require.NoError(t, err)
	assert.Equal(t, DefaultConnection(), info)
}

func TestLoadConnectionEmptyPassword(t *testing.T) {
	s := New(t.TempDir())
	in := DefaultConnection()
	in.Password = ""
	require.NoError(t, s.SaveConnection(in))

	out, err := s.LoadConnection()
	require.NoError(t, err)
	assert.Empty(t, out.Password)
}

func TestLoadConnectionBadPort(t *testing.T) {
	dir := t.TempDir()
	content := "数据库类型：mysql\n数据库地址：localhost\n端口：abc\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "数据库信息"), []byte(content), 0o644))

	_, err := New(dir).LoadConnection()
	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "端口", cfgErr.Field)
}

func TestDSN(t *testing.T) {
	info := DefaultConnection()
	assert.Equal(t,
		"root:@tcp(localhost:3306)/datas?parseTime=true&charset=utf8mb4",
		info.DSN())
}

func TestGenerationRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	cfg := DefaultGeneration()
	cfg.TargetOrders = 5000
	require.NoError(t, s.SaveGeneration(cfg))

	out, err := s.LoadGeneration()
	require.NoError(t, err)
	assert.Equal(t, cfg, out)
}

func TestDefaultGenerationShape(t *testing.T) {
	cfg := DefaultGeneration()
	assert.Equal(t, 10, cfg.PlatformStores.TotalStores())
	assert.Equal(t, "小型企业", cfg.BusinessScale)
	assert.Equal(t, 365, cfg.TimeSpanDays)
	assert.Equal(t, "bicycle", cfg.MainCategory)
	assert.Equal(t, 20000, cfg.TargetOrders)
}

func TestLoadGenerationMissingFileReturnsDefaults(t *testing.T) {
	s := New(t.TempDir())
	cfg, err := s.LoadGeneration()
	require.NoError(t, err)
	assert.Equal(t, DefaultGeneration(), cfg)
}
