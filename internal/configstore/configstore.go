// Package configstore persists the user-editable connection and
// generation settings on disk.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dw-pipeline/internal/models"
	"dw-pipeline/internal/scale"
	"dw-pipeline/internal/storeconfig"
)

// connectionFile keeps its legacy name and layout so existing deployments
// and hand-edited copies keep working.
const connectionFile = "数据库信息"

const generationFile = "generation_config.json"

// ConnectionInfo is the warehouse connection the user can edit on disk.
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// DefaultConnection is what a fresh install connects to.
func DefaultConnection() ConnectionInfo {
	return ConnectionInfo{
		Host:     "localhost",
		Port:     3306,
		Database: "datas",
		User:     "root",
		Password: "",
	}
}

// DSN renders the go-sql-driver connection string.
func (c ConnectionInfo) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// GenerationConfig is the persisted dataset shape.
type GenerationConfig struct {
	PlatformStores storeconfig.Config `json:"platformStores"`
	BusinessScale  string             `json:"businessScale"`
	TimeSpanDays   int                `json:"timeSpanDays"`
	MainCategory   string             `json:"mainCategory"`
	TargetOrders   int                `json:"targetOrders"`
}

// DefaultGeneration is the out-of-the-box dataset: the 小型企业 store
// allocation over a year of bicycle trade.
func DefaultGeneration() GenerationConfig {
	profile, _ := scale.Resolve(scale.Small)
	stores := make(storeconfig.Config, len(profile.PlatformAllocation))
	for _, platform := range storeconfig.Platforms {
		count := profile.PlatformAllocation[platform]
		if count == 0 {
			continue
		}
		names := make([]string, count)
		for n := range names {
			names[n] = fmt.Sprintf("%s旗舰店%d号", platform, n+1)
		}
		stores[platform] = names
	}
	return GenerationConfig{
		PlatformStores: stores,
		BusinessScale:  scale.Small,
		TimeSpanDays:   365,
		MainCategory:   "bicycle",
		TargetOrders:   20000,
	}
}

// Store reads and writes the settings under one directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// SaveConnection writes the connection file. The format is line-oriented
// key/value with a full-width colon separator.
func (s *Store) SaveConnection(info ConnectionInfo) error {
	content := fmt.Sprintf("数据库类型：mysql\n数据库地址：%s\n端口：%d\n数据库名：%s\n用户名：%s\n密码：%s\n",
		info.Host, info.Port, info.Database, info.User, info.Password)
	path := filepath.Join(s.dir, connectionFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write connection file: %w", err)
	}
	return nil
}

// LoadConnection reads the connection file. A missing file yields the
// defaults; a malformed line is a configuration error, not a guess.
func (s *Store) LoadConnection() (ConnectionInfo, error) {
	path := filepath.Join(s.dir, connectionFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConnection(), nil
	}
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to read connection file: %w", err)
	}

	info := DefaultConnection()
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "：") {
			continue
		}
		parts := strings.SplitN(line, "：", 2)
		key, value := parts[0], strings.TrimSpace(parts[1])
		switch {
		case strings.Contains(key, "数据库地址"):
			info.Host = value
		case strings.Contains(key, "端口"):
			port, err := strconv.Atoi(value)
			if err != nil {
				return ConnectionInfo{}, &models.ConfigurationError{
					Field: "端口", Reason: "not a number: " + value}
			}
			info.Port = port
		case strings.Contains(key, "数据库名"):
			info.Database = value
		case strings.Contains(key, "用户名"):
			info.User = value
		case strings.Contains(key, "密码"):
			info.Password = value
		}
	}
	return info, nil
}

// SaveGeneration persists the dataset configuration.
func (s *Store) SaveGeneration(cfg GenerationConfig) error {
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal generation config: %w", err)
	}
	path := filepath.Join(s.dir, generationFile)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write generation config: %w", err)
	}
	return nil
}

// LoadGeneration reads the dataset configuration, defaulting when absent.
func (s *Store) LoadGeneration() (GenerationConfig, error) {
	path := filepath.Join(s.dir, generationFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultGeneration(), nil
	}
	if err != nil {
		return GenerationConfig{}, fmt.Errorf("failed to read generation config: %w", err)
	}

	var cfg GenerationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return GenerationConfig{}, fmt.Errorf("failed to parse generation config: %w", err)
	}
	return cfg, nil
}
