package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sheetmerge/internal/parser"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig  `toml:"server"`
	Data     DataConfig    `toml:"data"`
	Merge    MergeConfig   `toml:"merge"`
	Keywords KeywordConfig `toml:"keywords"`
	Rules    RulesConfig   `toml:"rules"`
	Log      LogConfig     `toml:"log"`
	Journal  JournalConfig `toml:"journal"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	MaxUploadMB int  `toml:"max_upload_mb"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// MergeConfig 合并引擎配置
type MergeConfig struct {
	PreviewLimit      int    `toml:"preview_limit"`
	ValidationLevel   string `toml:"validation_level"`
	Strategy          string `toml:"strategy"`
	HeaderMatch       string `toml:"header_match"`
	Workers           int    `toml:"workers"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// KeywordConfig 关键词配置，未设置的列表使用内置默认值
type KeywordConfig struct {
	Anchors       []string `toml:"anchors"`
	Keys          []string `toml:"keys"`
	Excludes      []string `toml:"excludes"`
	Totals        []string `toml:"totals"`
	MinHits       int      `toml:"min_hits"`
	SerialKeys    []string `toml:"serial_keys"`
	Instructions  []string `toml:"instructions"`
	SerialHeaders []string `toml:"serial_headers"`
	FixedValues   []string `toml:"fixed_values"`
}

// RulesConfig 模板规则文件，Watch 为 true 时服务模式下文件变化自动重新加载
type RulesConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// JournalConfig 合并日志配置，Path 为空时放在数据目录下
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			DevMode:     false,
			MaxUploadMB: 20,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Merge: MergeConfig{
			PreviewLimit:      500,
			ValidationLevel:   string(parser.ValidationStrict),
			Strategy:          string(parser.StrategyAnchorKey),
			HeaderMatch:       string(parser.MatchBestCount),
			Workers:           4,
			SessionTTLMinutes: 120,
		},
		Keywords: KeywordConfig{
			MinHits: parser.DefaultMinKeyHits,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 加载配置并返回元信息
// path 为空时读取可执行文件同目录下的 config.toml；文件不存在时使用默认配置。
// 环境变量总是最后覆盖。
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, info, err
	}

	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}
	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// applyEnv 环境变量覆盖（用于部署 / 本地运行）
func applyEnv(config *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("SHEETMERGE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHEETMERGE_PORT %q: %w", v, err)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}
	if v := os.Getenv("SHEETMERGE_RULES_PATH"); v != "" {
		config.Rules.Path = v
	}
	if v := os.Getenv("SHEETMERGE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("SHEETMERGE_VALIDATION_LEVEL"); v != "" {
		config.Merge.ValidationLevel = v
	}
	if v := os.Getenv("SHEETMERGE_STRATEGY"); v != "" {
		config.Merge.Strategy = v
	}
	if v := os.Getenv("SHEETMERGE_HEADER_MATCH"); v != "" {
		config.Merge.HeaderMatch = v
	}

	kw := &config.Keywords
	envList("SHEETMERGE_KEYWORDS_ANCHORS", &kw.Anchors)
	envList("SHEETMERGE_KEYWORDS_KEYS", &kw.Keys)
	envList("SHEETMERGE_KEYWORDS_EXCLUDES", &kw.Excludes)
	envList("SHEETMERGE_KEYWORDS_TOTALS", &kw.Totals)
	if v := strings.TrimSpace(os.Getenv("SHEETMERGE_KEYWORDS_MIN_HITS")); v != "" {
		// 无法解析时保留原值
		if n, err := strconv.Atoi(v); err == nil {
			kw.MinHits = max(n, 1)
		}
	}
	return nil
}

func envList(name string, dst *[]string) {
	if list := parser.SplitKeywords(os.Getenv(name)); len(list) > 0 {
		*dst = list
	}
}

// Validate 检查枚举取值
func (c *AppConfig) Validate() error {
	if _, err := parser.ParseValidationLevel(c.Merge.ValidationLevel); err != nil {
		return err
	}
	if _, err := parser.ParseStrategyKind(c.Merge.Strategy); err != nil {
		return err
	}
	if _, err := parser.ParseHeaderMatchMode(c.Merge.HeaderMatch); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// Keywords 转为解析器使用的关键词对象
func (k KeywordConfig) Keywords() parser.Keywords {
	return parser.Keywords{
		AnchorKeywords:      k.Anchors,
		KeyFieldKeywords:    k.Keys,
		ExcludedKeywords:    k.Excludes,
		TotalKeywords:       k.Totals,
		MinKeyHits:          k.MinHits,
		SerialKeyKeywords:   k.SerialKeys,
		InstructionKeywords: k.Instructions,
		SerialHeaders:       k.SerialHeaders,
		FixedValueKeywords:  k.FixedValues,
	}.WithDefaults()
}

// EnsureDataDir 确保数据目录存在，相对路径以可执行文件目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// JournalPath 合并日志数据库路径
func (c *AppConfig) JournalPath(dataDir string) string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(dataDir, "sheetmerge.db")
}

// MaxUploadBytes 单个上传文件的大小上限
func (c *AppConfig) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}
