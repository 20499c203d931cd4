// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIConfigPath API 服务默认配置文件
const DefaultAPIConfigPath = "configs/api.yaml"

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Recency    RecencyConfig    `mapstructure:"recency"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Render     RenderConfig     `mapstructure:"render"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	PublicURL  string           `mapstructure:"public_url"` // 拼接 card_image_url 用，空则按 host:port 生成
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Object ObjectConfig `mapstructure:"object"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// ObjectConfig 产物（数据 JSON、素材图、卡片）存储配置
type ObjectConfig struct {
	Type string `mapstructure:"type"` // file | memory
	Root string `mapstructure:"root"` // file 时的根目录，其下为 data/ img/ output/
}

// CacheConfig 最近查询列表的持久化配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // file | memory | redis
	Path     string `mapstructure:"path"` // file 时的 JSON 文件路径
	Key      string `mapstructure:"key"`  // memory/redis 时的键名
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// RecencyConfig 最近查询列表配置
type RecencyConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// UpstreamConfig 上游资料接口配置
type UpstreamConfig struct {
	Timeout           string         `mapstructure:"timeout"`
	RetryCount        int            `mapstructure:"retry_count"`
	RetryWait         string         `mapstructure:"retry_wait"`
	RequestsPerSecond float64        `mapstructure:"requests_per_second"`
	UserAgent         string         `mapstructure:"user_agent"`
	Referer           string         `mapstructure:"referer"`
	Origin            string         `mapstructure:"origin"`
	CookieKey         string         `mapstructure:"cookie_key"` // 在 secrets 中查找 Cookie 的键
	Profile           EndpointConfig `mapstructure:"profile"`
	Relation          EndpointConfig `mapstructure:"relation"`
	Engagement        EndpointConfig `mapstructure:"engagement"`
}

// EndpointConfig 单个上游接口：URL、主体 ID 参数名、字段名 -> gjson 路径
type EndpointConfig struct {
	URL     string            `mapstructure:"url"`
	IDParam string            `mapstructure:"id_param"`
	Fields  map[string]string `mapstructure:"fields"`
}

// SecretsConfig Secret 来源配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | file | vault | memory
	File     string      `mapstructure:"file"`     // file 时的文件路径，文件内容即 Cookie
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// RenderConfig 卡片绘制配置
type RenderConfig struct {
	Fonts []string `mapstructure:"fonts"` // 按顺序尝试的字体文件，全部失败时使用内置 Go 字体
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// Default 返回无配置文件时可直接运行的默认配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			Port:    12561,
			Host:    "0.0.0.0",
			Timeout: "60s",
			CORS:    CORSConfig{Enable: true, AllowOrigins: []string{"*"}},
			Middleware: MiddlewareConfig{
				RateLimit:    true,
				RateLimitRPS: 20,
			},
		},
		Storage: StorageConfig{
			Object: ObjectConfig{Type: "file", Root: "."},
			Cache:  CacheConfig{Type: "file", Path: "query_history.json", Key: "profile-card:recency"},
		},
		Recency: RecencyConfig{Capacity: 3},
		Upstream: UpstreamConfig{
			Timeout:           "10s",
			RetryCount:        3,
			RetryWait:         "1s",
			RequestsPerSecond: 2,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Referer:           "https://www.bilibili.com/",
			Origin:            "https://www.bilibili.com",
			CookieKey:         "PROFILE_CARD_COOKIE",
			Profile: EndpointConfig{
				URL:     "https://api.bilibili.com/x/space/wbi/acc/info",
				IDParam: "mid",
				Fields: map[string]string{
					"name":              "data.name",
					"sex":               "data.sex",
					"sign":              "data.sign",
					"level":             "data.level",
					"vip_text":          "data.vip.label.text",
					"official_title":    "data.official.title",
					"attestation_title": "data.official.desc",
					"nameplate_name":    "data.nameplate.name",
					"face_url":          "data.face",
					"pendant_url":       "data.pendant.image",
					"nameplate_url":     "data.nameplate.image",
				},
			},
			Relation: EndpointConfig{
				URL:     "https://api.bilibili.com/x/relation/stat",
				IDParam: "vmid",
				Fields: map[string]string{
					"following": "data.following",
					"follower":  "data.follower",
				},
			},
			Engagement: EndpointConfig{
				URL:     "https://api.bilibili.com/x/space/upstat",
				IDParam: "mid",
				Fields: map[string]string{
					"view":  "data.archive.view",
					"likes": "data.likes",
				},
			},
		},
		Secrets: SecretsConfig{Provider: "file", File: "cookie.txt"},
		Render: RenderConfig{
			Fonts: []string{
				"fonts/simhei.ttf",
				"fonts/msyh.ttc",
				"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
				"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
				"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
				"C:/Windows/Fonts/simhei.ttf",
				"C:/Windows/Fonts/msyh.ttc",
				"/System/Library/Fonts/PingFang.ttc",
			},
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Monitoring: MonitoringConfig{
			Prometheus: PrometheusConfig{Enable: true},
			Tracing:    TracingConfig{ServiceName: "profile-card"},
		},
	}
}

// LoadConfig 加载配置文件，未出现在文件中的字段保留 Default() 的值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	config := Default()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(config)
	return config, nil
}

// LoadAPIConfig 加载 API 配置；配置文件不存在时返回默认配置
func LoadAPIConfig() (*Config, error) {
	path := DefaultAPIConfigPath
	if p := os.Getenv("PROFILE_CARD_CONFIG"); p != "" {
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		replaceEnvVars(cfg)
		return cfg, nil
	}
	return LoadConfig(path)
}

// replaceEnvVars 替换配置中形如 ${VAR} 的敏感字段
func replaceEnvVars(config *Config) {
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
	config.Storage.Cache.Password = expandEnv(config.Storage.Cache.Password)
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
