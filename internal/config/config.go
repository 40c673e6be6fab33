package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 mathspeech 的顶层配置结构。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Normalize NormalizeConfig `yaml:"normalize"`
	TTS       TTSConfig       `yaml:"tts"`
	Translate TranslateConfig `yaml:"translate"`
	LLM       LLMConfig       `yaml:"llm"`
	Storage   StorageConfig   `yaml:"storage"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxUploadMB 上传 PDF 的大小上限（MB）。
	MaxUploadMB int `yaml:"max_upload_mb"`
	// ShutdownTimeout 优雅关闭等待时间（秒）。
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// NormalizeConfig 文本改写配置。
type NormalizeConfig struct {
	MaxSentence int `yaml:"max_sentence"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Engine     string           `yaml:"engine"`
	MaxChars   int              `yaml:"max_chars"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Edge       EdgeConfig       `yaml:"edge"`
	Tencent    TencentConfig    `yaml:"tencent"`
}

// ElevenLabsConfig ElevenLabs 接口配置。
type ElevenLabsConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// VerifyOnStart 启动时调用 /v1/voices 校验 API Key。
	VerifyOnStart bool `yaml:"verify_on_start"`
	// SendLanguage 在请求中携带 language_code，仅 turbo/flash 系列模型支持。
	SendLanguage bool `yaml:"send_language"`
	Timeout      int  `yaml:"timeout"` // 秒
}

// EdgeConfig Edge TTS 配置，Voices 为语言代码到音色的覆盖映射。
type EdgeConfig struct {
	Voices map[string]string `yaml:"voices"`
}

// TencentConfig 腾讯云配置，TTS 与机器翻译共用同一组密钥。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	VoiceType int64   `yaml:"voice_type"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// TranslateConfig 合成前翻译配置。
type TranslateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Source  string `yaml:"source"`
}

// LLMConfig 可选的大模型润色配置。
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // 秒
}

// StorageConfig 数据目录、数据库与音频缓存配置。
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	DBPath     string `yaml:"db_path"`
	CacheMaxMB int64  `yaml:"cache_max_mb"`
}

// PlaybackConfig 播放会话配置。
type PlaybackConfig struct {
	// SessionTTL 会话空闲多久后释放其音频（秒）。
	SessionTTL int `yaml:"session_ttl"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回只包含默认值的配置，未提供配置文件时使用。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Validate 检查无法通过默认值修正的配置错误。
func (c *Config) Validate() error {
	switch c.TTS.Engine {
	case "elevenlabs", "edge", "tencent":
	default:
		return fmt.Errorf("不支持的 TTS 引擎: %s", c.TTS.Engine)
	}
	if c.LLM.Enabled && c.LLM.APIURL == "" {
		return fmt.Errorf("llm.enabled 为 true 时必须设置 llm.api_url")
	}
	return nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
			"http://localhost:8081",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 10
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}
	if cfg.Normalize.MaxSentence == 0 {
		cfg.Normalize.MaxSentence = 150
	}

	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "elevenlabs"
	}
	if cfg.TTS.MaxChars == 0 {
		cfg.TTS.MaxChars = 5000
	}
	if cfg.TTS.ElevenLabs.APIURL == "" {
		cfg.TTS.ElevenLabs.APIURL = "https://api.elevenlabs.io"
	}
	if cfg.TTS.ElevenLabs.APIKey == "" {
		cfg.TTS.ElevenLabs.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if cfg.TTS.ElevenLabs.Model == "" {
		cfg.TTS.ElevenLabs.Model = "eleven_multilingual_v2"
	}
	if cfg.TTS.ElevenLabs.Timeout == 0 {
		cfg.TTS.ElevenLabs.Timeout = 90
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.Translate.Source == "" {
		cfg.Translate.Source = "auto"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60
	}

	if cfg.Storage.DataDir == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Storage.DataDir = filepath.Join(home, ".mathspeech")
		} else {
			cfg.Storage.DataDir = "./.mathspeech-data"
		}
	} else if strings.HasPrefix(cfg.Storage.DataDir, "~/") {
		// Go 不会自动展开 ~
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Storage.DataDir = home + cfg.Storage.DataDir[1:]
		}
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(cfg.Storage.DataDir, "mathspeech.db")
	}
	if cfg.Storage.CacheMaxMB == 0 {
		cfg.Storage.CacheMaxMB = 256
	}
	if cfg.Playback.SessionTTL == 0 {
		cfg.Playback.SessionTTL = 1800
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 环境变量展开后常见两端空白
	cfg.TTS.ElevenLabs.APIKey = strings.TrimSpace(cfg.TTS.ElevenLabs.APIKey)
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
}
