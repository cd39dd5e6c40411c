package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"DailyPick/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（对应 config/config.yaml，环境变量优先）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // PostgreSQL配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	Gateway  GatewayConfig  `mapstructure:"gateway"`  // 体育数据网关配置
	Picks    PicksConfig    `mapstructure:"picks"`    // 生成推荐配置
	Grading  GradingConfig  `mapstructure:"grading"`  // 结算配置
	Scorer   ScorerConfig   `mapstructure:"scorer"`   // 打分系数
	Schedule ScheduleConfig `mapstructure:"schedule"` // 定时任务
	Lock     LockConfig     `mapstructure:"lock"`     // 按日咨询锁
	Redis    RedisConfig    `mapstructure:"redis"`    // redis（lock.backend=redis 时使用）
	Auth     AuthConfig     `mapstructure:"auth"`     // 管理接口鉴权
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port  int    `mapstructure:"port"`  // 服务端口
	Mode  string `mapstructure:"mode"`  // Gin运行模式：debug/release/test
	Pprof bool   `mapstructure:"pprof"` // 是否注册 /debug/pprof
}

// DatabaseConfig PostgreSQL配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 启动时自动建表
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// GatewayConfig 体育数据网关配置
type GatewayConfig struct {
	Provider          string        `mapstructure:"provider"`            // sportsdata / fixture
	BaseURL           string        `mapstructure:"base_url"`            // API基础地址
	APIKey            string        `mapstructure:"api_key"`             // API Key
	Timeout           int           `mapstructure:"timeout"`             // 单次请求超时（秒）
	RetryCount        int           `mapstructure:"retry_count"`         // 最多尝试次数
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`    // 退避基数
	RetryFactor       float64       `mapstructure:"retry_factor"`        // 退避倍数
	RetryJitter       float64       `mapstructure:"retry_jitter"`        // 抖动比例（0.2 即 ±20%）
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`           // 响应缓存TTL
	CacheSize         int           `mapstructure:"cache_size"`          // 响应缓存条数上限
	Proxy             string        `mapstructure:"proxy"`               // 代理地址
	FixturesDir       string        `mapstructure:"fixtures_dir"`        // 兜底快照目录，空则使用内置快照
	Workers           int           `mapstructure:"workers"`             // 并发请求数
	RecentGamesWindow int           `mapstructure:"recent_games_window"` // 拉取最近比赛场数
}

// PicksConfig 推荐生成配置
type PicksConfig struct {
	MinimumConfidenceThreshold float64       `mapstructure:"minimum_confidence_threshold"`
	EnabledLeagues             []string      `mapstructure:"enabled_leagues"`
	EnabledMarkets             []string      `mapstructure:"enabled_markets"`
	AllowDegradedPicks         bool          `mapstructure:"allow_degraded_picks"`
	AllowDegradedCandidates    bool          `mapstructure:"allow_degraded_candidates"`
	MinOdds                    int           `mapstructure:"min_odds"` // 可接受赔率下限（如 -200）
	MaxOdds                    int           `mapstructure:"max_odds"` // 可接受赔率上限（如 +300）
	GenerationTimeout          time.Duration `mapstructure:"generation_timeout"`
}

// GradingConfig 结算配置
type GradingConfig struct {
	SettlementGraceHours int           `mapstructure:"settlement_grace_hours"`
	StaleGradingDays     int           `mapstructure:"stale_grading_days"`
	Timeout              time.Duration `mapstructure:"timeout"`
	PageSize             int           `mapstructure:"page_size"`
}

// ScorerConfig 线性打分系数，key 为特征名，未配置的特征使用内置默认值
type ScorerConfig struct {
	Intercept *float64           `mapstructure:"intercept"`
	Weights   map[string]float64 `mapstructure:"weights"`
}

// ScheduleConfig 定时任务（cron 表达式带秒，时区 America/New_York）
type ScheduleConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	GenerationCron string `mapstructure:"generation_cron"`
	GradingCron    string `mapstructure:"grading_cron"`
}

// LockConfig 生成推荐的按日咨询锁
type LockConfig struct {
	Backend      string        `mapstructure:"backend"`       // postgres / redis / local
	PollInterval time.Duration `mapstructure:"poll_interval"` // redis 轮询间隔
	TTL          time.Duration `mapstructure:"ttl"`           // redis 锁过期时间
}

// RedisConfig redis 连接
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig 管理接口鉴权：固定 service key 或 HS256 JWT
type AuthConfig struct {
	ServiceKey string `mapstructure:"service_key"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// envBindings 配置项 → 环境变量
var envBindings = map[string]string{
	"database.dsn":                       "DATABASE_URL",
	"auth.service_key":                   "SERVICE_KEY",
	"auth.jwt_secret":                    "JWT_SECRET",
	"gateway.api_key":                    "GATEWAY_API_KEY",
	"gateway.provider":                   "GATEWAY_PROVIDER",
	"gateway.proxy":                      "GATEWAY_PROXY",
	"picks.minimum_confidence_threshold": "MINIMUM_CONFIDENCE_THRESHOLD",
	"picks.enabled_leagues":              "ENABLED_LEAGUES",
	"picks.enabled_markets":              "ENABLED_MARKETS",
	"picks.allow_degraded_picks":         "ALLOW_DEGRADED_PICKS",
	"picks.allow_degraded_candidates":    "ALLOW_DEGRADED_CANDIDATES",
	"grading.settlement_grace_hours":     "SETTLEMENT_GRACE_HOURS",
	"grading.stale_grading_days":         "STALE_GRADING_DAYS",
	"lock.backend":                       "LOCK_BACKEND",
	"redis.url":                          "REDIS_URL",
	"server.port":                        "PORT",
	"log.level":                          "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pprof", false)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("gateway.provider", "sportsdata")
	v.SetDefault("gateway.base_url", "https://api.sportsdata.io/v3")
	v.SetDefault("gateway.timeout", 10)
	v.SetDefault("gateway.retry_count", 3)
	v.SetDefault("gateway.retry_base_delay", 250*time.Millisecond)
	v.SetDefault("gateway.retry_factor", 2.0)
	v.SetDefault("gateway.retry_jitter", 0.2)
	v.SetDefault("gateway.cache_ttl", 60*time.Second)
	v.SetDefault("gateway.cache_size", 256)
	v.SetDefault("gateway.workers", 4)
	v.SetDefault("gateway.recent_games_window", 10)

	v.SetDefault("picks.minimum_confidence_threshold", 60.0)
	v.SetDefault("picks.enabled_leagues", []string{"NFL", "NBA", "MLB", "NHL"})
	v.SetDefault("picks.enabled_markets", []string{"MONEYLINE", "SPREAD", "TOTAL"})
	v.SetDefault("picks.allow_degraded_picks", false)
	v.SetDefault("picks.allow_degraded_candidates", false)
	v.SetDefault("picks.min_odds", -200)
	v.SetDefault("picks.max_odds", 300)
	v.SetDefault("picks.generation_timeout", 60*time.Second)

	v.SetDefault("grading.settlement_grace_hours", 6)
	v.SetDefault("grading.stale_grading_days", 7)
	v.SetDefault("grading.timeout", 300*time.Second)
	v.SetDefault("grading.page_size", 100)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.generation_cron", "0 0 9 * * *")
	v.SetDefault("schedule.grading_cron", "0 */30 * * * *")

	v.SetDefault("lock.backend", "postgres")
	v.SetDefault("lock.poll_interval", 100*time.Millisecond)
	v.SetDefault("lock.ttl", 2*time.Minute)
}

// LoadConfig 加载配置：.env → config/config.yaml（可不存在）→ 环境变量覆盖
func LoadConfig(paths ...string) (*Config, error) {
	// 1. 加载 .env（若存在）
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	setDefaults(v)

	// 2. 读取 config.yaml
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 3. 敏感字段及运行参数：env 覆盖 yaml
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量%s失败: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &cfg, nil
}

// Validate 检查必填项，缺失时返回 ErrConfigurationMissing
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.DSN) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Gateway.Provider == "sportsdata" && strings.TrimSpace(c.Gateway.APIKey) == "" {
		missing = append(missing, "GATEWAY_API_KEY")
	}
	if c.Auth.ServiceKey == "" && c.Auth.JWTSecret == "" {
		missing = append(missing, "SERVICE_KEY")
	}
	if c.Lock.Backend == "redis" && c.Redis.URL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", model.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	if _, err := c.Picks.Leagues(); err != nil {
		return err
	}
	if _, err := c.Picks.Markets(); err != nil {
		return err
	}
	if c.Picks.MinimumConfidenceThreshold < 0 || c.Picks.MinimumConfidenceThreshold > 100 {
		return fmt.Errorf("MINIMUM_CONFIDENCE_THRESHOLD 超出[0,100]: %v", c.Picks.MinimumConfidenceThreshold)
	}
	return nil
}

// Leagues 解析启用的联赛
func (p PicksConfig) Leagues() ([]model.League, error) {
	var out []model.League
	for _, s := range splitList(p.EnabledLeagues) {
		l, err := model.ParseLeague(s)
		if err != nil {
			return nil, fmt.Errorf("ENABLED_LEAGUES: %w", err)
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ENABLED_LEAGUES", model.ErrConfigurationMissing)
	}
	return out, nil
}

// Markets 解析启用的盘口
func (p PicksConfig) Markets() ([]model.Market, error) {
	var out []model.Market
	for _, s := range splitList(p.EnabledMarkets) {
		m, err := model.ParseMarket(s)
		if err != nil {
			return nil, fmt.Errorf("ENABLED_MARKETS: %w", err)
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ENABLED_MARKETS", model.ErrConfigurationMissing)
	}
	return out, nil
}

// DegradedCandidatesAllowed 允许降级推荐时隐含允许降级候选
func (p PicksConfig) DegradedCandidatesAllowed() bool {
	return p.AllowDegradedCandidates || p.AllowDegradedPicks
}

// SettlementGrace 开赛后多久开始结算
func (g GradingConfig) SettlementGrace() time.Duration {
	return time.Duration(g.SettlementGraceHours) * time.Hour
}

// StaleCutoff 超过该时长仍无法结算则作废
func (g GradingConfig) StaleCutoff() time.Duration {
	return time.Duration(g.StaleGradingDays) * 24 * time.Hour
}

// splitList 兼容 yaml 列表与逗号分隔的环境变量
func splitList(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range in {
		for _, s := range strings.Split(item, ",") {
			s = strings.TrimSpace(s)
			if s == "" || seen[strings.ToUpper(s)] {
				continue
			}
			seen[strings.ToUpper(s)] = true
			out = append(out, s)
		}
	}
	return out
}
