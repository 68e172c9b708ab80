package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// insecureSessionSecret 仅用于本地开发，其他环境拒绝启动。
	insecureSessionSecret = "healthportal-dev-secret"
)

var (
	// ErrInsecureSessionSecret 非开发环境未配置 SESSION_SECRET 或使用了开发默认值。
	ErrInsecureSessionSecret = errors.New("SESSION_SECRET must be set to a non-default value outside development")
	// ErrS3BucketMissing 使用 s3 上传驱动但未配置桶。
	ErrS3BucketMissing = errors.New("S3_BUCKET is required when UPLOAD_DRIVER=s3")
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	Env             string
	ListenAddr      string
	Port            string
	GinMode         string
	DBDriver        string
	DatabaseURL     string
	SessionSecret   string
	UploadDriver    string
	UploadDir       string
	UploadURLPath   string
	UploadMaxBytes  int64
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PathStyle     bool
	SentryDSN       string
	LogLevel        string
	DefaultLanguage string
	TemplateGlob    string
	StaticDir       string
	// CORSAllowedOrigins 为空时不启用跨域，页面与接口同源访问。
	CORSAllowedOrigins []string
	// LoginAttemptsPerMinute 每个客户端 IP 每分钟允许的登录尝试次数。
	LoginAttemptsPerMinute int
}

// Load 从环境变量（以及可选的 .env 文件）读取应用配置，并为缺失项提供默认值。
func Load() AppConfig {
	// .env 不存在时忽略
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	port := getEnv("PORT", "8080")

	ginMode := getEnv("GIN_MODE", "")
	if ginMode == "" {
		ginMode = "debug"
		if env == EnvProduction {
			ginMode = "release"
		}
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" && driver == "sqlite" {
		databaseURL = getEnv("DATABASE_PATH", "data/healthportal.db")
	}

	return AppConfig{
		Env:             env,
		ListenAddr:      getEnv("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:            port,
		GinMode:         ginMode,
		DBDriver:        driver,
		DatabaseURL:     databaseURL,
		SessionSecret:   getEnv("SESSION_SECRET", insecureSessionSecret),
		UploadDriver:    strings.ToLower(getEnv("UPLOAD_DRIVER", "fs")),
		UploadDir:       getEnv("UPLOAD_DIR", "web/uploads"),
		UploadURLPath:   getEnv("UPLOAD_URL_PATH", "/uploads"),
		UploadMaxBytes:  parseInt64(getEnv("UPLOAD_MAX_BYTES", ""), 10<<20),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", "ap-southeast-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PathStyle:     strings.EqualFold(getEnv("S3_PATH_STYLE", "false"), "true"),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "th"),
		TemplateGlob:    getEnv("TEMPLATE_GLOB", "web/template/*.html"),
		StaticDir:       getEnv("STATIC_DIR", "web/static"),

		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		LoginAttemptsPerMinute: parseNonNegativeInt(getEnv("LOGIN_ATTEMPTS_PER_MINUTE", ""), 10),
	}
}

// IsProduction 表示是否运行在生产环境。
func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate 校验启动前必须满足的约束。
func (c AppConfig) Validate() error {
	if c.Env != EnvDevelopment && (c.SessionSecret == "" || c.SessionSecret == insecureSessionSecret) {
		return ErrInsecureSessionSecret
	}
	if c.UploadDriver == "s3" && c.S3Bucket == "" {
		return ErrS3BucketMissing
	}
	if c.UploadDriver != "fs" && c.UploadDriver != "s3" {
		return fmt.Errorf("unsupported UPLOAD_DRIVER %q", c.UploadDriver)
	}
	return nil
}

// UsesInsecureSecret 用于开发环境启动时打印警告。
func (c AppConfig) UsesInsecureSecret() bool {
	return c.SessionSecret == insecureSessionSecret
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func parseInt64(raw string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// parseNonNegativeInt 与 parseInt64 不同，0 是合法值（表示关闭）。
func parseNonNegativeInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func splitCSV(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
