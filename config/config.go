// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port     string
	LogLevel string

	// UsersDir はKakaoTalkのユーザーデータ基底ディレクトリ。
	UsersDir string
	// LoginListPath はlogin_list.datのパス。
	LoginListPath string
	// IdentityFixture が設定されている場合、OSの識別情報ストアの代わりにJSONフィクスチャを読む。
	IdentityFixture string

	MessageLimit int
	AutoDiscover bool

	// CaseDBPath は復元済み鍵を保存するSQLiteファイル。空なら無効。
	CaseDBPath         string
	KMSKeyName         string
	GoogleCloudProject string

	OtelEnabled      bool
	OtelEndpoint     string
	OtelServiceName  string
	OtelSamplingRate float64
	// OtelInsecure はOTLPコレクタへの接続でTLSを使わない。ローカルのコレクタ向け。
	OtelInsecure     bool
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	usersDir := getEnv("KAKAO_USERS_DIR", defaultUsersDir())
	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		UsersDir:           usersDir,
		LoginListPath:      getEnv("KAKAO_LOGIN_LIST", filepath.Join(usersDir, "login_list.dat")),
		IdentityFixture:    os.Getenv("KAKAO_IDENTITY_FIXTURE"),
		MessageLimit:       getEnvInt("MESSAGE_LIMIT", 1000),
		AutoDiscover:       getEnvBool("AUTO_DISCOVER", false),
		CaseDBPath:         os.Getenv("CASE_DB_PATH"),
		KMSKeyName:         os.Getenv("KMS_KEY_NAME"),
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "edb-forensics"),
		OtelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		OtelInsecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

// defaultUsersDir はOSごとのKakaoTalkユーザーディレクトリを返す。
func defaultUsersDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Kakao", "KakaoTalk", "users")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Containers", "com.kakao.KakaoTalkMac",
			"Data", "Library", "Application Support", "com.kakao.KakaoTalkMac")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".kakaotalk", "users")
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvFloat(key string, defaultVal float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f < 0 || f > 1 {
		return defaultVal
	}
	return f
}
