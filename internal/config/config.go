package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 接続URL（設定時はPOSTGRES_*より優先）
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート
	PostgresSSLMode  string // sslmode（disable）

	JWTSecret string // スタッフトークンの署名シークレット

	// 注文ポリシーの初期値（店舗設定行がまだ無いときのseed）
	MinOrderAmount       int64
	CouponMinOrderAmount int64
	DeliveryFee          int64
	PointRatePercent     int64

	WelcomeCouponCode string // 新規会員に発行するクーポンコード

	// 外部コラボレーター（どちらも空なら無効）
	PrintServerURL string // リモート印刷エージェント
	PrinterAddr    string // ESC/POSプリンタ（host:9100）
	PaymentAPIURL  string // 決済取り消しAPI
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenvOr("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MinOrderAmount:       atoiOr("MIN_ORDER_AMOUNT", 10000),
		CouponMinOrderAmount: atoiOr("COUPON_MIN_ORDER_AMOUNT", 15000),
		DeliveryFee:          atoiOr("DELIVERY_FEE", 3000),
		PointRatePercent:     atoiOr("POINT_RATE_PERCENT", 10),

		WelcomeCouponCode: getenvOr("WELCOME_COUPON_CODE", "WELCOME"),

		PrintServerURL: os.Getenv("PRINT_SERVER_URL"),
		PrinterAddr:    os.Getenv("PRINTER_ADDR"),
		PaymentAPIURL:  os.Getenv("PAYMENT_API_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiOr(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getenvOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
