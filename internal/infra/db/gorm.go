package db

import (
	"fmt"

	"app/internal/config"
	"app/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect は検証済みConfigの接続情報でDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	// DATABASE_URL があれば最優先で使う
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{})
}

// DSN はPOSTGRES_*から接続文字列を組み立てる。接続情報の出どころはConfigだけ。
func DSN(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
}

// Migrate はスキーマを揃える。
// AutoMigrateで張れない部分一意インデックスはraw SQLで補う。
func Migrate(g *gorm.DB) error {
	if err := g.AutoMigrate(
		&model.User{},
		&model.PointHistory{},
		&model.Coupon{},
		&model.CouponUsage{},
		&model.MenuItem{},
		&model.StoreConfig{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		return err
	}

	// 未使用発行は(coupon_id, user_id)につき1行だけ
	return g.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_coupon_usages_unredeemed
		ON coupon_usages (coupon_id, user_id)
		WHERE order_no IS NULL
	`).Error
}
