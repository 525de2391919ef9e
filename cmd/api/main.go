package main

import (
	"context"
	"errors"
	"time"

	"app/internal/catalog"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/payment"
	"app/internal/printer"
	"app/internal/realtime"
	repo "app/internal/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		panic(err)
	}
	if err := db.Migrate(gormDB); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	pointRepo := infraRepo.NewPointGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	menuRepo := infraRepo.NewMenuItemGormRepository(gormDB)
	storeCfgRepo := infraRepo.NewStoreConfigGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//店舗設定行がなければポリシー初期値で作る
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := storeCfgRepo.Get(ctx); errors.Is(err, repo.ErrNotFound) {
		seed := model.StoreConfig{
			MinOrderAmount:       cfg.MinOrderAmount,
			CouponMinOrderAmount: cfg.CouponMinOrderAmount,
			DeliveryFee:          cfg.DeliveryFee,
			PointRatePercent:     cfg.PointRatePercent,
		}
		if err := storeCfgRepo.Save(ctx, seed); err != nil {
			panic(err)
		}
	}

	//外部コラボレーター
	dispatcher := printer.NewDispatcher(printer.Options{
		RemoteURL:   cfg.PrintServerURL,
		PrinterAddr: cfg.PrinterAddr,
	})
	dispatcher.CheckRemote(ctx)
	payClient := payment.NewClient(cfg.PaymentAPIURL)

	//店舗設定キャッシュ
	store := catalog.NewStore(storeCfgRepo)
	if err := store.Refresh(ctx); err != nil {
		panic(err)
	}

	//Usecase生成
	hub := realtime.NewHub(usecase.NewOrderFeed(txManager))
	orderUC := usecase.NewOrderUsecase(txManager, menuRepo, store, hub)
	fulfillmentUC := usecase.NewFulfillmentUsecase(txManager, hub, dispatcher, payClient)
	couponUC := usecase.NewCouponUsecase(txManager, couponRepo, cfg.WelcomeCouponCode)
	pointUC := usecase.NewPointUsecase(pointRepo)

	//Handler生成とルート登録
	e := server.New()
	handler.NewOrderHandler(orderUC, fulfillmentUC).RegisterRoutes(e, cfg)
	handler.NewCouponHandler(couponUC).RegisterRoutes(e, cfg)
	handler.NewPointHandler(pointUC).RegisterRoutes(e)
	handler.NewStoreHandler(store).RegisterRoutes(e)
	handler.NewWSHandler(hub).RegisterRoutes(e)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	if err := server.Start(e, addr); err != nil {
		panic(err)
	}
}
