package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/ledger-system/internal/api"
	"github.com/99minutos/ledger-system/internal/core/ports"
	"github.com/99minutos/ledger-system/internal/core/service"
	redisstore "github.com/99minutos/ledger-system/internal/infrastructure/db/redis"
	"github.com/99minutos/ledger-system/internal/infrastructure/http/handlers"
	"github.com/99minutos/ledger-system/internal/infrastructure/lock"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	ready := map[string]handlers.Pinger{"store": store}

	policy, err := service.ParseExposurePolicy(cfg.Ledger.ExposurePolicy)
	if err != nil {
		return err
	}

	opts := []service.BalanceOption{service.WithReserveRatio(cfg.Ledger.ReserveRatio)}

	var locker ports.AccountLocker = lock.NewStripedLocker(0)
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		locker = redisstore.NewAccountLocker(rdb, redisstore.LockOptions{
			Expiry:     cfg.Lock.Expiry,
			Tries:      cfg.Lock.Tries,
			RetryDelay: cfg.Lock.RetryDelay,
		}, log)
		opts = append(opts, service.WithReplayCache(redisstore.NewReplayCache(rdb, cfg.Ledger.IdempotencyTTL)))
		ready["redis"] = handlers.PingFunc(redisstore.Probe(rdb))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	} else {
		log.Warn().Msg("redis disabled: using in-process account locks, idempotency keys ignored")
	}
	opts = append(opts, service.WithLocker(locker))

	executor := service.NewTransferExecutor(store, cfg.Ledger.TxTimeout, log)
	balances := service.NewBalanceService(store, executor, service.NewExposureCalculator(policy), log, opts...)
	contracts := service.NewContractService(store, log)

	e := api.NewRouter(api.Deps{
		JWTSecret: cfg.JWTSecret,
		Profiles:  store,
		Balances:  balances,
		Contracts: contracts,
		Ready:     ready,
		Logger:    log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Str("exposure_policy", string(policy)).
			Str("reserve_ratio", cfg.Ledger.ReserveRatio.String()).
			Msg("ledger api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
