// Command lendctl initializes a pool from a TOML configuration file and
// reports its starting utilization and rate curve, the smallest useful
// thing the engine can do standalone without a host ledger driving it.
package main

import (
	"flag"
	"log/slog"
	"os"

	"lendingpool/address"
	"lendingpool/config"
	"lendingpool/native/lending"
	"lendingpool/observability"
	"lendingpool/observability/logging"
)

func main() {
	configPath := flag.String("config", "pool.toml", "path to the pool's TOML configuration")
	poolID := flag.String("pool", "default", "pool identifier to initialize")
	flag.Parse()

	log := logging.Setup("lendctl", "local")

	if err := run(*configPath, *poolID, log); err != nil {
		log.Error("lendctl: fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath, poolID string, log *slog.Logger) error {
	pc, err := config.Load(configPath)
	if err != nil {
		return err
	}

	adminAddr, err := address.New(address.UserPrefix, make([]byte, 20))
	if err != nil {
		return err
	}
	poolAddr, err := address.New(address.ModulePrefix, append(make([]byte, 19), 0x01))
	if err != nil {
		return err
	}
	collateralAddr, err := address.New(address.ModulePrefix, append(make([]byte, 19), 0x02))
	if err != nil {
		return err
	}

	rateModel, err := lending.RateModelFromPoolConfig(pc)
	if err != nil {
		return err
	}

	engine := lending.NewEngine(poolAddr, collateralAddr)
	engine.SetState(newMemoryStateStore())
	engine.SetRateModel(rateModel)
	engine.SetPoolID(poolID)
	engine.SetLogger(log)
	engine.SetMetrics(observability.Pool())

	cfg := lending.GlobalConfigFromPoolConfig(adminAddr, pc)
	if err := engine.Initialize(cfg); err != nil {
		return err
	}

	log.Info("pool initialized",
		"pool_id", poolID,
		"collateral_asset", cfg.CollateralAsset,
		"borrow_asset", cfg.BorrowAsset,
		"ltv", cfg.LTV.String(),
		"liquidation_threshold", cfg.LiquidationThreshold.String(),
	)

	borrowRate, err := engine.GetBorrowRate()
	if err != nil {
		return err
	}
	log.Info("rate curve at zero utilization", "borrow_rate", borrowRate.String())
	return nil
}
