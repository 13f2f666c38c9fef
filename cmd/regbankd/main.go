package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mfeldt/regbank/internal/bank"
	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/config"
	"github.com/mfeldt/regbank/internal/logging"
	"github.com/mfeldt/regbank/internal/points"
	"github.com/mfeldt/regbank/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "regbank.toml", "path to the regbankd TOML config")
	flag.Parse()

	logging.ConfigureRuntime()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "regbankd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	banks := bank.NewPair(cfg.Banks.HoldingSize, cfg.Banks.InputSize)
	holdingReg := binding.NewRegistry()
	inputReg := binding.NewRegistry()
	pts := points.NewStore()

	regs := config.Registries{Holding: holdingReg, Input: inputReg}
	if err := cfg.BuildBindings(regs, pts); err != nil {
		return err
	}

	engine := server.NewEngine(cfg.Server.NodeID, banks, holdingReg, inputReg)
	svc := server.NewServiceWithConfig(server.ServiceConfig{
		ListenAddr:  cfg.Server.ListenAddr,
		AdminAddr:   cfg.Server.AdminAddr,
		NodeID:      cfg.Server.NodeID,
		UnitID:      uint8(cfg.Server.UnitID),
		CorsOrigins: cfg.Server.CorsOrigins,
	}, engine, pts)

	return svc.Run()
}
