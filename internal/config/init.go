package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Init wires viper to the environment and installs defaults. It must be
// called once before Load.
func Init() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()
}

// setDefaults installs production-safe defaults for every tunable.
func setDefaults() {
	viper.SetDefault("seeds_file", "seeds.yaml")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")
	viper.SetDefault("app_debug", false)

	viper.SetDefault("time_budget_sec", 240)
	viper.SetDefault("hard_kill_sec", 600)
	viper.SetDefault("max_pages_per_run", 60)
	viper.SetDefault("max_per_domain", 25)
	viper.SetDefault("parallel_workers", 6)
	viper.SetDefault("per_host_limit", 2)
	viper.SetDefault("force_refresh", false)

	viper.SetDefault("connect_timeout", 10)
	viper.SetDefault("read_timeout", 35)
	viper.SetDefault("chusho_read_timeout", 45)
	viper.SetDefault("head_connect_timeout", 8)
	viper.SetDefault("head_read_timeout", 6)

	viper.SetDefault("single_stage1_read_timeout", 180)
	viper.SetDefault("single_large_bytes", 8_000_000)
	viper.SetDefault("single_backfill_one", false)

	viper.SetDefault("dr_model", "o4-mini-deep-research-2025-06-26")
	viper.SetDefault("dr_timeout_sec", 40)
	viper.SetDefault("dr_max_items", 40)

	viper.SetDefault("serve_addr", ":8080")
}
