// Package config resolves process configuration from the environment, with
// optional .env file loading.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config names the runtime artifacts and the fixed model geometry. All
// fields have env overrides; the defaults match the deployed model.
type Config struct {
	ModelPath  string // MODEL_PATH
	ScalerPath string // SCALER_PATH

	InChannels  int // IN_CHANNELS, channels per graph node
	NumNodes    int // NUM_NODES
	HidChannels int // HID_CHANNELS
	KernelSize  int // KERNEL_SIZE, odd

	Port            int           // PORT
	OptimizeTimeout time.Duration // OPTIMIZE_TIMEOUT_SECONDS
}

// Default returns the deployment defaults.
func Default() Config {
	return Config{
		ModelPath:       "best_model.json",
		ScalerPath:      "scaler_params.json",
		InChannels:      3,
		NumNodes:        3,
		HidChannels:     64,
		KernelSize:      5,
		Port:            8000,
		OptimizeTimeout: 300 * time.Second,
	}
}

// FromEnv loads a .env file when present and overlays environment
// variables onto the defaults.
func FromEnv() Config {
	_ = godotenv.Load() // missing .env is fine

	cfg := Default()
	cfg.ModelPath = getenvStr("MODEL_PATH", cfg.ModelPath)
	cfg.ScalerPath = getenvStr("SCALER_PATH", cfg.ScalerPath)
	cfg.InChannels = getenvInt("IN_CHANNELS", cfg.InChannels)
	cfg.NumNodes = getenvInt("NUM_NODES", cfg.NumNodes)
	cfg.HidChannels = getenvInt("HID_CHANNELS", cfg.HidChannels)
	cfg.KernelSize = getenvInt("KERNEL_SIZE", cfg.KernelSize)
	cfg.Port = getenvInt("PORT", cfg.Port)
	if secs := getenvInt("OPTIMIZE_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.OptimizeTimeout = time.Duration(secs) * time.Second
	}
	return cfg
}

func getenvStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
