package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/kingspeech/leadbot/bot"
	corecmd "github.com/kingspeech/leadbot/core/cmd"
)

func main() {
	// .env is optional; real deployments pass env directly.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        bot.LoadConfig,
		Bootstrap:         bot.Bootstrap,
	})
	if err != nil {
		log.Fatalf("leadbot: %v", err)
	}
}
