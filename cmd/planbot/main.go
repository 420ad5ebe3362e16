package main

import (
	"log"

	"github.com/m3rciful/planbot/core/cmd"
	"github.com/m3rciful/planbot/internal/bot"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        bot.LoadConfig,
		Bootstrap:         bot.Bootstrap,
	})
	if err != nil {
		log.Fatalf("planbot: %v", err)
	}
}
