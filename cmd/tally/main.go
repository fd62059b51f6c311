package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tally/internal/commands"
)

func main() {
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
