package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
