// Package main is the entry point for the Providentia chat service.
package main

import (
	"os"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/providentia/internal/chatbot"
)

func main() {
	if err := chatbot.NewApp().Execute(); err != nil {
		os.Exit(1)
	}
}
