package main

import (
	"fmt"
	"os"
)

// @title Voice Client Control API
// @version 1.0.0
// @description Local control API for the real-time voice client

// @BasePath /

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
