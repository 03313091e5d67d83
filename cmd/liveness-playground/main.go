package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"liveness-playground/internal/bootstrap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default .config.yaml)")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [BOOT] starting liveness-playground...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), bootstrap.Options{ConfigPath: *configPath}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "liveness-playground failed: %v\n", err)
		os.Exit(1)
	}
}
