// Command symsyncd runs the symsync daemon in the foreground. It is
// equivalent to `symsync daemon` and exists for service managers that
// prefer a dedicated binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"symsync/internal/config"
	"symsync/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "symsyncd: %v\n", err)
		os.Exit(1)
	}
}
