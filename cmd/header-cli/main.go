package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/header-analyzer/internal/adapters/cli"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(func(
		logger *zap.Logger,
		reporter *cli.Reporter,
		geo core.GeoLocator,
		flags *di.CLIFlags,
	) error {
		defer logger.Sync()

		// Read header from file or stdin
		var input io.Reader
		if flags.InputFile != "" {
			file, err := os.Open(flags.InputFile)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer file.Close()
			input = file
			logger.Debug("Reading header from file", zap.String("file", flags.InputFile))
		} else {
			input = os.Stdin
			logger.Debug("Reading header from stdin")
		}

		_, err := reporter.Run(context.Background(), input)

		// Close any resources that need closing
		if closer, ok := geo.(interface{ Close() error }); ok {
			_ = closer.Close()
		}

		return err
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
