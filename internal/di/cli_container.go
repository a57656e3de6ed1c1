package di

import (
	"flag"
	"os"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/header-analyzer/internal/adapters/cli"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Analysis flags
	DMARCMode    string
	DNSServers   string
	Geo          bool
	GeoProvider  string
	PreferPublic bool

	// Input and output flags
	InputFile  string
	JSON       bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, os.Args[1:])
}

// ParseFlagSet registers the CLI flags on fs and parses args
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Analysis flags
	fs.StringVar(&flags.DMARCMode, "dmarc-mode", "inline", "DMARC strategy (inline, dns)")
	fs.StringVar(&flags.DNSServers, "dns-servers", "", "Comma-separated DNS servers for dns mode (default: system resolvers)")
	fs.BoolVar(&flags.Geo, "geo", false, "Geolocate the sender IP")
	fs.StringVar(&flags.GeoProvider, "geo-provider", "ipapi", "Geolocation provider (ipapi, ipinfo)")
	fs.BoolVar(&flags.PreferPublic, "prefer-public", true, "Skip private Received hops when a public one exists")

	// Input and output flags
	fs.StringVar(&flags.InputFile, "file", "", "Input header file (use stdin if not specified)")
	fs.BoolVar(&flags.JSON, "json", false, "Print the result as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	_ = fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// The CLI keeps no history
	if err := container.Provide(func() core.HistoryRepository { return nil }); err != nil {
		return nil, err
	}

	if err := provideAnalyzer(container); err != nil {
		return nil, err
	}

	// Register reporter
	if err := container.Provide(func(flags *CLIFlags, service *core.AnalyzerService, logger *zap.Logger) *cli.Reporter {
		return cli.NewReporter(service, logger, os.Stdout, flags.JSON)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("dmarc.mode", flags.DMARCMode)
	if servers := splitList(flags.DNSServers); len(servers) > 0 {
		v.Set("dmarc.servers", servers)
	}

	if flags.Geo {
		v.Set("geo.provider", flags.GeoProvider)
	} else {
		v.Set("geo.provider", "none")
	}
	// a single lookup gains nothing from the cache
	v.Set("geo.cache_ttl", "0s")

	v.Set("analysis.prefer_public", flags.PreferPublic)

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
