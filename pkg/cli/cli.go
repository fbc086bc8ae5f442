package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmdmdm-nz/reachd/pkg/version"
)

// Config holds the application configuration from CLI flags and the
// optional config file
type Config struct {
	Port             int           `yaml:"port"`
	Host             string        `yaml:"host"`
	LogLevel         string        `yaml:"log_level"`
	Target           string        `yaml:"target"`
	CellularPrefixes []string      `yaml:"cellular_prefixes"`
	ResolveTimeout   time.Duration `yaml:"resolve_timeout"`
	Metrics          bool          `yaml:"metrics"`

	ConfigFile  string `yaml:"-"`
	Once        bool   `yaml:"-"`
	ShowVersion bool   `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		Port:           60106,
		Host:           "127.0.0.1",
		LogLevel:       "info",
		ResolveTimeout: 5 * time.Second,
		Metrics:        true,
	}
}

// ParseFlags parses command line arguments and returns a Config
func ParseFlags() *Config {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("reachd version %s (commit: %s, built at: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime)
		os.Exit(0)
	}

	return cfg
}

// Parse builds a Config from args. Values from -config are applied first and
// flags given on the command line override them.
func Parse(args []string) (*Config, error) {
	cfg := defaults()
	var prefixes string

	fs := flag.NewFlagSet("reachd", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind to")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&cfg.Target, "target", "", "Host name or IP to check reachability for (default route if empty)")
	fs.StringVar(&prefixes, "cellular-prefixes", "", "Comma separated extra interface name prefixes treated as cellular")
	fs.DurationVar(&cfg.ResolveTimeout, "resolve-timeout", cfg.ResolveTimeout, "Timeout for resolving the target host")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "Serve Prometheus metrics on /metrics")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Path to a YAML config file")
	fs.BoolVar(&cfg.Once, "once", false, "Print the current reachability and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if prefixes != "" {
		cfg.CellularPrefixes = splitList(prefixes)
	}

	if cfg.ConfigFile == "" {
		return cfg, cfg.Validate()
	}

	file, err := LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg.merge(file, set)

	return cfg, cfg.Validate()
}

// merge copies values from file for every setting not given as a flag.
func (c *Config) merge(file *Config, set map[string]bool) {
	if !set["port"] && file.Port != 0 {
		c.Port = file.Port
	}
	if !set["host"] && file.Host != "" {
		c.Host = file.Host
	}
	if !set["log-level"] && file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if !set["target"] && file.Target != "" {
		c.Target = file.Target
	}
	if !set["cellular-prefixes"] && len(file.CellularPrefixes) > 0 {
		c.CellularPrefixes = file.CellularPrefixes
	}
	if !set["resolve-timeout"] && file.ResolveTimeout != 0 {
		c.ResolveTimeout = file.ResolveTimeout
	}
	if !set["metrics"] {
		c.Metrics = file.Metrics
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve timeout must be positive, got %s", c.ResolveTimeout)
	}
	return nil
}

// String returns a string representation of the Config
func (c *Config) String() string {
	target := c.Target
	if target == "" {
		target = "default route"
	}
	return fmt.Sprintf("Host: %s, Port: %d, LogLevel: %s, Target: %s, CellularPrefixes: %v, Metrics: %t",
		c.Host, c.Port, c.LogLevel, target, c.CellularPrefixes, c.Metrics)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
