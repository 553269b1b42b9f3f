package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/settingstree/internal/application"
	"github.com/eugenenazirov/settingstree/internal/config"
	"github.com/eugenenazirov/settingstree/internal/logging"
	"github.com/eugenenazirov/settingstree/internal/registry"
	"github.com/eugenenazirov/settingstree/internal/tree"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application

	configFile *string
	env        *string
	envSet     bool
	logLevel   *string
	sources    *[]string

	serve     *kingpin.CmdClause
	port      *string
	rateRPS   *float64
	rateBurst *int

	get       *kingpin.CmdClause
	getGroup  *string
	getPath   *string
	getFormat *string
	getFlat   *bool

	dump   *kingpin.CmdClause
	groups *kingpin.CmdClause
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("settingstree", "Hierarchical settings store - merges YAML defaults with the active environment")}

	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.env = c.app.Flag("env", "Active environment section (empty selects defaults only)").IsSetByUser(&c.envSet).String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.sources = c.app.Flag("source", "Settings source as group=path, repeatable").Strings()

	c.serve = c.app.Command("serve", "Serve the settings inspector over HTTP").Default()
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	c.get = c.app.Command("get", "Print the merged settings of a group, or one value by dotted path")
	c.getGroup = c.get.Arg("group", "Settings group name").Required().String()
	c.getPath = c.get.Arg("path", "Dotted path inside the group").String()
	c.getFormat = c.get.Flag("format", "Output format").Default("yaml").Enum("yaml", "json")
	c.getFlat = c.get.Flag("flat", "Print leaves keyed by dotted path").Bool()

	c.dump = c.app.Command("dump", "Print every group as one YAML document")
	c.groups = c.app.Command("groups", "List registered groups and their sources")

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		Sources:    *c.sources,
	}
	if c.envSet {
		overrides.Environment = c.env
	}
	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}
	if *c.port != "" {
		overrides.Port = c.port
	}
	if *c.rateRPS >= 0 {
		overrides.RateLimitRPS = c.rateRPS
	}
	if *c.rateBurst >= 0 {
		overrides.RateLimitBurst = c.rateBurst
	}
	return overrides
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	if command == c.serve.FullCommand() {
		serve(cfg, logger)
		return
	}

	if err := c.run(command, cfg, logger, os.Stdout); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run executes the one-shot commands against a freshly loaded registry.
func (c *cli) run(command string, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	reg, err := application.LoadRegistry(cfg, logger)
	if err != nil {
		return err
	}

	switch command {
	case c.get.FullCommand():
		return printSettings(out, reg, *c.getGroup, *c.getPath, *c.getFormat, *c.getFlat)
	case c.dump.FullCommand():
		return reg.Dump(out)
	case c.groups.FullCommand():
		return printGroups(out, reg)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printSettings(out io.Writer, reg *registry.Registry, group, path, format string, flat bool) error {
	value, err := reg.Lookup(group, path)
	if err != nil {
		return err
	}
	if value.IsAbsent() {
		return fmt.Errorf("no setting at path %q in group %q", path, registry.NormalizeName(group))
	}

	payload := value
	if flat {
		payload = tree.FromAny(tree.Flatten(value))
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		return nil
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

func printGroups(out io.Writer, reg *registry.Registry) error {
	for _, name := range reg.Groups() {
		sources, err := reg.Sources(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
		for _, src := range sources {
			if _, err := fmt.Fprintf(out, "  %s\n", src); err != nil {
				return err
			}
		}
	}
	return nil
}

func serve(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
