package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"osteosex/config"
	"osteosex/logging"
)

var (
	name    = "estimate"
	version = "v0.0.1-default"
	commit  = ""

	configPathFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the YAML configuration (optional, defaults are used when missing)",
		Value: "config.yaml",
	}

	dbFilePathFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite result log (optional, overrides the configuration)",
	}

	noDBFlag = &cli.BoolFlag{
		Name:  "no-db",
		Usage: "Do not write results to the Sqlite log",
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     name,
		Version:  fmt.Sprintf("%s - (commit: %s)", version, commit),
		Compiled: time.Now(),
		Usage:    "Estimate sex from skeletal measurements",
		Flags: []cli.Flag{
			configPathFlag,
			dbFilePathFlag,
			noDBFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			csgCmd,
			vertebraCmd,
			elementsCmd,
		},
	}
}

// loadConfig reads --config, falling back to defaults when the file does
// not exist.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configPathFlag.Name))
	if os.IsNotExist(err) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if path := c.String(dbFilePathFlag.Name); path != "" {
		cfg.Database.Path = path
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) *zap.Logger {
	logCfg := cfg.Log
	logCfg.Console = true
	if c.Bool(debugFlag.Name) {
		logCfg.Level = "debug"
	}
	return logging.New(logCfg)
}
