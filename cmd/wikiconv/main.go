package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/kk-code-lab/wikiconv/internal/config"
	"github.com/kk-code-lab/wikiconv/internal/logging"
	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

var version = "dev"

// environment carries the resolved settings and logger into commands.
type environment struct {
	settings config.Settings
	log      zerolog.Logger
	getenv   func(string) string
}

func main() {
	app := newApp(os.Getenv)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wikiconv: %v\n", err)
		os.Exit(1)
	}
}

func newApp(getenv func(string) string) *cli.App {
	env := &environment{log: zerolog.Nop(), getenv: getenv}
	return &cli.App{
		Name:    "wikiconv",
		Usage:   "convert between wiki markup and canonical HTML",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file `PATH`"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "log-format", Value: "auto", Usage: "log format (auto, console, json)"},
			&cli.StringFlag{Name: "nesting", Usage: "malformed list policy (resync, drop, strict)"},
			&cli.BoolFlag{Name: "underline", Usage: "render __text__ as underline"},
			&cli.BoolFlag{Name: "no-bang-escape", Usage: "keep ! before WikiWords literal"},
			&cli.StringFlag{Name: "page-prefix", Usage: "URL prefix for page links"},
			&cli.IntFlag{Name: "tab-width", Usage: "tab stop width for indentation"},
			&cli.StringFlag{Name: "charset", Usage: "charset `LABEL` of HTML input"},
			&cli.StringFlag{Name: "store", Usage: "page store `PATH`"},
		},
		Before: env.setup,
		Commands: []*cli.Command{
			{
				Name:      "html",
				Usage:     "render wiki text as canonical HTML",
				ArgsUsage: "[FILE]",
				Action:    env.toHTML,
			},
			{
				Name:      "wiki",
				Usage:     "convert canonical HTML back to wiki text",
				ArgsUsage: "[FILE]",
				Action:    env.toWiki,
			},
			{
				Name:      "normalize",
				Usage:     "print the normalized HTML tree",
				ArgsUsage: "[FILE]",
				Action:    env.normalize,
			},
			{
				Name:      "check",
				Usage:     "verify that wiki files survive a round trip",
				ArgsUsage: "FILE...",
				Action:    env.check,
			},
			{
				Name:      "preview",
				Usage:     "show wiki text next to its HTML in the terminal",
				ArgsUsage: "FILE",
				Action:    env.preview,
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration as YAML",
				Action: env.printConfig,
			},
			pageCommand(env),
		},
	}
}

func (env *environment) setup(c *cli.Context) error {
	settings, err := config.Load(c.String("config"), env.getenv)
	if err != nil {
		return err
	}
	if c.IsSet("nesting") {
		policy, err := wiki.ParseNestingPolicy(c.String("nesting"))
		if err != nil {
			return err
		}
		settings.Wiki.Nesting = policy
	}
	if c.IsSet("underline") {
		settings.Wiki.Underline = c.Bool("underline")
	}
	if c.Bool("no-bang-escape") {
		settings.Wiki.BangEscape = false
	}
	if c.IsSet("page-prefix") {
		settings.Wiki.PageURLPrefix = c.String("page-prefix")
	}
	if c.IsSet("tab-width") {
		if c.Int("tab-width") <= 0 {
			return fmt.Errorf("tab width must be positive, got %d", c.Int("tab-width"))
		}
		settings.Wiki.TabWidth = c.Int("tab-width")
	}
	if c.IsSet("charset") {
		settings.Charset = c.String("charset")
	}
	if c.IsSet("store") {
		settings.StorePath = c.String("store")
	}
	if c.IsSet("log-level") {
		settings.LogLevel = c.String("log-level")
	}

	format, err := logging.ParseFormat(c.String("log-format"))
	if err != nil {
		return err
	}
	logger, err := logging.New(c.App.ErrWriter, settings.LogLevel, format)
	if err != nil {
		return err
	}
	env.settings = settings
	env.log = logger
	return nil
}

func (env *environment) printConfig(c *cli.Context) error {
	data, err := env.settings.Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}
