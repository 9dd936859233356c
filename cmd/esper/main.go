package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mjc-gh/esper/internal/config"
	"github.com/mjc-gh/esper/internal/logging"
	"github.com/mjc-gh/esper/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := config.DefaultFlags()

	fs := flag.NewFlagSet("esper", flag.ContinueOnError)
	fs.StringVar(&flags.Bind, "bind", flags.Bind, "address to bind")
	fs.IntVar(&flags.Port, "port", flags.Port, "port to listen on")
	fs.IntVar(&flags.Threads, "threads", flags.Threads, "number of worker executors")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.BoolVar(showVersion, "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 0
	}

	if *showVersion {
		fmt.Println("esper " + version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	format := logging.FormatJSON
	if cfg.LogFormat == "pretty" {
		format = logging.FormatPretty
	}
	logger := logging.New(cfg.ZerologLevel(), format)
	cfg.LogConfig(logger)

	srv := server.New(flags, cfg, logger, prometheus.NewRegistry())
	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server failed to start")
		return 1
	}

	return 0
}
