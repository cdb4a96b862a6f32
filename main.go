//go:build windows

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"netvardump/packages/Memory/logger"
	"netvardump/packages/Memory/netvar"
	"netvardump/packages/Memory/utils"
)

func main() {

	fmt.Println(`
            __                           __
  ____  ___/ /__  ______ ______  ______/ /_  ______ ___  ____
 / __ \/ _  / / | / / __ '/ ___/ / __  / / / / __ '__ \/ __ \
/ / / /  __/ /| |/ / /_/ / /    / /_/ / /_/ / / / / / / /_/ /
/_/ /_/\___/_/ |___/\__,_/_/     \__,_/\__,_/_/ /_/ /_/ .___/
                                                     /_/
`)

	configPath := flag.String("config", utils.DefaultConfigFile, "path to an HCL config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	summary := flag.Bool("summary", true, "print a table of dumped classes")
	flag.Parse()

	log := logger.NewStdOutLogger(*debug)

	_, explicit := setFlags()["config"]
	cfg, err := utils.LoadConfig(*configPath, !explicit)
	if err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	classes, err := Attach(ctx, cfg, log)
	if err != nil {
		log.Error("Dump failed", "err", err)
		os.Exit(1)
	}

	if *summary {
		netvar.RenderSummary(os.Stdout, classes)
	}
}

func setFlags() map[string]struct{} {
	set := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })
	return set
}
