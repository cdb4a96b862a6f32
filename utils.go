//go:build windows

package main

import (
	"context"
	"errors"
	"time"

	"netvardump/packages/Memory/interfaces"
	"netvardump/packages/Memory/logger"
	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/netvar"
	"netvardump/packages/Memory/process_monitor"
	"netvardump/packages/Memory/recvtable"
	"netvardump/packages/Memory/utils"
)

const (
	moduleWait   = 60 * time.Second
	pollInterval = time.Second
)

// Attach finds (or waits for) the game, opens it for reading and runs a
// single dump against it. The process handle is closed before returning.
func Attach(ctx context.Context, cfg utils.Config, log logger.Logger) ([]*netvar.ClassDescriptor, error) {
	target, err := process_monitor.FindProcess(cfg.Process)
	if errors.Is(err, process_monitor.ErrProcessNotFound) {
		log.Info("Waiting for process", "name", cfg.Process)
		target, err = process_monitor.WaitForProcess(ctx, cfg.Process)
	}
	if err != nil {
		return nil, err
	}

	log = log.With("pid", target.Pid)
	log.Info("Found process", "name", target.Name)

	mem, err := memory.NewLuna(target.Pid)
	if err != nil {
		return nil, err
	}
	defer mem.Close()

	if err := waitForModule(ctx, mem, cfg.Module, log); err != nil {
		return nil, err
	}

	resolver := interfaces.NewResolver(mem, recvtable.OptionsFromConfig(cfg))
	if regs, err := resolver.Interfaces(cfg.Module); err == nil {
		for _, r := range regs {
			log.Debug("Interface", "name", r.Name, "factory", r.CreateFn)
		}
	}

	_, classes, err := netvar.Run(resolver, netvar.Target{
		Module:    cfg.Module,
		Interface: cfg.Interface,
		Output:    cfg.Output,
	}, log)
	return classes, err
}

// waitForModule polls until module is mapped and the game shows a window,
// which is when the client has registered all of its classes.
func waitForModule(ctx context.Context, mem *memory.Luna, module string, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, moduleWait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := mem.EnumModules(); err != nil {
			log.Debug("Module list unavailable", "err", err)
		} else if mod, err := mem.Module(module); err == nil && process_monitor.IsProcessWindowInTaskbar(mem.Pid) {
			log.Info("Module loaded", "module", mod.Name, "base", mod.BaseAddress, "size", mod.Size)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
