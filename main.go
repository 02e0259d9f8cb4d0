/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/nya/engine"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/spaghettifunk/nya/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path of the TOML configuration")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("load config: %s", err)
	}

	e, err := engine.New(cfg, testbed.NewTestGame())
	if err != nil {
		core.LogFatal("create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		if shutdownErr := e.Shutdown(); shutdownErr != nil {
			core.LogError("shutdown: %s", shutdownErr)
		}
		core.LogFatal("initialize engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// the window is closed from here, the main thread owns the teardown
	go func() {
		<-sigCh
		core.LogInfo("signal received, closing the window")
		e.RequestClose()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
