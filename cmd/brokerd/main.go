package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdaemon "github.com/coreos/go-systemd/v22/daemon"

	"notibroker/internal/app"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config (json or yaml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}
	_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyStopping)
	_ = a.Stop(context.Background())
}
