package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/fileserver-admin/notify"
	"github.com/moyoez/fileserver-admin/panel"
	"github.com/moyoez/fileserver-admin/session"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/transfer"
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlags(&appCfg, cfg)
	notify.SetUseNotify(appCfg.NotifyWS)

	client := transfer.New(transfer.Config{
		BaseURL:    appCfg.Server,
		ClientID:   appCfg.ClientID,
		HTTPClient: tool.NewHTTPClient(time.Duration(appCfg.TimeoutSeconds) * time.Second),
	})
	manager := session.NewManager(client, session.NewFileStore(appCfg.TokenDir), nil)

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"ls"}
	}

	// the panel server feeds the websocket hub, every other command prints to the terminal
	var target notify.Broadcaster = newTerminalBroadcaster(os.Stderr)
	var hub *notify.Hub
	if args[0] == "serve" {
		if appCfg.NotifyWS {
			hub = notify.NewHub()
			target = hub
		} else {
			target = nil
		}
	}
	ctrl := panel.New(panel.Options{
		Session:       manager,
		Files:         client,
		Notifier:      notify.NewNotifier(target),
		DownloadDir:   appCfg.DownloadDir,
		DefaultFolder: appCfg.DefaultFolder,
		SkipHealth:    cfg.SkipHealthCheck,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli{
		ctrl:   ctrl,
		flags:  cfg,
		config: appCfg,
		hub:    hub,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	if err := app.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
