package tool

import (
	"flag"

	"github.com/moyoez/fileserver-admin/types"
)

// SetFlags parses CLI flags and returns the override config. The remaining
// arguments (command and its operands) are available through flag.Args.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "prod", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseServer, "useServer", "", "override file server base URL")
	flag.StringVar(&cfg.UseClientID, "useClientId", "", "override the client (tenant) id")
	flag.StringVar(&cfg.UseTokenDir, "useTokenDir", "", "override the directory holding the saved token")
	flag.StringVar(&cfg.UseDownloadDir, "useDownloadDir", "", "override the download directory")
	flag.StringVar(&cfg.UseFolder, "useFolder", "", "folder used by ls (filter) and upload (target)")
	flag.IntVar(&cfg.UsePanelPort, "usePanelPort", 0, "override the local panel port (serve)")
	flag.BoolVar(&cfg.AssumeYes, "yes", false, "do not ask for confirmation before deleting")
	flag.BoolVar(&cfg.SkipHealthCheck, "skipHealthCheck", false, "do not check /health when entering the panel")
	flag.Parse()
	return cfg
}
