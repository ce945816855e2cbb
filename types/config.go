package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	Server         string `yaml:"server"`         // base URL of the file server, e.g. http://localhost:3000
	ClientID       string `yaml:"clientId"`       // tenant every file operation is scoped to
	TokenDir       string `yaml:"tokenDir"`       // where the bearer token is persisted
	DownloadDir    string `yaml:"downloadDir"`    // target directory of `get`
	DefaultFolder  string `yaml:"defaultFolder"`  // folder field sent with uploads when none is given
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // how long to wait for response headers
	PanelPort      int    `yaml:"panelPort"`      // port of the local panel server
	NotifyWS       bool   `yaml:"notifyWS"`       // expose /notify-ws on the panel server
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log             string
	UseConfigPath   string
	UseServer       string
	UseClientID     string
	UseTokenDir     string
	UseDownloadDir  string
	UseFolder       string
	UsePanelPort    int
	AssumeYes       bool // skip the delete confirmation prompt
	SkipHealthCheck bool
}
