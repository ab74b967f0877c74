// Package config provides configuration management for the gateway.
// config is built on top of the third-party modules viper and cobra
package config

import (
	"time"
)

type CompositorContract interface {
	LoadEnv() error
	LoadConf(path string) error
}

type Compositor struct {
	CMDLine *CMDLine
	Conf    *Conf
	Env     *Env
}

type Conf struct {
	Node            *Node       `mapstructure:"node"`
	HTTPServer      *HTTPServer `mapstructure:"http_server"`
	TLS             *TLS        `mapstructure:"tls"`
	Backend         *Backend    `mapstructure:"backend"`
	Metrics         *Metrics    `mapstructure:"metrics"`
	Audit           *Audit      `mapstructure:"audit"`
	Log             *Log        `mapstructure:"log"`
	DisableWarnings *[]string   `mapstructure:"disable_warnings"`
}

type Node struct {
	Mode       *string `mapstructure:"mode"`
	Name       *string `mapstructure:"name"`
	ShowConfig *bool   `mapstructure:"show_config"`
	MetaDir    *string `mapstructure:"meta_dir"`
}

type HTTPServer struct {
	Address        *string        `mapstructure:"address"`
	Port           *string        `mapstructure:"port"`
	Timeout        *time.Duration `mapstructure:"timeout"`
	IdleTimeout    *time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize    *int64         `mapstructure:"max_body_size"`
	MaxConnections *int           `mapstructure:"max_connections"`
}

type TLS struct {
	TlsEnabled *bool   `mapstructure:"enabled"`
	CertFile   *string `mapstructure:"cert_file"`
	KeyFile    *string `mapstructure:"key_file"`
}

// Backend describes the node the gateway protects.
type Backend struct {
	URL      *string        `mapstructure:"url"`
	User     *string        `mapstructure:"user"`
	Password *string        `mapstructure:"password" mask:"true"`
	Timeout  *time.Duration `mapstructure:"timeout"`
}

type Metrics struct {
	Enabled *bool   `mapstructure:"enabled"`
	Address *string `mapstructure:"address"`
}

type Audit struct {
	Enabled   *bool   `mapstructure:"enabled"`
	Path      *string `mapstructure:"path"`
	MaxRows   *int    `mapstructure:"max_rows"`
	QueueSize *int    `mapstructure:"queue_size"`
}

type Log struct {
	JSON    *bool   `mapstructure:"json_format"`
	Level   *string `mapstructure:"level"`
	OutPath *string `mapstructure:"output"`
}

// Env structure for environment variables
type Env struct {
	ConfigPath *string `mapstructure:"config_path"`
	NodePath   *string `mapstructure:"node_path"`
}

type CMDLine struct {
	Run       Run
	Policy    Policy
	Audit     AuditCMD
	Verusgate Root
}

type Root struct {
	Debug bool `persistent:"true" full:"debug" short:"d" def:"false" desc:"Set debug mode"`
}

type Run struct {
	ConfigPath string `persistent:"true" full:"config" short:"c" def:"" desc:"Path to configuration file"`
}

type Policy struct {
	Verbose bool `persistent:"true" full:"verbose" short:"v" def:"false" desc:"Print the reason of a denial"`
}

type AuditCMD struct {
	ConfigPath string `persistent:"true" full:"config" short:"c" def:"" desc:"Path to configuration file"`
	Limit      int    `persistent:"true" full:"limit" short:"n" def:"20" desc:"Number of records to show"`
}
