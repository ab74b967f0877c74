package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ErrNoBackendURL      = errors.New("backend.url is not set")
	ErrInvalidBackendURL = errors.New("backend.url must be an absolute http(s) url")
	ErrInvalidBodySize   = errors.New("http_server.max_body_size must be positive")
)

func NewCompositor() *Compositor {
	return &Compositor{}
}

func (c *Compositor) LoadEnv() error {
	v := viper.New()

	// defaults
	v.SetDefault("config_path", "./config.yaml")
	v.SetDefault("node_path", "./")

	// VG_*
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return fmt.Errorf("error unmarshaling env: %w", err)
	}

	c.Env = &env
	return nil
}

func (c *Compositor) LoadConf(path string) error {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// every key below may also be set as VG_<SECTION>_<KEY>, e.g. VG_BACKEND_PASSWORD
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// defaults
	v.SetDefault("node.name", "verusgate")
	v.SetDefault("node.mode", "prod")
	v.SetDefault("node.show_config", false)
	v.SetDefault("node.meta_dir", MetaDir)
	v.SetDefault("http_server.address", "0.0.0.0")
	v.SetDefault("http_server.port", "8080")
	v.SetDefault("http_server.timeout", "0s")
	v.SetDefault("http_server.idle_timeout", "60s")
	v.SetDefault("http_server.max_body_size", DefaultMaxBodySize)
	v.SetDefault("http_server.max_connections", 0)
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert_file", "./cert/server.crt")
	v.SetDefault("tls.key_file", "./cert/server.key")
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.user", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "./audit.db")
	v.SetDefault("audit.max_rows", 100000)
	v.SetDefault("audit.queue_size", 1024)
	v.SetDefault("log.json_format", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "%2%")
	v.SetDefault("disable_warnings", []string{})

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	var cfg Conf
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	c.Conf = &cfg
	return nil
}

// Validate checks the values the gateway cannot start without.
func (c *Compositor) Validate() error {
	if c.Conf == nil || c.Conf.Backend == nil || c.Conf.Backend.URL == nil || *c.Conf.Backend.URL == "" {
		return ErrNoBackendURL
	}
	u, err := url.Parse(*c.Conf.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBackendURL, *c.Conf.Backend.URL)
	}
	if c.Conf.HTTPServer == nil || c.Conf.HTTPServer.MaxBodySize == nil || *c.Conf.HTTPServer.MaxBodySize <= 0 {
		return ErrInvalidBodySize
	}
	return nil
}

// NodeRelative resolves a configured path against node_path. Absolute paths are kept.
func (c *Compositor) NodeRelative(p string) string {
	if filepath.IsAbs(p) || c.Env == nil || c.Env.NodePath == nil {
		return p
	}
	return filepath.Join(*c.Env.NodePath, p)
}

func (c *Compositor) LoadCMDLine(root *cobra.Command) {
	cmdLine := &CMDLine{}
	c.CMDLine = cmdLine

	t := reflect.TypeOf(cmdLine).Elem()
	v := reflect.ValueOf(cmdLine).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		ptr := fieldVal.Addr().Interface()
		use := strings.ToLower(field.Name)

		var cmd *cobra.Command
		for _, sub := range root.Commands() {
			if sub.Name() == use {
				cmd = sub
				break
			}
		}

		if use == root.Name() {
			cmd = root
		}

		if cmd == nil {
			continue
		}

		Unmarshal(cmd, ptr)
	}
}

// Unmarshal registers a flag on cmd for every tagged field of target.
func Unmarshal(cmd *cobra.Command, target any) {
	t := reflect.TypeOf(target).Elem()
	v := reflect.ValueOf(target).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		valPtr := v.Field(i).Addr().Interface()

		full := field.Tag.Get("full")
		short := field.Tag.Get("short")
		def := field.Tag.Get("def")
		desc := field.Tag.Get("desc")
		isPersistent := field.Tag.Get("persistent") == "true"

		flagSet := cmd.Flags()
		if isPersistent {
			flagSet = cmd.PersistentFlags()
		}

		switch field.Type.Kind() {
		case reflect.String:
			flagSet.StringVarP(valPtr.(*string), full, short, def, desc)

		case reflect.Bool:
			defVal, err := strconv.ParseBool(def)
			if err != nil && def != "" {
				fmt.Printf("warning: cannot parse default bool: %q\n", def)
			}
			flagSet.BoolVarP(valPtr.(*bool), full, short, defVal, desc)

		case reflect.Int:
			defVal, err := strconv.Atoi(def)
			if err != nil && def != "" {
				fmt.Printf("warning: cannot parse default int: %q\n", def)
			}
			flagSet.IntVarP(valPtr.(*int), full, short, defVal, desc)

		case reflect.Slice:
			if field.Type.Elem().Kind() != reflect.String {
				fmt.Printf("unsupported slice element type: %s\n", field.Type.Elem().Kind())
				continue
			}
			defVals := []string{}
			if def != "" {
				defVals = strings.Split(def, ",")
			}
			flagSet.StringSliceVarP(valPtr.(*[]string), full, short, defVals, desc)

		default:
			fmt.Printf("unsupported field type: %s\n", field.Type.Kind())
		}
	}
}
