package config

// NodeVersion is the version of the gateway. It can be set by the build system or manually.
// If not set, it will return "v0.0.0-none" by default
var NodeVersion string

// MetaDir is where the persistent node identifier lives by default.
var MetaDir string = "./.meta"

// RuntimeDirSuffix is appended to the node id when creating the runtime directory in os.TempDir().
var RuntimeDirSuffix string = "verusgate-runtime"

// DefaultMaxBodySize is the request body ceiling, 10 MiB.
var DefaultMaxBodySize int64 = 10 << 20

// EnvPrefix is the prefix of every environment variable read by the gateway.
var EnvPrefix string = "VG"

func init() {
	if NodeVersion == "" {
		NodeVersion = "v0.0.0-none"
	}
}
