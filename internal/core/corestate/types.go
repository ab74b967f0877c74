package corestate

// CoreState is the meta-information the node collects while booting:
// who it is, where it runs and which stage it reached.
type CoreState struct {
	NodeID string

	StartTimestampUnix int64

	NodeBinName string
	NodeVersion string

	Stage Stage

	NodePath string
	MetaDir  string
	RunDir   string
}
