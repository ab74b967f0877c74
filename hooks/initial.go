package hooks

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/akyaiy/verusgate/internal/core/corestate"
	"github.com/akyaiy/verusgate/internal/core/run_manager"
	"github.com/akyaiy/verusgate/internal/core/utils"
	"github.com/akyaiy/verusgate/internal/engine/app"
	"github.com/akyaiy/verusgate/internal/engine/config"
	"github.com/akyaiy/verusgate/internal/engine/logs"
	"gopkg.in/ini.v1"
)

// Compositor is shared with the command line so parsed flags reach the hooks.
var Compositor *config.Compositor = config.NewCompositor()

func Init0Hook(cs *corestate.CoreState, x *app.AppX) {
	x.Config = Compositor
	x.Log.SetOutput(os.Stdout)
	x.Log.SetPrefix(logs.SetBrightBlack(fmt.Sprintf("(%s) ", cs.Stage)))
	x.Log.SetFlags(log.Ldate | log.Ltime)
}

// First stage: pre-init
func Init1Hook(cs *corestate.CoreState, x *app.AppX) {
	*cs = *corestate.NewCorestate(&corestate.CoreState{
		NodeBinName:        filepath.Base(os.Args[0]),
		NodeVersion:        config.NodeVersion,
		MetaDir:            config.MetaDir,
		Stage:              corestate.StagePreInit,
		StartTimestampUnix: time.Now().Unix(),
	})
}

func Init2Hook(cs *corestate.CoreState, x *app.AppX) {
	x.Log.SetPrefix(logs.SetBlue(fmt.Sprintf("(%s) ", cs.Stage)))

	if err := x.Config.LoadEnv(); err != nil {
		x.Log.Fatalf("env load error: %s", err)
	}
	cs.NodePath = *x.Config.Env.NodePath

	if cfgPath := x.Config.CMDLine.Run.ConfigPath; cfgPath != "" {
		x.Config.Env.ConfigPath = &cfgPath
	}
	if err := x.Config.LoadConf(*x.Config.Env.ConfigPath); err != nil {
		x.Log.Fatalf("conf load error: %s", err)
	}
	if err := x.Config.Validate(); err != nil {
		x.Log.Fatalf("invalid configuration: %s", err)
	}

	if x.Config.CMDLine.Verusgate.Debug {
		debug := "debug"
		x.Config.Conf.Log.Level = &debug
	}
	cs.MetaDir = x.Config.NodeRelative(*x.Config.Conf.Node.MetaDir)
}

func Init3Hook(cs *corestate.CoreState, x *app.AppX) {
	id, err := corestate.LoadNodeID(cs.MetaDir)
	if err != nil {
		x.Log.Fatalf("node id load error: %s", err)
	}
	cs.NodeID = id
	x.Log.Printf("Node id is %s", cs.NodeID)
}

// post-init stage
func Init4Hook(cs *corestate.CoreState, x *app.AppX) {
	cs.Stage = corestate.StagePostInit
	x.Log.SetPrefix(logs.SetYellow(fmt.Sprintf("(%s) ", cs.Stage)))

	exist, err := utils.ExistsMatchingDirs(run_manager.Pattern(cs.NodeID), "")
	if err != nil {
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
	if exist {
		x.Log.Fatalf("Unable to continue node operation: A node with the same identifier was found in the runtime environment")
	}

	runDir, err := run_manager.Create(cs.NodeID)
	if err != nil {
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
	cs.RunDir = runDir

	if err := run_manager.Set("run.lock"); err != nil {
		_ = run_manager.Clean()
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
	lockPath, err := run_manager.Get("run.lock")
	if err != nil {
		_ = run_manager.Clean()
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
	if err := writeRunLock(lockPath, cs, x.Config.Conf); err != nil {
		_ = run_manager.Clean()
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
}

func Init5Hook(cs *corestate.CoreState, x *app.AppX) {
	disabled := *x.Config.Conf.DisableWarnings
	if !slices.Contains(disabled, "--WNonStdTmpDir") && os.TempDir() != "/tmp" {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "Non-standard value specified for temporary directory")
	}
	if !slices.Contains(disabled, "--WNoBackendAuth") && *x.Config.Conf.Backend.User == "" && *x.Config.Conf.Backend.Password == "" {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "No credentials configured for the backend node")
	}
	if !slices.Contains(disabled, "--WDevMode") && *x.Config.Conf.Node.Mode == "dev" {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "Node is running in dev mode")
	}
	if strings.Contains(*x.Config.Conf.Log.OutPath, `%tmp%`) {
		replaced := strings.ReplaceAll(*x.Config.Conf.Log.OutPath, "%tmp%", filepath.Clean(run_manager.RuntimeDir()))
		x.Config.Conf.Log.OutPath = &replaced
	}

	if *x.Config.Conf.Node.ShowConfig {
		fmt.Println("Configuration from", *x.Config.Env.ConfigPath)
		x.Config.Print(os.Stdout, x.Config.Conf)
	}
}

func Init6Hook(cs *corestate.CoreState, x *app.AppX) {
	cs.Stage = corestate.StageReady
	x.Log.SetPrefix(logs.SetGreen(fmt.Sprintf("(%s) ", cs.Stage)))

	newSlog, err := logs.SetupLogger(x.Config.Conf.Log)
	if err != nil {
		_ = run_manager.Clean()
		x.Log.Fatalf("Unexpected failure: %s", err.Error())
	}
	x.SLog = newSlog.With("node", *x.Config.Conf.Node.Name)
}

func writeRunLock(path string, cs *corestate.CoreState, conf *config.Conf) error {
	lockFile := ini.Empty()
	secRun, err := lockFile.NewSection("runtime")
	if err != nil {
		return err
	}
	secRun.Key("pid").SetValue(fmt.Sprintf("%d", os.Getpid()))
	secRun.Key("version").SetValue(cs.NodeVersion)
	secRun.Key("node-id").SetValue(cs.NodeID)
	secRun.Key("timestamp").SetValue(time.Unix(cs.StartTimestampUnix, 0).Format("2006-01-02/15:04:05 MST"))
	secRun.Key("timestamp-unix").SetValue(fmt.Sprintf("%d", cs.StartTimestampUnix))

	secNet, err := lockFile.NewSection("listen")
	if err != nil {
		return err
	}
	secNet.Key("rpc").SetValue(fmt.Sprintf("%s:%s", *conf.HTTPServer.Address, *conf.HTTPServer.Port))
	if *conf.Metrics.Enabled {
		secNet.Key("metrics").SetValue(*conf.Metrics.Address)
	}
	return lockFile.SaveTo(path)
}
