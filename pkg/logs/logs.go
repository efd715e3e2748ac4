package logs

import (
	"bytes"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/component-base/featuregate"
	"k8s.io/component-base/logs"
	logsapi "k8s.io/component-base/logs/api/v1"

	_ "k8s.io/component-base/logs/json/register"
)

// securechat follows the Kubernetes logging conventions and writes logs in the
// Kubernetes text logging format by default. There are no named levels, only
// verbosity levels. Errors and warnings go to stderr and Info messages to
// stdout, which leaves stdout free of anything but Info output when a command
// pipes its result (an encrypted message, for example) elsewhere.
//
// Further reading:
//  - [Kubernetes logging conventions](https://github.com/kubernetes/community/blob/master/contributors/devel/sig-instrumentation/logging.md)
//  - [Examples of using k8s.io/component-base/logs](https://github.com/kubernetes/kubernetes/tree/master/staging/src/k8s.io/component-base/logs/example)

var (
	// All but the essential logging flags are hidden. The hidden flags can
	// still be used, e.g. --log-text-split-stream=false.
	visibleFlagNames = sets.New[string]("v", "vmodule", "logging-format")
	// Updated with values from the logging flags, even the hidden ones.
	configuration = logsapi.NewLoggingConfiguration()
	// Logging features are added to this feature gate, but the feature-gates
	// flag is hidden.
	features = featuregate.NewFeatureGate()
)

const (
	// Standard log verbosity levels.
	// Use these instead of integers in securechat code.
	Info  = 0
	Debug = 1
	Trace = 2
)

func init() {
	runtime.Must(logsapi.AddFeatureGates(features))
	// Turn on ALPHA options to enable the split-stream logging options.
	runtime.Must(features.OverrideDefault(logsapi.LoggingAlphaOptions, true))
}

// AddFlags adds log related flags to the supplied flag set.
//
// The split-stream options are enabled by default, so that errors are logged to
// stderr and info to stdout.
func AddFlags(fs *pflag.FlagSet) {
	var tfs pflag.FlagSet
	logsapi.AddFlags(configuration, &tfs)
	features.AddFlag(&tfs)
	tfs.VisitAll(func(f *pflag.Flag) {
		if !visibleFlagNames.Has(f.Name) {
			_ = tfs.MarkHidden(f.Name)
		}

		if f.Name == "logging-format" {
			f.Usage = `Sets the log format. Permitted formats: "json", "text".`
		}
		if f.Name == "log-text-split-stream" {
			f.DefValue = "true"
			runtime.Must(f.Value.Set("true"))
		}
		if f.Name == "log-json-split-stream" {
			f.DefValue = "true"
			runtime.Must(f.Value.Set("true"))
		}

		// --v is renamed to --log-level; -v keeps working.
		if f.Name == "v" {
			f.Name = "log-level"
			f.Shorthand = "v"
			f.Usage = fmt.Sprintf("%s. 0=Info, 1=Debug, 2=Trace. Use 3-10 for even greater detail. (default: 0)", f.Usage)
		}
	})
	fs.AddFlagSet(&tfs)
}

// Initialize uses k8s.io/component-base/logs, to configure the following global
// loggers: log, slog, and klog. All are configured to write in the same format.
func Initialize() error {
	// This configures the global logger in klog *and* slog.
	logs.InitLogs()
	if err := logsapi.ValidateAndApply(configuration, features); err != nil {
		return fmt.Errorf("Error in logging configuration: %s", err)
	}

	// slog.Default now uses klog as its backend. Anything still writing to the
	// global log.Default is routed through it too.
	log.Default().SetOutput(LogToSlogWriter{Slog: slog.Default(), Source: "log"})

	return nil
}

// LogToSlogWriter turns lines written by a *log.Logger into slog records.
// Lines mentioning "error" or "failed" are logged at error level.
type LogToSlogWriter struct {
	Slog   *slog.Logger
	Source string
}

func (w LogToSlogWriter) Write(p []byte) (n int, err error) {
	// log.Printf writes a newline at the end of the message, so we need to trim
	// it.
	p = bytes.TrimSuffix(p, []byte("\n"))

	message := string(p)
	if strings.Contains(message, "error") ||
		strings.Contains(message, "failed") {
		w.Slog.With("source", w.Source).Error(message)
	} else {
		w.Slog.With("source", w.Source).Info(message)
	}
	return len(p), nil
}
