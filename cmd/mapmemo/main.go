package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/dmetrics"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

// Version value, injected via go build `ldflags` at build time
var version = "dev"

func init() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.InfoLevel))
}

func main() {
	Run("mapmemo", "Canonicalize and deduplicate map documents",
		memoizeCmd,
		memoizePostgresCmd,

		ConfigureViper("MAPMEMO"),
		ConfigureVersion(version),

		PersistentFlags(diagnosticsFlags),
		AfterAllHook(func(cmd *cobra.Command) {
			cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
				serveDiagnostics(viper.GetString("global-metrics-listen-addr"), viper.GetString("global-pprof-listen-addr"))
			}
		}),
	)
}

// diagnosticsFlags registers the listen addresses of the optional metrics and
// profiling servers, both are off unless an address is given.
func diagnosticsFlags(flags *pflag.FlagSet) {
	flags.String("metrics-listen-addr", "", "If non-empty, serve the catalogue Prometheus metrics on this address")
	flags.String("pprof-listen-addr", "", "If non-empty, serve pprof profiles on this address while documents are memoized")
}

func serveDiagnostics(metricsAddr, pprofAddr string) {
	if metricsAddr != "" {
		zlog.Info("serving metrics", zap.String("listen_addr", metricsAddr))
		go dmetrics.Serve(metricsAddr)
	}

	if pprofAddr != "" {
		zlog.Info("serving pprof", zap.String("listen_addr", pprofAddr))
		go func() {
			if err := http.ListenAndServe(pprofAddr, pprofMux()); err != nil {
				zlog.Warn("pprof server stopped", zap.String("listen_addr", pprofAddr), zap.Error(err))
			}
		}()
	}
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
