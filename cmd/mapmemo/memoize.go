package main

import (
	"context"
	"fmt"
	"time"

	"github.com/drone/envsubst"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/cli"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/dstore"
	"github.com/streamingfast/mapmemo/digest"
	"github.com/streamingfast/mapmemo/memoizer"
	"github.com/streamingfast/mapmemo/source"
	"github.com/streamingfast/shutter"
	"go.uber.org/zap"
)

var memoizeCmd = Command(memoizeE,
	"memoize <input-store-url>",
	"Memoize every document found in an input store and report deduplication statistics",
	Description(`
		Reads every object of <input-store-url> (a local folder or any dstore URL like gs://, s3:// or az://)
		under --prefix, decodes its documents according to --format and memoizes them so that equal maps,
		lists and leaves are stored once.

		Arguments:
		- <input-store-url>: Store containing the documents, environment variables are expanded (ex: '${HOME}/docs').
	`),
	ExactArgs(1),
	Flags(func(flags *pflag.FlagSet) {
		addLoaderFlags(flags)
		flags.String("format", "jsonl", fmt.Sprintf("Format of the input objects, one of %v", source.Formats()))
		flags.String("prefix", "", "Only read input objects whose path starts with this prefix")
	}),
)

func addLoaderFlags(flags *pflag.FlagSet) {
	flags.String("id-field", "", "Top-level field used as document identifier, defaults to the document position '<object>:<line>'")
	flags.String("digest", digest.Default, fmt.Sprintf("Digest algorithm used to hash documents, one of %v", digest.Algorithms()))
	flags.StringArray("option", nil, "Memoizer option, can be repeated, one of KEEP_BLANKS, OMIT_LEAVES, OMIT_GC, USE_SYSTEM_HC")
	flags.Bool("strict", false, "Refuse any identifier seen twice, by default an identifier seen again with an equal document is accepted")
	flags.Bool("snake-case-keys", false, "Normalize keys to snake case, 'fooBar' and 'foo_bar' become the same key")
	flags.Uint64("parallelism", 4, "Number of documents normalized and hashed concurrently")
	flags.Duration("stats-interval", 15*time.Second, "Interval at which memoizer statistics are logged")
	flags.Bool("verify", false, "Re-read the source once completed and verify every stored document against its raw form")
	flags.String("dump", "", "If non-empty, output store URL where the canonical documents are written as JSONL, environment variables are expanded")
}

func memoizeE(cmd *cobra.Command, args []string) error {
	inputURL, err := envsubst.EvalEnv(args[0])
	if err != nil {
		return fmt.Errorf("expand input store url %q: %w", args[0], err)
	}

	src, err := source.NewStoreSource(inputURL, sflags.MustGetString(cmd, "prefix"), sflags.MustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	return runLoader(cmd, src)
}

func newLoader(cmd *cobra.Command, src source.Source) (*Loader, error) {
	flags, err := memoizer.ParseFlags(sflags.MustGetStringArray(cmd, "option"))
	if err != nil {
		return nil, err
	}

	if flags.Has(memoizer.ForkComplete) {
		return nil, fmt.Errorf("option FORK_COMPLETE is not supported by the loader, it completes the memoizer once")
	}

	var keys memoizer.KeyHandler[string] = memoizer.StringKeys{}
	if sflags.MustGetBool(cmd, "snake-case-keys") {
		keys = memoizer.SnakeCaseKeys{}
	}

	conflicts := memoizer.IdempotentConflicts
	if sflags.MustGetBool(cmd, "strict") {
		conflicts = memoizer.StrictConflicts
	}

	memo, err := memoizer.New[string, string](keys,
		memoizer.WithFlags(flags),
		memoizer.WithDigest(sflags.MustGetString(cmd, "digest")),
		memoizer.WithConflictPolicy(conflicts),
	)
	if err != nil {
		return nil, err
	}

	parallelism := int(sflags.MustGetUint64(cmd, "parallelism"))
	if parallelism < 1 {
		return nil, fmt.Errorf("parallelism must be at least 1")
	}

	loader := &Loader{
		Shutter:       shutter.New(),
		source:        src,
		idField:       sflags.MustGetString(cmd, "id-field"),
		parallelism:   parallelism,
		keys:          keys,
		flags:         flags,
		memoizer:      memo,
		verify:        sflags.MustGetBool(cmd, "verify"),
		stats:         NewStats(memo.Stats, zlog),
		statsInterval: sflags.MustGetDuration(cmd, "stats-interval"),
	}

	if dumpURL := sflags.MustGetString(cmd, "dump"); dumpURL != "" {
		expanded, err := envsubst.EvalEnv(dumpURL)
		if err != nil {
			return nil, fmt.Errorf("expand dump store url %q: %w", dumpURL, err)
		}

		loader.dumpStore, err = dstore.NewStore(expanded, "jsonl", "", true)
		if err != nil {
			return nil, fmt.Errorf("unable to create dump store %q: %w", expanded, err)
		}
	}

	return loader, nil
}

func runLoader(cmd *cobra.Command, src source.Source) error {
	app := shutter.New()

	ctx, cancelApp := context.WithCancel(cmd.Context())
	app.OnTerminating(func(_ error) {
		cancelApp()
	})

	memoizer.RegisterMetrics()

	loader, err := newLoader(cmd, src)
	if err != nil {
		return err
	}

	loader.OnTerminating(app.Shutdown)
	app.OnTerminating(func(err error) {
		loader.Shutdown(err)
	})

	go loader.Run(ctx)
	zlog.Info("ready, waiting for signal to quit")

	signalHandler, isSignaled, _ := cli.SetupSignalHandler(0*time.Second, zlog)
	select {
	case <-signalHandler:
		go app.Shutdown(nil)
		break
	case <-app.Terminating():
		zlog.Info("run terminating", zap.Bool("from_signal", isSignaled.Load()), zap.Bool("with_error", app.Err() != nil))
		break
	}

	zlog.Info("waiting for run termination")
	select {
	case <-app.Terminated():
	case <-time.After(30 * time.Second):
		zlog.Warn("application did not terminate within 30s")
	}

	if err := app.Err(); err != nil {
		zlog.Error("unsuccessful termination", zap.Error(err))
		return err
	}

	zlog.Info("run terminated gracefully")
	return nil
}
