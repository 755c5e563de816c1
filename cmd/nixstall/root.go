package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nixstall/nixstall/internal/version"
	"github.com/nixstall/nixstall/pkg/config"
	"github.com/nixstall/nixstall/pkg/errors"
	"github.com/nixstall/nixstall/pkg/install"
	"github.com/nixstall/nixstall/pkg/logging"
	"github.com/nixstall/nixstall/pkg/nixcfg"
	"github.com/nixstall/nixstall/pkg/storage"
	"github.com/nixstall/nixstall/pkg/style"
)

var (
	verbosity     int
	configPath    string
	globalStorage string

	rootCmd = &cobra.Command{
		Use:   "nixstall",
		Short: MsgRootShort,
		Long: `nixstall turns the choices collected by a host installer into a working
NixOS system: it assembles configuration.nix, probes the target hardware
and runs nixos-install against the target root.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Extra config file (default is /etc/nixstall/nixstall.toml)")
	rootCmd.PersistentFlags().StringVarP(&globalStorage, "global-storage", "g", "-", "Host installer state document, YAML ('-' reads stdin)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

// newJob loads the config, the host state document and the optional
// fragment catalog, then builds a job from them.
func newJob(opts install.Options) (*install.Job, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	gs, err := storage.Load(globalStorage, os.Stdin)
	if err != nil {
		return nil, err
	}

	catalog, err := nixcfg.LoadCatalog(cfg.Render.FragmentCatalog)
	if err != nil {
		return nil, err
	}

	opts.Config = cfg
	opts.GlobalStorage = gs
	opts.Catalog = catalog
	return install.New(opts), nil
}

// fail prints the (title, detail) pair to stderr and returns err so that
// main exits non-zero.
func fail(err error) error {
	title, detail := errors.Pair(err)
	fmt.Fprintln(os.Stderr, style.Failure(title, detail))
	return err
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: MsgRunShort,
	Long: `Run executes the whole pipeline: encryption keyfile setup when the
layout needs one, configuration rendering, hardware probing and finally
nixos-install. Intended to be invoked by the host installer with the
collected state document on stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := newJob(install.Options{Progress: newProgressPrinter(os.Stderr)})
		if err != nil {
			return fail(err)
		}
		if err := job.Run(cmd.Context()); err != nil {
			return fail(err)
		}
		fmt.Println(style.Success.Render(MsgInstallDone))
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: MsgRenderShort,
	Long: `Render assembles and substitutes configuration.nix from the state
document and prints it to stdout. No privileged command runs and the
target system is not touched; useful for previewing the result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := newJob(install.Options{})
		if err != nil {
			return fail(err)
		}
		text, err := job.Render(cmd.Context())
		if err != nil {
			return fail(err)
		}
		fmt.Print(text)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: MsgVersionShort,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nixstall version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
