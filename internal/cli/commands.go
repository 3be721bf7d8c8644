package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ngc-omeka/omeka-dist/internal/version"
	"github.com/ngc-omeka/omeka-dist/pkg/bootstrap"
	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/install"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/pipeline"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
	"github.com/ngc-omeka/omeka-dist/pkg/resolve"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		root      string
	)

	rootCmd := &cobra.Command{
		Use:     "omeka-dist",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&root, "root", "", "Distribution root (default $OMEKA_DIST_ROOT or the current directory)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInstallCmd(&root))
	rootCmd.AddCommand(newResolveCmd(&root))
	rootCmd.AddCommand(newCheckCmd(&root))
	rootCmd.AddCommand(newManifestCmd(&root))
	rootCmd.AddCommand(newGenConfigCmd(&root))

	return rootCmd
}

// initPaths resolves the distribution root and warns when it fell back to
// the working directory
func initPaths(cmd *cobra.Command, root string) (paths.Paths, error) {
	p, err := paths.New(root)
	if err != nil {
		return nil, err
	}
	if p.UsedFallback() {
		fmt.Fprintf(cmd.ErrOrStderr(), MsgUsingFallbackRoot, p.Root())
	}
	log.Debug().Str("root", p.Root()).Bool("fallback", p.UsedFallback()).Msg("Distribution root")
	return p, nil
}

// console creates a reporter on w, styled only when w is a terminal
func console(w io.Writer) *report.Console {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !report.ColorEnabled(f)
	}
	return report.NewConsole(w, noColor)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "omeka-dist version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(out, "Built:  %s\n", version.Date)
			}
		},
	}
}

func newInstallCmd(root *string) *cobra.Command {
	var checkDB bool

	cmd := &cobra.Command{
		Use:     "install",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		Example: MsgInstallExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := initPaths(cmd, *root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rep := console(out)
			noColor := true
			if f, ok := out.(*os.File); ok {
				noColor = !report.ColorEnabled(f)
			}

			runner := pipeline.New(layout, rep,
				pipeline.WithCheckDB(checkDB),
				pipeline.WithSummary(out, noColor),
			)
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().
				Str("run", result.RunID).
				Bool("installed", result.Installed).
				Bool("has_errors", result.HasErrors()).
				Msg("Install finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkDB, "check-db", false, "Ping the database after writing database.ini")
	return cmd
}

func newResolveCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <template-file>",
		Short:   MsgResolveShort,
		Long:    MsgResolveLong,
		Example: MsgResolveExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := initPaths(cmd, *root)
			if err != nil {
				return err
			}
			rep := console(cmd.ErrOrStderr())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, errors.ErrNotFound, "cannot read %s", args[0])
			}
			tpl, err := resolve.DecodeTemplate(data)
			if err != nil {
				return err
			}

			cfg, err := config.Load(layout.ConfigPath())
			if err != nil {
				return err
			}
			backend, err := pipeline.OmekaBackend(cfg, layout)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			if !cfg.API.HasKey() {
				stage := install.NewStage(backend.Installer, backend.Auth, backend.API, rep)
				if err := stage.Authenticate(cmd.Context(), cfg.Admin); err != nil {
					return err
				}
			}

			res, err := resolve.NewResolver(backend.API).Resolve(cmd.Context(), tpl)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				rep.Warning("%s", w)
			}

			payload, err := json.MarshalIndent(res.Template, "", "  ")
			if err != nil {
				return errors.Wrap(err, errors.ErrInternal, "failed to render template")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
}

func newCheckCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: MsgCheckShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := initPaths(cmd, *root)
			if err != nil {
				return err
			}
			rep := console(cmd.OutOrStdout())

			db, err := bootstrap.ReadCredentials(layout.DatabaseIniPath())
			if err != nil {
				return err
			}
			if err := bootstrap.CheckDatabase(cmd.Context(), db); err != nil {
				return err
			}
			rep.Success(MsgDatabaseOK)
			return nil
		},
	}
}

func newManifestCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: MsgManifestShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := initPaths(cmd, *root)
			if err != nil {
				return err
			}
			m, err := manifest.Load(layout.ManifestPath())
			if err != nil {
				return err
			}
			out, err := m.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newGenConfigCmd(root *string) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:     "genconfig",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		Example: MsgGenConfigExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := config.GenerateConfigContent()
			if err != nil {
				return errors.Wrap(err, errors.ErrInternal, "failed to generate config")
			}
			if !write {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}

			layout, err := initPaths(cmd, *root)
			if err != nil {
				return err
			}
			target := filepath.Join(layout.ConfigDir(), paths.ConfigFileTOML)
			if _, err := os.Stat(target); err == nil {
				return errors.Newf(errors.ErrInvalidInput, MsgConfigExists, target)
			}
			if err := bootstrap.NewWriter().Apply(cmd.Context(), []bootstrap.FileOp{
				{Target: target, Content: []byte(content), Mode: 0o644},
			}); err != nil {
				return err
			}
			console(cmd.OutOrStdout()).Success(MsgConfigWritten, target)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write config/config.toml instead of printing to stdout")
	return cmd
}
