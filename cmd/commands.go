package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"containerCracker/internal/adapter/container"
	"containerCracker/internal/adapter/session"
	"containerCracker/internal/config"
	"containerCracker/internal/core/domain"
	"containerCracker/internal/core/service"
	"containerCracker/internal/logging"
	"containerCracker/internal/pkg/metrics"
	"containerCracker/internal/platform/terminal"
	"containerCracker/internal/port"
)

var errPasswordNotFound = errors.New("password not found")

// app carries what the persistent pre-run builds for every command.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	store  port.SessionStore
}

type attackFlags struct {
	kind     string
	file     string
	mode     string
	wordlist string
	charset  string
	minLen   int
	maxLen   int
	workers  int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cracker",
		Short: "Recover the password of an encrypted ZIP or PDF file",
		Long: `cracker recovers the password of an encrypted ZIP archive or PDF document
by dictionary, hybrid or brute-force attack across all CPU cores.

Run without arguments on a terminal to start the interactive menu.
An interrupted attack is saved and can be continued with "cracker resume".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tcfg := a.terminalConfig(cmd)
			if !tcfg.Interactive {
				return cmd.Help()
			}
			return a.withConsole(tcfg, func(c *terminal.Console) error {
				return c.RunInteractive(cmd.Context())
			})
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAttackCmd(a), newResumeCmd(a), newSessionCmd(a), newConfigCmd(a))
	return root
}

func newAttackCmd(a *app) *cobra.Command {
	var f attackFlags

	cmd := &cobra.Command{
		Use:   "attack",
		Short: "Run an attack without prompts",
		Example: `  cracker attack --file secret.zip --mode dictionary --wordlist rockyou.txt
  cracker attack --type pdf --file report.pdf --mode bruteforce --charset ld --min 4 --max 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.session(a.cfg.Workers)
			if err != nil {
				return err
			}
			return a.withConsole(a.terminalConfig(cmd), func(c *terminal.Console) error {
				return outcome(c.RunAttack(cmd.Context(), s))
			})
		},
	}

	cmd.Flags().StringVarP(&f.kind, "type", "t", "", "container type: zip or pdf (detected from content when empty)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "path to the encrypted file")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(domain.ModeDictionary), "attack mode: dictionary, hybrid or bruteforce")
	cmd.Flags().StringVarP(&f.wordlist, "wordlist", "w", "", "wordlist for dictionary and hybrid modes")
	cmd.Flags().StringVarP(&f.charset, "charset", "c", "luds", "charset shortcuts for brute force (l, u, d, s, h, H)")
	cmd.Flags().IntVar(&f.minLen, "min", 4, "minimum brute-force length")
	cmd.Flags().IntVar(&f.maxLen, "max", 8, "maximum brute-force length")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "number of workers (default: config or CPU count)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Continue the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConsole(a.terminalConfig(cmd), func(c *terminal.Console) error {
				result, err := c.Resume(cmd.Context())
				if errors.Is(err, domain.ErrNoSession) {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved session.")
					return nil
				}
				return outcome(result, err)
			})
		},
	}
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or discard the saved session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Load()
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved session.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), terminal.RenderSession(terminal.NewStyles(cmd.OutOrStdout()), s))
			fmt.Fprintf(cmd.OutOrStdout(), "Session file: %s\n", session.Path(a.store))
			return nil
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return nil
		},
	})
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
		// the file being written may not exist or parse yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.store = session.NewFileStore(cfg.SessionFile, logger)
	logger.Debug("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("session_file", cfg.SessionFile),
		zap.Int("workers", cfg.Workers))
	return nil
}

func (a *app) terminalConfig(cmd *cobra.Command) *terminal.Config {
	tcfg := terminal.NewDefaultConfig()
	tcfg.In = cmd.InOrStdin()
	tcfg.Out = cmd.OutOrStdout()
	tcfg.Progress = tcfg.Progress && a.cfg.Progress
	tcfg.DefaultWorkers = a.cfg.Workers
	return tcfg
}

// withConsole wires the attack service for one command and releases the
// history file afterwards.
func (a *app) withConsole(tcfg *terminal.Config, fn func(*terminal.Console) error) error {
	var opts []service.Option
	if a.cfg.HistoryFile != "" {
		reporter, err := metrics.NewReporter(a.cfg.HistoryFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := reporter.Close(); err != nil {
				a.logger.Warn("failed to close history file", zap.Error(err))
			}
		}()
		opts = append(opts, service.WithReporter(reporter))
	}

	svc := service.NewAttackService(a.store, container.NewRegistry(a.logger), a.cfg, a.logger, opts...)
	return fn(terminal.NewConsole(svc, tcfg, a.logger))
}

// session turns the flags into an attack session. Flags that do not apply
// to the mode are left out.
func (f attackFlags) session(defaultWorkers int) (*domain.AttackSession, error) {
	path := terminal.StripQuotes(f.file)
	kind := domain.ContainerKind(strings.ToLower(f.kind))
	if kind == "" {
		detected, err := container.Detect(path)
		if err != nil {
			return nil, err
		}
		if detected == "" {
			return nil, fmt.Errorf("%w: cannot tell the type of %s, use --type", domain.ErrInvalidTarget, path)
		}
		kind = detected
	}

	s := &domain.AttackSession{
		Mode:     domain.AttackMode(strings.ToLower(f.mode)),
		FilePath: path,
		FileType: kind,
		Workers:  f.workers,
	}
	if s.Workers == 0 {
		s.Workers = defaultWorkers
	}

	if s.Mode == domain.ModeBruteForce {
		s.Charset = f.charset
		s.MinLength = f.minLen
		s.MaxLength = f.maxLen
	} else {
		s.Wordlist = terminal.StripQuotes(f.wordlist)
	}
	return s, nil
}

// outcome maps an attack result onto the command's error.
func outcome(result *domain.AttackResult, err error) error {
	if err != nil {
		return err
	}
	if result != nil && !result.Found() {
		return errPasswordNotFound
	}
	return nil
}
