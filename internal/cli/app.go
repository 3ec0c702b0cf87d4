package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moneymanager/internal/config"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/planfile"
	"moneymanager/internal/report"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
)

// OpenFunc opens the services a command runs against.
type OpenFunc func(ctx context.Context, cfg *config.Config) (*services.Services, error)

// App is the moneyctl command tree.
type App struct {
	rootCmd *cobra.Command
	out     console
	open    OpenFunc

	envFile string
	user    string
	backend string
	dbPath  string
}

// NewApp builds moneyctl. A nil open uses the backend named by the config.
func NewApp(out io.Writer, open OpenFunc) *App {
	if out == nil {
		out = os.Stdout
	}
	app := &App{out: console{out: out}, open: open}
	if app.open == nil {
		app.open = func(ctx context.Context, cfg *config.Config) (*services.Services, error) {
			logger := log.New(log.Config{
				Level:     log.ParseLevel(cfg.LogLevel),
				Format:    cfg.LogFormat,
				Component: log.ComponentCLI,
				Output:    os.Stderr,
			})
			return OpenServices(ctx, cfg, logger)
		}
	}

	root := &cobra.Command{
		Use:           "moneyctl",
		Short:         "Administer money manager plans and monthly budgets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&app.envFile, "env-file", "", "Load environment variables from this file")
	root.PersistentFlags().StringVarP(&app.user, "user", "u", core.DefaultUserScope, "User scope to operate on")
	root.PersistentFlags().StringVar(&app.backend, "backend", "", "Override DATA_BACKEND (memory, sqlite)")
	root.PersistentFlags().StringVar(&app.dbPath, "db", "", "Override SQLITE_DB_PATH")

	root.AddCommand(app.migrateCmd(), app.planCmd(), app.monthCmd(), app.investmentsCmd())
	app.rootCmd = root
	return app
}

// Execute runs the CLI with os.Args.
func (app *App) Execute(ctx context.Context) error {
	return app.rootCmd.ExecuteContext(ctx)
}

// Run executes the CLI with explicit arguments.
func (app *App) Run(ctx context.Context, args ...string) error {
	app.rootCmd.SetArgs(args)
	return app.rootCmd.ExecuteContext(ctx)
}

func (app *App) config() (*config.Config, error) {
	if app.envFile != "" {
		if err := LoadEnvFile(app.envFile); err != nil {
			return nil, err
		}
	} else {
		_ = LoadEnvFile()
	}
	cfg := config.Load()
	if app.backend != "" {
		cfg.DataBackend = app.backend
	}
	if app.dbPath != "" {
		cfg.SQLiteDBPath = app.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withServices opens the services for one command and closes them afterwards.
func (app *App) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *services.Services) error) error {
	cfg, err := app.config()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := app.open(ctx, cfg)
	if err != nil {
		return err
	}
	return errors.Join(fn(ctx, svc), svc.Close())
}

func (app *App) migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			if !status {
				if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
					return err
				}
			}
			version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			if dirty {
				return fmt.Errorf("schema version %d is dirty; fix the database and rerun", version)
			}
			app.out.success("Schema at version %d (%s)", version, cfg.SQLiteDBPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Only report the current schema version")
	return cmd
}

func (app *App) planCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "plan", Short: "Show, import or export the master plan"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the master plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				p, err := svc.Plans.GetPlan(ctx, app.user)
				if errors.Is(err, core.ErrNotFound) {
					app.out.info("No plan for %s", core.ScopeOrDefault(app.user))
					return nil
				}
				if err != nil {
					return err
				}
				return app.out.plan(p)
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the master plan with a YAML or TOML plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := planfile.Load(args[0])
			if err != nil {
				return err
			}
			scope := file.UserID
			if scope == "" || cmd.Flags().Changed("user") {
				scope = app.user
			}
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				p, err := svc.Plans.SavePlan(ctx, scope, file.Name, file.PlanCategories())
				if err != nil {
					return err
				}
				app.out.success("Imported %d categories into %q for %s (version %d)", len(p.Categories), p.Name, p.UserScope, p.Version)
				return nil
			})
		},
	}

	var format string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the master plan as YAML or TOML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				p, err := svc.Plans.GetPlan(ctx, app.user)
				if err != nil {
					return err
				}
				return planfile.Encode(cmd.OutOrStdout(), planfile.FromPlan(p), planfile.Format(format))
			})
		},
	}
	export.Flags().StringVar(&format, "format", string(planfile.YAML), "Output format: yaml or toml")

	cmd.AddCommand(show, importCmd, export)
	return cmd
}

func (app *App) monthCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "month", Short: "Inspect monthly budgets"}

	show := &cobra.Command{
		Use:   "show YEAR MONTH",
		Short: "Print a month's budget, creating it from the plan if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args)
			if err != nil {
				return err
			}
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				b, err := svc.Months.GetOrCreate(ctx, year, month, app.user)
				if err != nil {
					return err
				}
				return app.out.month(b)
			})
		},
	}

	var outPath string
	reportCmd := &cobra.Command{
		Use:   "report YEAR MONTH",
		Short: "Render a month's budget as a PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args)
			if err != nil {
				return err
			}
			path := outPath
			if path == "" {
				path = fmt.Sprintf("budget-%04d-%02d.pdf", year, month)
			}
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				b, err := svc.Months.GetOrCreate(ctx, year, month, app.user)
				if err != nil {
					return err
				}
				if err := report.WriteFile(path, b, time.Now()); err != nil {
					return err
				}
				app.out.success("Report written to %s", path)
				return nil
			})
		},
	}
	reportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default budget-YYYY-MM.pdf)")

	reset := &cobra.Command{
		Use:   "reset YEAR MONTH",
		Short: "Delete a month's budget and items so it is copied from the plan again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args)
			if err != nil {
				return err
			}
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				if err := svc.Months.Reset(ctx, year, month, app.user); err != nil {
					return err
				}
				app.out.success("Reset %04d-%02d", year, month)
				return nil
			})
		},
	}

	cmd.AddCommand(show, reportCmd, reset)
	return cmd
}

func (app *App) investmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "investments",
		Short: "List tracked investments with the portfolio totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withServices(cmd, func(ctx context.Context, svc *services.Services) error {
				items, err := svc.Investments.List(ctx)
				if err != nil {
					return err
				}
				return app.out.investments(items, core.SummarizePortfolio(items))
			})
		},
	}
}

func parseYearMonth(args []string) (int, int, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, core.ErrInvalidYear
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, core.ErrInvalidMonth
	}
	return year, month, core.ValidateYearMonth(year, month)
}
