package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/infrastructure/config"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
	"github.com/xerocraft/backend/internal/infrastructure/migration"
	"github.com/xerocraft/backend/internal/infrastructure/persistence"
	"github.com/xerocraft/backend/internal/infrastructure/persistence/models"
	"github.com/xerocraft/backend/internal/infrastructure/telemetry"
	"github.com/xerocraft/backend/internal/migrations"
)

// env carries what every command needs. Tests swap the config loader and
// the output.
type env struct {
	loadConfig func() (*config.Config, error)
	out        io.Writer

	logLevel string
	cfg      *config.Config
	log      *zap.Logger
	tel      *telemetry.Provider
	span     trace.Span
}

func defaultEnv() *env {
	return &env{loadConfig: config.Load, out: os.Stdout}
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply, inspect and export the Xerocraft schema ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			level := cfg.Log.Level
			if e.logLevel != "" {
				level = e.logLevel
			}
			log, err := logger.FromSettings(cfg.App.Env, level, "console", "stderr")
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			tel, err := telemetry.Setup(cmd.Context(), cfg.Telemetry, version, log)
			if err != nil {
				return fmt.Errorf("initialize telemetry: %w", err)
			}
			e.cfg, e.tel = cfg, tel
			e.log = log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
				return zapcore.NewTee(c, tel.ZapCore())
			}))

			// One trace per invocation; statement spans hang off it.
			ctx, span := tel.TracerProvider().Tracer("github.com/xerocraft/backend/cmd/migrate").
				Start(cmd.Context(), "migrate "+cmd.Name())
			cmd.SetContext(ctx)
			e.span = span
			return nil
		},
	}
	root.SetOut(e.out)
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		newUpCommand(e),
		newDownCommand(e),
		newPlanCommand(e),
		newShowCommand(e),
		newSQLCommand(e),
		newCheckCommand(e),
		newCreateCommand(e),
		newExportCommand(e),
		newListCommand(e),
		newApplyExportCommand(e),
	)
	return root
}

// close ends the command span and flushes telemetry and logs. It runs after
// Execute whether or not the command failed.
func (e *env) close() {
	if e.span != nil {
		e.span.End()
	}
	if e.tel != nil {
		_ = e.tel.Shutdown(context.Background())
	}
	if e.log != nil {
		_ = logger.Sync(e.log)
	}
}

// withExecutor opens the configured database and runs fn with an executor
// over the full ledger.
func (e *env) withExecutor(fn func(*migration.Executor) error) error {
	db, err := persistence.NewDatabaseWithLogger(&e.cfg.Database, e.log, "warn")
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			e.log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.TraceDB(db.DB, e.cfg.Telemetry, e.tel.TracerProvider(), e.log); err != nil {
		return err
	}

	g, err := migrations.Graph()
	if err != nil {
		return err
	}
	exec, err := migration.NewExecutor(db.DB, g, e.log)
	if err != nil {
		return err
	}
	return fn(exec)
}

// targetArgs turns [app [name]] into migration targets. An app alone means
// its leaf.
func targetArgs(g *ledger.Graph, args []string) ([]ledger.Key, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		leaf, err := g.Leaf(args[0])
		if err != nil {
			return nil, err
		}
		return []ledger.Key{leaf}, nil
	default:
		key := ledger.Key{App: args[0], Name: args[1]}
		if _, ok := g.Node(key); !ok {
			return nil, fmt.Errorf("%w: %s", ledger.ErrNodeNotFound, key)
		}
		return []ledger.Key{key}, nil
	}
}

func newUpCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "up [app [name]]",
		Short: "Apply unapplied migrations, up to the given one or every leaf",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withExecutor(func(exec *migration.Executor) error {
				targets, err := targetArgs(exec.Graph(), args)
				if err != nil {
					return err
				}
				return exec.Migrate(cmd.Context(), targets...)
			})
		},
	}
}

func newDownCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "down <app> <name|zero>",
		Short: "Unapply an app back to the given migration, or entirely with zero",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withExecutor(func(exec *migration.Executor) error {
				return exec.Unapply(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newPlanCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [app [name]]",
		Short: "List the migrations up would apply",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withExecutor(func(exec *migration.Executor) error {
				targets, err := targetArgs(exec.Graph(), args)
				if err != nil {
					return err
				}
				steps, err := exec.Plan(cmd.Context(), targets...)
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					cmd.Println("No planned migration operations.")
					return nil
				}
				for _, s := range steps {
					cmd.Println(s.String())
				}
				return nil
			})
		},
	}
}

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List every migration and whether it is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withExecutor(func(exec *migration.Executor) error {
				statuses, err := exec.Show(cmd.Context())
				if err != nil {
					return err
				}
				app := ""
				for _, s := range statuses {
					if s.Key.App != app {
						app = s.Key.App
						cmd.Println(app)
					}
					mark := " "
					if s.Applied {
						mark = "X"
					}
					cmd.Printf(" [%s] %s\n", mark, s.Key.Name)
				}
				return nil
			})
		},
	}
}

func newSQLCommand(e *env) *cobra.Command {
	var backwards bool
	var dialect string
	cmd := &cobra.Command{
		Use:   "sql <app> <name>",
		Short: "Print the statements of one migration without running them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialect == "" {
				dialect = e.cfg.Database.Driver
			}
			d, err := migration.ParseDialect(dialect)
			if err != nil {
				return err
			}
			g, err := migrations.Graph()
			if err != nil {
				return err
			}
			stmts, err := migration.RenderSQL(g, d, ledger.Key{App: args[0], Name: args[1]}, backwards)
			if err != nil {
				return err
			}
			for _, s := range stmts {
				cmd.Println(s + ";")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&backwards, "backwards", false, "render the statements that unapply the migration")
	cmd.Flags().StringVar(&dialect, "dialect", "", "postgres or sqlite (default from config)")
	return cmd
}

func newCheckCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the graph and that the Go models match its final state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := migrations.Graph()
			if err != nil {
				return err
			}
			if err := g.Validate(); err != nil {
				return err
			}
			state, err := g.MakeState(g.FullPlan())
			if err != nil {
				return err
			}
			if err := migration.CheckModels(state, models.All()...); err != nil {
				return err
			}
			cmd.Printf("%d migrations, %d models: ok\n", len(g.Keys()), len(state.Keys()))
			return nil
		},
	}
}

func newCreateCommand(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create <app> <name>",
		Short: "Scaffold a new migration depending on the app's leaf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = e.cfg.Ledger.MigrationsDir
			}
			g, err := migrations.Graph()
			if err != nil {
				return err
			}
			mf, err := migration.CreateMigration(dir, g, args[0], args[1])
			if err != nil {
				return err
			}
			e.log.Info("Migration created", zap.String("app", mf.App), zap.Int("number", mf.Number), zap.String("path", mf.Path))
			cmd.Println(mf.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of the migration sources (default from config)")
	return cmd
}

func newExportCommand(e *env) *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the full plan as numbered up/down SQL files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.cfg.Ledger.ExportDir
			if len(args) == 1 {
				dir = args[0]
			}
			d, err := migration.ParseDialect(dialect)
			if err != nil {
				return err
			}
			g, err := migrations.Graph()
			if err != nil {
				return err
			}
			steps, err := migration.Export(g, d, dir)
			if err != nil {
				return err
			}
			e.log.Info("Ledger exported", zap.String("dir", dir), zap.Int("steps", len(steps)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", string(migration.DialectPostgres), "postgres or sqlite")
	return cmd
}

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List exported steps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.cfg.Ledger.ExportDir
			if len(args) == 1 {
				dir = args[0]
			}
			names, err := migration.ListExported(dir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				cmd.Println("No exported migrations.")
				return nil
			}
			for _, n := range names {
				cmd.Println(n)
			}
			return nil
		},
	}
}

func newApplyExportCommand(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "apply-export [up | steps <n> | version | force <version>]",
		Short: "Run an exported directory against postgres with golang-migrate",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("apply-export needs a postgres database, configured driver is %q", e.cfg.Database.Driver)
			}
			if dir == "" {
				dir = e.cfg.Ledger.ExportDir
			}
			db, err := sql.Open("postgres", e.cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			runner, err := migration.NewExportRunner(db, dir, e.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := runner.Close(); err != nil {
					e.log.Warn("Closing export runner", zap.Error(err))
				}
			}()
			return runExport(cmd, runner, args)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "exported directory (default from config)")
	return cmd
}

// exportRunner is the part of migration.ExportRunner the command drives.
type exportRunner interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

func runExport(cmd *cobra.Command, r exportRunner, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	number := func() (int, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("%s needs a number", action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", args[1])
		}
		return n, nil
	}

	switch action {
	case "up":
		return r.Up()
	case "steps":
		n, err := number()
		if err != nil {
			return err
		}
		return r.Steps(n)
	case "version":
		v, dirty, err := r.Version()
		if err != nil {
			return err
		}
		cmd.Printf("version %d dirty=%t\n", v, dirty)
		return nil
	case "force":
		n, err := number()
		if err != nil {
			return err
		}
		return r.Force(n)
	default:
		return fmt.Errorf("unknown apply-export action %q", action)
	}
}
