package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tenureline/internal/app"
	"tenureline/internal/config"
	"tenureline/internal/db"
	"tenureline/internal/domain"
	"tenureline/internal/events"
	"tenureline/internal/export"
	"tenureline/internal/hierarchy"
	"tenureline/internal/repo"
	"tenureline/internal/server"
	"tenureline/internal/tenure"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Tenureline CLI",
	Long: `Tenureline reconstructs officer-post tenures from government appointment orders.
Orders record who assumes, continues in, or relinquishes which post; tenureline
replays those events per officer into non-overlapping tenure intervals, links
ministers of state to the ministers they report to, and flags implausible data.

Typical flow:
  tl init                      create the workspace config
  tl import orders orders.json load parsed appointment orders
  tl import officers off.json  load the officer registry
  tl build                     reconstruct tenures and store them
  tl tenure list               browse the result
  tl export                    write post_tenures.json / .csv
  tl serve                     expose the read-only browse API`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TENURELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(tenureCmd())
	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(officerCmd())
	rootCmd.AddCommand(errorsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(postCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	env, err := app.Open(viper.GetString("workspace"), viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				fmt.Printf("Initialized workspace at %s\n", path)
				return nil
			})
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "import", Short: "Import orders and officers"}
	cmd.AddCommand(importOrdersCmd())
	cmd.AddCommand(importOfficersCmd())
	return cmd
}

type ordersFile struct {
	Orders []domain.Order `json:"orders"`
}

type officersFile struct {
	Officers []domain.Officer `json:"officers"`
}

func importOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders <file...>",
		Short: "Import parsed appointment orders from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				total := 0
				for _, file := range args {
					var doc ordersFile
					if err := readJSONFile(file, &doc); err != nil {
						return err
					}
					if err := storeOrders(ctx, env, doc.Orders, file); err != nil {
						return err
					}
					total += len(doc.Orders)
				}
				fmt.Printf("Imported %d orders\n", total)
				return nil
			})
		},
	}
}

func importOfficersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "officers <file...>",
		Short: "Import the officer registry from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				total := 0
				for _, file := range args {
					var doc officersFile
					if err := readJSONFile(file, &doc); err != nil {
						return err
					}
					if err := storeOfficers(ctx, env, doc.Officers, file); err != nil {
						return err
					}
					total += len(doc.Officers)
				}
				fmt.Printf("Imported %d officers\n", total)
				return nil
			})
		},
	}
}

func readJSONFile(file string, v any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

func storeOrders(ctx context.Context, env *app.Env, orders []domain.Order, file string) error {
	now := time.Now()
	tx, err := env.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, o := range orders {
		if o.OrderID == "" {
			return fmt.Errorf("%s: order without order_id", file)
		}
		if err := env.Repo.UpsertOrder(ctx, tx, o, now); err != nil {
			return fmt.Errorf("order %s: %w", o.OrderID, err)
		}
	}
	ew := events.Writer{DB: env.DB}
	if err := ew.Append(ctx, tx, events.TypeImportCompleted, "", "orders", file,
		events.EventPayload{"count": len(orders)}); err != nil {
		return err
	}
	return tx.Commit()
}

func storeOfficers(ctx context.Context, env *app.Env, officers []domain.Officer, file string) error {
	now := time.Now()
	tx, err := env.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, o := range officers {
		if o.OfficerID == "" {
			return fmt.Errorf("%s: officer without officer_id", file)
		}
		if err := env.Repo.UpsertOfficer(ctx, tx, o, now); err != nil {
			return fmt.Errorf("officer %s: %w", o.OfficerID, err)
		}
	}
	ew := events.Writer{DB: env.DB}
	if err := ew.Append(ctx, tx, events.TypeImportCompleted, "", "officers", file,
		events.EventPayload{"count": len(officers)}); err != nil {
		return err
	}
	return tx.Commit()
}

func buildCmd() *cobra.Command {
	var workers int
	var doExport bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Reconstruct tenures from imported orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				orders, err := env.Repo.ListOrders(ctx)
				if err != nil {
					return err
				}
				if len(orders) == 0 {
					return fmt.Errorf("no orders imported; run 'tl import orders' first")
				}

				p, err := tenure.New(env.Config, env.Log)
				if err != nil {
					return err
				}
				if workers > 0 {
					p.Workers = workers
				}

				runID := uuid.NewString()
				ew := events.Writer{DB: env.DB}

				tx, err := env.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := ew.Append(ctx, tx, events.TypeRunStarted, runID, "run", runID,
					events.EventPayload{"orders": len(orders)}); err != nil {
					return err
				}

				res, err := p.Run(ctx, orders)
				if err != nil {
					return err
				}

				if err := env.Repo.ReplaceTenures(ctx, tx, runID, res.Tenures, res.Errors); err != nil {
					return err
				}
				if err := ew.Append(ctx, tx, events.TypeRunCompleted, runID, "run", runID,
					events.EventPayload{
						"tenures": len(res.Tenures),
						"errors":  len(res.Errors),
					}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}

				if doExport {
					if err := exportResult(ctx, env, res); err != nil {
						return err
					}
				}

				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"run_id":  runID,
						"tenures": len(res.Tenures),
						"errors":  tenure.CountByKind(res.Errors),
					})
				}
				fmt.Printf("Built %d tenures from %d orders (run %s)\n", len(res.Tenures), len(orders), runID)
				printErrorCounts(tenure.CountByKind(res.Errors))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "officer replay workers (default: CPU count)")
	cmd.Flags().BoolVar(&doExport, "export", false, "also write export files")
	return cmd
}

func printErrorCounts(counts map[string]int) {
	if len(counts) == 0 {
		fmt.Println("No data errors.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Kind", "Count"})
	for _, kind := range []string{
		tenure.KindMissingAssume, tenure.KindMultipleRoles, tenure.KindLongTenure,
		tenure.KindGap, tenure.KindManagerWithLeafRole, tenure.KindNoManager,
		tenure.KindDuplicateOfficer, tenure.KindOfficerAborted,
	} {
		if n, ok := counts[kind]; ok {
			tw.AppendRow(table.Row{kind, n})
		}
	}
	tw.Render()
}

func tenureCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tenure", Short: "Browse tenures"}
	cmd.AddCommand(tenureListCmd())
	cmd.AddCommand(tenureShowCmd())
	return cmd
}

func tenureListCmd() *cobra.Command {
	var f repo.TenureFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.ListTenures(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Officer", "Post", "Role", "Start", "End"})
				for _, t := range items {
					tw.AppendRow(table.Row{
						t.TenureID, t.OfficerID, t.PostID, t.Role,
						domain.FormatDate(t.StartDate), domain.FormatDate(t.EndDate),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.OfficerID, "officer", "", "officer id filter")
	cmd.Flags().StringVar(&f.PostID, "post", "", "post id filter")
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	return cmd
}

func tenureShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show tenure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				t, err := env.Repo.GetTenure(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "order", Short: "Browse imported orders"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.ListOrders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Category", "Details"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.OrderID, domain.FormatDate(o.Date), o.Category, len(o.Details)})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				o, err := env.Repo.GetOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(o)
			})
		},
	})
	return cmd
}

func officerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "officer", Short: "Browse officers"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List officers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.ListOfficers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Cadre"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.OfficerID, o.Name, o.Cadre})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show officer with tenures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				o, err := env.Repo.GetOfficer(ctx, args[0])
				if err != nil {
					return err
				}
				tenures, err := env.Repo.ListTenures(ctx, repo.TenureFilters{OfficerID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"officer": o, "tenures": tenures})
			})
		},
	})
	return cmd
}

func errorsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List data errors from the last build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.ListErrors(ctx, repo.ErrorFilters{Kind: kind})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Kind", "Path", "Message"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.Kind, e.Path, e.Message})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "error kind filter")
	return cmd
}

func exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write tenure export files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				tenures, err := env.Repo.ListTenures(ctx, repo.TenureFilters{})
				if err != nil {
					return err
				}
				errs, err := env.Repo.ListErrors(ctx, repo.ErrorFilters{})
				if err != nil {
					return err
				}
				if dir != "" {
					env.Config.Export.Dir = dir
				}
				return exportResult(ctx, env, tenure.Result{Tenures: tenures, Errors: errs})
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (overrides config)")
	return cmd
}

func exportResult(ctx context.Context, env *app.Env, res tenure.Result) error {
	officers, err := env.Repo.ListOfficers(ctx)
	if err != nil {
		return err
	}
	w := export.NewWriter(env.Config.Export.Dir, officers)
	if err := w.Write(res); err != nil {
		return err
	}
	fmt.Printf("Exported %d tenures to %s\n", len(res.Tenures), env.Config.Export.Dir)
	return nil
}

func postCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "post", Short: "Post identity tools"}
	cmd.AddCommand(&cobra.Command{
		Use:   "parse <text>",
		Short: "Parse a post description against the taxonomy files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if len(env.Config.Matcher.TaxonomyFiles) == 0 {
					return fmt.Errorf("no taxonomy_files configured")
				}
				m, err := hierarchy.NewMatcher(env.Config.Matcher.TaxonomyFiles,
					env.Config.Matcher.Options(), env.Config.Builder.DefaultRole)
				if err != nil {
					return err
				}
				p := m.ParsePost(args[0], env.Config.PostID.Fields)
				return printJSON(p)
			})
		},
	})
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return printJSON(env.Config)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				// app.Open already validated; also check ministry spans parse
				if _, err := env.Config.ParseMinistries(time.Now()); err != nil {
					return err
				}
				fmt.Println("Config OK")
				return nil
			})
		},
	})
	return cmd
}

func logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{Use: "log", Short: "Audit trail"}
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Repo.LatestEvents(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Payload"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.TS, e.Type, e.EntityKind + "/" + e.EntityID, e.PayloadJSON})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&limit, "limit", 20, "number of events")
	cmd.AddCommand(tail)
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only browse API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if addr == "" {
					addr = env.Config.Serve.Addr
				}
				if basePath == "" {
					basePath = env.Config.Serve.BasePath
				}
				handler, err := server.New(server.Config{
					Repo:     env.Repo,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: os.Getenv("TENURELINE_JWT_SECRET")},
					Log:      env.Log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				fmt.Printf("Serving Tenureline API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
