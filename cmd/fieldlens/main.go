package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fieldlens/internal/app"
	"fieldlens/internal/blob"
	"fieldlens/internal/config"
	"fieldlens/internal/db"
	"fieldlens/internal/engine"
	"fieldlens/internal/logger"
	"fieldlens/internal/migrate"
	"fieldlens/internal/report"
	"fieldlens/internal/repo"
	"fieldlens/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "fieldlens",
	Short: "Fieldlens CLI",
	Long: `Fieldlens tracks AI accuracy issues reported per customer.
- Workspace: a directory with fieldlens.yml and a .fieldlens data dir.
- Customers: tenant boundaries owning issues; each keeps a running issue count.
- Issues: accuracy defects with category, status, model, workflow, log links,
  free-text notes and ordered screenshots.
- Reports: grouped tallies, a per-day timeline and headline counts for charts.
- Gallery: every screenshot paired with its owning issue.
- Event log: diary of writes, view with 'fieldlens log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
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
	viper.SetEnvPrefix("FIELDLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("reporter", "", "reporter email (defaults to FIELDLENS_REPORTER)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("reporter", rootCmd.PersistentFlags().Lookup("reporter"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(galleryCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(keyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists", cfgPath)
			}
			if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Printf("Initialized workspace: %s and %s\n", cfgPath, db.Path(workspace))
			return nil
		},
	}
	return cmd
}

func customerCmd() *cobra.Command {
	c := &cobra.Command{Use: "customer", Short: "Manage customers"}
	c.AddCommand(customerCreateCmd())
	c.AddCommand(customerListCmd())
	c.AddCommand(customerShowCmd())
	return c
}

func customerCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				reporter, err := app.ResolveReporter(ctx, viper.GetString("reporter"), e)
				if err != nil {
					return err
				}
				c, err := e.CreateCustomer(ctx, name, reporter.Email)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func customerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCustomers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "NAME", "CREATED", "ISSUES"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, formatMillis(c.CreatedDate), c.IssueCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func customerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCustomer(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func issueCmd() *cobra.Command {
	c := &cobra.Command{Use: "issue", Short: "Manage issues"}
	c.AddCommand(issueCreateCmd())
	c.AddCommand(issueListCmd())
	c.AddCommand(issueGetCmd())
	return c
}

func issueCreateCmd() *cobra.Command {
	var opts engine.IssueCreateOptions
	var screenshots []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				reporter, err := app.ResolveReporter(ctx, viper.GetString("reporter"), e)
				if err != nil {
					return err
				}
				opts.ReportedBy = reporter.Email
				for _, path := range screenshots {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					s, err := e.UploadScreenshot(ctx, opts.CustomerID, filepath.Base(path), "", f)
					f.Close()
					if err != nil {
						return err
					}
					opts.Screenshots = append(opts.Screenshots, s)
				}
				is, err := e.CreateIssue(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(is)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "issue title")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category label")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (Open, In Progress, Resolved)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model label")
	cmd.Flags().StringVar(&opts.Workflow, "workflow", "", "workflow label")
	cmd.Flags().StringVar(&opts.ExecutionLogLink, "log-link", "", "execution log URL")
	cmd.Flags().StringVar(&opts.IssueSummary, "summary", "", "issue summary")
	cmd.Flags().StringVar(&opts.Fix, "fix", "", "fix notes")
	cmd.Flags().StringArrayVar(&screenshots, "screenshot", nil, "screenshot file (repeatable, order preserved)")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func issueListCmd() *cobra.Command {
	var filters report.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				snap, err := e.Snapshot(ctx, filters.CustomerID)
				if err != nil {
					return err
				}
				items := report.Filter(snap.Issues, report.Filters{
					Search:   filters.Search,
					Status:   filters.Status,
					Category: filters.Category,
				})
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "CUSTOMER", "TITLE", "CATEGORY", "STATUS", "ADDED"})
				for _, is := range items {
					tw.AppendRow(table.Row{is.ID, is.CustomerName, is.Title, is.Category, is.Status, formatMillis(is.DateAdded)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filters.CustomerID, "customer", "", "customer id (empty for all)")
	cmd.Flags().StringVar(&filters.Search, "search", "", "title substring, case-insensitive")
	cmd.Flags().StringVar(&filters.Status, "status", "", "status filter, or all")
	cmd.Flags().StringVar(&filters.Category, "category", "", "category filter, or all")
	return cmd
}

func issueGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				is, err := r.GetIssue(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(is)
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	c := &cobra.Command{Use: "report", Short: "Aggregate views over issues"}
	var customer string
	c.PersistentFlags().StringVar(&customer, "customer", "", "customer id (empty for all)")

	c.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Headline issue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printJSONOrTable(report.Summarize(snap.Issues))
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Issues per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printBuckets(report.Tally(snap.Issues, report.ByCategory))
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "Issues per model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printBuckets(report.Tally(snap.Issues, report.ByModel))
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "workflows",
		Short: "Issues per workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printBuckets(report.Tally(snap.Issues, report.ByWorkflow))
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Issues per status (all three buckets)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printBuckets(report.StatusTally(snap.Issues))
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "timeline",
		Short: "Issues per day, last 10 buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				return printBuckets(report.Timeline(snap.Issues))
			})
		},
	})
	return c
}

func galleryCmd() *cobra.Command {
	var customer, issue string
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List screenshots paired with their issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(cmd.Context(), customer, func(snap report.Snapshot) error {
				items := report.Gallery(snap.Issues, issue)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"SCREENSHOT", "URL", "ISSUE", "TITLE"})
				for _, item := range items {
					tw.AppendRow(table.Row{item.Screenshot.ID, item.Screenshot.URL, item.Issue.ID, item.Issue.Title})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id (empty for all)")
	cmd.Flags().StringVar(&issue, "issue", "", "related issue id, or all")
	return cmd
}

func userCmd() *cobra.Command {
	c := &cobra.Command{Use: "user", Short: "Manage users"}
	var email, name, role string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, email, name, role)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	register.Flags().StringVar(&email, "email", "", "user email")
	register.Flags().StringVar(&name, "name", "", "display name")
	register.Flags().StringVar(&role, "role", "", "role (PM or FDE)")
	_ = register.MarkFlagRequired("email")
	c.AddCommand(register)

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	return c
}

func keyCmd() *cobra.Command {
	c := &cobra.Command{Use: "key", Short: "Manage API keys"}
	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(email))
				if err != nil {
					return err
				}
				plain, key, err := e.CreateAPIKey(ctx, u.ID, name)
				if err != nil {
					return err
				}
				fmt.Printf("API key (store it now, it is not shown again): %s\n", plain)
				return printJSONOrTable(key)
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "user email")
	create.Flags().StringVar(&name, "name", "", "key label")
	_ = create.MarkFlagRequired("email")
	c.AddCommand(create)
	return c
}

func logCmd() *cobra.Command {
	c := &cobra.Command{Use: "log", Short: "Event log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	c.AddCommand(tail)
	return c
}

func serveCmd() *cobra.Command {
	var addr, basePath, configFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			// Unlike the one-shot commands, serve refuses to run on implicit
			// defaults: a missing or malformed fieldlens.yml is an error.
			var cfg *config.Config
			var err error
			if configFile != "" {
				cfg, err = config.FromFile(configFile)
			} else {
				cfg, err = config.Load(workspace)
			}
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			blobs, err := blob.Open(cfg, workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg, blobs)

			log := logger.New(cfg.Log.Level, false)
			secret := cfg.Auth.JWTSecret
			if env := os.Getenv("FIELDLENS_JWT_SECRET"); env != "" {
				secret = env
			}
			if secret == "" {
				return fmt.Errorf("jwt secret required: set auth.jwt_secret in fieldlens.yml or FIELDLENS_JWT_SECRET")
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(cmd.Context(), server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret: secret,
					TokenTTL:  time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
					Logger:    log,
				},
				Logger: log,
			})
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/", handler)
			if cfg.Storage.Mode == config.StorageConnected {
				dir, err := db.ScreenshotDir(workspace)
				if err != nil {
					return err
				}
				prefix := strings.TrimSuffix(cfg.Storage.PublicBase, "/") + "/"
				mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
			}

			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving fieldlens API")
			fmt.Printf("Serving Fieldlens API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file (defaults to <workspace>/fieldlens.yml)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	blobs, err := blob.Open(cfg, workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg, blobs))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withSnapshot(ctx context.Context, customerID string, fn func(report.Snapshot) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		snap, err := e.Snapshot(ctx, customerID)
		if err != nil {
			return err
		}
		return fn(snap)
	})
}

func printBuckets(buckets []report.Bucket) error {
	if viper.GetBool("json") {
		return printJSON(buckets)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"KEY", "COUNT"})
	for _, b := range buckets {
		tw.AppendRow(table.Row{b.Key, b.Count})
	}
	tw.Render()
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
