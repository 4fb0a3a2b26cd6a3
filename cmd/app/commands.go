package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"FinBoard/internal/di"
	"FinBoard/internal/domain/models"
	"FinBoard/pkg/config"
	"FinBoard/pkg/format"
	pkgkafka "FinBoard/pkg/kafka"
	"FinBoard/pkg/logger"
	"FinBoard/pkg/server"
	"FinBoard/pkg/util"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

// withApp builds the application without polling, restores the dashboard
// and runs fn. The app is closed afterwards, which flushes the change feed.
func withApp(ctx context.Context, fn func(*server.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer app.Close()

	app.StopPolling()
	if err := app.Hydrate(ctx); err != nil {
		return err
	}
	return fn(app)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			app.Logger().Info("starting",
				logger.String("storage", cfg.Storage.Backend),
				logger.String("cache", cfg.Cache.Backend),
				logger.Bool("events", cfg.Events.Enabled),
				logger.Int("port", cfg.Server.Port),
			)
			return app.Run()
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the dashboard configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				doc := app.Dashboard().ExportConfig()
				if out == "" || out == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), doc)
					return err
				}
				return os.WriteFile(out, []byte(doc), 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the dashboard with an exported configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return withApp(cmd.Context(), func(app *server.App) error {
				if !app.Dashboard().ImportConfig(string(data)) {
					return fmt.Errorf("%s is not a valid dashboard configuration", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d widgets\n", len(app.Dashboard().Widgets()))
				return nil
			})
		},
	}
}

func templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [name]",
		Short: "Load a preset layout, or list presets without a name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, t := range models.Templates() {
					fmt.Fprintf(w, "%s\t%s\t%d widgets\t%s\n", t.Name, t.DisplayName, len(t.Widgets), t.Description)
				}
				return w.Flush()
			}
			return withApp(cmd.Context(), func(app *server.App) error {
				if !app.Dashboard().LoadTemplate(args[0]) {
					return fmt.Errorf("unknown template %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %s: %d widgets\n", args[0], len(app.Dashboard().Widgets()))
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				app.Dashboard().ClearDashboard()
				fmt.Fprintln(cmd.OutOrStdout(), "dashboard cleared")
				return nil
			})
		},
	}
}

func quoteCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Print formatted quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.APIProvider(provider)
			if p != models.ProviderAlphaVantage && p != models.ProviderFinnhub {
				return fmt.Errorf("unknown provider %q", provider)
			}
			return withApp(cmd.Context(), func(app *server.App) error {
				cred := models.Credential{Provider: p, APIKey: app.Dashboard().APIConfig().KeyFor(p)}
				res := app.StockData().FetchMultipleQuotes(cmd.Context(), args, cred)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\t%\tVOLUME\t")
				for _, q := range res.Data {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
						q.Symbol,
						format.Currency(q.Price),
						format.Currency(q.Change),
						format.Percent(q.ChangePercent),
						format.Number(float64(q.Volume)),
					)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				for _, se := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", se.Symbol, se.Error.Message, se.Error.Code)
				}
				if cred.APIKey == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "demo data: no API key configured for", p)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", string(models.ProviderAlphaVantage), "alpha-vantage or finnhub")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <symbol>",
		Short: "Toggle a symbol on the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				on := app.Dashboard().ToggleWatchlist(args[0])
				state := "removed from"
				if on {
					state = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s watchlist: [%s]\n",
					strings.ToUpper(strings.TrimSpace(args[0])), state, strings.Join(app.Dashboard().Watchlist(), ", "))
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	var (
		group     string
		since     string
		beginning bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the dashboard change feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Events.Brokers) == 0 {
				return fmt.Errorf("events.brokers is not configured")
			}

			var cutoff time.Time
			if since != "" {
				t, ok := util.ParseSince(since, time.Now())
				if !ok {
					return fmt.Errorf("cannot parse --since %q", since)
				}
				cutoff = t
				beginning = true
			}

			opts := []pkgkafka.ConsumerOption{
				pkgkafka.WithConsumerBrokers(cfg.Events.Brokers),
				pkgkafka.WithConsumerGroupID(group),
			}
			if beginning {
				opts = append(opts, pkgkafka.WithConsumerAutoOffsetReset("earliest"))
			}
			consumer, err := pkgkafka.NewConsumer(cfg.Events.Topic, logger.Nop(), opts...)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return consumer.Run(ctx, func(_ context.Context, msg kafka.Message) error {
				if !cutoff.IsZero() && msg.Time.Before(cutoff) {
					return nil
				}
				var ev models.DashboardEvent
				if err := json.Unmarshal(msg.Value, &ev); err != nil {
					fmt.Fprintf(out, "%d\tundecodable event: %v\n", msg.Offset, err)
					return nil
				}
				at := time.UnixMilli(ev.At).Format(time.RFC3339)
				fmt.Fprintf(out, "%s\t%-26s\t%s\t%s\t%s\n", at, ev.Type, ev.WidgetID, ev.Symbol, ev.Detail)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "consumer group; offsets are committed when set")
	cmd.Flags().StringVar(&since, "since", "", "only events after this time (RFC3339, YYYY-MM-DD, unix, or a duration like 2h)")
	cmd.Flags().BoolVar(&beginning, "from-beginning", false, "start at the oldest retained event")
	return cmd
}
