package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"supporttriage/internal/corpus"
	"supporttriage/internal/httpapi"
	"supporttriage/internal/intake"
	slackbot "supporttriage/internal/integrations/slack"
	"supporttriage/internal/storage/sqlite"
)

func newServeCmd(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the triage HTTP API and, when configured, the Slack bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rt.cfg.HTTPAddr = addr
			}
			return rt.serve(cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	return cmd
}

func (rt *runtime) serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.InitDB(rt.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()
	slog.Info("database initialized", "path", rt.cfg.DBPath)

	holder := rt.loadCorpus()
	corpus.StartReloadScheduler(ctx, holder, rt.cfg.CorpusReloadSchedule, rt.cfg.Location, rt.corpusLoader())

	service, err := rt.newTriageService(holder)
	if err != nil {
		return err
	}

	var notifier intake.Notifier
	if rt.cfg.SlackConfigured() {
		api := slackbot.NewClient(rt.cfg.SlackBotToken, rt.cfg.SlackAppToken)
		if n := slackbot.NewNotifier(api, rt.cfg.SlackAlertChannelID); n != nil {
			notifier = n
		}
		in := intake.New(service, db, notifier)
		bot := slackbot.NewBot(api, in, holder)
		slackbot.StartDigestScheduler(ctx, api, db, rt.cfg.SlackAlertChannelID, slackbot.DigestSchedule{
			Day:      rt.cfg.DigestDay,
			Time:     rt.cfg.DigestTime,
			Location: rt.cfg.Location,
		})
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("slack bot stopped", "error", err)
			}
		}()
		return httpapi.NewServer(in, holder, db, rt.cfg.FeedbackWindow).ListenAndServe(ctx, rt.cfg.HTTPAddr)
	}

	slog.Info("slack not configured, serving HTTP API only")
	in := intake.New(service, db, nil)
	return httpapi.NewServer(in, holder, db, rt.cfg.FeedbackWindow).ListenAndServe(ctx, rt.cfg.HTTPAddr)
}
