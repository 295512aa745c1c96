package slackbot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"supporttriage/internal/domain"
	"supporttriage/internal/storage/sqlite"
	"supporttriage/internal/triage"
)

var dayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DigestSchedule says when the weekly triage digest is posted.
type DigestSchedule struct {
	Day      string
	Time     string
	Location *time.Location
}

// StartDigestScheduler posts a weekly summary of classification history to
// channelID until ctx is cancelled. An empty Day disables the digest.
func StartDigestScheduler(ctx context.Context, api *slack.Client, db *sql.DB, channelID string, sched DigestSchedule) {
	if strings.TrimSpace(sched.Day) == "" || channelID == "" {
		slog.Info("triage digest disabled (digest_day or slack_alert_channel_id not set)")
		return
	}

	weekday, ok := dayMap[strings.ToLower(strings.TrimSpace(sched.Day))]
	if !ok {
		slog.Warn("invalid digest_day, using Friday", "digest_day", sched.Day)
		weekday = time.Friday
	}

	hour, min, err := parseTime(sched.Time)
	if err != nil {
		slog.Warn("invalid digest_time, using 10:00", "digest_time", sched.Time, "error", err)
		hour, min = 10, 0
	}

	loc := sched.Location
	if loc == nil {
		loc = time.Local
	}
	slog.Info("triage digest scheduled", "weekday", weekday.String(), "at", fmt.Sprintf("%02d:%02d", hour, min), "channel", channelID)

	go func() {
		for {
			now := time.Now().In(loc)
			next := nextWeekday(now, weekday, hour, min)
			wait := next.Sub(now)
			slog.Info("next triage digest", "at", next.Format("Mon Jan 2 15:04"), "in", wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			sendDigest(ctx, api, db, channelID, next)
		}
	}()
}

func sendDigest(ctx context.Context, api *slack.Client, db *sql.DB, channelID string, now time.Time) {
	since := now.AddDate(0, 0, -7)
	stats, err := sqlite.GetClassificationStats(db, since, triage.HeuristicModel)
	if err != nil {
		slog.Error("triage digest stats failed", "error", err)
		return
	}
	if _, _, err := api.PostMessageContext(ctx, channelID, slack.MsgOptionText(digestText(stats, since, now), false)); err != nil {
		slog.Error("triage digest post failed", "channel", channelID, "error", err)
		return
	}
	slog.Info("triage digest posted", "channel", channelID, "classifications", stats.TotalClassifications)
}

func digestText(s domain.ClassificationStats, since, until time.Time) string {
	header := fmt.Sprintf("*Resumen de triage* (%s - %s)", since.Format("Jan 2"), until.Format("Jan 2"))
	if s.TotalClassifications == 0 {
		return header + "\nSin tickets clasificados esta semana."
	}
	return strings.Join([]string{
		header,
		fmt.Sprintf("Tickets clasificados: %d (heurística: %d)", s.TotalClassifications, s.HeuristicCount),
		fmt.Sprintf("Confianza media: %.2f", s.AvgConfidence),
		fmt.Sprintf("Confianza <0.50: %d | 0.50-0.70: %d | 0.70-0.90: %d | ≥0.90: %d",
			s.BucketBelow50, s.Bucket50to70, s.Bucket70to90, s.Bucket90Plus),
		fmt.Sprintf("Correcciones recibidas: %d", s.TotalFeedback),
	}, "\n")
}

func nextWeekday(now time.Time, day time.Weekday, hour, min int) time.Time {
	daysUntil := (day - now.Weekday() + 7) % 7
	if daysUntil == 0 {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if now.Before(target) {
			return target
		}
		daysUntil = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day()+int(daysUntil), hour, min, 0, 0, now.Location())
}

func parseTime(s string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}
