package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
)

// RunReport describes one finished pass for the channel.
type RunReport struct {
	RunID   string
	Mode    string
	Summary string
	Invalid int
	CSVPath string
}

type Notifier struct {
	api       *slack.Client
	channelID string
	logger    *slog.Logger
}

func NewNotifier(cfg Config, logger *slog.Logger, opts ...slack.Option) *Notifier {
	opts = append([]slack.Option{slack.OptionHTTPClient(externalHTTPClient)}, opts...)
	return &Notifier{
		api:       slack.New(cfg.SlackBotToken, opts...),
		channelID: cfg.SlackChannelID,
		logger:    logger,
	}
}

// Notify posts the summary line and, when a CSV was written, uploads it.
// The message is posted even if the upload later fails.
func (n *Notifier) Notify(ctx context.Context, run RunReport) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(FormatRunMessage(run), false))
	if err != nil {
		return fmt.Errorf("posting summary: %w", err)
	}
	n.logger.Info("posted run summary to slack", "channel", n.channelID, "run_id", run.RunID)

	if run.CSVPath == "" {
		return nil
	}
	fi, err := os.Stat(run.CSVPath)
	if err != nil {
		return fmt.Errorf("reading report file: %w", err)
	}
	if fi.Size() <= 0 {
		n.logger.Warn("report file is empty, not uploading", "path", run.CSVPath)
		return nil
	}
	_, err = n.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:           run.CSVPath,
		FileSize:       int(fi.Size()),
		Filename:       filepath.Base(run.CSVPath),
		Channel:        n.channelID,
		Title:          "Threat report " + run.RunID,
		InitialComment: fmt.Sprintf("Threat report for run %s (mode: %s)", run.RunID, run.Mode),
	})
	if err != nil {
		return fmt.Errorf("uploading report file: %w", err)
	}
	n.logger.Info("uploaded report to slack", "path", run.CSVPath, "run_id", run.RunID)
	return nil
}

func FormatRunMessage(run RunReport) string {
	msg := fmt.Sprintf("Threat report run %s (mode: %s)\n%s", run.RunID, run.Mode, run.Summary)
	if run.Invalid > 0 {
		msg += fmt.Sprintf("\nSkipped %d invalid input lines.", run.Invalid)
	}
	return msg
}
