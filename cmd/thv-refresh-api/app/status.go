package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v1 "github.com/stacklok/toolhive-refresh-server/internal/api/v1"
	"github.com/stacklok/toolhive-refresh-server/internal/httpclient"
	"github.com/stacklok/toolhive-refresh-server/internal/versions"
)

const (
	defaultServerURL     = "http://localhost:8080"
	defaultStatusTimeout = 10 * time.Second
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the refresh status of every topic of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := httpclient.NewDefaultClient(v.GetDuration("timeout"))
			return runStatus(cmd.Context(), client, v.GetString("server"), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("server", defaultServerURL, "Base URL of the refresh API server")
	cmd.Flags().Duration("timeout", defaultStatusTimeout, "Request timeout")
	for _, name := range []string{"server", "timeout"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			slog.Error("Failed to bind flag", "flag", name, "error", err)
		}
	}

	return cmd
}

func runStatus(ctx context.Context, client httpclient.Client, server string, out io.Writer) error {
	server = strings.TrimSuffix(server, "/")

	warnVersionSkew(ctx, client, server)

	body, err := client.Get(ctx, server+"/v1/topics")
	if err != nil {
		return fmt.Errorf("failed to fetch topics: %w", err)
	}

	var topics v1.TopicsResponse
	if err := json.Unmarshal(body, &topics); err != nil {
		return fmt.Errorf("failed to decode topics: %w", err)
	}

	return renderTopics(out, topics)
}

// warnVersionSkew logs a warning when the server runs another major version.
// Failures to read the server version are not fatal.
func warnVersionSkew(ctx context.Context, client httpclient.Client, server string) {
	body, err := client.Get(ctx, server+"/version")
	if err != nil {
		slog.Debug("Could not read server version", "error", err)
		return
	}

	var info versions.VersionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		slog.Debug("Could not decode server version", "error", err)
		return
	}

	local := versions.GetVersionInfo().Version
	switch versions.MajorSkew(local, info.Version) {
	case versions.SkewServerNewer:
		slog.Warn("Server runs a newer major version, consider upgrading the CLI",
			"cli_version", local, "server_version", info.Version)
	case versions.SkewServerOlder:
		slog.Warn("Server runs an older major version, some fields may be missing",
			"cli_version", local, "server_version", info.Version)
	case versions.SkewNone:
	}
}

func renderTopics(out io.Writer, topics v1.TopicsResponse) error {
	if topics.Total == 0 {
		_, err := fmt.Fprintln(out, "No topics registered")
		return err
	}

	table := tablewriter.NewWriter(out)
	table.Header("Topic", "Background", "Visible", "Phase", "Last Refresh", "Failures", "Refreshes", "Message")
	for _, t := range topics.Topics {
		if err := table.Append(
			t.Topic,
			strconv.FormatBool(t.Background),
			strconv.FormatBool(t.Visible),
			string(t.Phase),
			formatTime(t.LastRefreshTime),
			strconv.Itoa(t.ConsecutiveFailures),
			strconv.Itoa(t.RefreshCount),
			t.Message,
		); err != nil {
			return fmt.Errorf("failed to render topic %s: %w", t.Topic, err)
		}
	}
	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
