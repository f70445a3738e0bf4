package commands

import (
	"fmt"
	"io"

	"github.com/harunnryd/voxstream/pkg/config"
	"github.com/harunnryd/voxstream/pkg/elevenlabs"
	"github.com/harunnryd/voxstream/pkg/redact"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and print the effective configuration",
	Long: `Load the configuration the same way speak does, validate it and print the
effective values. The API key is masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return printConfig(cmd.OutOrStdout(), cfg)
	},
}

func printConfig(w io.Writer, cfg config.Config) error {
	params, err := cfg.SessionParams()
	if err != nil {
		return err
	}
	apiKey := "(none)"
	if cfg.APIKey != "" {
		apiKey = redact.Secret(cfg.APIKey)
	}
	lines := []struct{ key, value string }{
		{"api_key", apiKey},
		{"base_url", cfg.BaseURL},
		{"voice.id", cfg.Voice.ID},
		{"voice.name", cfg.Voice.Name},
		{"stream_url", redact.URL(elevenlabs.StreamURL(cfg.BaseURL, cfg.Voice.ID, params))},
		{"session.max_message_bytes", fmt.Sprint(cfg.Session.MaxMessageBytes)},
		{"session.read_chunk_size", fmt.Sprint(cfg.Session.ReadChunkSize)},
		{"retry.max_retries", fmt.Sprint(cfg.Retry.MaxRetries)},
		{"retry.backoff_ms", fmt.Sprint(cfg.Retry.BackoffMS)},
		{"metrics.otel", fmt.Sprint(cfg.Metrics.OTel)},
		{"privacy.redact_pii", fmt.Sprint(cfg.Privacy.RedactPII)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-28s %s\n", l.key, l.value); err != nil {
			return err
		}
	}
	return nil
}
