package commands

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/dimiro1/banner"
	"github.com/harunnryd/voxstream/pkg/config"
	"github.com/harunnryd/voxstream/pkg/logging"
	"github.com/harunnryd/voxstream/pkg/redact"
	"github.com/spf13/cobra"
)

const appName = "voxstream"

// Version is overridden at build time with -ldflags.
var Version = "0.1.0"

var (
	cfgFile  string
	noBanner bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Streaming text-to-speech client",
	Long: `voxstream sends text to an ElevenLabs voice over a streaming websocket
session and writes the audio back as it is synthesized.

Configuration is read from a YAML file (--config) and VOXSTREAM_* environment
variables, e.g. VOXSTREAM_API_KEY and VOXSTREAM_VOICE_ID.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "do not print the start banner")

	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime reads the config and sets up logging and redaction for a
// command run.
func loadRuntime() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	redact.SetEnabled(cfg.Privacy.RedactPII)
	return cfg, logger, nil
}

func printBanner(w io.Writer) {
	tpl := "{{ .Title \"VOXSTREAM\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		printBanner(cmd.OutOrStdout())
	},
}
