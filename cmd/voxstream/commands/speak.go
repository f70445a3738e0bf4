package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harunnryd/voxstream/pkg/config"
	"github.com/harunnryd/voxstream/pkg/elevenlabs"
	"github.com/harunnryd/voxstream/pkg/metrics"
	"github.com/harunnryd/voxstream/pkg/transports/websocket"
	"github.com/spf13/cobra"
)

type speakOptions struct {
	out     string
	flush   bool
	trigger bool
}

var speakOpts speakOptions

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Stream text to a voice and write the audio",
	Long: `Stream text to the configured voice and write audio as it arrives.

Arguments are sent as one chunk. Without arguments every non-blank stdin line
is sent as its own chunk, and the session is finalized at end of input.

Examples:
  voxstream speak --config config.yaml -o hello.mp3 "Hello there."
  cat script.txt | voxstream speak --config config.yaml -o script.mp3 --flush`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if speakOpts.out == "" {
			return fmt.Errorf("output file is required, use -o flag")
		}
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		if !noBanner {
			printBanner(cmd.ErrOrStderr())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		observer, shutdown, err := setupMetrics(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}()

		sink, closeSink, err := openSink(speakOpts.out, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeSink()

		res, err := runSpeak(ctx, speakRequest{
			cfg:      cfg,
			logger:   logger,
			observer: observer,
			opts:     speakOpts,
			args:     args,
			in:       cmd.InOrStdin(),
			sink:     sink,
		})
		if err != nil {
			return err
		}
		logger.Info("speech written",
			slog.String("out", speakOpts.out),
			slog.Int("clips", res.clips),
			slog.Int("bytes", res.bytes),
			slog.Int("chunks", res.chunks))
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOpts.out, "out", "o", "", "output audio file, - for stdout")
	speakCmd.Flags().BoolVar(&speakOpts.flush, "flush", false, "force generation after every chunk")
	speakCmd.Flags().BoolVar(&speakOpts.trigger, "trigger", false, "ask the service to try generating immediately")
}

func openSink(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	return w, func() {
		_ = w.Flush()
		_ = f.Close()
	}, nil
}

type speakRequest struct {
	cfg      config.Config
	logger   *slog.Logger
	observer metrics.Observer
	opts     speakOptions
	args     []string
	in       io.Reader
	sink     io.Writer
}

type speakResult struct {
	chunks int
	clips  int
	bytes  int
}

// runSpeak connects, submits every chunk, finalizes and writes audio until
// the service closes the session.
func runSpeak(ctx context.Context, req speakRequest) (speakResult, error) {
	var res speakResult
	params, err := req.cfg.SessionParams()
	if err != nil {
		return res, err
	}
	sessCfg := elevenlabs.Config{
		BaseURL:          req.cfg.BaseURL,
		APIKey:           req.cfg.APIKey,
		Voice:            req.cfg.Voice,
		Params:           params,
		VoiceSettings:    req.cfg.Session.VoiceSettings,
		GenerationConfig: req.cfg.Session.GenerationConfig,
		Dialer: websocket.NewDialer(websocket.Options{
			ReadChunkSize: req.cfg.Session.ReadChunkSize,
			ReadLimit:     int64(req.cfg.Session.MaxMessageBytes),
		}),
		MaxMessageBytes: req.cfg.Session.MaxMessageBytes,
		Logger:          req.logger,
		Observer:        req.observer,
	}

	var sess *elevenlabs.Session
	var stream *elevenlabs.ClipStream
	policy := req.cfg.RetryPolicy()
	err = policy.Do(ctx, func(ctx context.Context) error {
		s, st, err := elevenlabs.ConnectStream(ctx, sessCfg)
		if err != nil {
			req.logger.Warn("connect attempt failed", slog.String("error", err.Error()))
			return err
		}
		sess, stream = s, st
		return nil
	})
	if err != nil {
		return res, err
	}
	defer sess.Close()

	written := make(chan error, 1)
	go func() {
		for clip := range stream.Clips() {
			if clip == nil {
				continue
			}
			if _, err := req.sink.Write(clip.Audio); err != nil {
				written <- fmt.Errorf("write audio: %w", err)
				_ = sess.Close()
				for range stream.Clips() {
				}
				return
			}
			res.clips++
			res.bytes += len(clip.Audio)
		}
		written <- nil
	}()

	submitErr := submitAll(ctx, sess, req, &res)
	if submitErr == nil {
		submitErr = sess.Finalize(ctx)
	}
	if submitErr != nil {
		_ = sess.Close()
	}

	if err := <-written; err != nil {
		return res, err
	}
	if err := stream.Err(); err != nil {
		return res, err
	}
	return res, submitErr
}

func submitAll(ctx context.Context, sess *elevenlabs.Session, req speakRequest, res *speakResult) error {
	flush := elevenlabs.FlushUnset
	if req.opts.flush {
		flush = elevenlabs.FlushOn
	}
	send := func(text string) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if err := sess.Submit(ctx, text, flush, req.opts.trigger); err != nil {
			return err
		}
		res.chunks++
		return nil
	}

	if len(req.args) > 0 {
		return send(strings.Join(req.args, " "))
	}
	scanner := bufio.NewScanner(req.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := send(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
