package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BCIDriver/Nurobuckle"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "nurobuckle",
		Short:         "Driver attention monitor with fatigue alerts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./data/config.yaml", "Path to configuration file")

	root.AddCommand(
		runCommand(&cfgPath),
		replayCommand(&cfgPath),
		validateCommand(&cfgPath),
		captureCommand(&cfgPath),
		alertTestCommand(&cfgPath),
		statsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nurobuckle: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCommand(cfgPath *string) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start monitoring with the configured device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nurobuckle.LoadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runFlow(cfg, duration)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func replayCommand(cfgPath *string) *cobra.Command {
	var (
		speed    float64
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Run the pipeline over a recorded capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nurobuckle.LoadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.Device.Source = nurobuckle.SourceReplay
			cfg.Device.Replay.Path = args[0]
			cfg.Device.Replay.Speed = speed
			return runFlow(cfg, duration)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier (0 replays as fast as possible)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until the capture ends)")
	return cmd
}

func runFlow(cfg *nurobuckle.Config, duration time.Duration) error {
	ctx, stop := signalContext()
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	flow, err := nurobuckle.ConfFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := flow.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func validateCommand(cfgPath *string) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nurobuckle.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if !quiet {
				out, err := cfg.Dump()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s is valid\n", *cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the effective configuration")
	return cmd
}

func captureCommand(cfgPath *string) *cobra.Command {
	var (
		out      string
		duration time.Duration
		upload   bool
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record raw device samples to a capture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nurobuckle.LoadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if out != "" {
				cfg.Capture.Path = out
			}
			if duration > 0 {
				cfg.Capture.Duration = duration
			}
			if upload {
				cfg.Capture.Archive = true
			}

			ctx, stop := signalContext()
			defer stop()

			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			report, err := nurobuckle.Capture(ctx, cfg, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "captured %d samples to %s\n", report.Records, report.Path)
			if report.Upload != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "archived as s3://%s/%s (%d bytes)\n", report.Upload.Bucket, report.Upload.Key, report.Upload.Size)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Capture file (defaults to capture.path)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Capture length (defaults to capture.duration)")
	cmd.Flags().BoolVar(&upload, "archive", false, "Upload the capture to the archive bucket")
	return cmd
}

func alertTestCommand(cfgPath *string) *cobra.Command {
	var score float64
	cmd := &cobra.Command{
		Use:   "alert-test",
		Short: "Run the alert sequence once against the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nurobuckle.LoadConfig(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signalContext()
			defer stop()

			reading := nurobuckle.Reading{
				Timestamp: time.Now(),
				Score:     nurobuckle.Score(score),
				Status:    nurobuckle.StatusLow,
			}
			res, err := nurobuckle.FireTestAlert(ctx, cfg, reading)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			for _, e := range res.ErrorStrings() {
				fmt.Fprintf(cmd.ErrOrStderr(), "step failed: %s\n", e)
			}
			if res.Failed() {
				return fmt.Errorf("alert finished with %d failed steps, %d notifications delivered", len(res.Errors), res.Delivered())
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&score, "score", 5, "Attention score reported in the test alert")
	return cmd
}

func statsCommand() *cobra.Command {
	var (
		url      string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the metrics endpoint and print live counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(ctx, url); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "stats error: %v\n", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/metrics", "Prometheus metrics endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	return cmd
}

var statKeys = []string{
	"nuro_samples_received_total",
	"nuro_samples_accepted_total",
	"nuro_attention_score",
	"nuro_alerts_fired_total",
	"nuro_trigger_armed",
	"nuro_queue_length",
}

func printMetricsSnapshot(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values := make(map[string]float64, len(statKeys))
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range statKeys {
			if strings.HasPrefix(line, key+" ") {
				var v float64
				if _, err := fmt.Sscanf(line, key+" %g", &v); err == nil {
					values[key] = v
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] received=%.0f accepted=%.0f score=%.2f alerts=%.0f armed=%.0f queue=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["nuro_samples_received_total"],
		values["nuro_samples_accepted_total"],
		values["nuro_attention_score"],
		values["nuro_alerts_fired_total"],
		values["nuro_trigger_armed"],
		values["nuro_queue_length"],
	)
	return nil
}
