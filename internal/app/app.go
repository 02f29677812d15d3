// Package app wires configuration, collaborators, and the IPC surface into
// the viva command dispatch.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/tmarbury/viva/internal/ai"
	"github.com/tmarbury/viva/internal/auth"
	"github.com/tmarbury/viva/internal/capture"
	"github.com/tmarbury/viva/internal/cli"
	"github.com/tmarbury/viva/internal/config"
	"github.com/tmarbury/viva/internal/doctor"
	"github.com/tmarbury/viva/internal/export"
	"github.com/tmarbury/viva/internal/ipc"
	"github.com/tmarbury/viva/internal/logging"
	"github.com/tmarbury/viva/internal/media"
	"github.com/tmarbury/viva/internal/notify"
	"github.com/tmarbury/viva/internal/reconcile"
	"github.com/tmarbury/viva/internal/session"
	"github.com/tmarbury/viva/internal/storage"
	"github.com/tmarbury/viva/internal/turn"
	"github.com/tmarbury/viva/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("viva"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("viva"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandResults:
		return r.commandResults()
	case cli.CommandBegin, cli.CommandListen, cli.CommandAdvance, cli.CommandCapture,
		cli.CommandToggleVideo, cli.CommandToggleMic, cli.CommandFinish,
		cli.CommandRetry, cli.CommandCancel:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandInterview:
		return r.commandInterview(ctx, parsed, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := media.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		if resp.Question != "" {
			fmt.Fprintf(r.Stdout, "question %d: %s\n", resp.Index+1, resp.Question)
		}
		if resp.Answer != "" {
			fmt.Fprintf(r.Stdout, "answer so far: %s\n", resp.Answer)
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) commandResults() int {
	store, err := export.NewStore("")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	payload, err := store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(r.Stdout, "no finished interview yet")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(encoded))
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active viva session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandInterview owns the session: it binds the IPC socket, wires every
// collaborator, and runs the lifecycle until completion or cancellation.
func (r Runner) commandInterview(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: an interview session is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, err := buildController(parsed, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "interview complete: %d/100 (%s)\n",
		result.Payload.Assessment.Score, result.Payload.Assessment.Recommendation)
	if result.Payload.DurableArtifactURL != "" {
		fmt.Fprintf(r.Stdout, "photos: %s\n", result.Payload.DurableArtifactURL)
	}
	return 0
}

// buildController assembles the full collaborator graph for one session.
func buildController(parsed cli.Parsed, cfg config.Config, logger *slog.Logger) (*session.Controller, error) {
	provider := ai.NewProvider(&ai.Config{
		BaseURL:         cfg.OpenAI.BaseURL,
		APIKey:          cfg.OpenAI.APIKey,
		ChatModel:       cfg.OpenAI.ChatModel,
		SpeechModel:     cfg.OpenAI.SpeechModel,
		SpeechVoice:     cfg.OpenAI.SpeechVoice,
		TranscribeModel: cfg.OpenAI.TranscribeModel,
		MaxRetries:      cfg.OpenAI.MaxRetries,
		Timeout:         time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
	}, logger)

	mediaCtl := media.NewController(&media.PulseAcquirer{
		InputPref:    cfg.Audio.Input,
		FallbackPref: cfg.Audio.Fallback,
		Frames:       media.TestPatternSource{},
	}, logger)

	turns := turn.NewCoordinator(
		ai.NewSpeaker(provider, media.PulsePlayer{}),
		func() turn.Transcriber { return ai.NewTranscriber(provider, mediaCtl) },
		logger,
	)

	offsets := make([]time.Duration, 0, len(cfg.Session.CaptureOffsetsSeconds))
	for _, seconds := range cfg.Session.CaptureOffsetsSeconds {
		offsets = append(offsets, time.Duration(seconds)*time.Second)
	}
	scheduler := capture.NewScheduler(capture.RealClock{}, offsets, cfg.Session.ArtifactCap, mediaCtl.CaptureFrame, logger)

	notifier := notify.New(cfg.Notify.Enable, cfg.Notify.AppName, logger)
	identity := auth.NewFileTokenSource(cfg.Auth.TokenPath, cfg.Auth.Secret, logger)

	var store reconcile.Store
	if cfg.Storage.Bucket != "" {
		client, err := storage.NewClient(storage.Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			Bucket:       cfg.Storage.Bucket,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			PathStyle:    cfg.Storage.PathStyle,
			SignedURLTTL: time.Duration(cfg.Storage.SignedURLTTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("configure storage: %w", err)
		}
		store = client
	}

	pipeline := reconcile.NewPipeline(logger, identity, store, scheduler, mediaCtl, notifier)

	sink, err := export.NewStore("")
	if err != nil {
		return nil, fmt.Errorf("configure result store: %w", err)
	}

	return session.NewController(
		logger,
		session.Options{
			Candidate:     parsed.Candidate,
			Category:      parsed.Category,
			QuestionCount: cfg.Session.QuestionCount,
		},
		provider,
		provider,
		mediaCtl,
		turns,
		scheduler,
		pipeline,
		notifier,
		sink,
	), nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"responses", len(result.Payload.Responses),
		"artifact_urls", len(result.Payload.ArtifactURLs),
		"score", result.Payload.Assessment.Score,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: ipc.Command(command)}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
