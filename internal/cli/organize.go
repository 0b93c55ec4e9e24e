package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/organize-agent/organize/internal/agent"
	"github.com/organize-agent/organize/internal/config"
	"github.com/organize-agent/organize/internal/eventing/console"
	"github.com/organize-agent/organize/internal/gate"
	"github.com/organize-agent/organize/internal/idgen"
	"github.com/organize-agent/organize/internal/modelanthropic"
	"github.com/organize-agent/organize/internal/organizer"
	"github.com/organize-agent/organize/internal/policy/retry"
	"github.com/organize-agent/organize/internal/registry"
)

// newModel builds the remote model client; replaced in tests with a
// scripted adapter.
var newModel = func(cfg config.Config) (agent.Model, error) {
	adapter, err := modelanthropic.New(modelanthropic.Config{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		return nil, err
	}
	return retry.WrapModel(adapter, retry.Config{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Second,
		ShouldRetry: modelanthropic.Retryable,
	}), nil
}

func runOrganize(cmd *cobra.Command, directory string, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	if opts.maxSteps > 0 {
		cfg.MaxSteps = opts.maxSteps
	}
	if opts.logLevel != "" {
		level, err := config.ParseLogLevel(opts.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if opts.logFormat != "" {
		format, err := config.ParseLogFormat(opts.logFormat)
		if err != nil {
			return err
		}
		cfg.LogFormat = format
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)

	// The target directory must exist and be readable before the run
	// starts; this is a startup fault, not a tool-call error.
	policy, err := organizer.NewPolicy(directory)
	if err != nil {
		logger.Error("target directory rejected", "directory", directory, "error", err)
		return err
	}
	if _, err := os.ReadDir(policy.Root()); err != nil {
		logger.Error("target directory is not readable", "directory", policy.Root(), "error", err)
		return fmt.Errorf("read %q: %w", policy.Root(), err)
	}

	mode := agent.ModeLive
	if opts.dryRun {
		mode = agent.ModeDryRun
	}

	executor := organizer.NewExecutor(policy)
	catalog, err := registry.New(organizer.Definitions(), map[string]registry.Handler{
		organizer.ToolListDirectory: executor.ListDirectory,
		organizer.ToolCreateFolder:  executor.CreateFolder,
		organizer.ToolMoveFile:      executor.MoveFile,
	})
	if err != nil {
		return err
	}

	gated, err := gate.New(gate.Config{
		Mode:        mode,
		Next:        catalog,
		Simulator:   executor,
		Prompter:    gate.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
		AutoApprove: opts.yes,
		Tools:       catalog.Definitions(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	model, err := newModel(cfg)
	if err != nil {
		logger.Error("model setup failed", "error", err)
		return err
	}

	loop, err := agent.NewLoop(model, gated, console.New(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	runID, err := idgen.New("organize").NewRunID(cmd.Context())
	if err != nil {
		return err
	}

	state := agent.NewRunState(agent.RunInput{
		RunID:        runID,
		Mode:         mode,
		SystemPrompt: organizer.SystemPrompt(mode),
		UserPrompt:   organizer.UserPrompt(policy.Root()),
	})

	final, err := loop.Execute(cmd.Context(), state, agent.LoopInput{
		MaxSteps: cfg.MaxSteps,
		Tools:    catalog.Definitions(),
	})
	if err != nil {
		logger.Error("run failed", "run_id", final.ID, "status", final.Status, "error", err)
		return err
	}

	logger.Info("run finished", "run_id", final.ID, "status", final.Status, "steps", final.Step)
	return nil
}
