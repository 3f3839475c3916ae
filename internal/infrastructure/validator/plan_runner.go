package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"infrachat/internal/domain/entity"
	"infrachat/internal/domain/repository"
	"infrachat/internal/infrastructure/metrics"
	"infrachat/internal/infrastructure/store/filesystem"
)

// The only terraform invocations this package ever makes. Nothing from the
// generated code reaches an argument list.
var (
	initArgs = []string{"init", "-input=false"}
	planArgs = []string{"plan", "-input=false", "-no-color"}
)

var errPhaseTimeout = errors.New("terraform phase timed out")

// waitDelay bounds how long Wait keeps reading pipes after the process was
// killed, e.g. when provider plugins inherited them.
const waitDelay = 2 * time.Second

type PlanRunnerConfig struct {
	Binary         string
	WorkDir        string
	PluginCacheDir string
	InitTimeout    time.Duration
	PlanTimeout    time.Duration
}

type TerraformPlanRunner struct {
	cfg    PlanRunnerConfig
	logger *slog.Logger
}

var _ repository.PlanRunner = (*TerraformPlanRunner)(nil)

func NewTerraformPlanRunner(cfg PlanRunnerConfig, logger *slog.Logger) *TerraformPlanRunner {
	if cfg.Binary == "" {
		cfg.Binary = "terraform"
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 20 * time.Second
	}
	if cfg.PlanTimeout <= 0 {
		cfg.PlanTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TerraformPlanRunner{cfg: cfg, logger: logger}
}

// Run writes code to main.tf in a fresh workspace and runs terraform init and
// plan there. The workspace is removed before Run returns.
func (t *TerraformPlanRunner) Run(ctx context.Context, code string) (res entity.PlanResult) {
	defer func() {
		metrics.IncPlanRun(string(res.Status))
		t.logger.Info("terraform plan finished", "status", res.Status)
	}()

	ws, err := filesystem.NewWorkspace(t.cfg.WorkDir, "infrachat-")
	if err != nil {
		metrics.IncError("plan_runner", "workspace")
		return entity.PlanUnexpectedError(err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			metrics.IncError("plan_runner", "cleanup")
			t.logger.Error("workspace cleanup failed", "dir", ws.Dir(), "err", err)
		}
	}()

	if _, err := ws.WriteFile(filesystem.MainFile, code); err != nil {
		metrics.IncError("plan_runner", "write")
		return entity.PlanUnexpectedError(err)
	}

	_, stderr, err := t.runCmd(ctx, "init", ws.Dir(), t.cfg.InitTimeout, initArgs...)
	if err != nil {
		return t.failure(err, stderr, entity.PlanInitFailed)
	}

	stdout, stderr, err := t.runCmd(ctx, "plan", ws.Dir(), t.cfg.PlanTimeout, planArgs...)
	if err != nil {
		return t.failure(err, stderr, entity.PlanFailed)
	}
	return entity.PlanSucceeded(stdout)
}

func (t *TerraformPlanRunner) failure(err error, stderr string, onExit func(string) entity.PlanResult) entity.PlanResult {
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, errPhaseTimeout):
		return entity.PlanTimedOut()
	case errors.As(err, &exitErr):
		return onExit(stderr)
	default:
		metrics.IncError("plan_runner", "exec")
		return entity.PlanUnexpectedError(err)
	}
}

func (t *TerraformPlanRunner) runCmd(parent context.Context, phase, dir string, timeout time.Duration, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.cfg.Binary, args...)
	cmd.Dir = dir
	cmd.Env = t.env(dir)
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ObservePlanPhase(phase, time.Since(start))

	if err != nil {
		if perr := parent.Err(); perr != nil {
			return stdout.String(), stderr.String(), fmt.Errorf("terraform %s canceled: %w", phase, perr)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.logger.Warn("terraform phase timed out", "phase", phase, "timeout", timeout)
			return stdout.String(), stderr.String(), fmt.Errorf("%w: %s after %s", errPhaseTimeout, phase, timeout)
		}
		t.logger.Debug("terraform phase failed", "phase", phase, "err", err)
	}
	return stdout.String(), stderr.String(), err
}

func (t *TerraformPlanRunner) env(dir string) []string {
	env := append(os.Environ(),
		"PWD="+dir,
		"TF_IN_AUTOMATION=1",
		"TF_INPUT=0",
	)
	if t.cfg.PluginCacheDir != "" {
		env = append(env, "TF_PLUGIN_CACHE_DIR="+t.cfg.PluginCacheDir)
	}
	return env
}
