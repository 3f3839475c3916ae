//go:build unix

package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrachat/internal/domain/entity"
)

// fakeTerraform records "<cwd>|<args>" for every invocation and behaves
// according to FAKE_TF_INIT / FAKE_TF_PLAN (ok, fail, hang, spawn). spawn
// leaves a background child behind, the way provider plugins do.
const fakeTerraform = `#!/bin/sh
echo "$(pwd)|$*" >> "$FAKE_TF_LOG"
case "$1" in
  init) mode="$FAKE_TF_INIT" ;;
  plan) mode="$FAKE_TF_PLAN"; cat main.tf > "$FAKE_TF_SEEN" ;;
  *) mode="unknown" ;;
esac
case "$mode" in
  ok) echo "$1 stdout ok"; echo "$1 stderr noise" >&2; exit 0 ;;
  fail) echo "$1 stdout noise"; echo "$1 stderr boom" >&2; exit 1 ;;
  hang) echo $$ > "$FAKE_TF_PID"; exec sleep 30 ;;
  spawn) sleep 30 & echo $! > "$FAKE_TF_CHILD"; echo $$ > "$FAKE_TF_PID"; exec sleep 30 ;;
  *) echo "unexpected subcommand $1" >&2; exit 2 ;;
esac
`

type fakeEnv struct {
	bin     string
	workDir string
	log     string
	seen    string
	pid     string
	child   string
}

func setupFake(t *testing.T, initMode, planMode string) fakeEnv {
	t.Helper()
	dir := t.TempDir()
	env := fakeEnv{
		bin:     filepath.Join(dir, "terraform"),
		workDir: filepath.Join(dir, "work"),
		log:     filepath.Join(dir, "calls.log"),
		seen:    filepath.Join(dir, "seen.tf"),
		pid:     filepath.Join(dir, "pid"),
		child:   filepath.Join(dir, "child"),
	}
	require.NoError(t, os.WriteFile(env.bin, []byte(fakeTerraform), 0o755))
	t.Setenv("FAKE_TF_LOG", env.log)
	t.Setenv("FAKE_TF_SEEN", env.seen)
	t.Setenv("FAKE_TF_PID", env.pid)
	t.Setenv("FAKE_TF_CHILD", env.child)
	t.Setenv("FAKE_TF_INIT", initMode)
	t.Setenv("FAKE_TF_PLAN", planMode)
	return env
}

type call struct {
	dir  string
	args string
}

func (f fakeEnv) calls(t *testing.T) []call {
	t.Helper()
	data, err := os.ReadFile(f.log)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var out []call
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		dir, args, _ := strings.Cut(line, "|")
		out = append(out, call{dir: dir, args: args})
	}
	return out
}

func readPid(t *testing.T, path string) int {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	return pid
}

// processGone treats zombies as gone: an orphan may wait for its reaper.
func processGone(pid int) bool {
	if errors.Is(syscall.Kill(pid, 0), syscall.ESRCH) {
		return true
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	_, rest, ok := strings.Cut(string(stat), ") ")
	return ok && strings.HasPrefix(rest, "Z")
}

func (f fakeEnv) runner(init, plan time.Duration) *TerraformPlanRunner {
	return NewTerraformPlanRunner(PlanRunnerConfig{
		Binary:      f.bin,
		WorkDir:     f.workDir,
		InitTimeout: init,
		PlanTimeout: plan,
	}, nil)
}

func TestTerraformPlanRunner(t *testing.T) {
	code := `resource "aws_s3_bucket" "b" { tags = { Name = "b" } }`

	t.Run("success returns plan stdout", func(t *testing.T) {
		f := setupFake(t, "ok", "ok")

		res := f.runner(5*time.Second, 5*time.Second).Run(context.Background(), code)

		assert.Equal(t, entity.PlanStatusSucceeded, res.Status)
		assert.Equal(t, "✅ Plan succeeded:\nplan stdout ok\n", res.Message)

		calls := f.calls(t)
		require.Len(t, calls, 2)
		assert.Equal(t, "init -input=false", calls[0].args)
		assert.Equal(t, "plan -input=false -no-color", calls[1].args)
		assert.Equal(t, calls[0].dir, calls[1].dir)
		assert.Equal(t, f.workDir, filepath.Dir(calls[0].dir))
		assert.NoDirExists(t, calls[0].dir)

		seen, err := os.ReadFile(f.seen)
		require.NoError(t, err)
		assert.Equal(t, code, string(seen))
	})

	t.Run("init failure skips plan", func(t *testing.T) {
		f := setupFake(t, "fail", "ok")

		res := f.runner(5*time.Second, 5*time.Second).Run(context.Background(), code)

		assert.Equal(t, entity.PlanStatusInitFailed, res.Status)
		assert.Equal(t, "❌ Terraform init failed:\ninit stderr boom\n", res.Message)
		calls := f.calls(t)
		require.Len(t, calls, 1)
		assert.Equal(t, "init -input=false", calls[0].args)
		assert.NoDirExists(t, calls[0].dir)
	})

	t.Run("plan failure returns stderr", func(t *testing.T) {
		f := setupFake(t, "ok", "fail")

		res := f.runner(5*time.Second, 5*time.Second).Run(context.Background(), code)

		assert.Equal(t, entity.PlanStatusPlanFailed, res.Status)
		assert.Equal(t, "⚠️ Plan failed (code may still be valid):\nplan stderr boom\n", res.Message)
		calls := f.calls(t)
		require.Len(t, calls, 2)
		assert.NoDirExists(t, calls[1].dir)
	})

	for _, phase := range []string{"init", "plan"} {
		t.Run(phase+" timeout kills the process", func(t *testing.T) {
			initMode, planMode := "ok", "ok"
			if phase == "init" {
				initMode = "hang"
			} else {
				planMode = "hang"
			}
			f := setupFake(t, initMode, planMode)

			start := time.Now()
			res := f.runner(500*time.Millisecond, 500*time.Millisecond).Run(context.Background(), code)

			assert.Equal(t, entity.PlanTimedOut(), res)
			assert.Less(t, time.Since(start), 10*time.Second)

			raw, err := os.ReadFile(f.pid)
			require.NoError(t, err)
			pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
			require.NoError(t, err)
			assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH, "terraform %s still running", phase)

			calls := f.calls(t)
			require.NotEmpty(t, calls)
			assert.NoDirExists(t, calls[0].dir)
			if phase == "init" {
				assert.Len(t, calls, 1)
			}
		})
	}

	t.Run("timeout kills child processes too", func(t *testing.T) {
		f := setupFake(t, "ok", "spawn")

		start := time.Now()
		res := f.runner(5*time.Second, 500*time.Millisecond).Run(context.Background(), code)

		assert.Equal(t, entity.PlanTimedOut(), res)
		assert.Less(t, time.Since(start), waitDelay)

		child := readPid(t, f.child)
		assert.Eventually(t, func() bool { return processGone(child) }, 2*time.Second, 20*time.Millisecond,
			"child %d survived the timeout", child)
		assert.True(t, processGone(readPid(t, f.pid)))
	})

	t.Run("code is never part of the command line", func(t *testing.T) {
		f := setupFake(t, "ok", "ok")
		evil := "$(touch pwned); `rm -rf /`; apply -auto-approve\n\" && destroy ; echo '"

		res := f.runner(5*time.Second, 5*time.Second).Run(context.Background(), evil)

		assert.Equal(t, entity.PlanStatusSucceeded, res.Status)
		calls := f.calls(t)
		require.Len(t, calls, 2)
		assert.Equal(t, "init -input=false", calls[0].args)
		assert.Equal(t, "plan -input=false -no-color", calls[1].args)
		seen, err := os.ReadFile(f.seen)
		require.NoError(t, err)
		assert.Equal(t, evil, string(seen))
		assert.NoFileExists(t, filepath.Join(calls[0].dir, "pwned"))
	})

	t.Run("missing binary is an unexpected error", func(t *testing.T) {
		r := NewTerraformPlanRunner(PlanRunnerConfig{
			Binary:  filepath.Join(t.TempDir(), "no-such-terraform"),
			WorkDir: t.TempDir(),
		}, nil)

		res := r.Run(context.Background(), code)

		assert.Equal(t, entity.PlanStatusUnexpectedError, res.Status)
		assert.True(t, strings.HasPrefix(res.Message, "💥 Unexpected error: "))
	})

	t.Run("workspace removed after unexpected error", func(t *testing.T) {
		work := t.TempDir()
		r := NewTerraformPlanRunner(PlanRunnerConfig{
			Binary:  filepath.Join(t.TempDir(), "no-such-terraform"),
			WorkDir: work,
		}, nil)

		_ = r.Run(context.Background(), code)

		entries, err := os.ReadDir(work)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("canceled parent context", func(t *testing.T) {
		f := setupFake(t, "hang", "ok")
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(200*time.Millisecond, cancel)

		res := f.runner(10*time.Second, 10*time.Second).Run(ctx, code)

		assert.Equal(t, entity.PlanStatusUnexpectedError, res.Status)
		assert.Contains(t, res.Message, "canceled")
	})
}

func TestPlanArgsAreFixed(t *testing.T) {
	for _, args := range [][]string{initArgs, planArgs} {
		for _, a := range args {
			assert.NotContains(t, []string{"apply", "destroy", "import", "-auto-approve"}, a)
		}
	}
	assert.Equal(t, []string{"init", "-input=false"}, initArgs)
	assert.Equal(t, []string{"plan", "-input=false", "-no-color"}, planArgs)
}
