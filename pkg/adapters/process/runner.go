package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

// EnvFileVar names the variable holding the file a body may write its
// environment to when capture is requested.
const EnvFileVar = "GUIDEBOOK_ENV_FILE"

// DefaultGracePeriod is how long a process may take to exit after an
// interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner executes leaf bodies and commands as local subprocesses.
// It implements ports.Executor.
type Runner struct {
	runtimes map[string]Runtime
	baseDir  string
	shell    string
	grace    time.Duration
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

var _ ports.Executor = (*Runner)(nil)

// RunnerOption defines a functional option for configuring the Runner.
type RunnerOption func(*Runner)

// WithRuntimes replaces the language runtimes.
func WithRuntimes(runtimes map[string]Runtime) RunnerOption {
	return func(r *Runner) {
		if runtimes != nil {
			r.runtimes = runtimes
		}
	}
}

// WithBaseDir sets the working directory of every subprocess.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithShell sets the shell commands are run through. Defaults to "sh".
func WithShell(shell string) RunnerOption {
	return func(r *Runner) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithGracePeriod sets the delay between interrupt and kill.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// WithOutput mirrors the output of synchronous subprocesses.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner with the default runtimes.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		runtimes: DefaultRuntimes(),
		shell:    "sh",
		grace:    DefaultGracePeriod,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// invocation is a resolved subprocess invocation.
type invocation struct {
	name    string
	args    []string
	env     []string
	stdin   string
	capture bool
}

func (s invocation) String() string {
	return strings.TrimSpace(s.name + " " + strings.Join(s.args, " "))
}

func (r *Runner) resolve(req domain.RunRequest, sess ports.Session) (invocation, error) {
	env := os.Environ()
	if sess != nil {
		env = sess.Environ()
	}

	if req.Command != "" {
		return invocation{
			name:  r.shell,
			args:  []string{"-c", req.Command},
			env:   env,
			stdin: req.Body,
		}, nil
	}

	lang := req.Lang
	if lang == "" {
		lang = "sh"
	}
	rt, ok := r.runtimes[lang]
	if !ok {
		return invocation{}, fmt.Errorf("leaf %s: unknown runtime %q", req.ID, lang)
	}
	for k, v := range rt.Environment {
		env = append(env, k+"="+v)
	}

	s := invocation{name: rt.Command, args: rt.Args, env: env, stdin: req.Body}
	if req.CaptureEnv {
		s.capture = true
		if rt.Shell {
			s.stdin = captureTrap + s.stdin
		}
	}
	return s, nil
}

// captureTrap dumps the final environment of a shell body, including on early exit.
const captureTrap = `trap 'env > "$` + EnvFileVar + `"' EXIT` + "\n"

// Run executes req to completion and returns its output.
func (r *Runner) Run(ctx context.Context, req domain.RunRequest, sess ports.Session) (domain.RunResult, error) {
	s, err := r.resolve(req, sess)
	if err != nil {
		return domain.RunResult{}, err
	}

	var envFile string
	if s.capture {
		f, err := os.CreateTemp("", "guidebook-env-*")
		if err != nil {
			return domain.RunResult{}, fmt.Errorf("failed to create env file: %w", err)
		}
		envFile = f.Name()
		f.Close()
		defer os.Remove(envFile)
		s.env = append(s.env, EnvFileVar+"="+envFile)
	}

	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Dir = r.baseDir
	cmd.Env = s.env
	cmd.Stdin = strings.NewReader(s.stdin)
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = r.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, r.stdout)
	cmd.Stderr = tee(&stderr, r.stderr)

	r.logger.Debug("running subprocess", "id", req.ID, "command", s.String())
	start := time.Now()
	err = cmd.Run()
	res := domain.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", s, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &domain.ExecError{Command: s.String(), ExitCode: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		return res, fmt.Errorf("failed to run %s: %w", s, err)
	}

	if s.capture {
		env, err := readEnvFile(envFile)
		if err != nil {
			return res, err
		}
		res.Env = changed(s.env, env)
	}
	return res, nil
}

// Start launches req in the background and tracks it in sess. The process
// outlives ctx and is stopped through its handle.
func (r *Runner) Start(ctx context.Context, req domain.RunRequest, sess ports.Session) (ports.ProcessHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := r.resolve(req, sess)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(s.name, s.args...)
	cmd.Dir = r.baseDir
	cmd.Env = s.env
	cmd.Stdin = strings.NewReader(s.stdin)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s, err)
	}

	h := &handle{
		id:    fmt.Sprintf("%s:%d", req.ID, cmd.Process.Pid),
		cmd:   cmd,
		grace: r.grace,
		done:  make(chan struct{}),
	}
	r.logger.Debug("started subprocess", "id", h.id, "command", s.String())

	if sess != nil {
		sess.Track(h)
	}
	go func() {
		h.err = cmd.Wait()
		close(h.done)
		if sess != nil {
			sess.Untrack(h)
		}
		r.logger.Debug("subprocess exited", "id", h.id, "error", h.err)
	}()
	return h, nil
}

// handle is a background subprocess.
type handle struct {
	id    string
	cmd   *exec.Cmd
	grace time.Duration

	once sync.Once
	done chan struct{}
	err  error
}

func (h *handle) ID() string { return h.id }

func (h *handle) Wait() error {
	<-h.done
	return h.err
}

// Terminate interrupts the process and kills it after the grace period or
// when ctx is done.
func (h *handle) Terminate(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		if ierr := interrupt(h.cmd.Process); ierr != nil {
			err = h.cmd.Process.Kill()
		} else {
			timer := time.NewTimer(h.grace)
			defer timer.Stop()
			select {
			case <-h.done:
				return
			case <-timer.C:
			case <-ctx.Done():
			}
			err = h.cmd.Process.Kill()
		}
		<-h.done
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
	})
	return err
}

func interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Signal(os.Interrupt)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

func readEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read captured env: %w", err)
	}
	defer f.Close()

	env := make(map[string]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok || !validName(k) {
			continue
		}
		env[k] = v
	}
	return env, sc.Err()
}

// ignored are variables every shell rewrites on its own.
var ignored = map[string]bool{
	"_": true, "PWD": true, "OLDPWD": true, "SHLVL": true, EnvFileVar: true,
}

// changed returns the variables of after that are new or differ from before.
func changed(before []string, after map[string]string) map[string]string {
	base := make(map[string]string, len(before))
	for _, kv := range before {
		k, v, _ := strings.Cut(kv, "=")
		base[k] = v
	}
	out := make(map[string]string)
	for k, v := range after {
		if ignored[k] {
			continue
		}
		if old, ok := base[k]; !ok || old != v {
			out[k] = v
		}
	}
	return out
}

func validName(k string) bool {
	if k == "" {
		return false
	}
	for i, c := range k {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
