// Package dispatch renders and launches simulator jobs and waits for their
// completion markers.
package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/GoSim-25-26J-441/psweep/internal/params"
	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
)

// Mode selects where jobs run
type Mode string

const (
	ModeLocal Mode = "local"
	ModeSlurm Mode = "slurm"
)

// Default command templates per mode
const (
	DefaultLocalTemplate = "{{.Binary}} 1 {{.ConfigID}} {{.RunID}}"
	DefaultSlurmTemplate = "sbatch --job-name={{.JobName}} {{.Script}} {{.Start}} {{.End}} {{.RunID}}"
)

// ErrAborted is returned when the operator declines a mismatched batch split.
var ErrAborted = errors.New("dispatch aborted")

// Job identifies the configs one command covers. Start and End are config
// ids; a single-config job has Start == End == ConfigID.
type Job struct {
	RunID    string
	ConfigID string
	Start    string
	End      string
	Name     string
}

// commandData is the template context
type commandData struct {
	Job
	JobName string
	Script  string
	Binary  string
}

// Runner executes a rendered shell command
type Runner interface {
	Run(ctx context.Context, command string) error
}

// ShellRunner runs commands through sh -c
type ShellRunner struct {
	Dir string
}

// Run executes command and waits for it. The combined output is part of the error.
func (r ShellRunner) Run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %q failed: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	if len(out) > 0 {
		logger.Debug("command output", "command", command, "output", strings.TrimSpace(string(out)))
	}
	return nil
}

// Options configures a Dispatcher
type Options struct {
	Mode      Mode
	Command   string // template override
	Script    string
	Binary    string
	JobPrefix string
	Runner    Runner
	// Detach launches each command in the background; Wait blocks until all finish.
	Detach bool
}

// OptionsFromConfig maps the dispatch section of a sweep file
func OptionsFromConfig(c config.Dispatch) Options {
	return Options{
		Mode:      Mode(c.Mode),
		Command:   c.Command,
		Script:    c.Script,
		Binary:    c.Binary,
		JobPrefix: c.JobPrefix,
	}
}

// Dispatcher renders job commands and hands them to a Runner. Command
// failures are logged and never retried.
type Dispatcher struct {
	opts   Options
	tmpl   *template.Template
	runner Runner
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher, parsing the mode's command template
func NewDispatcher(opts Options) (*Dispatcher, error) {
	text := opts.Command
	if text == "" {
		switch opts.Mode {
		case ModeLocal:
			text = DefaultLocalTemplate
		case ModeSlurm:
			text = DefaultSlurmTemplate
		default:
			return nil, fmt.Errorf("unknown dispatch mode: %s", opts.Mode)
		}
	}
	tmpl, err := template.New("command").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command template: %w", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = ShellRunner{}
	}
	return &Dispatcher{opts: opts, tmpl: tmpl, runner: runner}, nil
}

// Render returns the command line for job
func (d *Dispatcher) Render(job Job) (string, error) {
	name := job.Name
	if name == "" {
		name = d.jobName(job)
	}
	var buf bytes.Buffer
	err := d.tmpl.Execute(&buf, commandData{
		Job:     job,
		JobName: name,
		Script:  d.opts.Script,
		Binary:  d.opts.Binary,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render command for %s: %w", job.RunID, err)
	}
	return buf.String(), nil
}

// jobName is {prefix}_{run_id} for batches and {prefix}_{run_id}_ID{config_id} for single configs.
func (d *Dispatcher) jobName(job Job) string {
	base := job.RunID
	if d.opts.JobPrefix != "" {
		base = d.opts.JobPrefix + "_" + job.RunID
	}
	if job.ConfigID != "" && job.Start == job.End {
		return base + "_ID" + job.ConfigID
	}
	return base
}

// Submit renders and launches job. Only a render failure is returned; a
// failing command is logged as a warning.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	command, err := d.Render(job)
	if err != nil {
		return err
	}
	logger.Info("CALLING", "command", command)

	run := func() {
		if err := d.runner.Run(ctx, command); err != nil {
			logger.Warn("job command failed", "run_id", job.RunID, "config_id", job.ConfigID, "error", err)
		}
	}
	if d.opts.Detach {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			run()
		}()
		return nil
	}
	run()
	return nil
}

// SubmitConfig launches a single config
func (d *Dispatcher) SubmitConfig(ctx context.Context, runID, configID string) error {
	return d.Submit(ctx, Job{RunID: runID, ConfigID: configID, Start: configID, End: configID})
}

// Wait blocks until every detached command has exited
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ConfirmFunc asks the operator whether to continue; false aborts.
type ConfirmFunc func(prompt string) bool

// SubmitSweep launches the n sequentially numbered configs of runID. With
// nPerJob <= 1 every config is its own job (End == Start); otherwise batches
// cover [i, i+nPerJob). A split that does not divide n is confirmed first.
// Returns the number of jobs launched.
func (d *Dispatcher) SubmitSweep(ctx context.Context, runID string, n, nPerJob int, confirm ConfirmFunc) (int, error) {
	if n <= 0 {
		logger.Warn("no configs to dispatch", "run_id", runID)
		return 0, nil
	}

	if nPerJob <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			id := strconv.Itoa(i)
			if err := d.Submit(ctx, Job{RunID: runID, ConfigID: id, Start: id, End: id, Name: d.batchName(runID)}); err != nil {
				return i, err
			}
		}
		return n, nil
	}

	if n%nPerJob != 0 {
		prompt := fmt.Sprintf("n_per_job (%d) does not divide the number of config files (%d)", nPerJob, n)
		logger.Warn(prompt, "run_id", runID)
		if confirm != nil && !confirm(prompt) {
			return 0, ErrAborted
		}
	}

	jobs := 0
	for i := 0; i < n; i += nPerJob {
		if err := ctx.Err(); err != nil {
			return jobs, err
		}
		job := Job{
			RunID:    runID,
			ConfigID: strconv.Itoa(i),
			Start:    strconv.Itoa(i),
			End:      strconv.Itoa(i + nPerJob),
			Name:     d.batchName(runID),
		}
		if err := d.Submit(ctx, job); err != nil {
			return jobs, err
		}
		jobs++
	}
	return jobs, nil
}

func (d *Dispatcher) batchName(runID string) string {
	if d.opts.JobPrefix == "" {
		return runID
	}
	return d.opts.JobPrefix + "_" + runID
}

// CountConfigs counts the config files of runID in dir ({run_id}_*).
func CountConfigs(dir, runID string) (int, error) {
	matches, err := filepath.Glob(params.RunPattern(dir, runID))
	if err != nil {
		return 0, fmt.Errorf("failed to list configs: %w", err)
	}
	return len(matches), nil
}

// PromptConfirm returns a ConfirmFunc reading one line from in. An empty
// line continues; exit, 0, n, N, no and No decline.
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s\npress enter to continue, or type 'no' to exit: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.TrimSpace(line) {
		case "exit", "0", "n", "N", "no", "No":
			return false
		default:
			return true
		}
	}
}
