package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingRunner captures commands instead of running them
type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	return r.err
}

func (r *recordingRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

func TestRenderDefaultTemplates(t *testing.T) {
	local, err := NewDispatcher(Options{Mode: ModeLocal, Binary: "./hh_psweep"})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	got, err := local.Render(Job{RunID: "HH", ConfigID: "42", Start: "42", End: "42"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "./hh_psweep 1 42 HH" {
		t.Errorf("unexpected local command %q", got)
	}

	slurm, err := NewDispatcher(Options{Mode: ModeSlurm, Script: "myJobIndividual.sh", JobPrefix: "HH"})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	got, err = slurm.Render(Job{RunID: "R1", ConfigID: "7", Start: "7", End: "7"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "sbatch --job-name=HH_R1_ID7 myJobIndividual.sh 7 7 R1" {
		t.Errorf("unexpected slurm command %q", got)
	}
}

func TestNewDispatcherErrors(t *testing.T) {
	if _, err := NewDispatcher(Options{Mode: "pbs"}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewDispatcher(Options{Mode: ModeLocal, Command: "{{.Binary"}); err == nil {
		t.Error("expected error for broken template")
	}
}

func TestSubmitLogsCommandFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("sbatch: not found")}
	d, err := NewDispatcher(Options{Mode: ModeSlurm, Script: "job.sh", Runner: runner})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	if err := d.SubmitConfig(context.Background(), "HH", "3"); err != nil {
		t.Fatalf("expected failure to be swallowed, got %v", err)
	}
	if len(runner.Commands()) != 1 {
		t.Fatalf("expected one command, got %d", len(runner.Commands()))
	}
}

func TestSubmitSweepIndividual(t *testing.T) {
	runner := &recordingRunner{}
	d, _ := NewDispatcher(Options{Mode: ModeSlurm, Script: "job.sh", JobPrefix: "HH", Runner: runner})

	jobs, err := d.SubmitSweep(context.Background(), "R", 3, 1, nil)
	if err != nil {
		t.Fatalf("SubmitSweep: %v", err)
	}
	if jobs != 3 {
		t.Fatalf("expected 3 jobs, got %d", jobs)
	}
	want := []string{
		"sbatch --job-name=HH_R job.sh 0 0 R",
		"sbatch --job-name=HH_R job.sh 1 1 R",
		"sbatch --job-name=HH_R job.sh 2 2 R",
	}
	for i, cmd := range runner.Commands() {
		if cmd != want[i] {
			t.Errorf("command %d = %q, want %q", i, cmd, want[i])
		}
	}
}

func TestSubmitSweepMulti(t *testing.T) {
	runner := &recordingRunner{}
	d, _ := NewDispatcher(Options{Mode: ModeSlurm, Script: "job.sh", Runner: runner})

	jobs, err := d.SubmitSweep(context.Background(), "R", 6, 3, nil)
	if err != nil {
		t.Fatalf("SubmitSweep: %v", err)
	}
	if jobs != 2 {
		t.Fatalf("expected 2 jobs, got %d", jobs)
	}
	cmds := runner.Commands()
	if cmds[0] != "sbatch --job-name=R job.sh 0 3 R" || cmds[1] != "sbatch --job-name=R job.sh 3 6 R" {
		t.Fatalf("unexpected commands %v", cmds)
	}
}

func TestSubmitSweepMismatchConfirm(t *testing.T) {
	runner := &recordingRunner{}
	d, _ := NewDispatcher(Options{Mode: ModeSlurm, Script: "job.sh", Runner: runner})

	var prompted string
	_, err := d.SubmitSweep(context.Background(), "R", 5, 2, func(p string) bool {
		prompted = p
		return false
	})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if !strings.Contains(prompted, "does not divide") {
		t.Errorf("unexpected prompt %q", prompted)
	}
	if len(runner.Commands()) != 0 {
		t.Fatal("expected no commands after abort")
	}

	jobs, err := d.SubmitSweep(context.Background(), "R", 5, 2, func(string) bool { return true })
	if err != nil {
		t.Fatalf("SubmitSweep: %v", err)
	}
	if jobs != 3 {
		t.Fatalf("expected 3 jobs, got %d", jobs)
	}
}

func TestDetachedSubmit(t *testing.T) {
	runner := &recordingRunner{}
	d, _ := NewDispatcher(Options{Mode: ModeLocal, Binary: "./sim", Runner: runner, Detach: true})
	for _, id := range []string{"1", "2", "3"} {
		if err := d.SubmitConfig(context.Background(), "HH", id); err != nil {
			t.Fatalf("SubmitConfig: %v", err)
		}
	}
	d.Wait()
	if len(runner.Commands()) != 3 {
		t.Fatalf("expected 3 commands after Wait, got %d", len(runner.Commands()))
	}
}

func TestShellRunner(t *testing.T) {
	dir := t.TempDir()
	r := ShellRunner{Dir: dir}
	if err := r.Run(context.Background(), "echo ok > out.txt"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err != nil {
		t.Fatalf("expected command to run in dir: %v", err)
	}
	if err := r.Run(context.Background(), "exit 3"); err == nil {
		t.Fatal("expected error for failing command")
	}
}

func TestCountConfigs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"HH_ID0.txt", "HH_ID1.txt", "GK_ID0.txt", "HHX_ID0.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err := CountConfigs(dir, "HH")
	if err != nil {
		t.Fatalf("CountConfigs: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 configs, got %d", n)
	}

	// metacharacters in the run id match literally
	for _, name := range []string{"H*_ID0.txt", "H*_ID1.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err = CountConfigs(dir, "H*")
	if err != nil {
		t.Fatalf("CountConfigs: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 configs for run H*, got %d", n)
	}
	if _, err := CountConfigs(dir, "[HH"); err != nil {
		t.Fatalf("unbalanced bracket should not be a pattern error: %v", err)
	}
}

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"yes\n", true},
		{"no\n", false},
		{"N\n", false},
		{"exit\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out strings.Builder
		confirm := PromptConfirm(strings.NewReader(tt.input), &out)
		if got := confirm("mismatch"); got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "mismatch") {
			t.Errorf("input %q: prompt not written", tt.input)
		}
	}
}

func TestPollerFindsMarker(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "DONE.txt")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(marker, nil, 0o644)
	}()

	p := NewPoller(5*time.Millisecond, 1000)
	if err := p.Wait(context.Background(), marker); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestPollerTimeout(t *testing.T) {
	p := NewPoller(time.Millisecond, 3)
	err := p.Wait(context.Background(), filepath.Join(t.TempDir(), "DONE.txt"))
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPollerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPoller(time.Hour, 10)
	err := p.Wait(ctx, filepath.Join(t.TempDir(), "DONE.txt"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
