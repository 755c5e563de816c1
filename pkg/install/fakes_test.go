package install

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nixstall/nixstall/pkg/config"
	"github.com/nixstall/nixstall/pkg/hostexec"
	"github.com/nixstall/nixstall/pkg/storage"
)

// fakeRunner records every command and answers Run from fixed tables keyed
// by command name. Stream delegates to a real unprivileged runner with a
// substitute command so the LineStream machinery stays honest.
type fakeRunner struct {
	commands []hostexec.Command
	outputs  map[string]string
	errs     map[string]error

	// streamWith replaces the streamed command; defaults to a successful
	// one-line echo.
	streamWith hostexec.Command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (r *fakeRunner) Run(_ context.Context, c hostexec.Command) ([]byte, error) {
	r.commands = append(r.commands, c)
	return []byte(r.outputs[c.Name]), r.errs[c.Name]
}

func (r *fakeRunner) Stream(ctx context.Context, c hostexec.Command) (*hostexec.LineStream, error) {
	r.commands = append(r.commands, c)
	sub := r.streamWith
	if sub.Name == "" {
		sub = hostexec.Command{Name: "echo", Args: []string{"installing"}}
	}
	return hostexec.New("").Stream(ctx, sub)
}

// named returns the recorded commands with the given name.
func (r *fakeRunner) named(name string) []hostexec.Command {
	var out []hostexec.Command
	for _, c := range r.commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// indexOf returns the position of the first command with the given name,
// or -1.
func (r *fakeRunner) indexOf(name string) int {
	for i, c := range r.commands {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// progressLog records reported phases in order.
type progressLog struct {
	phases    []Phase
	fractions []float64
}

func (p *progressLog) Progress(phase Phase, fraction float64) {
	p.phases = append(p.phases, phase)
	p.fractions = append(p.fractions, fraction)
}

func parseStorage(t *testing.T, doc string) *storage.GlobalStorage {
	t.Helper()
	gs, err := storage.Parse([]byte(doc))
	require.NoError(t, err)
	return gs
}

// newTestJob wires a job from a YAML document with a fake runner and a
// progress recorder. The config starts from the embedded defaults.
func newTestJob(t *testing.T, doc string) (*Job, *fakeRunner, *progressLog) {
	t.Helper()
	runner := newFakeRunner()
	runner.outputs["nixos-version"] = "25.05.20260831.abcdef (Warbler)\n"
	progress := &progressLog{}

	job := New(Options{
		GlobalStorage: parseStorage(t, doc),
		Config:        config.Default(),
		Runner:        runner,
		Progress:      progress,
	})
	return job, runner, progress
}
