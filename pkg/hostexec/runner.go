// Package hostexec runs the external system tools the installer job
// depends on. Privileged invocations go through the host's privilege
// escalation wrapper; environment variables ride along explicitly via
// env(1) because the wrapper scrubs the inherited environment.
package hostexec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nixstall/nixstall/pkg/logging"
)

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	// Stdin is piped to the process when non-empty. Used for passphrases
	// and for writing files under the target root via `cp /dev/stdin`.
	Stdin string
	// Env entries (KEY=VALUE) are made visible to the process even under
	// the escalator.
	Env []string
	// Privileged runs the command through the escalation wrapper.
	Privileged bool
}

// Runner executes external commands with combined output capture.
type Runner interface {
	// Run blocks until the process exits and returns its combined output.
	// A non-zero exit or a launch failure is returned as an error alongside
	// whatever output was produced.
	Run(ctx context.Context, cmd Command) ([]byte, error)

	// Stream starts the process and returns a line iterator over its
	// combined output. The caller must drain the stream and call Wait.
	Stream(ctx context.Context, cmd Command) (*LineStream, error)
}

type osRunner struct {
	escalator string
	logger    zerolog.Logger
}

// New creates a Runner that escalates privileged commands through the
// given wrapper (conventionally pkexec).
func New(escalator string) Runner {
	return &osRunner{
		escalator: escalator,
		logger:    logging.GetLogger("hostexec"),
	}
}

// argv expands a Command into the full invocation vector.
func (r *osRunner) argv(c Command) []string {
	var argv []string
	if c.Privileged && r.escalator != "" {
		argv = append(argv, r.escalator)
		if len(c.Env) > 0 {
			argv = append(argv, "env")
			argv = append(argv, c.Env...)
		}
	}
	argv = append(argv, c.Name)
	argv = append(argv, c.Args...)
	return argv
}

func (r *osRunner) build(ctx context.Context, c Command) *exec.Cmd {
	argv := r.argv(c)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	// Without an escalator there is no env(1) prefix in the argv, so the
	// extra variables go through the process environment instead.
	if len(c.Env) > 0 && (!c.Privileged || r.escalator == "") {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func (r *osRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := r.build(ctx, c)
	r.logger.Debug().
		Str("command", c.Name).
		Strs("args", c.Args).
		Bool("privileged", c.Privileged).
		Msg("Executing command")

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Debug().
			Str("command", c.Name).
			Int("exit", ExitCode(err)).
			Msg("Command failed")
	}
	return out, err
}

// ExitCode extracts the process exit status from a Run or Wait error.
// Launch failures (command not found and friends) report -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// proxyVars is the fixed passthrough order for the installer invocation.
var proxyVars = [4]string{"http_proxy", "https_proxy", "HTTP_PROXY", "HTTPS_PROXY"}

// ProxyEnv returns KEY=VALUE entries for whichever of the conventional
// proxy variables are set and non-empty in the caller's environment.
func ProxyEnv() []string {
	var env []string
	for _, name := range proxyVars {
		if value := os.Getenv(name); value != "" {
			env = append(env, name+"="+value)
		}
	}
	return env
}
