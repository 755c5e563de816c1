package hostexec

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strings"
)

// LineStream is a lazy, finite, non-restartable sequence of output lines
// from a running process. It decouples progress reporting from the
// blocking read: the same consumer loop works whether the caller sits on a
// dedicated goroutine or an event loop.
type LineStream struct {
	cmd    *exec.Cmd
	reader *os.File
	sc     *bufio.Scanner
	output strings.Builder
	waited bool
	err    error
}

func (r *osRunner) Stream(ctx context.Context, c Command) (*LineStream, error) {
	cmd := r.build(ctx, c)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	r.logger.Debug().
		Str("command", c.Name).
		Strs("args", c.Args).
		Bool("privileged", c.Privileged).
		Msg("Streaming command")

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, err
	}
	// The child holds its own copy of the write end; closing ours makes the
	// read end report EOF when the child exits.
	pw.Close()

	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &LineStream{cmd: cmd, reader: pr, sc: sc}, nil
}

// Next returns the next output line. The second result is false at end of
// stream.
func (s *LineStream) Next() (string, bool) {
	if !s.sc.Scan() {
		return "", false
	}
	line := s.sc.Text()
	s.output.WriteString(line)
	s.output.WriteByte('\n')
	return line, true
}

// Output returns everything consumed so far.
func (s *LineStream) Output() string {
	return s.output.String()
}

// Wait reaps the process and returns its exit error, if any. Safe to call
// once the stream is drained.
func (s *LineStream) Wait() error {
	if s.waited {
		return s.err
	}
	s.waited = true
	s.reader.Close()
	s.err = s.cmd.Wait()
	// A scanner failure (read error, or a line over the buffer limit) ends
	// the stream early without the process failing; report it so the caller
	// does not mistake a truncated stream for success.
	if s.err == nil {
		s.err = s.sc.Err()
	}
	return s.err
}
