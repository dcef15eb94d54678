package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/nasa-jpl/picoquant/cli"
	"github.com/nasa-jpl/picoquant/comm"
	"github.com/nasa-jpl/picoquant/decoder"
	"github.com/nasa-jpl/picoquant/pq"
)

// DefaultProgram is the decoder run by an ExecRunner with no Path
const DefaultProgram = "picoquant"

// ExecRunner runs the picoquant program
type ExecRunner struct {
	// Path is the program to run, DefaultProgram if empty
	Path string
}

// process is the stdout of a running decoder
type process struct {
	ctx    context.Context
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *bytes.Buffer
	eof    bool
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.out.Read(b)
	if err == io.EOF {
		p.eof = true
	}
	return n, err
}

// Close waits for the process.  When the output was read to the end, a
// failed exit is returned as the package error matching the exit status.
func (p *process) Close() error {
	p.out.Close()
	err := p.cmd.Wait()
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if !p.eof || err == nil {
		return nil
	}
	msg := strings.TrimSpace(p.stderr.String())
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		if base := pq.FromCode(ee.ExitCode()); base != nil {
			return fmt.Errorf("%w: %s", base, msg)
		}
		return fmt.Errorf("%s exited with status %d: %s", p.cmd.Path, ee.ExitCode(), msg)
	}
	return fmt.Errorf("%s: %v: %s", p.cmd.Path, err, msg)
}

// Run starts the program on filename.  Starts which fail because the
// program file is busy being written are retried with backoff.
func (e ExecRunner) Run(ctx context.Context, filename string, args ...string) (io.ReadCloser, error) {
	path := e.Path
	if path == "" {
		path = DefaultProgram
	}
	argv := append([]string{"--file-in", filename}, args...)
	var p *process
	err := comm.Retry(func() error {
		cmd := exec.CommandContext(ctx, path, argv...)
		stderr := &bytes.Buffer{}
		cmd.Stderr = stderr
		out, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return err
		}
		p = &process{ctx: ctx, cmd: cmd, out: out, stderr: stderr}
		return nil
	}, func(err error) bool {
		return errors.Is(err, syscall.ETXTBSY)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LocalRunner runs the decoder in this process.  It accepts the same
// arguments as the picoquant program, except those which write to
// stderr or to files.
type LocalRunner struct {
	// Timeout applies to tcp:// inputs, 3 s if zero
	Timeout time.Duration
}

type pipeReader struct {
	*io.PipeReader
	done chan struct{}
}

func (p *pipeReader) Close() error {
	err := p.PipeReader.Close()
	<-p.done
	return err
}

// Run decodes filename into the returned reader.  Decoding errors are
// returned by Read once the output written before them has been read.
func (l LocalRunner) Run(ctx context.Context, filename string, args ...string) (io.ReadCloser, error) {
	cfg, err := cli.Parse(DefaultProgram, append([]string{"--file-in", filename}, args...))
	if err != nil {
		return nil, err
	}
	if cfg.Help || cfg.Version || cfg.FileOut != "" || cfg.FITS != "" || cfg.Stats || cfg.Checksum || cfg.Progress {
		return nil, fmt.Errorf("%w: option not supported in process", pq.ErrOptions)
	}
	timeout := l.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	in, err := comm.Open(cfg.FileIn, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
		case <-done:
		}
	}()
	go func() {
		defer close(done)
		defer in.Close()
		pw.CloseWithError(decoder.Decode(in, pw, cfg.Opts))
	}()
	return &pipeReader{PipeReader: pr, done: done}, nil
}
