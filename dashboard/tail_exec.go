// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// ExecTailStarter runs the system tail binary in follow mode. Each
// stream is one `tail -f -n <lines> <path>` subprocess.
type ExecTailStarter struct{}

// Start launches the subprocess and begins scanning its output.
func (ExecTailStarter) Start(path string, lines int) (TailStream, error) {
	cmd := exec.Command("tail", "-f", "-n", strconv.Itoa(lines), path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("piping tail output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting tail on %s: %w", path, err)
	}

	stream := &execTailStream{
		cmd:   cmd,
		lines: make(chan string, 64),
	}

	go func() {
		defer close(stream.lines)
		// Reap the subprocess whichever side ends first.
		defer cmd.Wait()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			stream.lines <- scanner.Text()
		}
	}()

	return stream, nil
}

type execTailStream struct {
	cmd      *exec.Cmd
	lines    chan string
	stopOnce sync.Once
}

func (s *execTailStream) Lines() <-chan string {
	return s.lines
}

// Stop kills the subprocess. The scanner goroutine sees EOF and closes
// the lines channel. Kill errors are ignored: the process may already
// have exited.
func (s *execTailStream) Stop() {
	s.stopOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
	})
}
