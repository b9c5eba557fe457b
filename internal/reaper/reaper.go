// Copyright (c) 2022 Canonical Ltd
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License version 3 as
// published by the Free Software Foundation.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package reaper implements the Child Reaper: it reacts to SIGCHLD,
// non-blocking-waits for every reapable child, and applies the result
// to the job table.
//
// The C reference implementation runs this logic directly inside a
// SIGCHLD signal handler, which is why it has to block SIGINT for the
// handler's duration and carefully save and restore errno. Go cannot
// run arbitrary code in a signal handler, so this is the "queue and
// drain" redesign spec.md's design notes call out as an equally valid
// realization: signal.Notify delivers SIGCHLD to an ordinary
// goroutine, which then does the non-blocking wait4 loop and mutates
// the job table under its lock, exactly as the handler would have
// done under a blocked signal mask.
package reaper

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"gopkg.in/tomb.v2"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/logger"
)

// Reaper drives the job table from SIGCHLD notifications.
type Reaper struct {
	table *jobtable.Table

	t     tomb.Tomb
	sigCh chan os.Signal
}

// New creates a reaper that updates table in response to SIGCHLD.
// Start must be called to begin reaping.
func New(table *jobtable.Table) *Reaper {
	return &Reaper{table: table}
}

// Start installs the SIGCHLD notification and begins reaping in the
// background.
func (r *Reaper) Start() {
	r.sigCh = make(chan os.Signal, 1)
	signal.Notify(r.sigCh, unix.SIGCHLD)
	r.t.Go(r.loop)
}

// Stop stops reaping and waits for the background goroutine to exit.
func (r *Reaper) Stop() error {
	r.t.Kill(nil)
	err := r.t.Wait()
	signal.Reset(unix.SIGCHLD)
	return err
}

func (r *Reaper) loop() error {
	for {
		select {
		case <-r.sigCh:
			r.reapOnce()
		case <-r.t.Dying():
			return nil
		}
	}
}

// reapOnce non-blocking-waits for every child that can currently be
// reaped, updating the job table for each one, until none remain. It
// requests notification for exits, termination signals, stops, and
// continues, matching waitpid's WNOHANG|WUNTRACED|WCONTINUED in the C
// original.
func (r *Reaper) reapOnce() {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		switch err {
		case nil:
			if pid <= 0 {
				return
			}
			r.apply(pid, status)
		case unix.ECHILD:
			return
		default:
			logger.Noticef("cannot wait for child process: %v", err)
			return
		}
	}
}

func (r *Reaper) apply(pid int, status unix.WaitStatus) {
	var state jobtable.State
	switch {
	case status.Exited() || status.Signaled():
		state = jobtable.Finished
	case status.Continued():
		state = jobtable.Running
	case status.Stopped():
		state = jobtable.Stopped
	default:
		logger.Noticef("internal error: unexpected wait status %#x for pid %d", uint32(status), pid)
		return
	}

	r.table.Lock()
	found := r.table.UpdateProcess(pid, state, status)
	r.table.Notify()
	r.table.Unlock()

	if !found {
		logger.Debugf("reaped untracked pid %d", pid)
	}
}
