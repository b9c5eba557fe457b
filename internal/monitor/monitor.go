// Copyright (c) 2021 Canonical Ltd
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

// Package monitor implements the Foreground Monitor: once a job is
// placed in the foreground slot, it waits for that job to stop or
// finish, demoting it to the background on a stop, and always hands
// terminal ownership back to the shell before returning.
package monitor

import (
	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/logger"
	"github.com/arturJan4/shell/internal/terminal"
)

// Monitor runs the foreground-job wait loop.
type Monitor struct {
	table *jobtable.Table
	term  *terminal.Controller
}

// New builds a Monitor over table and term.
func New(table *jobtable.Table, term *terminal.Controller) *Monitor {
	return &Monitor{table: table, term: term}
}

// Run assumes the foreground slot holds a RUNNING job placed there by
// the caller. It gives that job's process group the terminal, then
// blocks on the job table's condition variable (the Go analogue of
// sigsuspend) until the Child Reaper has moved the job out of RUNNING.
// A stopped job is demoted to a fresh background slot; in either case
// the shell reclaims the terminal before Run returns the exit status
// to report (0 for a job that stopped rather than finished).
func (m *Monitor) Run() int {
	m.table.Lock()
	pgid := m.table.Pgid(jobtable.FG)
	m.table.Unlock()

	if err := m.term.Acquire(pgid); err != nil {
		logger.Noticef("cannot acquire terminal for foreground job: %v", err)
	}

	m.table.Lock()
	for m.table.State(jobtable.FG) == jobtable.Running {
		m.table.Wait()
	}

	var status unix.WaitStatus
	state := m.table.JobState(jobtable.FG, &status)

	exitCode := 0
	if state == jobtable.Stopped {
		dest := m.table.AllocSlot()
		m.table.MoveJob(jobtable.FG, dest)
	} else if state == jobtable.Finished {
		if status.Signaled() {
			// Exit code for a signaled process is reported as the raw
			// signal number, matching the job reporter's message format.
			exitCode = int(status.Signal())
		} else {
			exitCode = status.ExitStatus()
		}
	}
	m.table.Unlock()

	if err := m.term.RestoreShell(); err != nil {
		logger.Noticef("cannot restore shell terminal ownership: %v", err)
	}

	return exitCode
}
