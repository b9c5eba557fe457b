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

// Package jobctl implements the resume and kill-job operations: the
// two ways a user reaches into the job table from the command line
// once a job already exists (spec §4.8 and §4.9).
package jobctl

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/terminal"
)

// Controller bundles the state resume and kill-job need.
type Controller struct {
	table   *jobtable.Table
	term    *terminal.Controller
	monitor func() int
}

// New builds a Controller. monitor is the Foreground Monitor's Run
// function, invoked after a job is resumed to the foreground.
func New(table *jobtable.Table, term *terminal.Controller, monitor func() int) *Controller {
	return &Controller{table: table, term: term, monitor: monitor}
}

// Resume continues the job at idx (or, if idx is negative, the highest
// non-finished job) with SIGCONT. If bg is false the job is moved into
// the foreground slot, given the terminal and shell terminal modes,
// and monitored; otherwise it is simply continued in place. It reports
// whether a job was found to resume.
func (c *Controller) Resume(idx int, bg bool) (ran bool, exitCode int) {
	c.table.Lock()

	if idx < 0 {
		idx = c.table.HighestActive()
	}
	if idx < 0 || idx >= c.table.NumSlots() || c.table.Pgid(idx) == 0 || c.table.State(idx) == jobtable.Finished {
		c.table.Unlock()
		return false, 0
	}

	c.table.SetRunning(idx)
	pgid := c.table.Pgid(idx)

	if !bg {
		if c.table.Pgid(jobtable.FG) != 0 {
			c.table.Unlock()
			return false, 0
		}
		if err := c.term.Acquire(pgid); err != nil {
			c.table.Unlock()
			return false, 0
		}
		if err := c.term.SetModes(c.table.Modes(idx)); err != nil {
			c.table.Unlock()
			return false, 0
		}
		c.table.MoveJob(idx, jobtable.FG)
		idx = jobtable.FG
	}

	cmd := c.table.JobCmd(idx)
	fmt.Printf("[%d] continue '%s'\n", idx, cmd)

	unix.Kill(-pgid, unix.SIGCONT)
	c.table.Unlock()

	if !bg {
		return true, c.monitor()
	}
	return true, 0
}

// Kill sends the termination signal to the job at idx's process group.
// A stopped job is additionally sent the continue signal so it can
// observe the termination instead of sitting stopped forever.
func (c *Controller) Kill(idx int) bool {
	c.table.Lock()
	defer c.table.Unlock()

	if idx < 0 || idx >= c.table.NumSlots() || c.table.Pgid(idx) == 0 {
		return false
	}
	pgid := c.table.Pgid(idx)
	stopped := c.table.State(idx) == jobtable.Stopped

	unix.Kill(-pgid, unix.SIGTERM)
	if stopped {
		unix.Kill(-pgid, unix.SIGCONT)
	}
	return true
}
