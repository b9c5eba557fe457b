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

// Package shutdown implements the Shutdown Sequencer: on end-of-input
// it terminates every outstanding job, waits for each to finish, and
// reports their final statuses before the shell exits.
package shutdown

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/reporter"
	"github.com/arturJan4/shell/internal/terminal"
)

// Run terminates every non-free, non-finished job (the foreground job
// included), waiting for each to reach FINISHED before moving to the
// next, then reports (and deletes) every background job that finished,
// and finally closes the terminal descriptor.
func Run(table *jobtable.Table, term *terminal.Controller) {
	table.Lock()

	for idx := 0; idx < table.NumSlots(); idx++ {
		pgid := table.Pgid(idx)
		if pgid == 0 || table.State(idx) == jobtable.Finished {
			continue
		}

		if idx != jobtable.FG {
			term.Acquire(pgid)
		}

		unix.Kill(-pgid, unix.SIGTERM)
		if table.State(idx) == jobtable.Stopped {
			unix.Kill(-pgid, unix.SIGCONT)
		}

		for table.State(idx) != jobtable.Finished {
			table.Wait()
		}

		if idx != jobtable.FG {
			term.RestoreShell()
		}
	}

	table.Unlock()

	reporter.Report(table, os.Stdout, reporter.OnlyFinished)

	term.Close()
}
