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

// Package reporter implements the Job Reporter: it walks the
// background job slots, reaping and announcing state transitions in
// the exact message formats the shell's users see.
package reporter

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/jobtable"
)

// Filter selects which job states get reported.
type Filter int

const (
	// All reports every observed state.
	All Filter = iota
	// OnlyFinished reports only jobs that turned out to be FINISHED,
	// used by the Shutdown Sequencer's final reaping pass.
	OnlyFinished
)

// Report walks every background slot in index order, snapshotting each
// job's command text before querying its state (a FINISHED job is
// deleted by the query), and writes one line per job whose observed
// state matches filter.
func Report(table *jobtable.Table, w io.Writer, filter Filter) {
	table.Lock()
	defer table.Unlock()

	for idx := jobtable.BG; idx < table.NumSlots(); idx++ {
		if table.Pgid(idx) == 0 {
			continue
		}
		cmd := table.JobCmd(idx)

		var status unix.WaitStatus
		state := table.JobState(idx, &status)

		if filter == OnlyFinished && state != jobtable.Finished {
			continue
		}

		switch state {
		case jobtable.Finished:
			if status.Signaled() {
				fmt.Fprintf(w, "[%d] killed '%s' by signal %d\n", idx, cmd, status.Signal())
			} else {
				fmt.Fprintf(w, "[%d] exited '%s', status=%d\n", idx, cmd, status.ExitStatus())
			}
		case jobtable.Running:
			fmt.Fprintf(w, "[%d] running '%s'\n", idx, cmd)
		case jobtable.Stopped:
			fmt.Fprintf(w, "[%d] suspended '%s'\n", idx, cmd)
		}
	}
}
