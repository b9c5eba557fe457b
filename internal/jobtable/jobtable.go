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

// Package jobtable holds the shell's table of jobs: an indexed
// collection where each slot owns an ordered list of processes. Slot 0
// is always the foreground job; background jobs occupy the lowest free
// slot from 1 up. All mutation happens with the table's lock held,
// which plays the role the C reference implementation gives to
// blocking SIGCHLD around job-table access: the Child Reaper is the
// only other writer, and it also takes this same lock before touching
// a job or process record.
package jobtable

import (
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/logger"
	"github.com/arturJan4/shell/internal/ptyutil"
)

// FG is the reserved foreground slot index.
const FG = 0

// BG is the lowest background slot index.
const BG = 1

// State is a process or job's lifecycle state.
type State int

const (
	Running State = iota
	Stopped
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "suspended"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Process is one stage of a pipeline.
type Process struct {
	Pid   int
	State State
	// WaitStatus is the raw wait status word, valid only once State is Finished.
	WaitStatus unix.WaitStatus
}

// Job is a pipeline of one or more processes sharing a single process
// group, tracked as a single unit.
type Job struct {
	Pgid    int // 0 means the slot is free
	Procs   []*Process
	State   State
	Modes   *ptyutil.State // terminal modes to restore when resumed in the foreground
	Command string
}

// aggregate recomputes a job's State from its processes, per the rule:
// any RUNNING process makes the job RUNNING; else any STOPPED process
// makes it STOPPED; else it's FINISHED.
func (j *Job) aggregate() State {
	hasStopped := false
	for _, p := range j.Procs {
		switch p.State {
		case Running:
			return Running
		case Stopped:
			hasStopped = true
		}
	}
	if hasStopped {
		return Stopped
	}
	return Finished
}

// Table is the shell's job table.
type Table struct {
	mu   sync.Mutex
	cond *sync.Cond
	jobs []*Job
}

// New creates a job table with a single free foreground slot.
func New() *Table {
	t := &Table{jobs: []*Job{{}}}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Lock blocks job-table mutation from any other goroutine, playing the
// role that blocking the child-status signal plays in the C original.
// Callers performing more than one table operation that must be seen
// atomically (e.g. AddJob followed by one or more AddProc calls) must
// hold the lock across the whole sequence.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the lock taken by Lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Wait atomically releases the lock and suspends the calling goroutine
// until Notify is called by the reaper, then reacquires the lock
// before returning. Must be called with the lock held. This is the Go
// analogue of sigsuspend(mask) in the Foreground Monitor (spec §4.6)
// and the Shutdown Sequencer (spec §4.10).
func (t *Table) Wait() { t.cond.Wait() }

// Notify wakes any goroutine blocked in Wait. Must be called with the
// lock held.
func (t *Table) Notify() { t.cond.Broadcast() }

// NumSlots returns the number of slots currently allocated, including
// free ones.
func (t *Table) NumSlots() int {
	return len(t.jobs)
}

// Pgid returns the process group of the job at idx, or 0 if the slot
// is free.
func (t *Table) Pgid(idx int) int {
	return t.jobs[idx].Pgid
}

// State returns the current aggregate state of the job at idx without
// deleting it, even if it is FINISHED. Callers that need the
// delete-on-query semantics must use JobState.
func (t *Table) State(idx int) State {
	return t.jobs[idx].State
}

// AddJob allocates a slot for a new job: the foreground slot if bg is
// false, otherwise the lowest free background slot (or a new slot if
// none is free). The job starts RUNNING with an empty process list and
// a copy of shellModes to restore if it is later resumed in the
// foreground. Must be called with the lock held.
func (t *Table) AddJob(pgid int, bg bool, shellModes *ptyutil.State) int {
	idx := FG
	if bg {
		idx = t.allocSlot()
	}
	t.jobs[idx] = &Job{
		Pgid:  pgid,
		State: Running,
		Modes: shellModes,
	}
	return idx
}

// AllocSlot returns the lowest free background slot, growing the
// table if none is free, without otherwise touching it. Used by the
// Foreground Monitor to find a destination for MoveJob when demoting a
// stopped foreground job. Must be called with the lock held.
func (t *Table) AllocSlot() int {
	return t.allocSlot()
}

func (t *Table) allocSlot() int {
	for i := BG; i < len(t.jobs); i++ {
		if t.jobs[i].Pgid == 0 {
			return i
		}
	}
	t.jobs = append(t.jobs, &Job{})
	return len(t.jobs) - 1
}

// AddProc appends a process to the job at idx and extends the job's
// command text: successive stages of a pipeline are joined by " | ",
// and the words within a stage's argv are joined by a single space,
// matching mkcommand() in the C reference implementation. Must be
// called with the lock held.
func (t *Table) AddProc(idx int, pid int, argv []string) {
	job := t.jobs[idx]
	job.Procs = append(job.Procs, &Process{Pid: pid, State: Running})
	if job.Command != "" {
		job.Command += " | "
	}
	job.Command += strings.Join(argv, " ")
}

// MoveJob moves the job at from into slot to, which must currently be
// free, and frees the source slot. Used to demote a stopped foreground
// job to the background and to promote a resumed background job to
// the foreground. Must be called with the lock held.
func (t *Table) MoveJob(from, to int) {
	if t.jobs[to].Pgid != 0 {
		logger.Panicf("internal error: jobtable.MoveJob: destination slot %d is not free", to)
	}
	t.jobs[to] = t.jobs[from]
	t.jobs[from] = &Job{}
}

// DelJob frees the slot at idx, which must hold a FINISHED job.
func (t *Table) DelJob(idx int) {
	if t.jobs[idx].State != Finished {
		logger.Panicf("internal error: jobtable.DelJob: job %d is not finished", idx)
	}
	t.jobs[idx] = &Job{}
}

// JobState returns the current aggregate state of the job at idx. If
// the job is FINISHED, its last stage's raw wait status is written to
// *out and the job is deleted from the table, matching the C
// original's jobstate(): a finished job is reaped the first time
// anyone asks for its state.
func (t *Table) JobState(idx int, out *unix.WaitStatus) State {
	job := t.jobs[idx]
	state := job.State
	if state == Finished {
		*out = job.Procs[len(job.Procs)-1].WaitStatus
		t.DelJob(idx)
	}
	return state
}

// JobCmd returns the job's textual command representation.
func (t *Table) JobCmd(idx int) string {
	return t.jobs[idx].Command
}

// Modes returns the terminal modes saved for the job at idx.
func (t *Table) Modes(idx int) *ptyutil.State {
	return t.jobs[idx].Modes
}

// SetRunning forces the job at idx to RUNNING, used by Resume before
// sending SIGCONT to a stopped job's process group.
func (t *Table) SetRunning(idx int) {
	t.jobs[idx].State = Running
	for _, p := range t.jobs[idx].Procs {
		if p.State == Stopped {
			p.State = Running
		}
	}
}

// HighestActive returns the highest-indexed non-free, non-FINISHED
// slot, or -1 if there is none. Used to resolve "resume the current
// job" (a negative job index in spec §4.8).
func (t *Table) HighestActive() int {
	for i := len(t.jobs) - 1; i > FG; i-- {
		if t.jobs[i].Pgid != 0 && t.jobs[i].State != Finished {
			return i
		}
	}
	return -1
}

// UpdateProcess applies a new state (and, for Finished, a raw wait
// status) to the process with the given pid, locating its owning job
// by a linear scan across all slots, then recomputes that job's
// aggregate state per the rule documented on aggregate. It reports
// whether a matching process was found. Must be called with the lock
// held; this is the sole entry point the Child Reaper uses to mutate
// the table.
func (t *Table) UpdateProcess(pid int, state State, waitStatus unix.WaitStatus) bool {
	for _, job := range t.jobs {
		if job.Pgid == 0 {
			continue
		}
		for _, p := range job.Procs {
			if p.Pid != pid {
				continue
			}
			// Clear the exit status before interpreting the new wait
			// status, matching jobs.c's sigchld_handler (no externally
			// visible effect, kept for parity with the original).
			p.WaitStatus = 0
			p.State = state
			if state == Finished {
				p.WaitStatus = waitStatus
			}
			job.State = job.aggregate()
			return true
		}
	}
	return false
}
