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

// Package signalplane installs the shell's own signal dispositions:
// SIGTSTP/SIGTTIN/SIGTTOU are ignored by the shell itself (launched
// children get SIGTSTP and SIGINT back at their defaults, and
// background children SIGTTIN/SIGTTOU as well; see ResetForFork),
// and SIGINT is given a channel-delivered no-op so an interactive read
// loop can notice it and redraw the prompt instead of the shell being
// killed by it.
//
// The C reference implementation's child-status signal mask (blocked
// around every job-table mutation) has no direct Go equivalent —
// Go cannot block delivery of one signal to a single goroutine. That
// role is instead played by internal/jobtable's own mutex: the Child
// Reaper takes it before mutating a job or process record, and every
// other component that mutates the table takes the same lock, which
// gives the same mutual exclusion the blocked mask gave the C code.
package signalplane

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// Handle is the result of Install; Restore undoes it.
type Handle struct {
	sigint chan os.Signal
}

// Interrupt returns the channel SIGINT notifications are delivered on.
func (h *Handle) Interrupt() <-chan os.Signal { return h.sigint }

// Install ignores the terminal-stop and terminal-I/O signals in the
// shell process and arranges for SIGINT to be delivered to a channel
// instead of the default terminate-the-process action.
func Install() *Handle {
	signal.Ignore(unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU)

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, unix.SIGINT)

	return &Handle{sigint: sigint}
}

// Restore resets the shell's signal dispositions to their defaults.
// Used by Shell.Close after the Shutdown Sequencer has run, and by tests.
func (h *Handle) Restore() {
	signal.Stop(h.sigint)
	signal.Reset(unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU, unix.SIGINT)
}

// ResetForFork is the Go realization of the child-side "restore default
// signal dispositions before exec" step that the C reference
// implementation performs between fork and exec. Go's os/exec gives
// applications no hook to run code in the child before it execs, so
// there is no way to reset dispositions only in the child. Instead
// ResetForFork resets them in the shell process itself, immediately
// before the caller forks (via cmd.Start()); since fork duplicates the
// calling thread's signal disposition table verbatim, the child is
// born with the reset dispositions already in effect, and since they
// are no longer SIG_IGN, exec leaves them at SIG_DFL in the new image.
// The returned func puts the shell's own dispositions back and must be
// called right after the fork completes, whether or not it succeeded.
//
// Per the asymmetry called out in the C reference implementation:
// background stages additionally reset the terminal-I/O signals so a
// background job stops instead of reading/writing the terminal behind
// the shell's back; foreground stages leave them ignored so they
// inherit the shell's own disposition while it still holds the
// terminal.
func (h *Handle) ResetForFork(bg bool) (restore func()) {
	sigs := []os.Signal{unix.SIGTSTP, unix.SIGINT}
	if bg {
		sigs = append(sigs, unix.SIGTTIN, unix.SIGTTOU)
	}

	signal.Stop(h.sigint)
	signal.Reset(sigs...)

	return func() {
		signal.Ignore(unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU)
		signal.Notify(h.sigint, unix.SIGINT)
	}
}
