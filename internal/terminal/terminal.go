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

// Package terminal implements the Terminal Controller: it owns the
// shell's duplicated controlling-terminal file descriptor and saved
// terminal modes, and mediates which process group is in the
// foreground on that terminal.
package terminal

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/ptyutil"
)

// Controller owns the controlling terminal for the life of the shell.
type Controller struct {
	fd         int
	shellPgid  int
	shellModes *ptyutil.State
}

// Open asserts that stdin is a terminal, duplicates it with
// close-on-exec so no launched child inherits it, makes the shell's
// own process group the foreground group, and captures the shell's
// terminal modes. It corresponds to initjobs() in the C reference
// implementation.
func Open() (*Controller, error) {
	if !ptyutil.IsTerminal(unix.Stdin) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	fd, err := unix.FcntlInt(uintptr(unix.Stdin), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot duplicate controlling terminal: %w", err)
	}

	shellPgid := unix.Getpgrp()
	if err := ptyutil.SetForegroundPgrp(fd, shellPgid); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("cannot take control of terminal: %w", err)
	}

	modes, err := ptyutil.GetState(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("cannot read terminal modes: %w", err)
	}

	return &Controller{fd: fd, shellPgid: shellPgid, shellModes: modes}, nil
}

// Fd returns the duplicated controlling-terminal file descriptor.
func (c *Controller) Fd() int { return c.fd }

// ShellModes returns a copy of the terminal modes captured when the
// shell started, suitable for stashing on a newly created job. Returns
// nil if no modes were captured (only possible for a Controller built
// with NewForTest around a stand-in descriptor).
func (c *Controller) ShellModes() *ptyutil.State {
	if c.shellModes == nil {
		return nil
	}
	modes := *c.shellModes
	return &modes
}

// Acquire makes pgid the foreground process group on the controlling
// terminal.
func (c *Controller) Acquire(pgid int) error {
	return ptyutil.SetForegroundPgrp(c.fd, pgid)
}

// SetModes writes modes to the controlling terminal. Used when
// resuming a job, so the terminal is in the state the job expects
// before it is handed control.
func (c *Controller) SetModes(modes *ptyutil.State) error {
	return ptyutil.Restore(c.fd, modes)
}

// RestoreShell makes the shell's own process group the foreground
// group again and restores the shell's own terminal modes. Called
// after any foreground job returns control to the shell.
func (c *Controller) RestoreShell() error {
	if err := c.Acquire(c.shellPgid); err != nil {
		return err
	}
	return c.SetModes(c.shellModes)
}

// Close releases the duplicated terminal descriptor.
func (c *Controller) Close() error {
	return unix.Close(c.fd)
}
