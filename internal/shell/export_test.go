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

package shell

import (
	"golang.org/x/sys/unix"

	"github.com/arturJan4/shell/internal/builtin"
	"github.com/arturJan4/shell/internal/jobctl"
	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/launcher"
	"github.com/arturJan4/shell/internal/monitor"
	"github.com/arturJan4/shell/internal/reaper"
	"github.com/arturJan4/shell/internal/signalplane"
	"github.com/arturJan4/shell/internal/terminal"
)

// NewForTest builds a Shell around a non-terminal stand-in descriptor,
// bypassing New's terminal assertion, so tests can drive the REPL
// without a real controlling terminal.
func NewForTest() *Shell {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()

	signals := signalplane.Install()
	term := terminal.NewForTest(-1, unix.Getpgrp(), nil)

	sh := &Shell{table: table, term: term, signals: signals, reaper: r}
	sh.mon = monitor.New(table, term)
	sh.ctl = jobctl.New(table, term, sh.mon.Run)
	sh.builtins = builtin.NewTable()
	sh.registerBuiltins()
	sh.launch = launcher.New(table, term, signals, sh.builtins, sh.mon.Run)
	return sh
}

// IsExiting reports whether the "exit" built-in has run.
func (sh *Shell) IsExiting() bool { return sh.exiting }

// StopForTest releases a test shell's background goroutines and
// signal installs without running the full Shutdown Sequencer (which
// assumes a real terminal), so test suites can tear down cleanly
// between cases.
func (sh *Shell) StopForTest() {
	sh.signals.Restore()
	sh.reaper.Stop()
}
