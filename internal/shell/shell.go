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

// Package shell wires the core components together into the
// read-eval-print loop: tokenize feeds the Pipeline Launcher, built-in
// commands reach back into the job table through bound closures, and
// every line is followed by a report of background jobs that have
// finished, so their completion surfaces promptly.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arturJan4/shell/internal/builtin"
	"github.com/arturJan4/shell/internal/jobctl"
	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/launcher"
	"github.com/arturJan4/shell/internal/logger"
	"github.com/arturJan4/shell/internal/monitor"
	"github.com/arturJan4/shell/internal/reaper"
	"github.com/arturJan4/shell/internal/reporter"
	"github.com/arturJan4/shell/internal/shutdown"
	"github.com/arturJan4/shell/internal/signalplane"
	"github.com/arturJan4/shell/internal/terminal"
	"github.com/arturJan4/shell/internal/tokenize"
)

// Prompt is the fixed interactive prompt string.
const Prompt = "# "

// Shell owns every long-lived core component for one run of the
// program.
type Shell struct {
	table    *jobtable.Table
	term     *terminal.Controller
	signals  *signalplane.Handle
	reaper   *reaper.Reaper
	mon      *monitor.Monitor
	ctl      *jobctl.Controller
	launch   *launcher.Launcher
	builtins *builtin.Table
	exiting  bool
}

// New performs the equivalent of the C reference implementation's
// initjobs(): it asserts stdin is a terminal, takes control of it,
// installs the shell's signal dispositions, and starts the Child
// Reaper. Callers must call Close when the shell exits.
func New() (*Shell, error) {
	term, err := terminal.Open()
	if err != nil {
		return nil, err
	}

	table := jobtable.New()
	r := reaper.New(table)
	r.Start()

	signals := signalplane.Install()

	sh := &Shell{
		table:   table,
		term:    term,
		signals: signals,
		reaper:  r,
	}
	sh.mon = monitor.New(table, term)
	sh.ctl = jobctl.New(table, term, sh.mon.Run)
	sh.builtins = builtin.NewTable()
	sh.registerBuiltins()
	sh.launch = launcher.New(table, term, signals, sh.builtins, sh.mon.Run)

	return sh, nil
}

func (sh *Shell) registerBuiltins() {
	sh.builtins.Register("cd", sh.builtinCd)
	sh.builtins.Register("exit", sh.builtinExit)
	sh.builtins.Register("jobs", sh.builtinJobs)
	sh.builtins.Register("fg", sh.builtinFg)
	sh.builtins.Register("bg", sh.builtinBg)
	sh.builtins.Register("kill", sh.builtinKill)
}

func (sh *Shell) builtinCd(argv []string) int {
	dir := os.Getenv("HOME")
	if len(argv) > 1 {
		dir = argv[1]
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "cd: %v\n", err)
		return 1
	}
	return 0
}

func (sh *Shell) builtinExit(argv []string) int {
	sh.exiting = true
	return 0
}

func (sh *Shell) builtinJobs(argv []string) int {
	reporter.Report(sh.table, os.Stdout, reporter.All)
	return 0
}

func (sh *Shell) builtinFg(argv []string) int {
	return sh.resumeFromArgv(argv, false)
}

func (sh *Shell) builtinBg(argv []string) int {
	return sh.resumeFromArgv(argv, true)
}

func (sh *Shell) resumeFromArgv(argv []string, bg bool) int {
	idx := -1
	if len(argv) > 1 {
		var err error
		idx, err = parseJobSpec(argv[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", argv[0], err)
			return 1
		}
	}
	ran, code := sh.ctl.Resume(idx, bg)
	if !ran {
		fmt.Fprintf(os.Stderr, "%s: no such job\n", argv[0])
		return 1
	}
	return code
}

func (sh *Shell) builtinKill(argv []string) int {
	if len(argv) < 2 {
		fmt.Fprintln(os.Stderr, "kill: usage: kill %job")
		return 1
	}
	idx, err := parseJobSpec(argv[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "kill: %v\n", err)
		return 1
	}
	if !sh.ctl.Kill(idx) {
		fmt.Fprintln(os.Stderr, "kill: no such job")
		return 1
	}
	return 0
}

// parseJobSpec parses the shell's job-index syntax: "%N" or a bare N.
func parseJobSpec(s string) (int, error) {
	s = strings.TrimPrefix(s, "%")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad job spec %q", s)
	}
	return n, nil
}

// Run reads command lines from r until end-of-input or the "exit"
// built-in, launching each as a pipeline and reporting background jobs
// that have finished after every line. It writes the prompt and those
// reports to w; launched commands and built-ins write to the process's
// standard output. The Shutdown Sequencer is run by Close, not by Run.
//
// The blocking read itself runs in a background goroutine feeding a
// channel: Go gives a signal handler no way to make a single blocked
// Read return EINTR the way the C reference implementation's SIGINT
// handler does, so the prompt loop instead selects between that
// channel and sh.signals.Interrupt(). A SIGINT arriving while the
// loop waits at the prompt redraws the prompt immediately rather than
// leaving the user staring at a dead terminal, matching spec.md
// §4.1/§5's "no-auto-restart interrupt handler" requirement; the
// background read keeps waiting for the next real line underneath.
func (sh *Shell) Run(r io.Reader, w io.Writer) {
	lines := readLines(r)
	for {
		fmt.Fprint(w, Prompt)
		select {
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(w)
				return
			}
			sh.evalLine(line)
			reporter.Report(sh.table, w, reporter.OnlyFinished)
			if sh.exiting {
				fmt.Fprintln(w)
				return
			}
		case <-sh.signals.Interrupt():
			fmt.Fprintln(w)
		}
	}
}

// readLines drives a bufio.Scanner over r from a background goroutine,
// delivering each line on the returned channel and closing it at
// end-of-input, so the prompt loop in Run can wait on it alongside
// asynchronous signal notifications instead of blocking directly.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	return lines
}

func (sh *Shell) evalLine(line string) {
	tokens := tokenize.Tokenize(line)
	if len(tokens) == 0 {
		return
	}

	p, err := launcher.Parse(tokens)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	if _, err := sh.launch.Run(p); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

// Close runs the Shutdown Sequencer and releases the shell's own
// signal dispositions and the Child Reaper goroutine.
func (sh *Shell) Close() {
	sh.shutdownJobs()
	sh.signals.Restore()
	if err := sh.reaper.Stop(); err != nil {
		logger.Noticef("reaper stop: %v", err)
	}
}

func (sh *Shell) shutdownJobs() {
	shutdown.Run(sh.table, sh.term)
}
