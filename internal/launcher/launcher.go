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

// Package launcher implements the Pipeline Launcher: it turns a
// tokenized command line into one or more running processes sharing a
// process group, and registers the result as a job. Rather than
// destructively rewriting a shared token array the way the C reference
// implementation does, Parse builds an owned Pipeline of structured
// Stage descriptors up front, per the re-architecture suggested in the
// spec's design notes.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/arturJan4/shell/internal/builtin"
	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/terminal"
	"github.com/arturJan4/shell/internal/tokenize"
)

// outputPerm matches S_IRWXU from the C reference implementation's
// do_redir: a created output file is readable, writable and
// executable by its owner only.
const outputPerm = 0o700

// Stage is one pipeline command: an argv plus any redirection targets
// parsed out of its tokens.
type Stage struct {
	Argv       []string
	InputFile  string // "" if no input redirection
	OutputFile string // "" if no output redirection
}

// Pipeline is a fully parsed command line, ready to launch.
type Pipeline struct {
	Stages     []Stage
	Background bool
}

// Parse consumes a token sequence and produces an owned Pipeline. A
// trailing Background token is stripped first; the remainder is split
// on Pipe tokens into stages, and each stage's Input/Output markers
// are peeled off into that Stage's redirection fields, leaving Argv as
// plain words.
func Parse(tokens []tokenize.Token) (*Pipeline, error) {
	bg := false
	if n := len(tokens); n > 0 && tokens[n-1].Kind == tokenize.Background {
		bg = true
		tokens = tokens[:n-1]
	}

	var stageTokens [][]tokenize.Token
	start := 0
	for i, t := range tokens {
		if t.Kind == tokenize.Pipe {
			stageTokens = append(stageTokens, tokens[start:i])
			start = i + 1
		}
	}
	stageTokens = append(stageTokens, tokens[start:])

	p := &Pipeline{Background: bg}
	for _, ts := range stageTokens {
		stage, err := parseStage(ts)
		if err != nil {
			return nil, err
		}
		if len(stage.Argv) == 0 {
			return nil, fmt.Errorf("command line is not well formed")
		}
		p.Stages = append(p.Stages, stage)
	}
	return p, nil
}

// parseStage scans a single stage's tokens left to right, stripping
// Input/Output markers and their filename word. A duplicate
// redirection of the same kind replaces the earlier one, matching
// do_redir's MaybeClose-then-reopen behavior.
func parseStage(tokens []tokenize.Token) (Stage, error) {
	var stage Stage
	for i := 0; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case tokenize.Input:
			if i+1 >= len(tokens) {
				return Stage{}, fmt.Errorf("missing filename after '<'")
			}
			stage.InputFile = tokens[i+1].Text
			i++
		case tokenize.Output:
			if i+1 >= len(tokens) {
				return Stage{}, fmt.Errorf("missing filename after '>'")
			}
			stage.OutputFile = tokens[i+1].Text
			i++
		default:
			stage.Argv = append(stage.Argv, tokens[i].Text)
		}
	}
	return stage, nil
}

// SignalReset is the subset of internal/signalplane.Handle the
// launcher needs: resetting the shell's own signal dispositions around
// a fork so the forked child (not the shell) ends up with default
// dispositions once it execs. See signalplane.Handle.ResetForFork for
// why this is a process-wide toggle rather than a child-only change.
type SignalReset interface {
	ResetForFork(bg bool) (restore func())
}

// Launcher runs parsed pipelines and registers the resulting jobs.
type Launcher struct {
	table    *jobtable.Table
	term     *terminal.Controller
	signals  SignalReset
	builtins *builtin.Table
	monitor  func() int
}

// New builds a Launcher. monitor is the Foreground Monitor's Run
// function; it is passed in as a function rather than constructed
// here, so the launcher's tests supply their own wait loop in its
// place. The C original's monitorjob
// takes the pre-block signal mask to unblock while suspended; that has
// no Go analogue since nothing here ever blocks SIGCHLD at the OS
// level, so Run takes no arguments.
func New(table *jobtable.Table, term *terminal.Controller, signals SignalReset, builtins *builtin.Table, monitor func() int) *Launcher {
	return &Launcher{table: table, term: term, signals: signals, builtins: builtins, monitor: monitor}
}

// Run launches p and returns the exit code to report for it: for a
// foreground pipeline, the last stage's exit status once the Foreground
// Monitor returns; for a background pipeline, 0 once the job has been
// registered and announced.
func (l *Launcher) Run(p *Pipeline) (int, error) {
	if len(p.Stages) == 1 {
		return l.runSingle(p.Stages[0], p.Background)
	}
	return l.runPipeline(p.Stages, p.Background)
}

// runSingle handles a non-piped command: spec §4.5's "Non-piped command".
func (l *Launcher) runSingle(stage Stage, bg bool) (int, error) {
	if !bg {
		if code, handled := l.builtins.Run(stage.Argv); handled {
			return code, nil
		}
	}

	stdin, stdout, closeParent, err := openRedirections(stage)
	if err != nil {
		return -1, err
	}
	defer closeParent()

	cmd := l.buildCmd(stage.Argv, stdin, stdout, 0)

	restore := l.signals.ResetForFork(bg)
	err = cmd.Start()
	restore()
	if err != nil {
		return -1, fmt.Errorf("cannot start %s: %w", stage.Argv[0], err)
	}
	pid := cmd.Process.Pid

	l.table.Lock()
	idx := l.table.AddJob(pid, bg, l.term.ShellModes())
	l.table.AddProc(idx, pid, stage.Argv)
	cmd.Process.Release() // ownership of the pid now belongs to the reaper
	if bg {
		fmt.Printf("[%d] running '%s'\n", idx, l.table.JobCmd(idx))
		l.table.Unlock()
		return 0, nil
	}
	l.table.Unlock()

	code := l.monitor()
	return code, nil
}

// runPipeline handles a multi-stage pipeline: spec §4.5's "Piped
// pipeline". Stages are started left to right; pgid is fixed to the
// first stage's pid and every later stage joins that group.
func (l *Launcher) runPipeline(stages []Stage, bg bool) (int, error) {
	var pgid int
	var idx int
	var nextStdin *os.File

	for i, stage := range stages {
		stdin := nextStdin
		var stdout *os.File
		var pipeWriteKeep *os.File
		isLast := i == len(stages)-1

		redirIn, redirOut, closeRedir, err := openRedirections(stage)
		if err != nil {
			closeFile(nextStdin)
			return -1, err
		}
		if redirIn != nil {
			stdin = redirIn
		}
		if !isLast {
			r, w, perr := os.Pipe()
			if perr != nil {
				closeRedir()
				closeFile(nextStdin)
				return -1, fmt.Errorf("cannot create pipe: %w", perr)
			}
			stdout = w
			pipeWriteKeep = w
			nextStdin = r
		}
		if redirOut != nil {
			stdout = redirOut
		}

		cmd := l.buildCmd(stage.Argv, stdin, stdout, pgid)

		restore := l.signals.ResetForFork(bg)
		err = cmd.Start()
		restore()

		closeRedir()
		if stdin != nil && stdin != redirIn {
			closeFile(stdin) // parent's copy of the previous stage's pipe read end
		}
		if pipeWriteKeep != nil {
			closeFile(pipeWriteKeep)
		}

		if err != nil {
			return -1, fmt.Errorf("cannot start %s: %w", stage.Argv[0], err)
		}
		pid := cmd.Process.Pid

		if i == 0 {
			pgid = pid
		}

		l.table.Lock()
		if i == 0 {
			idx = l.table.AddJob(pgid, bg, l.term.ShellModes())
		}
		l.table.AddProc(idx, pid, stage.Argv)
		cmd.Process.Release()
		l.table.Unlock()
	}

	if bg {
		l.table.Lock()
		fmt.Printf("[%d] running '%s'\n", idx, l.table.JobCmd(idx))
		l.table.Unlock()
		return 0, nil
	}

	code := l.monitor()
	return code, nil
}

// buildCmd constructs an *exec.Cmd for one stage. pgid is 0 for the
// first process of a job (it becomes its own group leader) or the
// pipeline's group id for later stages.
func (l *Launcher) buildCmd(argv []string, stdin, stdout *os.File, pgid int) *exec.Cmd {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	if stdin != nil {
		cmd.Stdin = stdin
	} else {
		cmd.Stdin = os.Stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	return cmd
}

// openRedirections opens the files named by a stage's InputFile and
// OutputFile, if any. It returns the parent's copies (closeParent must
// be called once cmd.Start has dup'd them into the child) since *os.File
// already carries close-on-exec, matching the C original's explicit
// close-after-fork without needing manual fd bookkeeping.
func openRedirections(stage Stage) (stdin, stdout *os.File, closeParent func(), err error) {
	var toClose []*os.File
	closeParent = func() {
		for _, f := range toClose {
			f.Close()
		}
	}

	if stage.InputFile != "" {
		f, oerr := os.OpenFile(stage.InputFile, os.O_RDONLY, 0)
		if oerr != nil {
			return nil, nil, nil, fmt.Errorf("cannot open %s: %w", stage.InputFile, oerr)
		}
		stdin = f
		toClose = append(toClose, f)
	}
	if stage.OutputFile != "" {
		f, oerr := os.OpenFile(stage.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, outputPerm)
		if oerr != nil {
			closeParent()
			return nil, nil, nil, fmt.Errorf("cannot open %s: %w", stage.OutputFile, oerr)
		}
		stdout = f
		toClose = append(toClose, f)
	}
	return stdin, stdout, closeParent, nil
}

func closeFile(f *os.File) {
	if f != nil {
		f.Close()
	}
}
