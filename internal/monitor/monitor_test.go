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

package monitor_test

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/monitor"
	"github.com/arturJan4/shell/internal/reaper"
	"github.com/arturJan4/shell/internal/terminal"
)

func Test(t *testing.T) { TestingT(t) }

type monitorSuite struct {
	table *jobtable.Table
	r     *reaper.Reaper
	term  *terminal.Controller
}

var _ = Suite(&monitorSuite{})

func (s *monitorSuite) SetUpTest(c *C) {
	s.table = jobtable.New()
	s.r = reaper.New(s.table)
	s.r.Start()
	// fd -1 is not a valid descriptor; Acquire/RestoreShell will fail
	// and log, which is fine for these tests since they don't exercise
	// a real controlling terminal.
	s.term = terminal.NewForTest(-1, unix.Getpgrp(), nil)
}

func (s *monitorSuite) TearDownTest(c *C) {
	s.r.Stop()
}

func (s *monitorSuite) addForegroundJob(c *C, name string, args ...string) int {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Assert(cmd.Start(), IsNil)
	pid := cmd.Process.Pid
	cmd.Process.Release()

	s.table.Lock()
	s.table.AddJob(pid, false, nil)
	s.table.AddProc(jobtable.FG, pid, append([]string{name}, args...))
	s.table.Unlock()
	return pid
}

func (s *monitorSuite) TestRunReturnsExitCodeOnNormalExit(c *C) {
	s.addForegroundJob(c, "true")

	m := monitor.New(s.table, s.term)
	c.Check(m.Run(), Equals, 0)

	s.table.Lock()
	c.Check(s.table.Pgid(jobtable.FG), Equals, 0) // reaped and freed
	s.table.Unlock()
}

func (s *monitorSuite) TestRunDemotesStoppedJobToBackground(c *C) {
	pid := s.addForegroundJob(c, "sleep", "5")
	defer unix.Kill(pid, unix.SIGKILL)

	done := make(chan int, 1)
	m := monitor.New(s.table, s.term)
	go func() { done <- m.Run() }()

	time.Sleep(50 * time.Millisecond)
	c.Assert(unix.Kill(pid, unix.SIGSTOP), IsNil)

	select {
	case code := <-done:
		c.Check(code, Equals, 0)
	case <-time.After(5 * time.Second):
		c.Fatal("Run did not return after job stopped")
	}

	s.table.Lock()
	c.Check(s.table.Pgid(jobtable.FG), Equals, 0)
	found := false
	for i := jobtable.BG; i < s.table.NumSlots(); i++ {
		if s.table.Pgid(i) == pid {
			found = true
			c.Check(s.table.State(i), Equals, jobtable.Stopped)
		}
	}
	s.table.Unlock()
	c.Check(found, Equals, true)
}
