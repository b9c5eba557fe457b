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

package jobctl_test

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/arturJan4/shell/internal/jobctl"
	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/reaper"
	"github.com/arturJan4/shell/internal/terminal"
)

func Test(t *testing.T) { TestingT(t) }

type jobctlSuite struct{}

var _ = Suite(&jobctlSuite{})

func startStopped(c *C, table *jobtable.Table) (pid int, idx int) {
	cmd := exec.Command("sleep", "5")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Assert(cmd.Start(), IsNil)
	pid = cmd.Process.Pid
	cmd.Process.Release()

	table.Lock()
	idx = table.AddJob(pid, true, nil)
	table.AddProc(idx, pid, []string{"sleep", "5"})
	table.Unlock()

	c.Assert(unix.Kill(pid, unix.SIGSTOP), IsNil)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		table.Lock()
		st := table.State(idx)
		table.Unlock()
		if st == jobtable.Stopped {
			return pid, idx
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatal("job never reached STOPPED")
	return pid, idx
}

func (s *jobctlSuite) TestResumeBackgroundSendsContinue(c *C) {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()
	defer r.Stop()

	pid, idx := startStopped(c, table)
	defer unix.Kill(pid, unix.SIGKILL)

	term := terminal.NewForTest(-1, unix.Getpgrp(), nil)
	ctl := jobctl.New(table, term, func() int { c.Fatal("monitor should not run for bg resume"); return 0 })

	ran, _ := ctl.Resume(idx, true)
	c.Check(ran, Equals, true)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		table.Lock()
		st := table.State(idx)
		table.Unlock()
		if st == jobtable.Running {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatal("job never resumed to RUNNING")
}

func (s *jobctlSuite) TestResumeUnknownIndexFails(c *C) {
	table := jobtable.New()
	term := terminal.NewForTest(-1, unix.Getpgrp(), nil)
	ctl := jobctl.New(table, term, func() int { return 0 })

	ran, _ := ctl.Resume(3, true)
	c.Check(ran, Equals, false)
}

func (s *jobctlSuite) TestKillStoppedJobSendsTermAndContinue(c *C) {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()
	defer r.Stop()

	_, idx := startStopped(c, table)

	term := terminal.NewForTest(-1, unix.Getpgrp(), nil)
	ctl := jobctl.New(table, term, func() int { return 0 })

	c.Check(ctl.Kill(idx), Equals, true)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		table.Lock()
		st := table.State(idx)
		table.Unlock()
		if st == jobtable.Finished {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatal("stopped job was never terminated after kill")
}

func (s *jobctlSuite) TestKillUnknownIndexFails(c *C) {
	table := jobtable.New()
	term := terminal.NewForTest(-1, unix.Getpgrp(), nil)
	ctl := jobctl.New(table, term, func() int { return 0 })

	c.Check(ctl.Kill(7), Equals, false)
}
