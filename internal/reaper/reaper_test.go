// Copyright (c) 2022 Canonical Ltd
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

package reaper_test

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/arturJan4/shell/internal/jobtable"
	"github.com/arturJan4/shell/internal/reaper"
)

func Test(t *testing.T) { TestingT(t) }

type reaperSuite struct{}

var _ = Suite(&reaperSuite{})

func waitForState(c *C, table *jobtable.Table, idx int, want jobtable.State) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		table.Lock()
		got := table.State(idx)
		table.Unlock()
		if got == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatalf("timed out waiting for job %d to reach state %v", idx, want)
}

func (s *reaperSuite) TestReapsNormalExit(c *C) {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()
	defer r.Stop()

	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Assert(cmd.Start(), IsNil)
	pid := cmd.Process.Pid

	table.Lock()
	idx := table.AddJob(pid, true, nil)
	table.AddProc(idx, pid, []string{"true"})
	table.Unlock()

	waitForState(c, table, idx, jobtable.Finished)

	table.Lock()
	var status unix.WaitStatus
	state := table.JobState(idx, &status)
	table.Unlock()

	c.Check(state, Equals, jobtable.Finished)
	c.Check(status.Exited(), Equals, true)
	c.Check(status.ExitStatus(), Equals, 0)
}

func (s *reaperSuite) TestReapsStopAndContinue(c *C) {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()
	defer r.Stop()

	cmd := exec.Command("sleep", "5")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Assert(cmd.Start(), IsNil)
	pid := cmd.Process.Pid
	defer cmd.Process.Kill()

	table.Lock()
	idx := table.AddJob(pid, true, nil)
	table.AddProc(idx, pid, []string{"sleep", "5"})
	table.Unlock()

	c.Assert(unix.Kill(pid, unix.SIGSTOP), IsNil)
	waitForState(c, table, idx, jobtable.Stopped)

	c.Assert(unix.Kill(pid, unix.SIGCONT), IsNil)
	waitForState(c, table, idx, jobtable.Running)

	c.Assert(unix.Kill(pid, unix.SIGKILL), IsNil)
	waitForState(c, table, idx, jobtable.Finished)

	table.Lock()
	var status unix.WaitStatus
	table.JobState(idx, &status)
	table.Unlock()
	c.Check(status.Signaled(), Equals, true)
	c.Check(status.Signal(), Equals, unix.SIGKILL)
}

func (s *reaperSuite) TestUnknownPidIsIgnored(c *C) {
	table := jobtable.New()
	r := reaper.New(table)
	r.Start()
	defer r.Stop()

	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Assert(cmd.Start(), IsNil)
	// Intentionally never registered in the job table.
	time.Sleep(100 * time.Millisecond)
	_ = cmd.Wait() // reaper already reaped it; this just avoids a zombie-wait warning in other tests
}
