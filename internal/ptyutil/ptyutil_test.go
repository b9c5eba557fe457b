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

package ptyutil_test

import (
	"os"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/arturJan4/shell/internal/ptyutil"
)

func Test(t *testing.T) { TestingT(t) }

type ptyutilSuite struct{}

var _ = Suite(&ptyutilSuite{})

// A regular file is never a terminal.
func (s *ptyutilSuite) TestIsTerminalFalseForRegularFile(c *C) {
	f, err := os.CreateTemp(c.MkDir(), "notatty")
	c.Assert(err, IsNil)
	defer f.Close()

	c.Check(ptyutil.IsTerminal(int(f.Fd())), Equals, false)
}

func (s *ptyutilSuite) TestGetStateFailsForRegularFile(c *C) {
	f, err := os.CreateTemp(c.MkDir(), "notatty")
	c.Assert(err, IsNil)
	defer f.Close()

	_, err = ptyutil.GetState(int(f.Fd()))
	c.Check(err, NotNil)
}

func (s *ptyutilSuite) TestGetSizeFailsForRegularFile(c *C) {
	f, err := os.CreateTemp(c.MkDir(), "notatty")
	c.Assert(err, IsNil)
	defer f.Close()

	_, _, err = ptyutil.GetSize(int(f.Fd()))
	c.Check(err, NotNil)
}
