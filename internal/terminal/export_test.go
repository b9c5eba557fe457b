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

package terminal

import "github.com/arturJan4/shell/internal/ptyutil"

// NewForTest builds a Controller around an already-open descriptor,
// bypassing Open's terminal assertion. Used by tests in this package
// and by other packages' tests that need a Controller without a real
// controlling terminal.
func NewForTest(fd, shellPgid int, modes *ptyutil.State) *Controller {
	return &Controller{fd: fd, shellPgid: shellPgid, shellModes: modes}
}
