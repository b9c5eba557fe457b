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

// Package builtin holds the shell's built-in command table. Each
// built-in is registered under the name it answers to; commands that
// need access to shell-level state (the job table, the terminal, the
// resume/kill operations) are registered with closures bound to that
// state by the top-level shell package, rather than this package
// reaching for globals itself.
package builtin

// Func is a built-in command's implementation. It returns the exit
// code the caller should report for the command.
type Func func(argv []string) int

// Table is the shell's built-in command table.
type Table struct {
	cmds map[string]Func
}

// NewTable returns an empty built-in command table.
func NewTable() *Table {
	return &Table{cmds: make(map[string]Func)}
}

// Register binds name to fn. Registering a name a second time replaces
// the previous binding.
func (t *Table) Register(name string, fn Func) {
	t.cmds[name] = fn
}

// Run executes argv[0] as a built-in if one is registered under that
// name. The second return value reports whether argv[0] names a
// built-in at all; if false, the caller must fall back to the
// external-command launcher, matching builtin_command's "negative
// means not a built-in" contract in the collaborator description.
func (t *Table) Run(argv []string) (code int, handled bool) {
	if len(argv) == 0 {
		return 0, false
	}
	fn, ok := t.cmds[argv[0]]
	if !ok {
		return 0, false
	}
	return fn(argv), true
}
