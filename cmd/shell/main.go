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

package main

import (
	"fmt"
	"os"

	"github.com/canonical/go-flags"

	"github.com/arturJan4/shell/internal/logger"
	"github.com/arturJan4/shell/internal/shell"
)

// options holds the executable's command-line flags. The core accepts
// no positional arguments; this only exists so --help/--version are
// handled the way every other command in this stack handles them.
type options struct {
	Version bool `long:"version" description:"Print version and exit"`
}

var version = "unreleased"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	args, err := parser.Parse()
	if err != nil {
		return err
	}
	if opts.Version {
		fmt.Println(version)
		return nil
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q", args[0])
	}

	logger.SetLogger(logger.New(os.Stderr, "shell: "))

	sh, err := shell.New()
	if err != nil {
		return err
	}
	defer sh.Close()

	sh.Run(os.Stdin, os.Stdout)
	return nil
}
