package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gandalfthegui/idfx/internal/inifile"
	"github.com/spf13/cobra"
)

func (a *app) newWriteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "write DEST [SOURCE]",
		Short: "Write an Idefix inifile from JSON read from SOURCE or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 2 {
				source = args[1]
			}
			return a.write(args[0], source, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite DEST if it already exists")
	return cmd
}

func (a *app) write(dest, source string, force bool) error {
	var r io.Reader = a.in
	if source != "" {
		f, err := os.Open(a.abs(source))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	doc, err := inifile.ReadJSON(r)
	switch {
	case inifile.IsSchemaError(err):
		return errors.New("input is not Pluto inifile format compliant.")
	case errors.Is(err, inifile.ErrSyntax):
		return errors.New("input is not valid json.")
	case err != nil:
		return err
	}

	path := a.abs(dest)
	if isFile(path) && !force {
		return fmt.Errorf("destination file %s already exists. Use -f/--force to overwrite.", dest)
	}
	return inifile.DumpFile(path, doc)
}
