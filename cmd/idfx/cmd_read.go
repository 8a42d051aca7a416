package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gandalfthegui/idfx/internal/inifile"
	"github.com/spf13/cobra"
)

func (a *app) newReadCmd() *cobra.Command {
	var (
		indent int
		format string
	)
	cmd := &cobra.Command{
		Use:   "read INIFILE",
		Short: "Print an Idefix inifile as JSON (or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("indent") {
				indent = -1
			}
			return a.read(args[0], indent, format)
		},
	}
	cmd.Flags().IntVar(&indent, "indent", 0, "indentation in spaces (default is flat JSON output)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func (a *app) read(name string, indent int, format string) error {
	path := a.abs(name)
	if !isFile(path) {
		return fmt.Errorf("no such file %s", name)
	}
	doc, err := inifile.LoadFile(path)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if indent >= 0 {
			var buf bytes.Buffer
			if err := json.Indent(&buf, data, "", strings.Repeat(" ", indent)); err != nil {
				return err
			}
			data = buf.Bytes()
		}
		_, err = fmt.Fprintf(a.out, "%s\n", data)
		return err
	case "yaml":
		if indent < 1 {
			indent = 2
		}
		return inifile.DumpYAML(a.out, doc, indent)
	default:
		return fmt.Errorf("unknown format %q, expected 'json' or 'yaml'", format)
	}
}
