package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gandalfthegui/idfx/internal/digest"
	"github.com/spf13/cobra"
)

func (a *app) newDigestCmd() *cobra.Command {
	var (
		dir    string
		output string
		timeit bool
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Aggregate performance data from log files as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.digestDir(cmd.Context(), dir, output, timeit)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "directory where log files are to be found")
	f.StringVarP(&output, "output", "o", "", "output file (stdout by default)")
	f.BoolVar(&timeit, "timeit", false, "print the time taken to stderr")
	return cmd
}

func (a *app) digestDir(ctx context.Context, dir, output string, timeit bool) error {
	start := time.Now()
	d, err := digest.Dir(ctx, a.abs(dir), a.log)
	if err != nil {
		return err
	}
	for _, w := range d.Warnings {
		a.ui.Warning(w)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if output != "" {
		if err := os.WriteFile(a.abs(output), data, 0o644); err != nil {
			return err
		}
	} else if _, err := a.out.Write(data); err != nil {
		return err
	}

	if timeit {
		fmt.Fprintf(a.errOut, "took %.3f ms\n", float64(time.Since(start).Microseconds())/1e3)
	}
	return nil
}
