package main

import (
	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/spf13/cobra"
)

func (a *app) newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch [BRANCH]",
		Short: "Switch git branch in $IDEFIX_DIR",
		Long: `Switch git branch in $IDEFIX_DIR using git checkout. Without BRANCH, switch
to the most recently visited other branch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branch := "-"
			if len(args) == 1 {
				branch = args[0]
			}
			dir, err := idefix.Dir()
			if err != nil {
				return err
			}
			if !idefix.IsRepo(dir) {
				return errNotGitRepo
			}
			argv := []string{"git", "checkout", branch}
			a.ui.Launch(argv, dir)
			code, err := a.call(cmd.Context(), dir, argv)
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
}
