package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stamp is the reproducibility metadata of a run.
type stamp struct {
	Tag  string `json:"tag"`
	SHA  string `json:"sha"`
	User string `json:"user"`
	Host string `json:"host"`
	Date string `json:"date"`
}

const stampDateLayout = "2006-01-02 15:04:05 MST"

var errNotGitRepo = errors.New("$IDEFIX_DIR doesn't point to a git repository")

func (a *app) newStampCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stamp",
		Short: "Print Idefix's version, git hash, user, host and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.stamp(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return s.print(a, asJSON)
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "d", false, "print as a JSON object")
	return cmd
}

func (a *app) stamp(ctx context.Context, now time.Time) (*stamp, error) {
	dir, err := idefix.Dir()
	if err != nil {
		return nil, err
	}
	if !idefix.IsRepo(dir) {
		return nil, errNotGitRepo
	}
	sha, err := idefix.HeadSHA(ctx, dir)
	if err != nil {
		return nil, err
	}
	tag, err := idefix.LatestTag(ctx, dir)
	if err != nil {
		a.log.Debug("no tag reachable from HEAD", zap.Error(err))
		tag = "unknown"
	}

	s := &stamp{Tag: tag, SHA: sha, Date: now.Format(stampDateLayout)}
	if u, err := user.Current(); err == nil {
		s.User = u.Username
	}
	if h, err := os.Hostname(); err == nil {
		s.Host = h
	}
	return s, nil
}

func (s *stamp) print(a *app, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "%s\n", data)
		return err
	}
	_, err := fmt.Fprintf(a.out, "%s\n%s\n%s\n%s\n%s\n", s.Tag, s.SHA, s.User, s.Host, s.Date)
	return err
}
