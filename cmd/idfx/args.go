package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// Commands wrapping an external tool (conf, run) receive arguments meant for
// that tool, such as "-mhd" or "-dec 2 2", which pflag would reject. They
// disable cobra's parsing and split their own flags out first.

const (
	nargsAny  = -1 // zero or more values
	nargsSome = -2 // one or more values
)

type passthroughFlag struct {
	name    string   // pflag name
	aliases []string // command line spellings besides --name
	nargs   int
}

func (f passthroughFlag) matches(arg string) (value string, inline, ok bool) {
	spellings := append([]string{"--" + f.name}, f.aliases...)
	for _, s := range spellings {
		if arg == s {
			return "", false, true
		}
		if strings.HasPrefix(s, "--") && strings.HasPrefix(arg, s+"=") {
			return arg[len(s)+1:], true, true
		}
	}
	return "", false, false
}

// splitPassthrough separates the flags known to the command, rewritten as
// --name=value so pflag can parse them, from the arguments to forward.
// Flags taking several values are repeated once per value; one given without
// any value becomes --name= so it never swallows the next flag. Everything
// after "--" is forwarded.
func splitPassthrough(args []string, flags []passthroughFlag) (own, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}
		var (
			flag   passthroughFlag
			value  string
			inline bool
			found  bool
		)
		for _, f := range flags {
			if value, inline, found = f.matches(arg); found {
				flag = f
				break
			}
		}
		if !found {
			rest = append(rest, arg)
			continue
		}

		long := "--" + flag.name
		switch {
		case inline:
			own = append(own, long+"="+value)
		case flag.nargs == 0:
			own = append(own, long)
		case flag.nargs == 1:
			if i+1 < len(args) {
				i++
				own = append(own, long+"="+args[i])
			} else {
				own = append(own, long)
			}
		default:
			n := 0
			for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				n++
				own = append(own, long+"="+args[i])
			}
			if n == 0 {
				if flag.nargs == nargsAny {
					long += "="
				}
				own = append(own, long)
			}
		}
	}
	return own, rest
}

// commonPassthrough are the flags every passthrough command understands.
var commonPassthrough = []passthroughFlag{
	{name: "help", aliases: []string{"-h"}},
	{name: "log-level", nargs: 1},
}

// parsePassthrough parses the command's own flags out of args and returns
// the arguments to forward. ok is false when help was requested and shown.
func (a *app) parsePassthrough(cmd *cobra.Command, args []string, flags []passthroughFlag) (rest []string, ok bool, err error) {
	own, rest := splitPassthrough(args, slices.Concat(flags, commonPassthrough))
	if err := cmd.Flags().Parse(own); err != nil {
		return nil, false, err
	}
	if help, _ := cmd.Flags().GetBool("help"); help {
		return nil, false, cmd.Help()
	}
	if cmd.Flags().Changed("log-level") {
		if err := a.initLogger(); err != nil {
			return nil, false, err
		}
	}
	return rest, true, nil
}
