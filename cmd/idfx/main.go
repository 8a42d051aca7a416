// idfx is a command line companion for the Idefix astrophysical fluid
// dynamics code.
//
// Usage:
//
//	idfx clean [--dir D] [--all]     remove compilation files
//	idfx clone SOURCE DEST           clone a problem directory
//	idfx conf [args...]              configure a problem with cmake or configure.py
//	idfx run [args...]               build (if needed) and run a problem
//	idfx read INIFILE                print an inifile as JSON or YAML
//	idfx write DEST [SOURCE]         write an inifile from JSON
//	idfx stamp                       print reproducibility metadata
//	idfx digest [--dir D]            aggregate performance logs as JSON
//	idfx switch [BRANCH]             git checkout a branch in $IDEFIX_DIR
//
// Commands wrapping cmake or Idefix forward the arguments they don't know.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at link time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := newApp(os.Stdin, os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
