// Package simlog provides a simple leveled logger for cachesim.
// Time/date are not logged on purpose because systemd adds them for us.
//
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package simlog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/archsim/cachesim/pkg/simerr"
)

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrorWriter io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]"
	InfoPrefix  string = "<6>[INFO]"
	WarnPrefix  string = "<4>[WARNING]"
	ErrPrefix   string = "<3>[ERROR]"
	FatalPrefix string = "<3>[FATAL]"
)

func init() {
	if lvl, ok := os.LookupEnv("CACHESIM_LOGLEVEL"); ok {
		switch lvl {
		case "err", "fatal":
			WarnWriter = io.Discard
			fallthrough
		case "warn":
			InfoWriter = io.Discard
			fallthrough
		case "info":
			DebugWriter = io.Discard
		case "debug":
			// Nothing to do...
		default:
			Warnf("environment variable CACHESIM_LOGLEVEL has invalid value %#v", lvl)
		}
	}
}

func Debug(v ...interface{}) {
	if DebugWriter != io.Discard {
		v = append([]interface{}{DebugPrefix}, v...)
		fmt.Fprintln(DebugWriter, v...)
	}
}

func Info(v ...interface{}) {
	if InfoWriter != io.Discard {
		v = append([]interface{}{InfoPrefix}, v...)
		fmt.Fprintln(InfoWriter, v...)
	}
}

func Warn(v ...interface{}) {
	if WarnWriter != io.Discard {
		v = append([]interface{}{WarnPrefix}, v...)
		fmt.Fprintln(WarnWriter, v...)
	}
}

func Error(v ...interface{}) {
	if ErrorWriter != io.Discard {
		v = append([]interface{}{ErrPrefix}, v...)
		fmt.Fprintln(ErrorWriter, v...)
	}
}

func Fatal(v ...interface{}) {
	if ErrorWriter != io.Discard {
		v = append([]interface{}{FatalPrefix}, v...)
		fmt.Fprintln(ErrorWriter, v...)
	}
	os.Exit(1)
}

func Debugf(format string, v ...interface{}) {
	if DebugWriter != io.Discard {
		fmt.Fprintf(DebugWriter, DebugPrefix+" "+format+"\n", v...)
	}
}

func Infof(format string, v ...interface{}) {
	if InfoWriter != io.Discard {
		fmt.Fprintf(InfoWriter, InfoPrefix+" "+format+"\n", v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter != io.Discard {
		fmt.Fprintf(WarnWriter, WarnPrefix+" "+format+"\n", v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrorWriter != io.Discard {
		fmt.Fprintf(ErrorWriter, ErrPrefix+" "+format+"\n", v...)
	}
}

func Fatalf(format string, v ...interface{}) {
	if ErrorWriter != io.Discard {
		fmt.Fprintf(ErrorWriter, FatalPrefix+" "+format+"\n", v...)
	}
	os.Exit(1)
}

// Err logs err under ctx (e.g. the failing subcommand or operation) at a
// severity derived from its simerr.Kind: Unsupported is a warning (the
// caller has a fallback path), every other kind is an error. The
// component tag travels with the message so a failure stays attributable
// to its origin once it reaches the log. err values not constructed by
// pkg/simerr are logged as a plain error under ctx.
func Err(ctx string, err error) {
	var e *simerr.Error
	if !errors.As(err, &e) {
		Errorf("%s: %s", ctx, err.Error())
		return
	}
	if e.Kind == simerr.Unsupported {
		Warnf("%s: [%s] %s", ctx, e.Component, e.Msg)
		return
	}
	Errorf("%s: [%s] %s: %s", ctx, e.Component, e.Kind, e.Msg)
}

// FatalErr logs err under ctx with the same component and kind fields as
// Err, but always at fatal severity (Unsupported is not downgraded to a
// warning), and then exits with status 1.
func FatalErr(ctx string, err error) {
	var e *simerr.Error
	if !errors.As(err, &e) {
		Fatalf("%s: %s", ctx, err.Error())
		return
	}
	Fatalf("%s: [%s] %s: %s", ctx, e.Component, e.Kind, e.Msg)
}
