// Package diag supplies decode-time tracing and structural dumps, kept out
// of nrbf/datacontract/bridge themselves so the decode core stays free of
// logging concerns. Tracing is off by default; callers opt in with Verbosity.
package diag

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/golang/glog"
	"github.com/kr/pretty"
)

// Verbosity mirrors glog's -v flag for the parts of this module that trace
// through diag instead of calling glog directly, so `go test` binaries that
// never touch flag.Parse still behave predictably.
type Verbosity int32

var currentVerbosity Verbosity

// SetVerbosity sets the package-wide trace level. 0 (the default) disables
// tracing entirely.
func SetVerbosity(v Verbosity) {
	currentVerbosity = v
}

// V reports whether tracing at level v is enabled, and if so returns a
// logger that writes through glog.V at the same level. Call sites look like:
//
//	diag.V(2).Infof("record %T at offset %d", rec, offset)
func V(level Verbosity) traceLogger {
	if currentVerbosity < level {
		return traceLogger{enabled: false}
	}
	return traceLogger{enabled: true, level: glog.Level(level)}
}

type traceLogger struct {
	enabled bool
	level   glog.Level
}

func (t traceLogger) Infof(format string, args ...any) {
	if !t.enabled {
		return
	}
	glog.V(t.level).Infof(format, args...)
}

// Dump renders v via go-spew, the teacher's own indirect dependency,
// producing a full structural dump suitable for attaching to an error
// message or a --debug trace line.
func Dump(v any) string {
	return spew.Sdump(v)
}

// Pretty renders v via kr/pretty's more compact formatter, used by the
// inspect subcommand's default (non---debug) output.
func Pretty(v any) string {
	return pretty.Sprint(v)
}
