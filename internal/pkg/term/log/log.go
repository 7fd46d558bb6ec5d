// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package log writes diagnostic output to the terminal. The top-level
// error sink (cmd/cfn-teleport/main.go) writes through DiagnosticWriter
// so control characters (newlines) are interpreted literally, never
// re-escaped by a debug-style formatter.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

const (
	successPrefix = "Success!"
	errorPrefix   = "Error!"
	warningPrefix = "Note:"
)

// DiagnosticWriter is where Print*/package-level helpers write to;
// swappable in tests.
var DiagnosticWriter io.Writer = os.Stderr

// OutputWriter is where a command's own result output goes (wired as a
// cobra command's SetOut); kept distinct from DiagnosticWriter so a
// piped `cfn-teleport ... | jq` doesn't capture progress chatter.
var OutputWriter io.Writer = os.Stdout

// Logger writes the same framed output as the package-level helpers,
// but to an explicit writer rather than the shared globals -- useful
// for tests and for scoping output to one stream instance at a time.
type Logger struct {
	w io.Writer
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

func (l *Logger) Success(args ...interface{}) {
	fmt.Fprint(l.w, color.GreenString(successPrefix)+" ")
	fmt.Fprint(l.w, args...)
}

func (l *Logger) Successln(args ...interface{}) {
	l.Success(args...)
	fmt.Fprintln(l.w)
}

func (l *Logger) Successf(format string, args ...interface{}) {
	fmt.Fprint(l.w, color.GreenString(successPrefix)+" ")
	fmt.Fprintf(l.w, format, args...)
}

func (l *Logger) Error(args ...interface{}) {
	fmt.Fprint(l.w, color.RedString(errorPrefix)+" ")
	fmt.Fprint(l.w, args...)
}

func (l *Logger) Errorln(args ...interface{}) {
	l.Error(args...)
	fmt.Fprintln(l.w)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	fmt.Fprint(l.w, color.RedString(errorPrefix)+" ")
	fmt.Fprintf(l.w, format, args...)
}

func (l *Logger) Warning(args ...interface{}) {
	fmt.Fprint(l.w, color.YellowString(warningPrefix)+" ")
	fmt.Fprint(l.w, args...)
}

func (l *Logger) Warningln(args ...interface{}) {
	l.Warning(args...)
	fmt.Fprintln(l.w)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	fmt.Fprint(l.w, color.YellowString(warningPrefix)+" ")
	fmt.Fprintf(l.w, format, args...)
}

func (l *Logger) Info(args ...interface{}) {
	fmt.Fprint(l.w, args...)
}

func (l *Logger) Infoln(args ...interface{}) {
	fmt.Fprintln(l.w, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format, args...)
}

func (l *Logger) Debug(args ...interface{}) {
	fmt.Fprint(l.w, args...)
}

func (l *Logger) Debugln(args ...interface{}) {
	l.Debug(args...)
	fmt.Fprintln(l.w)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format, args...)
}

func defaultLogger() *Logger {
	return New(DiagnosticWriter)
}

// PrintSuccess writes a "Success!"-prefixed message to DiagnosticWriter.
func PrintSuccess(args ...interface{}) {
	defaultLogger().Success(args...)
}

func PrintSuccessln(args ...interface{}) {
	defaultLogger().Successln(args...)
}

func PrintSuccessf(format string, args ...interface{}) {
	defaultLogger().Successf(format, args...)
}

// PrintError writes an "Error!"-prefixed message to DiagnosticWriter.
func PrintError(args ...interface{}) {
	defaultLogger().Error(args...)
}

func PrintErrorln(args ...interface{}) {
	defaultLogger().Errorln(args...)
}

func PrintErrorf(format string, args ...interface{}) {
	defaultLogger().Errorf(format, args...)
}

// PrintWarning writes a "Note:"-prefixed message to DiagnosticWriter.
func PrintWarning(args ...interface{}) {
	defaultLogger().Warning(args...)
}

func PrintWarningln(args ...interface{}) {
	defaultLogger().Warningln(args...)
}

func PrintWarningf(format string, args ...interface{}) {
	defaultLogger().Warningf(format, args...)
}

// Print/Println/Printf write unframed output to DiagnosticWriter.
func Print(args ...interface{}) {
	defaultLogger().Info(args...)
}

func Println(args ...interface{}) {
	defaultLogger().Infoln(args...)
}

func Printf(format string, args ...interface{}) {
	defaultLogger().Infof(format, args...)
}

// Infoln/Infof are aliases kept for call sites that read more naturally
// as "log info" than "print".
func Infoln(args ...interface{}) {
	defaultLogger().Infoln(args...)
}

func Infof(format string, args ...interface{}) {
	defaultLogger().Infof(format, args...)
}

// Errorln/Errorf mirror PrintError* for call sites that read more
// naturally with the shorter name.
func Errorln(args ...interface{}) {
	defaultLogger().Errorln(args...)
}

func Errorf(format string, args ...interface{}) {
	defaultLogger().Errorf(format, args...)
}

// PrintDebug writes unframed debug output to DiagnosticWriter.
func PrintDebug(args ...interface{}) {
	defaultLogger().Debug(args...)
}

func PrintDebugln(args ...interface{}) {
	defaultLogger().Debugln(args...)
}

func PrintDebugf(format string, args ...interface{}) {
	defaultLogger().Debugf(format, args...)
}
