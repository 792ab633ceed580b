package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgBlue, color.Bold)
	passColor   = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	infoColor   = color.New(color.FgYellow)
	boldColor   = color.New(color.Bold)
	allPassed   = color.New(color.FgGreen, color.Bold)
	someFailed  = color.New(color.FgRed, color.Bold)
)

// Reporter prints the harness's terminal output in the same layout as the
// original test tool.
type Reporter struct {
	w io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Banner prints the tool title block.
func (r *Reporter) Banner(title string) {
	boldColor.Fprintln(r.w, title)
	fmt.Fprintf(r.w, "%s\n\n", strings.Repeat("=", 50))
}

// Test prints a test header.
func (r *Reporter) Test(name string) {
	fmt.Fprintln(r.w)
	headerColor.Fprint(r.w, "[TEST]")
	fmt.Fprintf(r.w, " %s\n", name)
}

// Pass prints a success message.
func (r *Reporter) Pass(format string, args ...interface{}) {
	fmt.Fprint(r.w, "  ")
	passColor.Fprint(r.w, "✓ PASS:")
	fmt.Fprintf(r.w, " "+format+"\n", args...)
}

// Fail prints a failure message.
func (r *Reporter) Fail(format string, args ...interface{}) {
	fmt.Fprint(r.w, "  ")
	failColor.Fprint(r.w, "✗ FAIL:")
	fmt.Fprintf(r.w, " "+format+"\n", args...)
}

// Info prints an info message.
func (r *Reporter) Info(format string, args ...interface{}) {
	fmt.Fprint(r.w, "  ")
	infoColor.Fprint(r.w, "ℹ INFO:")
	fmt.Fprintf(r.w, " "+format+"\n", args...)
}

// Summary prints the final tally block.
func (r *Reporter) Summary(s Summary) {
	line := strings.Repeat("=", 50)
	fmt.Fprintf(r.w, "\n%s\n", line)
	boldColor.Fprintln(r.w, "Test Summary")
	fmt.Fprintln(r.w, line)
	fmt.Fprintf(r.w, "Total Tests: %d\n", s.Total)
	passColor.Fprintf(r.w, "Passed: %d\n", s.Passed)
	failColor.Fprintf(r.w, "Failed: %d\n", s.Failed)

	fmt.Fprintln(r.w)
	if s.Failed == 0 {
		allPassed.Fprintln(r.w, "✓ ALL TESTS PASSED")
	} else {
		someFailed.Fprintln(r.w, "✗ SOME TESTS FAILED")
	}
	fmt.Fprintln(r.w)
}
