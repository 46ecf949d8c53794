package verify

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/trace"
)

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Params core.Params
	Counts map[trace.Kind]int
	Issues []Issue
}

// NewReport runs all the checks over the events of a run.
func NewReport(events []trace.Event, p core.Params) *VerificationReport {
	r := &VerificationReport{
		Params: p,
		Counts: make(map[trace.Kind]int),
		Issues: Check(events, p),
	}

	for _, e := range events {
		r.Counts[e.Kind]++
	}

	return r
}

// OK tells if the run broke no rule.
func (r *VerificationReport) OK() bool {
	return len(r.Issues) == 0
}

// IssuesOf returns the issues of one type.
func (r *VerificationReport) IssuesOf(t IssueType) []Issue {
	var out []Issue

	for _, issue := range r.Issues {
		if issue.Type == t {
			out = append(out, issue)
		}
	}

	return out
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "ARBITER RUN VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	p := r.Params
	fmt.Fprintf(w, "\n%d ports, %s mode, bursts of %d words\n",
		p.NumPorts, p.Mode, p.BurstSize)

	counts := table.NewWriter()
	counts.SetTitle("Events")
	counts.AppendHeader(table.Row{"Kind", "Count"})

	for _, k := range []trace.Kind{
		trace.KindSubmit, trace.KindDispatch, trace.KindBusCpl,
		trace.KindDeliver, trace.KindFlag,
	} {
		counts.AppendRow(table.Row{k, r.Counts[k]})
	}

	fmt.Fprintln(w, counts.Render())

	if r.OK() {
		fmt.Fprintln(w, "\n✓ RUN PASSED ALL CHECKS")
		fmt.Fprintln(w)

		return
	}

	fmt.Fprintf(w, "\n⚠ Found %d issues:\n", len(r.Issues))

	issues := make([]Issue, len(r.Issues))
	copy(issues, r.Issues)
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Cycle < issues[j].Cycle
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Type", "Cycle", "Port", "Request", "Message"})

	for _, issue := range issues {
		t.AppendRow(table.Row{
			issue.Type, issue.Cycle, issue.Port, issue.ReqID,
			issueMessage(issue),
		})
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}

func issueMessage(issue Issue) string {
	if len(issue.Details) == 0 {
		return issue.Message
	}

	keys := make([]string, 0, len(issue.Details))
	for k := range issue.Details {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, issue.Details[k])
	}

	return issue.Message + " (" + strings.Join(parts, ", ") + ")"
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)

	return nil
}
