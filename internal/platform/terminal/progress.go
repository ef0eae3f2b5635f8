package terminal

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/utils/random"
)

const barRefreshRate = 200 * time.Millisecond

// ProgressObserver renders an attack: the summary table, an optional live
// bar and the outcome panels.
type ProgressObserver struct {
	out     io.Writer
	styles  Styles
	showBar bool

	mu  sync.Mutex
	bar *pb.ProgressBar
}

func NewProgressObserver(out io.Writer, showBar bool) *ProgressObserver {
	return &ProgressObserver{
		out:     out,
		styles:  NewStyles(out),
		showBar: showBar,
	}
}

func (o *ProgressObserver) AttackStarted(summary domain.AttackSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fmt.Fprintln(o.out, o.styles.Title.Render("Preparing attack..."))
	if summary.Resumed {
		if summary.ResumeMissed {
			fmt.Fprintln(o.out, o.styles.Warning.Render("Warning:")+" resume point not found in wordlist. Starting from the beginning.")
		} else {
			fmt.Fprintf(o.out, "Resuming session. Skipping first %s words.\n", humanize.Comma(int64(summary.Skipped)))
		}
	}
	if summary.Charset != "" {
		fmt.Fprintf(o.out, "Brute-force using charset: '%s'\n", summary.Charset)
	}
	fmt.Fprintln(o.out, RenderSummary(summary))

	if o.showBar && summary.Total > 0 {
		o.bar = pb.Full.New(0)
		o.bar.SetTotal(summary.Total)
		o.bar.SetWriter(o.out)
		o.bar.SetRefreshRate(barRefreshRate)
		o.bar.Start()
	}
}

func (o *ProgressObserver) Progress(tried, _ int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bar != nil {
		o.bar.SetCurrent(tried)
	}
}

func (o *ProgressObserver) AttackFinished(result *domain.AttackResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil {
		o.bar.SetCurrent(result.Tried)
		o.bar.Finish()
		o.bar = nil
	}

	fmt.Fprintln(o.out, strings.Repeat("=", 60))
	fmt.Fprintln(o.out, RenderOutcome(o.styles, result))
	fmt.Fprintln(o.out, RenderExecution(result))
}

// RenderSummary is the table shown before verification starts.
func RenderSummary(summary domain.AttackSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Row("Attack Mode", titleCase(string(summary.Mode))).
		Row("Target File", summary.Target).
		Row("Total Passwords", humanize.Comma(summary.Total)).
		Row("Worker Processes", strconv.Itoa(summary.Workers))
	if summary.RunID != "" {
		t.Row("Run", random.ShortID(summary.RunID))
	}
	return "Attack Summary\n" + t.String()
}

func RenderOutcome(styles Styles, result *domain.AttackResult) string {
	switch result.Status {
	case domain.StatusFound:
		return styles.Success.Render("SUCCESS! Password Found!\n\nPassword: " + result.Password)
	case domain.StatusInterrupted:
		return styles.Alert.Render("INTERRUPTED. The session was saved and can be resumed.")
	case domain.StatusFailed:
		msg := "FAILED. The attack stopped before the search space was exhausted."
		if result.WorkerFault > 0 {
			msg += fmt.Sprintf("\n\n%d worker(s) faulted while verifying passwords.", result.WorkerFault)
		}
		return styles.Failure.Render(msg)
	default:
		return styles.Failure.Render("FAILED. Password not found.")
	}
}

// RenderExecution is the table shown after an attack.
func RenderExecution(result *domain.AttackResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Metric", "Value").
		Row("Total Time", fmt.Sprintf("%.2f seconds", result.Elapsed.Seconds())).
		Row("Passwords Tried", humanize.Comma(result.Tried))
	if result.Elapsed > 0 {
		t.Row("Average Speed", humanize.CommafWithDigits(result.Rate, 2)+" passwords/sec")
	}
	if result.Resources.Samples > 0 {
		t.Row("Peak CPU", fmt.Sprintf("%.1f%%", result.Resources.CPUPeak))
		t.Row("Peak Memory", fmt.Sprintf("%.1f%%", result.Resources.MemoryUsedPct))
	}
	return "Execution Summary\n" + t.String()
}

// RenderError explains why an attack could not start.
func RenderError(styles Styles, err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return styles.Failure.Render("ERROR: Combination Count Too Large\n\n" +
			err.Error() + "\n\nPlease choose a smaller length range (min/max).")
	case errors.Is(err, domain.ErrNoCandidates):
		return styles.Warning.Render("Warning:") + " No passwords to try. Aborting attack."
	case errors.Is(err, domain.ErrWordlistNotFound):
		return styles.Error.Render("Error:") + " Wordlist file not found."
	case errors.Is(err, domain.ErrTargetNotFound), errors.Is(err, domain.ErrInvalidTarget):
		return styles.Error.Render("Error:") + " File not found or incorrect type."
	case errors.Is(err, domain.ErrNotEncrypted):
		return styles.Error.Render("Error:") + " The file is not password protected."
	default:
		return styles.Error.Render("Error:") + " " + err.Error()
	}
}

// RenderSession describes a saved session for the resume prompt.
func RenderSession(styles Styles, s *domain.AttackSession) string {
	lines := []string{
		"Unfinished session for " + styles.Bold.Render(filepath.Base(s.FilePath)),
		"",
		"Mode:    " + string(s.Mode),
		"Target:  " + s.FilePath,
		"Workers: " + strconv.Itoa(s.Workers),
	}
	if s.Wordlist != "" {
		lines = append(lines, "Wordlist: "+s.Wordlist)
	}
	if s.Charset != "" {
		lines = append(lines, fmt.Sprintf("Charset: %s, length %d-%d", s.Charset, s.MinLength, s.MaxLength))
	}
	if s.ResumeFrom != "" {
		lines = append(lines, "Resume after: "+s.ResumeFrom)
	}
	return styles.Alert.Render(strings.Join(lines, "\n"))
}

func RenderCharsetHelp(styles Styles, help [][2]string) string {
	lines := []string{styles.Title.Render("Select Charset for Brute-Force"), ""}
	for _, entry := range help {
		lines = append(lines, styles.Bold.Render(entry[0])+": "+entry[1])
	}
	return styles.Info.Render(strings.Join(lines, "\n"))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
