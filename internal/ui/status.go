package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// StatusInfo describes an open lexicon and its search engines.
type StatusInfo struct {
	Path           string                   `json:"path"`
	FileSize       int64                    `json:"file_size"`
	Entries        int                      `json:"entries"`
	WritingSystems []string                 `json:"writing_systems"`
	Backend        string                   `json:"backend"`
	Engines        map[string]search.Status `json:"engines"`

	Metrics []telemetry.Sample          `json:"metrics,omitempty"`
	Queries *telemetry.QueryLogSnapshot `json:"queries,omitempty"`
}

// StatusRenderer displays lexicon and engine status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	w := &errWriter{w: r.out}

	w.printf("%s\n\n", r.styles.Header.Render("Lexicon: "+displayPath(info.Path)))
	w.printf("  Entries:         %d\n", info.Entries)
	if info.FileSize > 0 {
		w.printf("  File size:       %s\n", FormatBytes(info.FileSize))
	}
	w.printf("  Writing systems: %s\n", strings.Join(info.WritingSystems, ", "))
	w.printf("  Backend:         %s\n\n", info.Backend)

	if len(info.Engines) > 0 {
		w.printf("  Engines:\n")
		for _, name := range slices.Sorted(maps.Keys(info.Engines)) {
			w.printf("    %-14s %s\n", name, r.renderEngine(info.Engines[name]))
		}
		w.printf("\n")
	}

	if len(info.Metrics) > 0 {
		w.printf("  Metrics:\n")
		for _, s := range info.Metrics {
			w.printf("    %s %s\n", r.styles.Label.Render(sampleName(s)), formatValue(s.Value))
		}
		w.printf("\n")
	}

	if q := info.Queries; q != nil && q.TotalQueries > 0 {
		w.printf("  Queries since %s:\n", formatTime(q.Since))
		w.printf("    Total:        %d\n", q.TotalQueries)
		w.printf("    Zero results: %d (%.1f%%)\n", q.ZeroResultCount, q.ZeroResultPercentage())
		w.printf("    Repeated:     %d\n", q.RepeatCount)
		if len(q.TopTerms) > 0 {
			terms := make([]string, 0, len(q.TopTerms))
			for _, tc := range q.TopTerms {
				terms = append(terms, fmt.Sprintf("%s (%d)", tc.Term, tc.Count))
			}
			w.printf("    Top terms:    %s\n", strings.Join(terms, ", "))
		}
	}

	return w.err
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderEngine(st search.Status) string {
	var state string
	switch {
	case st.Closed:
		state = r.styles.Error.Render("closed")
	case st.Busy:
		state = r.styles.Busy.Render("busy")
	default:
		state = r.styles.Prompt.Render("idle")
	}
	snapshot := "no snapshot"
	if st.SnapshotSize >= 0 {
		snapshot = fmt.Sprintf("%d objects", st.SnapshotSize)
	}
	return fmt.Sprintf("%s, %s, %d completed, %d superseded, %d invalidations",
		state, snapshot, st.Completed, st.Superseded, st.Invalidations)
}

func sampleName(s telemetry.Sample) string {
	if len(s.Labels) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + s.Labels[k]
	}
	return s.Name + "{" + strings.Join(pairs, ",") + "}"
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}

func displayPath(p string) string {
	if p == "" {
		return "(in memory)"
	}
	return p
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
