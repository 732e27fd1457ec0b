// Package templates renders the operator HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/combokiosk/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;width:100%}th,td{border-bottom:1px solid #e5e7eb;padding:.4rem .6rem;text-align:left;vertical-align:top}
.ok{color:#047857}.failed{color:#b91c1c}.muted{color:#6b7280}.alert{border:1px solid #fca5a5;background:#fef2f2;padding:1rem;border-radius:.4rem}
ul{margin:0;padding-left:1rem}`

// SyncReport is the operator page listing recent sync runs, newest first.
func SyncReport(runs []core.SyncResult, sourceConfigured bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>Catalog sync</title><style>")
		b.WriteString(pageStyle)
		b.WriteString("</style></head><body><h1>Catalog sync</h1>")

		if sourceConfigured {
			b.WriteString(`<p class="muted">A configured source is synced by POST /api/sync.</p>`)
		} else {
			b.WriteString(`<p class="muted">No source configured: upload a combos export to POST /api/sync.</p>`)
		}

		if len(runs) == 0 {
			b.WriteString(`<p>No sync runs recorded.</p></body></html>`)
			_, err := io.WriteString(w, b.String())
			return err
		}

		b.WriteString("<table><thead><tr><th>Started</th><th>Trigger</th><th>Source</th><th>Status</th><th>Tables</th><th>Duration</th></tr></thead><tbody>")
		for _, run := range runs {
			writeRun(&b, run)
		}
		b.WriteString("</tbody></table></body></html>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeRun(b *strings.Builder, run core.SyncResult) {
	b.WriteString("<tr><td>")
	b.WriteString(templ.EscapeString(run.StartedAt.Format(time.RFC3339)))
	b.WriteString("</td><td>")
	b.WriteString(templ.EscapeString(run.Trigger))
	b.WriteString("</td><td>")
	b.WriteString(templ.EscapeString(run.Source))
	b.WriteString("</td><td>")
	if run.Succeeded() {
		b.WriteString(`<span class="ok">ok</span>`)
	} else {
		fmt.Fprintf(b, `<span class="failed">%s</span> <span class="muted">%s</span>`,
			templ.EscapeString(run.Code), templ.EscapeString(run.Error))
	}
	if len(run.Warnings) > 0 {
		fmt.Fprintf(b, `<div class="muted">%d warnings</div>`, len(run.Warnings))
	}
	b.WriteString("</td><td><ul>")
	for _, t := range run.Tables {
		fmt.Fprintf(b, "<li>%s: %d", templ.EscapeString(t.Table), t.Rows)
		if t.Error != "" {
			fmt.Fprintf(b, ` <span class="failed">%s</span>`, templ.EscapeString(t.Error))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul></td><td>")
	b.WriteString(templ.EscapeString(run.Duration.Round(time.Millisecond).String()))
	b.WriteString("</td></tr>")
}

// ErrorAlert renders an operator error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert" role="alert"><strong>`)
		b.WriteString(templ.EscapeString(message))
		b.WriteString("</strong>")
		if action != "" {
			b.WriteString("<p>")
			b.WriteString(templ.EscapeString(action))
			b.WriteString("</p>")
		}
		if code != "" {
			b.WriteString(`<p class="muted">Code: `)
			b.WriteString(templ.EscapeString(code))
			b.WriteString("</p>")
		}
		b.WriteString("</div>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
