// internal/telegram/format.go
package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gitsync-standup/internal/model"
)

// FormatReport renders a standup report as Telegram HTML. The header
// carries pusher, repository and branch with the generation time in the
// presentation timezone.
func FormatReport(report model.StandupReport, event model.PushEvent, loc *time.Location) string {
	var b strings.Builder

	stamp := report.GeneratedAt.In(loc).Format("03:04 PM")
	fmt.Fprintf(&b, "\U0001F464 <b>%s</b>\n", html.EscapeString(event.Pusher))
	fmt.Fprintf(&b, "\U0001F4C2 <b>%s</b> (<code>%s</code>)\n", html.EscapeString(event.RepoName), html.EscapeString(event.Branch))
	fmt.Fprintf(&b, "\U0001F552 %s\n\n", stamp)

	fmt.Fprintf(&b, "<b>Standup Summary</b>\n%s\n", html.EscapeString(report.Summary))

	if len(report.NextSteps) > 0 {
		b.WriteString("\n<b>Next Steps</b>\n")
		for _, step := range report.NextSteps {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(step))
		}
	}

	if len(report.Blockers) > 0 {
		b.WriteString("\n<b>Blockers</b>\n")
		for _, blocker := range report.Blockers {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(blocker))
		}
	}

	if report.Source == model.SourceFallback {
		b.WriteString("\n<i>Summary generated without AI assistance.</i>\n")
	}

	return b.String()
}
