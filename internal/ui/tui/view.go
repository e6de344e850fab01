package tui

import (
	"fmt"
	"strings"
	"time"
)

const barWidth = 20

func renderView(m Model) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Title))
	if m.Updates == 0 {
		b.WriteString(" " + dimStyle.Render(pending+" loading"))
	} else if healthy(m.Status) {
		b.WriteString(" " + readyStyle.Render("healthy"))
	} else {
		b.WriteString(" " + failedStyle.Render("degraded"))
	}
	b.WriteString("\n")

	if m.Status.FetchErr != "" {
		b.WriteString(failedStyle.Render(crossMark+" "+m.Status.FetchErr) + "\n")
	}

	renderChecks(&b, m.Status.Checks)
	renderNodes(&b, m.Status.Nodes)
	if m.Updates > 0 {
		b.WriteString(sectionStyle.Render("Networks") + "\n")
		fmt.Fprintf(&b, "  %d registered\n", m.Status.Networks)
	}

	footer := "q: quit"
	if !m.LastUpdate.IsZero() {
		footer = fmt.Sprintf("updated %s ago, every %s  %s",
			time.Since(m.LastUpdate).Round(time.Second), m.Interval, footer)
	}
	b.WriteString(footerStyle.Render(footer) + "\n")
	return b.String()
}

func renderChecks(b *strings.Builder, checks []Check) {
	if len(checks) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("Dependencies") + "\n")
	for _, c := range checks {
		if c.OK {
			fmt.Fprintf(b, "  %s %-16s %s %s\n", readyStyle.Render(checkMark), c.Name, c.Target, dimStyle.Render(c.Latency))
			continue
		}
		fmt.Fprintf(b, "  %s %-16s %s %s\n", failedStyle.Render(crossMark), c.Name, c.Target, failedStyle.Render(c.Err))
	}
}

func renderNodes(b *strings.Builder, nodes []NodeUsage) {
	if len(nodes) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("Free interfaces") + "\n")
	width := 0
	for _, n := range nodes {
		width = max(width, len(n.Node))
	}
	for _, n := range nodes {
		count := fmt.Sprintf("%d/%d", n.Free, n.Total)
		if n.Free == 0 {
			count = warningStyle.Render(count)
		}
		fmt.Fprintf(b, "  %-*s %s %s\n", width, n.Node, bar(n.Free, n.Total), count)
	}
}

// bar draws free/total as a fixed-width gauge.
func bar(free, total int) string {
	filled := 0
	if total > 0 {
		filled = free * barWidth / total
	}
	return barFull.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", barWidth-filled))
}

func healthy(s StatusMsg) bool {
	if s.FetchErr != "" {
		return false
	}
	for _, c := range s.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}
