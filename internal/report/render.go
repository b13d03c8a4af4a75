// Package report renders aggregated metrics into publishable Markdown and
// hands the result to a publisher. Chart images themselves are produced by
// an external collaborator; the renderer only emits their references.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/honeysting/honeysting/internal/models"
)

// portNames maps well-known honeypot ports to protocol labels for display.
var portNames = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	80:   "HTTP",
	123:  "NTP",
	161:  "SNMP",
	443:  "HTTPS",
	1433: "MSSQL",
	3306: "MySQL",
	3389: "RDP",
	5900: "VNC",
}

// PortLabel returns the protocol name for a port, or the number itself.
func PortLabel(port string) string {
	if p, err := strconv.Atoi(port); err == nil {
		if name, ok := portNames[p]; ok {
			return name
		}
	}
	return port
}

// Renderer produces the Markdown metrics report.
type Renderer struct {
	loc *time.Location
}

// NewRenderer creates a Renderer stamping publish times in loc.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// Markdown renders the all-time metrics README. now is passed in rather
// than read from the clock so output is reproducible in tests.
func (r *Renderer) Markdown(m *models.Metrics, now time.Time) string {
	stamp := now.In(r.loc).Format("January 2, 2006 @ 3:04 PM MST")

	var b strings.Builder
	b.WriteString("# Project Overview\n\n")
	b.WriteString("This repository tracks activity against an OpenCanary honeypot.\n")
	b.WriteString("Metrics are aggregated nightly at midnight Eastern Time to provide consistent, daily snapshots.\n\n")
	b.WriteString("# Metrics Report\n\n")
	fmt.Fprintf(&b, "<small>All-Time Stats (Last Updated: %s)</small>\n\n", stamp)

	b.WriteString("| Metric         | Value |\n")
	b.WriteString("|----------------|-------|\n")
	fmt.Fprintf(&b, "| Total events   | %s |\n", comma(m.TotalEvents))
	fmt.Fprintf(&b, "| Distinct IPs   | %s |\n\n", comma(m.DistinctIPs))

	writeBreakdown(&b, "Ports Hit", m.ByPort, PortLabel)
	writeBreakdown(&b, "Top Source Countries", m.ByCountry, nil)
	writeBreakdown(&b, "Most Common Usernames", m.ByUsername, escapeCell)
	writeBreakdown(&b, "Most Common Passwords", m.ByPassword, escapeCell)

	b.WriteString("![Ports](ports_bar.png)\n")
	b.WriteString("![Countries](countries_bar.png)\n")
	b.WriteString("![Usernames](usernames_bar.png)\n")
	b.WriteString("![Passwords](passwords_bar.png)\n")
	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, rows []models.BucketCount, label func(string) string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| | Count |\n|---|---|\n")
	for _, row := range rows {
		key := row.Key
		if label != nil {
			key = label(key)
		}
		fmt.Fprintf(b, "| %s | %s |\n", key, comma(row.Count))
	}
	b.WriteString("\n")
}

// escapeCell keeps attacker-controlled strings (usernames, passwords) from
// breaking table layout or injecting markup.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return "`" + s + "`"
}

// comma formats n with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
