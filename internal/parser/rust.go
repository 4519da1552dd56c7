package parser

import (
	"regexp"
	"time"

	"loglite/pkg/types"
)

// rustRecognizer matches env_logger lines:
//
//	[2024-02-09T14:30:15Z ERROR my_app] Database connection lost
//
// and tracing-style lines:
//
//	2024-02-09T14:30:15Z ERROR my_app: Database connection lost
type rustRecognizer struct{}

func (rustRecognizer) Tag() string { return "rust" }

var (
	rustEnvLoggerRe = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z) (\w+) (\S+)\] (.*)$`)
	rustTracingRe   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z) (\w+) (\S+): (.*)$`)
)

func (rustRecognizer) Match(line string) (Match, bool) {
	g := rustEnvLoggerRe.FindStringSubmatch(line)
	if g == nil {
		g = rustTracingRe.FindStringSubmatch(line)
	}
	if g == nil {
		return Match{}, false
	}

	m := Match{
		Message: g[4],
		Fields:  map[string]interface{}{"module": g[3]},
	}
	if ts, err := time.Parse(time.RFC3339, g[1]); err == nil {
		m.Ts = ts.UTC()
		m.HasTs = true
	}
	if sev, ok := types.SeverityForLevel(g[2]); ok {
		m.Severity = &sev
	}
	return m, true
}
