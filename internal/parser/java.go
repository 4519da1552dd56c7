package parser

import (
	"regexp"
	"time"

	"loglite/pkg/types"
)

// javaRecognizer matches typical Log4j/Logback lines:
//
//	2024-02-09 22:30:15.123 ERROR [main] com.example.App - Connection failed
//
// Millisecond separator may be '.' or ','.
type javaRecognizer struct{}

func (javaRecognizer) Tag() string { return "java" }

var javaLineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})[.,](\d{3}) (\w+)\s+\[([^\]]*)\]\s+(\S+)\s+-\s+(.*)$`)

func (javaRecognizer) Match(line string) (Match, bool) {
	g := javaLineRe.FindStringSubmatch(line)
	if g == nil {
		return Match{}, false
	}

	m := Match{
		Message: g[6],
		Fields: map[string]interface{}{
			"thread": g[4],
			"logger": g[5],
		},
	}

	if ts, err := time.Parse("2006-01-02 15:04:05", g[1]); err == nil {
		ms, _ := time.ParseDuration(g[2] + "ms")
		m.Ts = ts.UTC().Add(ms)
		m.HasTs = true
	}
	if sev, ok := types.SeverityForLevel(g[3]); ok {
		m.Severity = &sev
	}
	return m, true
}
