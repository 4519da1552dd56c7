package parser

import (
	"regexp"
	"time"
)

// nginxRecognizer matches the combined access-log format:
//
//	127.0.0.1 - - [09/Feb/2024:22:30:15 +0000] "GET /api/foo HTTP/1.1" 200 1234
type nginxRecognizer struct{}

func (nginxRecognizer) Tag() string { return "nginx" }

var nginxLineRe = regexp.MustCompile(`^(\S+) \S+ \S+ \[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4})\] "(\S+) (\S+) ([^"]*)" (\d{3}) (\d+)$`)

func (nginxRecognizer) Match(line string) (Match, bool) {
	g := nginxLineRe.FindStringSubmatch(line)
	if g == nil {
		return Match{}, false
	}

	m := Match{
		Message: line,
		Fields: map[string]interface{}{
			"remote_addr": g[1],
			"method":      g[3],
			"path":        g[4],
			"status":      g[6],
			"size":        g[7],
		},
	}
	if ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", g[2]); err == nil {
		m.Ts = ts.UTC()
		m.HasTs = true
	}
	return m, true
}
