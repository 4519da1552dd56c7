package parser

import (
	"encoding/json"
	"math"
	"regexp"
	"time"

	"loglite/pkg/types"
)

// goRecognizer matches the standard library logger:
//
//	2024/02/09 22:30:15 [ERROR] main.go:42: Failed to connect
//
// and structured JSON emitted by zap/logrus, keyed on "level" plus
// "msg" or "message".
type goRecognizer struct{}

func (goRecognizer) Tag() string { return "go" }

var goStdlibRe = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) \[(\w+)\] (\S+): (.*)$`)

func (goRecognizer) Match(line string) (Match, bool) {
	if m, ok := matchGoStdlib(line); ok {
		return m, true
	}
	return matchGoJSON(line)
}

func matchGoStdlib(line string) (Match, bool) {
	g := goStdlibRe.FindStringSubmatch(line)
	if g == nil {
		return Match{}, false
	}
	m := Match{
		Message: g[4],
		Fields:  map[string]interface{}{"caller": g[3]},
	}
	if ts, err := time.ParseInLocation("2006/01/02 15:04:05", g[1], time.Local); err == nil {
		m.Ts = ts.UTC()
		m.HasTs = true
	}
	if sev, ok := types.SeverityForLevel(g[2]); ok {
		m.Severity = &sev
	}
	return m, true
}

func matchGoJSON(line string) (Match, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Match{}, false
	}

	levelVal, hasLevel := raw["level"]
	msgVal, hasMsg := raw["msg"]
	if !hasMsg {
		msgVal, hasMsg = raw["message"]
	}
	if !hasLevel || !hasMsg {
		return Match{}, false
	}

	level, _ := levelVal.(string)
	message, _ := msgVal.(string)

	m := Match{
		Message: message,
		Fields:  raw,
	}
	if sev, ok := types.SeverityForLevel(level); ok {
		m.Severity = &sev
	}
	if tsVal, ok := raw["ts"]; ok {
		if secs, ok := tsVal.(float64); ok {
			whole := math.Trunc(secs)
			frac := secs - whole
			m.Ts = time.Unix(int64(whole), int64(frac*1e9)).UTC()
			m.HasTs = true
		}
	}
	return m, true
}
