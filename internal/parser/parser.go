// Package parser recognizes one of several well-known log-line formats
// and reassembles multi-line records into canonical events. Each format
// is an independent Recognizer behind a tagged registry keyed by format
// name.
package parser

import (
	"strings"
	"time"

	"loglite/pkg/types"
)

// Match is what a Recognizer reports for a single candidate record-start
// line.
type Match struct {
	Ts         time.Time
	HasTs      bool
	Severity   *int
	Sourcetype string
	Message    string
	Fields     map[string]interface{}
}

// Recognizer implements one log format. Match returns ok=false when line
// is not a record-start for this format (a continuation line).
type Recognizer interface {
	Tag() string
	Match(line string) (Match, bool)
}

// A continuation line matching any of these markers is additionally
// captured into fields.stacktrace.
var stacktraceMarkers = []func(string) bool{
	func(s string) bool {
		return strings.HasPrefix(strings.TrimLeft(s, " \t"), "at ") && s != strings.TrimLeft(s, " \t")
	},
	func(s string) bool { return strings.HasPrefix(s, "Caused by: ") },
	func(s string) bool {
		return strings.HasPrefix(s, "\t... ") && strings.HasSuffix(strings.TrimRight(s, "\r"), "more")
	},
}

func isStacktraceLine(line string) bool {
	for _, f := range stacktraceMarkers {
		if f(line) {
			return true
		}
	}
	return false
}

var registry = []Recognizer{
	&javaRecognizer{},
	&rustRecognizer{},
	&goRecognizer{},
	&nginxRecognizer{},
}

// ByTag looks up a recognizer by its format tag (java, rust, go, nginx).
func ByTag(tag string) (Recognizer, bool) {
	for _, r := range registry {
		if r.Tag() == tag {
			return r, true
		}
	}
	return nil, false
}

// Result is the outcome of parsing one batch: the reassembled events plus
// a count of continuation lines dropped because they preceded any
// record-start.
type Result struct {
	Events  []types.Event
	Dropped int
}

// splitLines splits a batch at newlines, dropping a single trailing empty
// element produced by a final "\n".
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ParseWithFormat parses text as the given format tag, reassembling
// multi-line records generically regardless of which recognizer matched.
func ParseWithFormat(tag string, text string, now time.Time) (Result, bool) {
	r, ok := ByTag(tag)
	if !ok {
		return Result{}, false
	}
	return reassemble(r, splitLines(text), now), true
}

// ParseAuto scores the first ten non-empty lines of text against every
// recognizer and picks the highest scorer provided it accounts for at
// least 60% of the sampled lines that matched any format; otherwise
// every line becomes its own record with only Message populated.
// Continuation lines match no recognizer and do not count against the
// winner, so multi-line records survive detection.
func ParseAuto(text string, now time.Time) (Result, string) {
	lines := splitLines(text)
	tag, ok := detectFormat(lines)
	if !ok {
		return rawFallback(lines, now), ""
	}
	r, _ := ByTag(tag)
	return reassemble(r, lines, now), tag
}

func detectFormat(lines []string) (string, bool) {
	sample := make([]string, 0, 10)
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		sample = append(sample, l)
		if len(sample) == 10 {
			break
		}
	}
	if len(sample) == 0 {
		return "", false
	}

	scores := make(map[string]int, len(registry))
	matched := 0
	for _, l := range sample {
		hit := false
		for _, r := range registry {
			if _, ok := r.Match(l); ok {
				scores[r.Tag()]++
				hit = true
			}
		}
		if hit {
			matched++
		}
	}

	bestTag := ""
	bestScore := 0
	for _, r := range registry {
		if s := scores[r.Tag()]; s > bestScore {
			bestScore = s
			bestTag = r.Tag()
		}
	}
	if matched == 0 || float64(bestScore)/float64(matched) < 0.6 {
		return "", false
	}
	return bestTag, true
}

func rawFallback(lines []string, now time.Time) Result {
	res := Result{Events: make([]types.Event, 0, len(lines))}
	for _, l := range lines {
		if l == "" {
			continue
		}
		res.Events = append(res.Events, types.Event{
			Ts:      now,
			Message: l,
		})
	}
	return res
}

// reassemble runs the generic multi-line algorithm: lines that are not a
// record-start are continuations appended to the current record; the
// final record of the batch is flushed unconditionally.
func reassemble(r Recognizer, lines []string, now time.Time) Result {
	var res Result
	var cur *building

	flush := func() {
		if cur != nil {
			res.Events = append(res.Events, cur.build())
			cur = nil
		}
	}

	for _, line := range lines {
		if m, ok := r.Match(line); ok {
			flush()
			cur = newBuilding(r.Tag(), m, line, now)
			continue
		}

		if cur == nil {
			if strings.TrimSpace(line) != "" {
				res.Dropped++
			}
			continue
		}

		cur.appendContinuation(line)
	}
	flush()

	return res
}

type building struct {
	sourcetype string
	raw        string
	ts         time.Time
	severity   *int
	message    strings.Builder
	fields     map[string]interface{}
	stacktrace []string
	multiline  bool
}

func newBuilding(tag string, m Match, raw string, now time.Time) *building {
	b := &building{
		sourcetype: tag,
		raw:        raw,
		severity:   m.Severity,
		fields:     m.Fields,
	}
	if m.HasTs {
		b.ts = m.Ts
	} else {
		b.ts = now
	}
	b.message.WriteString(m.Message)
	return b
}

// appendContinuation switches the record to its raw first line on the
// first continuation: a reassembled block keeps every input line
// verbatim, while a single-line record keeps only the extracted message
// portion.
func (b *building) appendContinuation(line string) {
	if !b.multiline {
		b.multiline = true
		b.message.Reset()
		b.message.WriteString(b.raw)
	}
	b.message.WriteByte('\n')
	b.message.WriteString(line)
	if isStacktraceLine(line) {
		b.stacktrace = append(b.stacktrace, strings.TrimSpace(line))
	}
}

func (b *building) build() types.Event {
	ev := types.Event{
		Ts:         b.ts,
		Sourcetype: b.sourcetype,
		Severity:   b.severity,
		Message:    b.message.String(),
	}
	if len(b.stacktrace) > 0 || len(b.fields) > 0 {
		ev.Fields = make(map[string]interface{}, len(b.fields)+1)
		for k, v := range b.fields {
			ev.Fields[k] = v
		}
		if len(b.stacktrace) > 0 {
			ev.Fields["stacktrace"] = b.stacktrace
		}
	}
	return ev
}
