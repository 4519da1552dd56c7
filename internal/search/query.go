package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// buildQuery translates a Params into a bleve query tree. app_id is
// always a mandatory term filter; q, source, host, severity and the ts
// range are optional AND-joined filters. q itself is a conjunction of
// unquoted terms and quoted phrases over message; an empty q degenerates
// to a pure filter scan, matching every document for the tenant.
func buildQuery(p Params) query.Query {
	must := []query.Query{
		newKeywordTerm("app_id", p.AppID),
	}

	if p.Source != "" {
		must = append(must, newKeywordTerm("source", p.Source))
	}
	if p.Host != "" {
		must = append(must, newKeywordTerm("host", p.Host))
	}
	if p.Severity != nil {
		incl := true
		sq := bleve.NewNumericRangeInclusiveQuery(floatPtr(float64(*p.Severity)), floatPtr(float64(*p.Severity)), &incl, &incl)
		sq.SetField("severity")
		must = append(must, sq)
	}
	if p.StartTs != nil || p.EndTs != nil {
		var min, max *float64
		inclusiveMin := true
		inclusiveMax := false
		if p.StartTs != nil {
			min = floatPtr(float64(*p.StartTs))
		}
		if p.EndTs != nil {
			max = floatPtr(float64(*p.EndTs))
		}
		rq := bleve.NewNumericRangeInclusiveQuery(min, max, &inclusiveMin, &inclusiveMax)
		rq.SetField("ts_epoch_ms")
		must = append(must, rq)
	}

	if mq := buildMessageQuery(p.Query); mq != nil {
		must = append(must, mq)
	}

	return bleve.NewConjunctionQuery(must...)
}

func newKeywordTerm(field, value string) query.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	return tq
}

func floatPtr(f float64) *float64 { return &f }

// buildMessageQuery parses q into an AND of phrase/match queries over
// message: a double-quoted segment becomes a phrase query, everything
// else is split on whitespace into individual match-term queries.
func buildMessageQuery(q string) query.Query {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}

	var clauses []query.Query
	var b strings.Builder
	inQuote := false

	flush := func() {
		term := strings.TrimSpace(b.String())
		b.Reset()
		if term == "" {
			return
		}
		if inQuote {
			pq := bleve.NewMatchPhraseQuery(term)
			pq.SetField("message")
			clauses = append(clauses, pq)
			return
		}
		for _, w := range strings.Fields(term) {
			mq := bleve.NewMatchQuery(w)
			mq.SetField("message")
			clauses = append(clauses, mq)
		}
	}

	for _, r := range q {
		if r == '"' {
			flush()
			inQuote = !inQuote
			continue
		}
		b.WriteRune(r)
	}
	flush()

	if len(clauses) == 0 {
		return nil
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewConjunctionQuery(clauses...)
}
