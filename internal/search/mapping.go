package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildMapping constructs the fixed document schema for loglite's event
// index: app_id/host/source/sourcetype are keyword (untokenized) fields,
// message is tokenized full text, event_id, ts_epoch_ms and severity are
// indexed numerics.
func buildMapping() mapping.IndexMapping {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = false

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt("app_id", keyword)
	doc.AddFieldMappingsAt("host", keyword)
	doc.AddFieldMappingsAt("source", keyword)
	doc.AddFieldMappingsAt("sourcetype", keyword)
	doc.AddFieldMappingsAt("message", text)
	doc.AddFieldMappingsAt("event_id", numeric)
	doc.AddFieldMappingsAt("ts_epoch_ms", numeric)
	doc.AddFieldMappingsAt("severity", numeric)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = "standard"
	return im
}
