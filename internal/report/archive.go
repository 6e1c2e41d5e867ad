package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ArchiveMapping is the index mapping for archived reports. Units are nested
// so tag and condition can be matched together.
const ArchiveMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "inspection":      {"type": "keyword"},
      "title":           {"type": "text"},
      "area":            {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "pic":             {"type": "keyword"},
      "diketahuiOleh":   {"type": "keyword"},
      "diPeriksaOleh":   {"type": "keyword"},
      "periodeInspeksi": {"type": "keyword"},
      "createdAt":       {"type": "date"},
      "recordIds":       {"type": "keyword"},
      "summary": {
        "properties": {
          "total":      {"type": "integer"},
          "layak":      {"type": "integer"},
          "tidakLayak": {"type": "integer"},
          "photos":     {"type": "integer"}
        }
      },
      "units": {
        "type": "nested",
        "properties": {
          "no":         {"type": "integer"},
          "id":         {"type": "integer"},
          "tag":        {"type": "keyword"},
          "kondisi":    {"type": "keyword"},
          "keterangan": {"type": "text"}
        }
      }
    }
  }
}`

// ArchiveExporter indexes reports into Elasticsearch, one document per report.
type ArchiveExporter struct {
	client *elasticsearch.Client
	index  string
}

func NewArchiveExporter(client *elasticsearch.Client, index string) *ArchiveExporter {
	return &ArchiveExporter{client: client, index: index}
}

func (e *ArchiveExporter) Name() string { return "archive" }

// Export stores r without embedded images and returns "<index>/<id>".
func (e *ArchiveExporter) Export(ctx context.Context, r *Report) (string, error) {
	body, err := json.Marshal(r.Compact())
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(r.ID),
	)
	if err != nil {
		return "", fmt.Errorf("index report: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("index report: %s", res.Status())
	}
	return e.index + "/" + r.ID, nil
}

// Fetch reads an archived report back by id.
func (e *ArchiveExporter) Fetch(ctx context.Context, id string) (*Report, error) {
	res, err := e.client.Get(e.index, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("get report %s: %s", id, res.Status())
	}

	var doc struct {
		Source Report `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &doc.Source, nil
}
