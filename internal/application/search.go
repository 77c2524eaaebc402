package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/internal/domain/entity"
)

// SearchIndex mirrors account records into Elasticsearch for roster search.
// All writes are best-effort: failures are logged and never surfaced, and a
// nil/unconfigured index degrades every method to a no-op.
type SearchIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewSearchIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *SearchIndex {
	return &SearchIndex{ES: es, Index: index, Logger: logger}
}

func (ix *SearchIndex) enabled() bool {
	return ix != nil && ix.ES != nil && ix.Index != ""
}

func (ix *SearchIndex) IndexAccount(ctx context.Context, a *entity.Account) {
	if !ix.enabled() {
		return
	}
	doc := map[string]any{
		"id":                a.ID,
		"email":             a.Email,
		"name":              a.Name,
		"status":            a.Status().String(),
		"registration_time": a.RegistrationTime.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: ix.Index, DocumentID: a.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, ix.ES)
	if err != nil {
		ix.logWarn(err, a.ID, "es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		ix.logWarn(nil, a.ID, "es index response error: "+res.Status())
	}
}

func (ix *SearchIndex) RemoveAccount(ctx context.Context, id string) {
	if !ix.enabled() {
		return
	}
	req := esapi.DeleteRequest{Index: ix.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, ix.ES)
	if err != nil {
		ix.logWarn(err, id, "es delete failed")
		return
	}
	_ = res.Body.Close()
}

// Search performs a multi_match query on email and name.
func (ix *SearchIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if !ix.enabled() {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(c),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (ix *SearchIndex) logWarn(err error, id, msg string) {
	if ix.Logger == nil {
		return
	}
	e := ix.Logger.WithField("account_id", id)
	if err != nil {
		e = e.WithError(err)
	}
	e.Warn(msg)
}
