// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

type Repository interface {
	Index(ctx context.Context, entry Entry) error
	QueryByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
	QueryDenials(ctx context.Context, since time.Time, limit int) ([]Entry, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// Index writes one decision entry to the audit index.
func (r *ElasticsearchRepository) Index(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: uuid.New().String(),
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing audit entry: %s", res.String())
	}

	return nil
}

// QueryByUser returns the audit trail for one subject, newest first.
func (r *ElasticsearchRepository) QueryByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	query := map[string]interface{}{
		"from": offset,
		"size": limit,
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"subject_id": userID,
			},
		},
	}
	return r.search(ctx, query)
}

// QueryDenials returns denied decisions since the given time, newest first.
// A zero since is unbounded.
func (r *ElasticsearchRepository) QueryDenials(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	must := []interface{}{
		map[string]interface{}{
			"match": map[string]interface{}{
				"decision": "deny",
			},
		},
	}
	if !since.IsZero() {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": since.Format(time.RFC3339),
				},
			},
		})
	}

	query := map[string]interface{}{
		"size": limit,
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
	}
	return r.search(ctx, query)
}

func (r *ElasticsearchRepository) search(ctx context.Context, query map[string]interface{}) ([]Entry, error) {
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching audit entries: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	entries := make([]Entry, len(hits))
	for i, hit := range hits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &entries[i])
	}

	return entries, nil
}
