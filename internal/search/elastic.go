package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"

	"github.com/Skotchmaster/shop_api/internal/models"
)

type ElasticIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewElasticIndex(es *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{ES: es, Index: index}
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func responseError(op string, status int, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 4096))
	return fmt.Errorf("es: %s: status %d: %s", op, status, bytes.TrimSpace(msg))
}

func (i *ElasticIndex) IndexProduct(ctx context.Context, prod *models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(prod); err != nil {
		return fmt.Errorf("es: encode product: %w", err)
	}

	res, err := i.ES.Index(i.Index, &buf,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(docID(prod.ID)),
		i.ES.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", res.StatusCode, res.Body)
	}
	return nil
}

// IndexProducts writes prods through the bulk API and returns how many
// documents the cluster accepted.
func (i *ElasticIndex) IndexProducts(ctx context.Context, prods []models.Product) (int, error) {
	if len(prods) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		flushErr error
	)
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     i.ES,
		Index:      i.Index,
		NumWorkers: 1,
		Refresh:    "true",
		OnError: func(_ context.Context, err error) {
			mu.Lock()
			if flushErr == nil {
				flushErr = err
			}
			mu.Unlock()
		},
	})
	if err != nil {
		return 0, fmt.Errorf("es: bulk indexer: %w", err)
	}

	var indexed, failed atomic.Int64
	for n := range prods {
		doc, err := json.Marshal(&prods[n])
		if err != nil {
			_ = bi.Close(ctx)
			return int(indexed.Load()), fmt.Errorf("es: encode product %d: %w", prods[n].ID, err)
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: docID(prods[n].ID),
			Body:       bytes.NewReader(doc),
			OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
				indexed.Add(1)
			},
			OnFailure: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem, error) {
				failed.Add(1)
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return int(indexed.Load()), fmt.Errorf("es: bulk add: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return int(indexed.Load()), fmt.Errorf("es: bulk close: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if flushErr != nil {
		return int(indexed.Load()), fmt.Errorf("es: bulk: %w", flushErr)
	}
	if n := failed.Load(); n > 0 {
		return int(indexed.Load()), fmt.Errorf("es: bulk: %d of %d documents rejected", n, len(prods))
	}
	return int(indexed.Load()), nil
}

// RemoveProduct treats a missing document as already removed.
func (i *ElasticIndex) RemoveProduct(ctx context.Context, id uint) error {
	res, err := i.ES.Delete(i.Index, docID(id),
		i.ES.Delete.WithContext(ctx),
		i.ES.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: delete: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res.StatusCode, res.Body)
	}
	return nil
}

func (i *ElasticIndex) SearchProducts(ctx context.Context, q string, limit int) ([]models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()

	// A fresh cluster has no index until the first product is written.
	if res.StatusCode == http.StatusNotFound {
		return make([]models.Product, 0), nil
	}
	if res.IsError() {
		return nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("es: decode search: %w", err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		prods[n] = hit.Source
	}
	return prods, nil
}
