package es

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shop_api/internal/logging"
)

type Options struct {
	URL      string
	Username string
	Password string
	// Transport is swapped in tests.
	Transport http.RoundTripper
}

// NewClient connects and checks the cluster answers before returning.
func NewClient(ctx context.Context, opts Options) (*elasticsearch.Client, error) {
	l := logging.FromContext(ctx).With("component", "elasticsearch", "url", opts.URL)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{opts.URL},
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: opts.Transport,
	})
	if err != nil {
		l.Error("es_client_failed", "error", err)
		return nil, fmt.Errorf("es: create client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		l.Error("es_info_failed", "error", err)
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		l.Error("es_info_failed", "status", res.StatusCode, "body", string(body))
		return nil, fmt.Errorf("es: info: %s", res.Status())
	}

	l.Info("es_connected")
	return client, nil
}
