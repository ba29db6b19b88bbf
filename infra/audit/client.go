package audit

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/majorphones/topup/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Client wraps the OpenSearch client used for the deposit audit trail
type Client struct {
	client *opensearch.Client
}

// NewClient creates a new OpenSearch audit client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // For development/testing
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	c := &Client{client: client}
	if err := c.ensureIndex(c.indexName()); err != nil {
		return nil, fmt.Errorf("audit: failed to set up index: %w", err)
	}

	return c, nil
}

// indexName returns the monthly attempts index
func (c *Client) indexName() string {
	return "topup-attempts-" + strings.ToLower(time.Now().Format("2006-01"))
}

func (c *Client) ensureIndex(name string) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{name}}
	res, err := exists.Do(context.Background(), c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"mappings": {
			"properties": {
				"timestamp":      {"type": "date"},
				"attempt_id":     {"type": "keyword"},
				"user_id":        {"type": "keyword"},
				"method":         {"type": "keyword"},
				"family":         {"type": "keyword"},
				"amount":         {"type": "double"},
				"outcome":        {"type": "keyword"},
				"message":        {"type": "text"},
				"processing_ms":  {"type": "long"}
			}
		}
	}`

	create := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  strings.NewReader(mapping),
	}
	createRes, err := create.Do(context.Background(), c.client)
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("audit: index create returned %s", createRes.Status())
	}

	return nil
}
