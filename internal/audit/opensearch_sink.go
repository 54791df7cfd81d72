package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/shopmate/sentinel/internal/security"
	"github.com/valyala/bytebufferpool"
)

const defaultOpensearchIndex = "security-events"

// OpenSearchSink ships batches to an external SIEM via the OpenSearch bulk
// API. It is the "external" sink of the flush fan-out.
type OpenSearchSink struct {
	client *opensearch.Client
	index  string
}

func NewOpenSearchSink(addresses []string, index string, apiKey string) (*OpenSearchSink, error) {
	if index == "" {
		index = defaultOpensearchIndex
	}
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "ApiKey "+apiKey)
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     addresses,
		Header:        header,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		MaxRetries: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &OpenSearchSink{client: client, index: index}, nil
}

func (s *OpenSearchSink) Name() string { return "external" }

func (s *OpenSearchSink) WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, event := range batch {
		doc, err := json.Marshal(event)
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, `{"index":{"_index":%q,"_id":%q}}`, s.index, event.ID)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{
		Index: s.index,
		Body:  bytes.NewReader(buf.Bytes()),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk index rejected: %s, body: %s", res.Status(), string(body))
	}
	return nil
}
