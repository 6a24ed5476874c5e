package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const (
	defaultAPIVersion = "2025-10"
	defaultControlURL = "https://api.pinecone.io"
	defaultQueryTopK  = 10
	maxErrorBody      = 4 << 10
)

// Client is the read side of a Pinecone index. The reindexing pipeline owns
// upserts.
type Client interface {
	DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
}

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string // control plane
	Timeout    time.Duration
}

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type QueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector,omitempty"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata,omitempty"`
}

type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Matches   []QueryMatch `json:"matches"`
	Namespace string       `json:"namespace"`
}

type restClient struct {
	log        *logger.Logger
	apiKey     string
	apiVersion string
	controlURL string
	hc         *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

// NewWithHTTPClient lets tests swap the transport.
func NewWithHTTPClient(log *logger.Logger, cfg Config, hc *http.Client) (Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("pinecone: API key required")
	}
	c := &restClient{
		log:        log.With("client", "Pinecone"),
		apiKey:     key,
		apiVersion: firstNonEmpty(cfg.APIVersion, defaultAPIVersion),
		controlURL: strings.TrimRight(firstNonEmpty(cfg.BaseURL, defaultControlURL), "/"),
		hc:         hc,
	}
	if c.hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.hc = &http.Client{Timeout: timeout}
	}
	return c, nil
}

func (c *restClient) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, opErr("describe_index", ErrorValidation, "index name required", nil)
	}
	var out IndexDescription
	if err := c.do(ctx, "describe_index", http.MethodGet, c.controlURL+"/indexes/"+indexName, nil, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, opErr("describe_index", ErrorDecodeFailed, "index has no host", nil)
	}
	return &out, nil
}

func (c *restClient) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	host = strings.TrimSpace(host)
	switch {
	case host == "":
		return nil, opErr("query", ErrorValidation, "host required", nil)
	case len(req.Vector) == 0:
		return nil, opErr("query", ErrorValidation, "query vector required", nil)
	}
	if req.TopK <= 0 {
		req.TopK = defaultQueryTopK
	}
	var out QueryResponse
	if err := c.do(ctx, "query", http.MethodPost, hostURL(host)+"/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveHost returns host when set, otherwise looks up the data-plane host
// of indexName.
func ResolveHost(ctx context.Context, c Client, host, indexName string) (string, error) {
	if h := strings.TrimSpace(host); h != "" {
		return h, nil
	}
	if strings.TrimSpace(indexName) == "" {
		return "", nil
	}
	desc, err := c.DescribeIndex(ctx, indexName)
	if err != nil {
		return "", err
	}
	return desc.Host, nil
}

func (c *restClient) do(ctx context.Context, op, method, url string, body, out any) error {
	ctx, span := otel.Tracer("jobassist/pinecone").Start(ctxutil.Default(ctx), "pinecone."+op)
	defer span.End()

	err := c.roundTrip(ctx, op, method, url, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		if oe, ok := err.(*OperationError); ok && oe.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.status_code", oe.StatusCode))
		}
	}
	return err
}

func (c *restClient) roundTrip(ctx context.Context, op, method, url string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return opErr(op, ErrorEncodeFailed, "", err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return opErr(op, ErrorValidation, "", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-Api-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return opErr(op, ErrorTimeout, "", err)
		}
		return opErr(op, ErrorTransportFailed, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := opErr(op, ErrorQueryFailed, strings.TrimSpace(string(raw)), nil)
		e.StatusCode = resp.StatusCode
		c.log.Debug("Pinecone request failed", "op", op, "status", resp.StatusCode)
		return e
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return opErr(op, ErrorDecodeFailed, "", err)
	}
	return nil
}

// hostURL accepts the bare index host Pinecone returns as well as a full URL.
func hostURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

func firstNonEmpty(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
