// Package client talks to the OpenSearch cluster: index mappings for the
// field resolver and the rollup plugin's job endpoint.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/config"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
)

const defaultRollupPath = "/_plugins/_rollup/jobs"

// ErrJobNotFound is returned by GetJob for an unknown id.
var ErrJobNotFound = errors.New("rollup job not found")

type OpenSearchClient struct {
	client     *opensearch.Client
	rollupPath string
	logger     *logging.Logger
}

// NewOpenSearchClient connects and pings the cluster.
func NewOpenSearchClient(cfg config.OpenSearchConfig, logger *logging.Logger) (*OpenSearchClient, error) {
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	path := cfg.RollupAPIPath
	if path == "" {
		path = defaultRollupPath
	}

	return &OpenSearchClient{
		client:     client,
		rollupPath: "/" + strings.Trim(path, "/"),
		logger:     logger,
	}, nil
}

func (c *OpenSearchClient) Client() *opensearch.Client {
	return c.client
}

// Ping checks that the cluster answers.
func (c *OpenSearchClient) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping opensearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping opensearch: %s", res.Status())
	}
	return nil
}

// errorBody is the OpenSearch error envelope. error is either an object
// or, from some plugin paths, a plain string.
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorDetail struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	RootCause []struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"root_cause"`
}

// parseError extracts type and reason from an error response body.
func parseError(body []byte) (typ, reason string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return "", strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(eb.Error, &s); err == nil {
		return "", s
	}
	var d errorDetail
	if err := json.Unmarshal(eb.Error, &d); err != nil {
		return "", string(eb.Error)
	}
	if d.Reason == "" && len(d.RootCause) > 0 {
		return d.RootCause[0].Type, d.RootCause[0].Reason
	}
	return d.Type, d.Reason
}

// GetMappings returns index name -> mapping for every index matching
// pattern. A pattern that matches nothing yields an empty map.
func (c *OpenSearchClient) GetMappings(ctx context.Context, pattern string) (map[string]fields.Mapping, error) {
	gm := c.client.Indices.GetMapping
	res, err := gm(
		gm.WithContext(ctx),
		gm.WithIndex(pattern),
		gm.WithAllowNoIndices(true),
		gm.WithIgnoreUnavailable(true),
		gm.WithExpandWildcards("open"),
	)
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %w", pattern, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read mapping response: %w", err)
	}

	if res.IsError() {
		typ, reason := parseError(body)
		if res.StatusCode == http.StatusNotFound && typ == "index_not_found_exception" {
			c.logger.DebugContext(ctx, "pattern matched no indices", logging.Pattern(pattern))
			return map[string]fields.Mapping{}, nil
		}
		return nil, fmt.Errorf("get mapping %s: %s: %s", pattern, res.Status(), reason)
	}

	return fields.ParseMappings(body)
}

func (c *OpenSearchClient) jobPath(id string) string {
	return c.rollupPath + "/" + url.PathEscape(id)
}

// PutJob creates the job, or updates it when cc is set.
func (c *OpenSearchClient) PutJob(ctx context.Context, id string, doc jobspec.Document, cc *jobspec.Concurrency) (jobspec.JobResponse, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return jobspec.JobResponse{}, fmt.Errorf("encode rollup job: %w", err)
	}

	path := c.jobPath(id)
	if cc != nil {
		q := url.Values{}
		q.Set("if_seq_no", strconv.FormatInt(cc.SeqNo, 10))
		q.Set("if_primary_term", strconv.FormatInt(cc.PrimaryTerm, 10))
		path += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return jobspec.JobResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Transport.Perform(httpReq)
	if err != nil {
		return jobspec.JobResponse{}, fmt.Errorf("put rollup job %s: %w", id, err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return jobspec.JobResponse{}, fmt.Errorf("read rollup job response: %w", err)
	}

	if res.StatusCode >= 400 {
		typ, reason := parseError(respBody)
		c.logger.WarnContext(ctx, "rollup job rejected",
			logging.JobID(id), logging.Status(res.StatusCode), "reason", reason)
		return jobspec.JobResponse{}, &jobspec.SubmissionError{Status: res.StatusCode, Type: typ, Reason: reason}
	}

	var out jobspec.JobResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return jobspec.JobResponse{}, fmt.Errorf("decode rollup job response: %w", err)
	}
	return out, nil
}

// GetJob loads a job for editing.
func (c *OpenSearchClient) GetJob(ctx context.Context, id string) (jobspec.Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobPath(id), nil)
	if err != nil {
		return jobspec.Job{}, err
	}

	res, err := c.client.Transport.Perform(httpReq)
	if err != nil {
		return jobspec.Job{}, fmt.Errorf("get rollup job %s: %w", id, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return jobspec.Job{}, fmt.Errorf("read rollup job response: %w", err)
	}

	if res.StatusCode == http.StatusNotFound {
		return jobspec.Job{}, fmt.Errorf("%s: %w", id, ErrJobNotFound)
	}
	if res.StatusCode >= 400 {
		_, reason := parseError(body)
		return jobspec.Job{}, fmt.Errorf("get rollup job %s: %d: %s", id, res.StatusCode, reason)
	}

	return jobspec.Decode(body)
}
