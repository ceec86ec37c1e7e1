package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Search mode values understood by the answer-generation service.
const (
	SearchModeDirect = "direct"
	SearchModeDeep   = "deepsearch"
)

// DefaultNamespace is the subject-matter partition used when the caller has
// not selected a specific one.
const DefaultNamespace = "default"

// FallbackAnswer substitutes a response whose answer field came back empty.
const FallbackAnswer = "Sorry, I couldn't generate a response."

// Provider defines the interface for the external answer-generation service.
type Provider interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
}

// QueryRequest carries one user query to the answer service.
type QueryRequest struct {
	Query      string `json:"query"`
	Namespace  string `json:"namespace"`
	SearchMode string `json:"search_mode"`
	UserID     string `json:"userId,omitempty"`
}

// QueryResponse is the answer service's reply.
type QueryResponse struct {
	Answer         string     `json:"answer"`
	Sources        SourceList `json:"sources"`
	QueryID        string     `json:"query_id"`
	ProcessingTime float64    `json:"processing_time"`
	SearchMode     string     `json:"search_mode"`
}

// SourceList accepts the two shapes the service has been observed to send:
// a JSON array of strings or a single pre-joined string.
type SourceList []string

func (s *SourceList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("sources is neither a list nor a string: %s", string(data))
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = []string{single}
	return nil
}

// Join flattens the sources into the newline-separated form stored on a
// message.
func (s SourceList) Join() string {
	return strings.Join(s, "\n")
}

type client struct {
	http *http.Client
	url  string
}

// NewClient builds a Provider talking to the answer service at the given
// base URL. Timeouts are left to the caller's context: deep search queries
// can legitimately run for minutes.
func NewClient(url string) Provider {
	return &client{
		http: &http.Client{},
		url:  strings.TrimRight(url, "/"),
	}
}

func (c *client) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if req.Namespace == "" {
		req.Namespace = DefaultNamespace
	}
	if req.SearchMode == "" {
		req.SearchMode = SearchModeDirect
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal query request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/query", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("answer service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("answer service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var queryResp QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("could not decode answer service response: %w", err)
	}
	if queryResp.Answer == "" {
		queryResp.Answer = FallbackAnswer
	}
	if queryResp.SearchMode == "" {
		queryResp.SearchMode = req.SearchMode
	}
	return &queryResp, nil
}
