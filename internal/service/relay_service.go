package service

import (
	"context"
	"fmt"
	"strings"

	"askcampus/backend/internal/assistant"
	app_errors "askcampus/backend/internal/errors"
)

// RelayService forwards chat queries to the answer provider. The gateway
// adds no conversation state of its own here; it validates, fills defaults
// and passes the query through.
type RelayService struct {
	provider         assistant.Provider
	defaultNamespace string
}

func NewRelayService(provider assistant.Provider, defaultNamespace string) *RelayService {
	if defaultNamespace == "" {
		defaultNamespace = assistant.DefaultNamespace
	}
	return &RelayService{provider: provider, defaultNamespace: defaultNamespace}
}

func (s *RelayService) Query(ctx context.Context, req *assistant.QueryRequest) (*assistant.QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", app_errors.ErrValidation)
	}
	if req.Namespace == "" {
		req.Namespace = s.defaultNamespace
	}
	if req.SearchMode == "" {
		req.SearchMode = assistant.SearchModeDirect
	}
	resp, err := s.provider.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("answer provider failed: %w", err)
	}
	return resp, nil
}
