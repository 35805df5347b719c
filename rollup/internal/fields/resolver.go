package fields

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/metrics"
)

// MetadataClient fetches mappings for every concrete index matching a
// pattern. Zero matches must be an empty map with a nil error.
type MetadataClient interface {
	GetMappings(ctx context.Context, pattern string) (map[string]Mapping, error)
}

// RetrievalError is a failed metadata fetch. It is always retryable and is
// distinct from a pattern that matched nothing.
type RetrievalError struct {
	Pattern string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to load fields for %q: %v", e.Pattern, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Retryable reports that re-issuing the request may succeed.
func (e *RetrievalError) Retryable() bool { return true }

// Resolver computes the field compatibility set of a source pattern.
type Resolver struct {
	client MetadataClient
	logger *logging.Logger
}

// NewResolver creates a Resolver.
func NewResolver(client MetadataClient, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve returns the fields present with the same type in every index the
// pattern matches. It never patches previous results; callers re-run it on
// every pattern change.
func (r *Resolver) Resolve(ctx context.Context, pattern string) ([]FieldDescriptor, error) {
	if pattern == "" {
		return []FieldDescriptor{}, nil
	}

	start := time.Now()
	defer func() {
		metrics.FieldResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	mappings, err := r.client.GetMappings(ctx, pattern)
	if err != nil {
		metrics.FieldResolutions.WithLabelValues("error").Inc()
		r.logger.WarnContext(ctx, "field metadata fetch failed",
			logging.Pattern(pattern), logging.Error(err))
		return nil, &RetrievalError{Pattern: pattern, Err: err}
	}

	metrics.MatchedIndices.Observe(float64(len(mappings)))
	if len(mappings) == 0 {
		metrics.FieldResolutions.WithLabelValues("empty").Inc()
		r.logger.DebugContext(ctx, "pattern matched no indices", logging.Pattern(pattern))
		return []FieldDescriptor{}, nil
	}

	indices := make([]string, 0, len(mappings))
	for name := range mappings {
		indices = append(indices, name)
	}
	sort.Strings(indices)

	sets := make([][]FieldDescriptor, 0, len(indices))
	for _, name := range indices {
		sets = append(sets, Flatten(mappings[name]))
	}

	result := Intersect(sets...)
	if result == nil {
		result = []FieldDescriptor{}
	}

	metrics.FieldResolutions.WithLabelValues("ok").Inc()
	r.logger.DebugContext(ctx, "resolved field compatibility set",
		logging.Pattern(pattern),
		"indices", len(indices),
		"fields", len(result))

	return result, nil
}
