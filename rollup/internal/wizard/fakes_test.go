package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

// mappingClient serves canned mappings per pattern.
type mappingClient struct {
	byPattern map[string]map[string]fields.Mapping
	err       error
}

func (m *mappingClient) GetMappings(_ context.Context, pattern string) (map[string]fields.Mapping, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byPattern[pattern], nil
}

func mapping(kv ...string) fields.Mapping {
	m := fields.Mapping{Properties: map[string]fields.Property{}}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Properties[kv[i]] = fields.Property{Type: kv[i+1]}
	}
	return m
}

func salesClient() *mappingClient {
	return &mappingClient{byPattern: map[string]map[string]fields.Mapping{
		"sales-*": {
			"sales-2024": mapping("order_date", "date", "region", "keyword", "amount", "double", "quantity", "integer", "discount", "double", "coupon", "keyword"),
			"sales-2025": mapping("order_date", "date", "region", "keyword", "amount", "double", "quantity", "integer", "discount", "float", "channel", "keyword"),
		},
		"orders-*": {
			"orders-1": mapping("created_at", "date", "total", "float"),
		},
	}}
}

type putCall struct {
	id  string
	doc jobspec.Document
	cc  *jobspec.Concurrency
}

type fakeStore struct {
	mu    sync.Mutex
	calls []putCall
	err   error
	panic bool
}

func (f *fakeStore) PutJob(_ context.Context, id string, doc jobspec.Document, cc *jobspec.Concurrency) (jobspec.JobResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, putCall{id: id, doc: doc, cc: cc})
	if f.panic {
		panic("connection reset while encoding")
	}
	if f.err != nil {
		return jobspec.JobResponse{}, f.err
	}
	return jobspec.JobResponse{ID: id, Version: 1, SeqNo: 12, PrimaryTerm: 1, Rollup: doc.Rollup}, nil
}

type recordingObserver struct {
	subs []Submission
	err  error
}

func (r *recordingObserver) ObserveSubmission(_ context.Context, sub Submission) error {
	r.subs = append(r.subs, sub)
	return r.err
}

var errBoom = errors.New("boom")

const fixedNow = 1709258400000

type harness struct {
	c        *Controller
	store    *fakeStore
	reporter *RecordingReporter
	observer *recordingObserver
}

func newHarness(client fields.MetadataClient) *harness {
	h := &harness{store: &fakeStore{}, reporter: &RecordingReporter{}, observer: &recordingObserver{}}
	h.c = New(fields.NewResolver(client, logging.Discard()), h.store, h.options())
	return h
}

func (h *harness) options() Options {
	return Options{
		SessionID:  "session-1",
		Normalizer: schedule.NewNormalizer(func() time.Time { return time.UnixMilli(fixedNow) }),
		Reporter:   h.reporter,
		Logger:     logging.Discard(),
		Observers:  []SubmitObserver{h.observer},
	}
}

// source sets the pattern and applies its resolution synchronously.
func (h *harness) source(pattern string) {
	req, err := h.c.SetSourceIndex(pattern)
	if err != nil {
		panic(err)
	}
	h.c.ApplyFields(context.Background(), h.c.Resolve(context.Background(), req))
}
