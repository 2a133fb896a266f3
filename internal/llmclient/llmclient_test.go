package llmclient

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMustSchemaValidatesShape(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustSchema should panic on a schema missing properties")
		}
	}()
	MustSchema(`{"type":"object"}`)
}

func TestMustSchemaAccepts(t *testing.T) {
	schema := MustSchema(`{"type":"object","properties":{"items":{}}}`)
	if len(schema) == 0 {
		t.Fatal("MustSchema returned empty schema")
	}
}

func TestIsUnsupportedParamError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Unsupported parameter: 'text.format'", true},
		{"Unknown parameter: response_format", true},
		{"rate limited", false},
	}
	for _, tt := range tests {
		got := isUnsupportedParamError(errString(tt.msg))
		if got != tt.want {
			t.Errorf("isUnsupportedParamError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestMockServiceCompleteParsesItems(t *testing.T) {
	svc := NewMockService(0)
	user := "id: item-1\nmode: create\nname: foo\n---\nid: item-2\nmode: rewrite\nname: Bar\n"
	resp, err := svc.Complete(context.Background(), Request{User: user, Schema: []byte(`{"type":"object","properties":{}}`)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Content, `"id":"item-1"`) || !strings.Contains(resp.Content, `"id":"item-2"`) {
		t.Errorf("Content = %s", resp.Content)
	}
}

type fakeService struct {
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeService) TokenContextWindow() int { return 1000 }

func (f *fakeService) Complete(ctx context.Context, req Request) (*Response, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, n) {
			break
		}
	}
	time.Sleep(f.delay)
	atomic.AddInt32(&f.inFlight, -1)
	return &Response{Content: "{}"}, nil
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	svc := &fakeService{delay: 20 * time.Millisecond}
	var jobs []BatchJob
	for i := 0; i < 10; i++ {
		jobs = append(jobs, BatchJob{Request: Request{BatchIndex: i}})
	}
	outcomes := Dispatch(context.Background(), svc, jobs, 3, time.Second)
	if len(outcomes) != 10 {
		t.Fatalf("got %d outcomes, want 10", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("batch %d errored: %v", o.BatchIndex, o.Err)
		}
	}
	if svc.maxSeen > 3 {
		t.Errorf("max concurrent = %d, want <= 3", svc.maxSeen)
	}
}

type failingService struct{}

func (failingService) TokenContextWindow() int { return 1000 }
func (failingService) Complete(ctx context.Context, req Request) (*Response, error) {
	return nil, &LlmClientError{Retryable: false, Err: errString("boom")}
}

func TestDispatchContinuesPastFailure(t *testing.T) {
	outcomes := Dispatch(context.Background(), failingService{}, []BatchJob{{Request: Request{BatchIndex: 0}}}, 1, time.Second)
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("got %+v", outcomes)
	}
}
