package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/metrics"
)

type fakeRebuilder struct {
	calls int
	err   error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (*index.Index, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return index.Build(nil, index.WithEpoch(uint64(f.calls)))
}

func eventBytes(t *testing.T, ev ingestion.CatalogEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleRefreshRebuilds(t *testing.T) {
	rb := &fakeRebuilder{}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleRefresh(rb, m)

	ev := ingestion.CatalogEvent{EpisodeID: "ep1", Action: ingestion.ActionUpsert, PublishedAt: time.Now()}
	if err := handle(context.Background(), []byte("ep1"), eventBytes(t, ev)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rb.calls != 1 {
		t.Errorf("rebuilds = %d, want 1", rb.calls)
	}
	if got := testutil.ToFloat64(m.RefreshEventsTotal.WithLabelValues(ingestion.ActionUpsert)); got != 1 {
		t.Errorf("refresh events metric = %v", got)
	}
}

func TestHandleRefreshSkipsGarbage(t *testing.T) {
	rb := &fakeRebuilder{}
	if err := HandleRefresh(rb, nil)(context.Background(), nil, []byte("not json")); err != nil {
		t.Errorf("garbage event returned %v", err)
	}
	if rb.calls != 0 {
		t.Error("garbage event triggered a rebuild")
	}
}

func TestHandleRefreshErrors(t *testing.T) {
	ev := ingestion.CatalogEvent{Action: ingestion.ActionRefresh}

	bad := &fakeRebuilder{err: &index.LoadError{EpisodeID: "pilot", Field: "episode_id", Reason: "no numeral"}}
	if err := HandleRefresh(bad, nil)(context.Background(), nil, eventBytes(t, ev)); err != nil {
		t.Errorf("data error returned %v, want commit", err)
	}

	down := &fakeRebuilder{err: errors.New("connection refused")}
	if err := HandleRefresh(down, nil)(context.Background(), nil, eventBytes(t, ev)); err == nil {
		t.Error("source outage was swallowed")
	}
	if !errors.Is(bad.err, apperrors.ErrLoad) {
		t.Fatal("LoadError does not wrap ErrLoad")
	}
}
