package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokerroom/internal/models/modelhand"
	"pokerroom/internal/models/modelqueue"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"registered maps to new", "REGISTERED", modelhand.StatusNew},
		{"new", modelhand.StatusNew, modelhand.StatusNew},
		{"playing", modelhand.StatusPlaying, modelhand.StatusPlaying},
		{"finished", modelhand.StatusFinished, modelhand.StatusFinished},
		{"void", modelhand.StatusVoid, modelhand.StatusVoid},
		{"unknown falls back to new", "SHUFFLING", modelhand.StatusNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.status))
		})
	}
}

func TestIsFinalStatus(t *testing.T) {
	assert.True(t, IsFinalStatus(modelhand.StatusFinished))
	assert.True(t, IsFinalStatus(modelhand.StatusVoid))
	assert.False(t, IsFinalStatus(modelhand.StatusNew))
	assert.False(t, IsFinalStatus(modelhand.StatusPlaying))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 60*time.Second, ParseRetryAfter("60"))
	assert.Equal(t, time.Minute, ParseRetryAfter(""))
	assert.Equal(t, time.Minute, ParseRetryAfter("soon"))
	assert.Equal(t, time.Minute, ParseRetryAfter("-5"))
}

// httpFeeder is a HandFeeder backed by a test server.
type httpFeeder struct {
	client  *resty.Client
	feedURL string
}

func (f *httpFeeder) GetHandResult(ctx context.Context, handSerial int64) (*resty.Response, error) {
	return f.client.R().SetContext(ctx).SetPathParams(map[string]string{
		"handSerial": strconv.FormatInt(handSerial, 10),
	}).Get(f.feedURL + "/api/hands/{handSerial}")
}

func newTestWorker(ctx context.Context, feedURL string, retryNumber int) (*HandFeedWorker, chan modelqueue.HandQueueEntry, chan modelqueue.HandResultEntry) {
	log := zerolog.Nop()
	queueIn := make(chan modelqueue.HandQueueEntry, 10)
	queueOut := make(chan modelqueue.HandResultEntry, 10)
	w := &HandFeedWorker{
		ID:          0,
		ctx:         ctx,
		log:         &log,
		queueIn:     queueIn,
		queueOut:    queueOut,
		client:      &httpFeeder{client: resty.New(), feedURL: feedURL},
		retryNumber: retryNumber,
		cooldown:    10 * time.Millisecond,
	}
	return w, queueIn, queueOut
}

func waitForResult(t *testing.T, queueOut chan modelqueue.HandResultEntry) modelqueue.HandResultEntry {
	select {
	case entry := <-queueOut:
		return entry
	case <-time.After(3 * time.Second):
		t.Fatal("no settlement entry arrived in time")
		return modelqueue.HandResultEntry{}
	}
}

func TestWorkerSettlesFinishedHand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"hand": 1234, "status": "FINISHED", "participants": [{"user": 1, "pot": "150"}, {"user": 2, "pot": "-150"}]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, queueIn, queueOut := newTestWorker(ctx, srv.URL, 3)
	go w.processAsync()

	queueIn <- modelqueue.HandQueueEntry{
		HandSerial:  1234,
		HandStatus:  modelhand.StatusNew,
		LastChecked: time.Now().Add(-time.Minute),
	}

	entry := waitForResult(t, queueOut)
	assert.Equal(t, int64(1234), entry.HandSerial)
	assert.Equal(t, modelhand.StatusFinished, entry.HandStatus)
	require.Len(t, entry.Participants, 2)
	assert.Equal(t, int64(1), entry.Participants[0].UserSerial)
	assert.True(t, entry.Participants[0].Pot.IsPositive())
	assert.True(t, entry.Participants[1].Pot.IsNegative())
}

func TestWorkerRequeuesIntermediateStatus(t *testing.T) {
	// the feed reports PLAYING first and FINISHED on the next poll
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if atomic.AddInt32(&polls, 1) == 1 {
			w.Write([]byte(`{"hand": 1234, "status": "PLAYING"}`))
			return
		}
		w.Write([]byte(`{"hand": 1234, "status": "FINISHED", "participants": [{"user": 1, "pot": "150"}]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, queueIn, queueOut := newTestWorker(ctx, srv.URL, 3)
	go w.processAsync()

	queueIn <- modelqueue.HandQueueEntry{
		HandSerial:  1234,
		HandStatus:  modelhand.StatusNew,
		LastChecked: time.Now().Add(-time.Minute),
	}

	// the intermediate update is settled and the hand stays queued until final
	entry := waitForResult(t, queueOut)
	assert.Equal(t, modelhand.StatusPlaying, entry.HandStatus)
	assert.Empty(t, entry.Participants)

	entry = waitForResult(t, queueOut)
	assert.Equal(t, modelhand.StatusFinished, entry.HandStatus)
	require.Len(t, entry.Participants, 1)
}

func TestWorkerAbandonsAfterRetryLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, queueIn, queueOut := newTestWorker(ctx, srv.URL, 0)
	go w.processAsync()

	queueIn <- modelqueue.HandQueueEntry{
		HandSerial:  1234,
		HandStatus:  modelhand.StatusPlaying,
		LastChecked: time.Now().Add(-time.Minute),
	}

	// with a zero retry budget the last known status goes straight to settlement
	entry := waitForResult(t, queueOut)
	assert.Equal(t, int64(1234), entry.HandSerial)
	assert.Equal(t, modelhand.StatusPlaying, entry.HandStatus)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, _, _ := newTestWorker(ctx, "http://localhost:0", 3)
	done := make(chan error, 1)
	go func() {
		done <- w.processAsync()
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
