// Package broker implements the worker pool polling the hand feed for results
// of queued hands and forwarding final results for settlement.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pokerroom/internal/models/modeldto"
	"pokerroom/internal/models/modelhand"
	"pokerroom/internal/models/modelqueue"
)

const pollCooldown = 10 * time.Second

// HandFeeder abstracts the hand feed client.
type HandFeeder interface {
	GetHandResult(ctx context.Context, handSerial int64) (*resty.Response, error)
}

type Broker struct {
	ctx          context.Context
	log          *zerolog.Logger
	queueIn      chan modelqueue.HandQueueEntry
	queueOut     chan modelqueue.HandResultEntry
	wg           *sync.WaitGroup
	client       HandFeeder
	workerNumber int
	retryNumber  int
}

type HandFeedWorker struct {
	ID          int
	ctx         context.Context
	log         *zerolog.Logger
	queueIn     chan modelqueue.HandQueueEntry
	queueOut    chan modelqueue.HandResultEntry
	client      HandFeeder
	retryNumber int
	cooldown    time.Duration
}

func InitBroker(ctx context.Context, queueIn chan modelqueue.HandQueueEntry, queueOut chan modelqueue.HandResultEntry, log *zerolog.Logger, wg *sync.WaitGroup, client HandFeeder, workerNumber, retryNumber int) *Broker {
	broker := Broker{
		ctx:          ctx,
		log:          log,
		queueIn:      queueIn,
		queueOut:     queueOut,
		wg:           wg,
		client:       client,
		workerNumber: workerNumber,
		retryNumber:  retryNumber,
	}
	return &broker
}

// ListenAndProcess starts the worker pool. Queues are closed only after every
// worker has returned, so workers may requeue without racing the close.
func (b *Broker) ListenAndProcess() {
	b.wg.Add(1)
	go func() {
		b.log.Info().Msg("started listening to queue for unsettled hands")
		defer b.wg.Done()
		g, _ := errgroup.WithContext(b.ctx)
		for i := 0; i < b.workerNumber; i++ {
			w := &HandFeedWorker{ID: i, ctx: b.ctx, queueIn: b.queueIn, queueOut: b.queueOut, log: b.log, client: b.client, retryNumber: b.retryNumber, cooldown: pollCooldown}
			g.Go(w.processAsync)
		}
		<-b.ctx.Done()
		err := g.Wait()
		if err != nil {
			b.log.Error().Err(err).Msg("closing errgroup failed")
		}
		close(b.queueIn)
		b.log.Info().Msg("closed queue for unsettled hands")
		close(b.queueOut)
		b.log.Info().Msg("closed queue for settled hands")
		b.log.Info().Msg("stopped listening to queue for unsettled hands")
	}()
}

func (w *HandFeedWorker) processAsync() error {
	for {
		var record modelqueue.HandQueueEntry
		var ok bool
		select {
		case <-w.ctx.Done():
			return nil
		case record, ok = <-w.queueIn:
			if !ok {
				return nil
			}
		}

		// wait out the cooldown before querying the same hand again,
		// breaking out upon ctx.Done()
		cooldown := record.RetryAfter
		if cooldown == 0 {
			cooldown = w.cooldown
		}
		if !w.sleep(cooldown - time.Since(record.LastChecked)) {
			return nil
		}

		response, err := w.client.GetHandResult(w.ctx, record.HandSerial)
		if err != nil {
			if !w.requeueOrAbandon(record) {
				return nil
			}
			continue
		}

		switch response.StatusCode() {
		case http.StatusOK:
			var result modeldto.HandFeedResult
			err = json.Unmarshal(response.Body(), &result)
			if err != nil {
				w.log.Warn().Err(err).Msg(fmt.Sprintf("WID %v, hand %v — malformed feed response", w.ID, record.HandSerial))
				if !w.requeueOrAbandon(record) {
					return nil
				}
				continue
			}
			newStatus := NormalizeStatus(result.Status)
			if newStatus == record.HandStatus {
				w.log.Info().Msg(fmt.Sprintf("WID %v, hand %v — no updates, sending back to queue", w.ID, record.HandSerial))
				record.LastChecked = time.Now()
				record.RetryAfter = 0
				if !w.requeue(record) {
					return nil
				}
				continue
			}
			// a status update was found, send it for DB settlement
			w.log.Info().Msg(fmt.Sprintf("WID %v, hand %v — updated to %s, sending to DB", w.ID, record.HandSerial, newStatus))
			finalRecord := modelqueue.HandResultEntry{
				HandSerial: record.HandSerial,
				HandStatus: newStatus,
			}
			for _, participant := range result.Participants {
				finalRecord.Participants = append(finalRecord.Participants, modelqueue.HandResultParticipant{
					UserSerial: participant.User,
					Pot:        participant.Pot,
				})
			}
			if !w.settle(finalRecord) {
				return nil
			}
			// non-final updates go back to the queue
			if !IsFinalStatus(newStatus) {
				w.log.Info().Msg(fmt.Sprintf("WID %v, hand %v — update is not final, sending back to queue", w.ID, record.HandSerial))
				record.HandStatus = newStatus
				record.LastChecked = time.Now()
				record.RetryAfter = 0
				if !w.requeue(record) {
					return nil
				}
			}
		case http.StatusTooManyRequests:
			w.log.Warn().Msg(fmt.Sprintf("WID %v, hand %v — feed is throttling, backing off", w.ID, record.HandSerial))
			record.LastChecked = time.Now()
			record.RetryAfter = ParseRetryAfter(response.Header().Get("Retry-After"))
			if !w.requeue(record) {
				return nil
			}
		default:
			w.log.Warn().Msg(fmt.Sprintf("WID %v, hand %v — feed responded with status %v", w.ID, record.HandSerial, response.StatusCode()))
			if !w.requeueOrAbandon(record) {
				return nil
			}
		}
	}
}

// sleep waits for d unless the context is cancelled first.
func (w *HandFeedWorker) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-w.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// requeue puts a record back to the in-queue; false means shutdown.
func (w *HandFeedWorker) requeue(record modelqueue.HandQueueEntry) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.queueIn <- record:
		return true
	}
}

// settle forwards a result to the settlement queue; false means shutdown.
func (w *HandFeedWorker) settle(entry modelqueue.HandResultEntry) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.queueOut <- entry:
		return true
	}
}

// requeueOrAbandon puts a failed record back to the queue with an incremented
// retry count, or forwards its last known status for settlement once the retry
// limit is exceeded. False means shutdown.
func (w *HandFeedWorker) requeueOrAbandon(record modelqueue.HandQueueEntry) bool {
	if record.RetryCount >= w.retryNumber {
		w.log.Warn().Msg(fmt.Sprintf("WID %v, hand %v — abandonment due to retry limit exceeding", w.ID, record.HandSerial))
		return w.settle(modelqueue.HandResultEntry{
			HandSerial: record.HandSerial,
			HandStatus: record.HandStatus,
		})
	}
	w.log.Warn().Msg(fmt.Sprintf("WID %v, hand %v — could not process, sending back to queue", w.ID, record.HandSerial))
	record.RetryCount += 1
	record.LastChecked = time.Now()
	record.RetryAfter = 0
	return w.requeue(record)
}

// NormalizeStatus maps feed statuses onto the stored hand lifecycle.
func NormalizeStatus(status string) string {
	statusMap := map[string]string{
		"REGISTERED":             modelhand.StatusNew,
		modelhand.StatusNew:      modelhand.StatusNew,
		modelhand.StatusPlaying:  modelhand.StatusPlaying,
		modelhand.StatusFinished: modelhand.StatusFinished,
		modelhand.StatusVoid:     modelhand.StatusVoid,
	}
	normalized, ok := statusMap[status]
	if !ok {
		return modelhand.StatusNew
	}
	return normalized
}

// IsFinalStatus reports whether a hand status terminates polling.
func IsFinalStatus(status string) bool {
	return status == modelhand.StatusFinished || status == modelhand.StatusVoid
}

// ParseRetryAfter interprets a Retry-After header value in seconds, falling
// back to one minute when absent or malformed.
func ParseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return time.Minute
	}
	return time.Duration(seconds) * time.Second
}
