package delivery

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/dispatch"
	"github.com/CeeBeeEh/bvr-chirp/internal/history"
)

// Adapter delivers one alert to one destination. Implementations are called
// from a single worker goroutine, so they need no internal locking for the
// send path itself.
type Adapter interface {
	Name() string
	Process(ctx context.Context, a *alert.Alert) error
}

// Runner is implemented by adapters that need a long-running background loop
// (e.g. a sync loop accepting room invites) in addition to Process.
type Runner interface {
	Run(ctx context.Context) error
}

// Options tunes a worker.
type Options struct {
	// RatePerSec caps sends per second. 0 disables the limiter.
	RatePerSec int
	// SendTimeout bounds one Process call. 0 means no timeout.
	SendTimeout time.Duration
	// History, when non-nil, receives one record per delivery attempt.
	// Appends are best-effort; a history failure never fails a delivery.
	History *history.Store
}

// Worker drains a queue into an adapter. One worker per destination, so a
// slow or failing destination only ever backs up its own queue.
type Worker struct {
	adapter Adapter
	queue   *dispatch.Queue
	log     zerolog.Logger
	opts    Options
	limiter *rate.Limiter
}

func NewWorker(adapter Adapter, queue *dispatch.Queue, log zerolog.Logger, opts Options) *Worker {
	w := &Worker{
		adapter: adapter,
		queue:   queue,
		log:     log.With().Str("destination", adapter.Name()).Logger(),
		opts:    opts,
	}
	if opts.RatePerSec > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	return w
}

// Run consumes the queue until ctx is canceled. Delivery is best-effort: a
// failed attempt is logged and recorded, then the worker moves on to the next
// alert. On exit the queue is closed so the dispatcher stops routing here.
func (w *Worker) Run(ctx context.Context) error {
	defer w.queue.Close()
	w.log.Info().Msg("delivery worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("delivery worker stopped")
			return ctx.Err()
		case a := <-w.queue.C():
			if a == nil {
				continue
			}
			w.deliver(ctx, a)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, a *alert.Alert) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
	}

	sendCtx := ctx
	cancel := func() {}
	if w.opts.SendTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, w.opts.SendTimeout)
	}
	start := time.Now()
	err := w.adapter.Process(sendCtx, a)
	cancel()
	took := time.Since(start)

	if err != nil {
		w.log.Error().
			Err(err).
			Str("camera", a.CameraName).
			Dur("took", took).
			Msg("delivery failed")
	} else {
		w.log.Info().
			Str("camera", a.CameraName).
			Str("detections", a.Detections).
			Dur("took", took).
			Msg("alert delivered")
	}

	w.record(ctx, a, took, err)
}

func (w *Worker) record(ctx context.Context, a *alert.Alert, took time.Duration, sendErr error) {
	if w.opts.History == nil {
		return
	}
	rec := history.Record{
		Destination: w.adapter.Name(),
		Camera:      a.CameraName,
		Detections:  a.Detections,
		OK:          sendErr == nil,
		Took:        took,
	}
	if sendErr != nil {
		rec.Error = truncate(sendErr.Error(), 500)
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := w.opts.History.Append(hctx, rec); err != nil {
		w.log.Warn().Err(err).Msg("history append failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
