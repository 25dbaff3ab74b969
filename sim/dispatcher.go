// Dispatches a slot's intents over two bounded worker pools: a light pool
// for service-only bookkeeping actions and a heavy pool for anything that
// needs language-model inference. The heavy pool width models fractional
// accelerator sharing; intents past its queue depth are shed up front.

package sim

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ysocial-sim/ysocial-sim/sim/trace"
)

// maxLightAttempts bounds retries for idempotent light actions. The first
// attempt plus two retries.
const maxLightAttempts = 3

// Result is the outcome of executing (or shedding) one intent.
type Result struct {
	Intent   *Intent
	Status   trace.Status
	Err      error
	Duration time.Duration
	Attempts int
	Effects  Effects
}

// Record converts the result to its telemetry form.
func (r *Result) Record() trace.ActionRecord {
	rec := trace.ActionRecord{
		ActorID:   r.Intent.Actor.ID,
		ActorName: r.Intent.Actor.Name,
		Kind:      r.Intent.Kind.String(),
		Slot:      r.Intent.Slot,
		Day:       r.Intent.Day,
		Status:    r.Status,
		Duration:  r.Duration,
		Attempts:  r.Attempts,
	}
	if r.Err != nil {
		rec.Err = r.Err.Error()
	}
	return rec
}

// Dispatcher runs a slot's intents under the configured resource budget.
type Dispatcher struct {
	exec *Executor
	log  *logrus.Entry

	sequential      bool
	lightWorkers    int
	heavySlots      int
	heavyQueueDepth int
	timeout         time.Duration

	heavyInFlight atomic.Int64
	heavyPeak     atomic.Int64
}

// NewDispatcher builds a dispatcher from the resource configuration.
// lightWorkers and heavySlots must already be resolved (positive).
func NewDispatcher(exec *Executor, cfg ResourcesConfig, lightWorkers, heavySlots int, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		exec:            exec,
		log:             log,
		sequential:      cfg.Mode == ResourceModeSequential,
		lightWorkers:    lightWorkers,
		heavySlots:      heavySlots,
		heavyQueueDepth: cfg.HeavyQueueDepth,
		timeout:         time.Duration(cfg.ActionTimeout),
	}
}

// HeavyPeak reports the highest number of heavy intents that were ever in
// flight at once. Used by the summary and by concurrency tests.
func (d *Dispatcher) HeavyPeak() int64 {
	return d.heavyPeak.Load()
}

// Dispatch executes all intents for one slot and returns their results
// ordered by actor id. Both modes return the same result set for the same
// intents: execution randomness comes only from each intent's own seed.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []*Intent) []Result {
	var light, heavy []*Intent
	for _, in := range intents {
		if in.Kind.Resource() == ResourceHeavy {
			heavy = append(heavy, in)
		} else {
			light = append(light, in)
		}
	}

	admitted, shed := d.admit(heavy)
	results := make([]Result, 0, len(intents))
	for _, in := range shed {
		d.log.WithFields(logrus.Fields{"actor": in.Actor.ID, "action": in.Kind.String()}).
			Debug("heavy queue full, shedding intent")
		results = append(results, Result{Intent: in, Status: trace.StatusSkipped})
	}

	if d.sequential {
		for _, in := range light {
			results = append(results, d.run(ctx, in))
		}
		for _, in := range admitted {
			results = append(results, d.run(ctx, in))
		}
	} else {
		out := make(chan Result, len(light)+len(admitted))
		var wg sync.WaitGroup
		d.pool(ctx, &wg, light, d.lightWorkers, out)
		d.pool(ctx, &wg, admitted, d.heavySlots, out)
		wg.Wait()
		close(out)
		for r := range out {
			results = append(results, r)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Intent.Actor.ID < results[j].Intent.Actor.ID
	})
	return results
}

// admit keeps at most heavySlots+heavyQueueDepth heavy intents, in intent
// order, and sheds the rest.
func (d *Dispatcher) admit(heavy []*Intent) (admitted, shed []*Intent) {
	capacity := d.heavySlots + d.heavyQueueDepth
	if len(heavy) <= capacity {
		return heavy, nil
	}
	return heavy[:capacity], heavy[capacity:]
}

func (d *Dispatcher) pool(ctx context.Context, wg *sync.WaitGroup, intents []*Intent, workers int, out chan<- Result) {
	if len(intents) == 0 {
		return
	}
	if workers > len(intents) {
		workers = len(intents)
	}
	queue := make(chan *Intent)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range queue {
				out <- d.run(ctx, in)
			}
		}()
	}
	go func() {
		for _, in := range intents {
			queue <- in
		}
		close(queue)
	}()
}

// run executes one intent with its own RNG, timeout and retry budget.
func (d *Dispatcher) run(ctx context.Context, in *Intent) Result {
	heavy := in.Kind.Resource() == ResourceHeavy
	if heavy {
		cur := d.heavyInFlight.Add(1)
		for {
			peak := d.heavyPeak.Load()
			if cur <= peak || d.heavyPeak.CompareAndSwap(peak, cur) {
				break
			}
		}
		defer d.heavyInFlight.Add(-1)
	}

	attempts := maxLightAttempts
	if !in.Kind.Retryable() {
		attempts = 1
	}

	rng := rand.New(rand.NewSource(in.Seed))
	start := time.Now()
	var (
		effects Effects
		err     error
	)
	tries := 0
	for tries < attempts {
		tries++
		effects, err = d.runOnce(ctx, rng, in)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	elapsed := time.Since(start)

	res := Result{Intent: in, Duration: elapsed, Attempts: tries, Effects: effects}
	if err != nil {
		res.Status = trace.StatusFailed
		res.Err = err
		d.log.WithFields(logrus.Fields{
			"actor":    in.Actor.ID,
			"action":   in.Kind.String(),
			"attempts": tries,
		}).WithError(err).Debug("action failed")
	} else {
		res.Status = trace.StatusOK
	}
	return res
}

func (d *Dispatcher) runOnce(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.exec.Execute(ctx, rng, in)
}
