// Package orchestrator turns an edited selection into a submitted compute
// job and manages its lifecycle. At most one job is logically in flight:
// starting a new one first cancels and awaits the prior job. Video jobs
// that queue on the service are polled at a fixed interval for progress,
// ETA and stage until they reach a terminal state.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mirrorlab/mirrorkit/pkg/magicserver"
)

// Status is the client-side job state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status ends a job.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Stage names reported for states the service does not name itself.
const (
	StageDone      = "done"
	StageCancelled = "cancelled"
)

// Local validation failures, raised before any request is issued.
var (
	ErrNoRegions     = errors.New("no regions selected")
	ErrUnboundRegion = errors.New("region missing face source binding")
	ErrNoFaceSources = errors.New("face source pool is empty")
	ErrNoTargetFace  = errors.New("no target face selected")
	ErrNoInput       = errors.New("no input file")
)

// ErrSuperseded is returned when a response arrives for a job that has
// been cancelled or replaced. Late successes after cancellation are
// stale and must not surface as results.
var ErrSuperseded = errors.New("job superseded")

// Client is the slice of the compute-service client the orchestrator
// needs; *magicserver.Client satisfies it.
type Client interface {
	SubmitImage(ctx context.Context, req magicserver.TaskRequest) (string, error)
	SubmitVideo(ctx context.Context, req magicserver.VideoTaskRequest) (string, bool, error)
	VideoProgress(ctx context.Context, id int64) (magicserver.Progress, error)
	Cancel(ctx context.Context, id int64) (bool, error)
}

// Update is one observable snapshot of the current job. Err and Result
// are never both meaningfully populated.
type Update struct {
	JobID      int64
	Status     Status
	Progress   float64
	EtaSeconds float64
	Stage      string
	Result     string
	Err        string
}

// ImageSubmission is everything needed for a still-image job.
type ImageSubmission struct {
	InputPath   string
	TargetFace  string
	Regions     []magicserver.Region
	FaceSources []magicserver.FaceSource
}

// VideoSubmission is everything needed for a video job.
type VideoSubmission struct {
	InputPath   string
	TargetFace  string
	Regions     []magicserver.Region
	FaceSources []magicserver.FaceSource
	KeyFrameMs  int64
}

type job struct {
	id     int64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator owns the job lifecycle. Job ids are monotonic and never
// reused, which is what makes stale responses detectable.
type Orchestrator struct {
	client Client
	logger *slog.Logger
	poll   time.Duration

	// OnUpdate, when set before the first submission, observes every
	// state change including poll ticks.
	OnUpdate func(Update)

	mu      sync.Mutex
	nextID  int64
	current *job
	last    Update
}

// New creates an orchestrator polling queued video jobs every pollInterval.
func New(client Client, pollInterval time.Duration, logger *slog.Logger) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 400 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client: client,
		logger: logger,
		poll:   pollInterval,
		last:   Update{Status: StatusIdle},
	}
}

// Busy reports whether a job is currently in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil
}

// Snapshot returns the latest observable state.
func (o *Orchestrator) Snapshot() Update {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// SubmitImage runs a still-image swap as a single request/response. Any
// prior job is cancelled and awaited first.
func (o *Orchestrator) SubmitImage(ctx context.Context, sub ImageSubmission) (string, error) {
	if err := validate(sub.InputPath, sub.TargetFace, sub.Regions, sub.FaceSources); err != nil {
		return "", err
	}

	j := o.begin(ctx)
	o.publish(j.id, Update{JobID: j.id, Status: StatusSubmitting})

	result, err := o.client.SubmitImage(j.ctx, magicserver.TaskRequest{
		ID:          j.id,
		InputImage:  sub.InputPath,
		TargetFace:  sub.TargetFace,
		Regions:     sub.Regions,
		FaceSources: sub.FaceSources,
	})
	return o.settle(j, result, err)
}

// SubmitVideo runs a single-face video swap as one request/response. If
// the service queues it anyway, the poll loop takes over and the returned
// result is empty; observe completion through Wait or OnUpdate.
func (o *Orchestrator) SubmitVideo(ctx context.Context, sub VideoSubmission) (string, error) {
	if err := validate(sub.InputPath, sub.TargetFace, sub.Regions, sub.FaceSources); err != nil {
		return "", err
	}
	result, _, err := o.submitVideo(ctx, sub)
	if errors.Is(err, errQueued) {
		return "", nil
	}
	return result, err
}

// SubmitMultiFaceVideo starts a region-based video swap and returns the
// job id once the service accepts it. Progress arrives through OnUpdate
// and Wait; a prior job is cancelled and awaited first.
func (o *Orchestrator) SubmitMultiFaceVideo(ctx context.Context, sub VideoSubmission) (int64, error) {
	if len(sub.Regions) == 0 {
		return 0, ErrNoRegions
	}
	if err := validate(sub.InputPath, sub.TargetFace, sub.Regions, sub.FaceSources); err != nil {
		return 0, err
	}

	_, id, err := o.submitVideo(ctx, sub)
	if err != nil && !errors.Is(err, errQueued) {
		return 0, err
	}
	return id, nil
}

// errQueued is internal: submitVideo reports "queued, polling started"
// without treating it as a failure.
var errQueued = errors.New("queued")

func (o *Orchestrator) submitVideo(ctx context.Context, sub VideoSubmission) (string, int64, error) {
	j := o.begin(ctx)
	o.publish(j.id, Update{JobID: j.id, Status: StatusSubmitting})

	result, queued, err := o.client.SubmitVideo(j.ctx, magicserver.VideoTaskRequest{
		ID:          j.id,
		InputVideo:  sub.InputPath,
		TargetFace:  sub.TargetFace,
		Regions:     sub.Regions,
		FaceSources: sub.FaceSources,
		KeyFrameMs:  sub.KeyFrameMs,
	})
	if err == nil && queued {
		o.publish(j.id, Update{JobID: j.id, Status: StatusQueued})
		go o.pollLoop(j)
		return "", j.id, errQueued
	}
	result, err = o.settle(j, result, err)
	return result, j.id, err
}

// Cancel stops any active poll loop, issues a cancel request for the
// current job and, on acknowledged success, clears the busy state. An
// unacknowledged cancel leaves the job busy; it is not an error.
func (o *Orchestrator) Cancel(ctx context.Context) (bool, error) {
	o.mu.Lock()
	cur := o.current
	o.mu.Unlock()
	if cur == nil {
		return true, nil
	}

	cur.cancel()
	ok, err := o.client.Cancel(ctx, cur.id)
	if err != nil {
		return false, err
	}
	if !ok {
		o.logger.Warn("cancel not acknowledged", "job", cur.id)
		return false, nil
	}
	o.finish(cur.id, Update{JobID: cur.id, Status: StatusCancelled, Stage: StageCancelled})
	return true, nil
}

// Wait blocks until the current job reaches a terminal state.
func (o *Orchestrator) Wait(ctx context.Context) (Update, error) {
	o.mu.Lock()
	cur := o.current
	o.mu.Unlock()
	if cur == nil {
		return o.Snapshot(), nil
	}
	select {
	case <-cur.done:
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	}
}

// begin cancels and awaits any prior job, then registers a fresh one with
// the next monotonic id. The poll timer and cancel handle of the prior
// job are released before the new job exists.
func (o *Orchestrator) begin(ctx context.Context) *job {
	o.mu.Lock()
	prior := o.current
	o.mu.Unlock()
	if prior != nil {
		prior.cancel()
		if _, err := o.client.Cancel(ctx, prior.id); err != nil {
			o.logger.Warn("cancelling prior job failed", "job", prior.id, "error", err)
		}
		o.finish(prior.id, Update{JobID: prior.id, Status: StatusCancelled, Stage: StageCancelled})
		<-prior.done
	}

	jctx, cancel := context.WithCancel(context.Background())
	j := &job{ctx: jctx, cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	o.nextID++
	j.id = o.nextID
	o.current = j
	o.mu.Unlock()
	return j
}

// settle resolves a single request/response job.
func (o *Orchestrator) settle(j *job, result string, err error) (string, error) {
	if err != nil {
		if j.ctx.Err() != nil {
			// the job was cancelled while the request was in flight;
			// whatever came back is stale
			o.finish(j.id, Update{JobID: j.id, Status: StatusCancelled, Stage: StageCancelled})
			return "", ErrSuperseded
		}
		o.finish(j.id, Update{JobID: j.id, Status: StatusFailed, Err: magicserver.ErrorCode(err)})
		return "", err
	}
	if !o.finish(j.id, Update{
		JobID: j.id, Status: StatusSucceeded, Progress: 100, Stage: StageDone, Result: result,
	}) {
		return "", ErrSuperseded
	}
	return result, nil
}

// pollLoop drives a queued video job to a terminal state. Cancellation is
// observed through the job context at the top of every iteration; a
// cancelled job is finished by whoever cancelled it, not by the loop.
func (o *Orchestrator) pollLoop(j *job) {
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
		}

		p, err := o.client.VideoProgress(j.ctx, j.id)
		if err != nil {
			if j.ctx.Err() != nil {
				return
			}
			o.finish(j.id, Update{JobID: j.id, Status: StatusFailed, Err: magicserver.ErrorCode(err)})
			return
		}

		eta := 0.0
		if p.EtaSeconds != nil {
			eta = *p.EtaSeconds
		}

		switch p.Status {
		case "running":
			o.publish(j.id, Update{
				JobID: j.id, Status: StatusRunning,
				Progress: p.Progress, EtaSeconds: eta, Stage: p.Stage,
			})
		case "success":
			if p.Result != nil {
				o.finish(j.id, Update{
					JobID: j.id, Status: StatusSucceeded,
					Progress: 100, EtaSeconds: 0, Stage: StageDone, Result: *p.Result,
				})
				return
			}
			// finished on the service but the result path is not
			// written yet; keep polling
			o.publish(j.id, Update{
				JobID: j.id, Status: StatusRunning,
				Progress: p.Progress, EtaSeconds: eta, Stage: p.Stage,
			})
		case "failed":
			code := "failed"
			if p.Error != nil && *p.Error != "" {
				code = *p.Error
			}
			o.finish(j.id, Update{JobID: j.id, Status: StatusFailed, Err: code})
			return
		case "cancelled":
			o.finish(j.id, Update{JobID: j.id, Status: StatusCancelled, Stage: StageCancelled})
			return
		default:
			// idle/queued: nothing to report yet
			o.publish(j.id, Update{JobID: j.id, Status: StatusQueued})
		}
	}
}

// publish records a non-terminal update, dropping it when the job has
// been superseded.
func (o *Orchestrator) publish(id int64, u Update) {
	o.mu.Lock()
	if o.current == nil || o.current.id != id {
		o.mu.Unlock()
		return
	}
	o.last = u
	cb := o.OnUpdate
	o.mu.Unlock()
	if cb != nil {
		cb(u)
	}
}

// finish records a terminal update and releases the job. Returns false
// when the job was already superseded, in which case the update is
// discarded.
func (o *Orchestrator) finish(id int64, u Update) bool {
	o.mu.Lock()
	if o.current == nil || o.current.id != id {
		o.mu.Unlock()
		return false
	}
	j := o.current
	o.current = nil
	o.last = u
	cb := o.OnUpdate
	o.mu.Unlock()

	j.cancel()
	close(j.done)
	if cb != nil {
		cb(u)
	}
	return true
}

// validate applies the local checks that must reject a submission before
// any request reaches the service.
func validate(input, targetFace string, regions []magicserver.Region, sources []magicserver.FaceSource) error {
	if input == "" {
		return ErrNoInput
	}
	if len(regions) == 0 && len(sources) == 0 {
		if targetFace == "" {
			return ErrNoTargetFace
		}
		return nil
	}
	if len(regions) == 0 {
		return ErrNoRegions
	}
	for _, r := range regions {
		if r.FaceSourceID == "" {
			return ErrUnboundRegion
		}
	}
	if len(sources) == 0 {
		return ErrNoFaceSources
	}
	return nil
}
