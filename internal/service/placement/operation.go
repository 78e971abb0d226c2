package placement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phygtl/ar-asset-cache/internal/domain"
)

// State is the lifecycle state of a download operation
type State string

const (
	StateDownloading State = "downloading"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
)

// Operation is the handle of one in-flight or finished download of a
// placeable. Every caller asking for the same item while it runs shares it.
type Operation struct {
	ID        string
	Name      string
	URL       string
	StartedAt time.Time

	done chan struct{}

	mu           sync.RWMutex
	state        State
	headersReady bool
	progress     float64
	result       domain.DownloadResult
	finishedAt   time.Time
}

// OperationStatus is a point-in-time view of an Operation
type OperationStatus struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	URL          string                 `json:"url"`
	State        State                  `json:"state"`
	HeadersReady bool                   `json:"headers_ready"`
	Progress     float64                `json:"progress"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
	Result       *domain.DownloadResult `json:"result,omitempty"`
}

func newOperation(name, url string) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		state:     StateDownloading,
	}
}

// Done is closed once the operation finished
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finished or ctx is done
func (o *Operation) Wait(ctx context.Context) (domain.DownloadResult, error) {
	select {
	case <-o.done:
		result, _ := o.Result()
		return result, nil
	case <-ctx.Done():
		return domain.DownloadResult{}, ctx.Err()
	}
}

// Result returns the download result and whether the operation finished
func (o *Operation) Result() (domain.DownloadResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.result, o.state != StateDownloading
}

// State returns the current lifecycle state
func (o *Operation) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Progress returns the last reported fraction
func (o *Operation) Progress() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress
}

// Status returns a snapshot of the operation
func (o *Operation) Status() OperationStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := OperationStatus{
		ID:           o.ID,
		Name:         o.Name,
		URL:          o.URL,
		State:        o.state,
		HeadersReady: o.headersReady,
		Progress:     o.progress,
		StartedAt:    o.StartedAt,
	}
	if o.state != StateDownloading {
		finished := o.finishedAt
		result := o.result
		status.FinishedAt = &finished
		status.Result = &result
	}
	return status
}

func (o *Operation) markHeadersReady() {
	o.mu.Lock()
	o.headersReady = true
	o.mu.Unlock()
}

func (o *Operation) setProgress(fraction float64) {
	o.mu.Lock()
	o.progress = fraction
	o.mu.Unlock()
}

func (o *Operation) finish(result domain.DownloadResult) {
	o.mu.Lock()
	o.result = result
	o.finishedAt = time.Now()
	if result.Success {
		o.state = StateSucceeded
		o.progress = 1
	} else {
		o.state = StateFailed
	}
	o.mu.Unlock()
	close(o.done)
}
