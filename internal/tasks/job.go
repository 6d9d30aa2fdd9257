package tasks

import (
	"sync"

	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

// Job tracks one transfer through its lifecycle. All reads go through
// Snapshot so pollers see a consistent report while the engine works.
type Job struct {
	mu      sync.RWMutex
	request TransferRequest
	report  models.JobReport
}

// NewJob creates a job in the created state.
func NewJob(request TransferRequest) *Job {
	return &Job{
		request: request,
		report: models.JobReport{
			ID:     shared.GenerateID(),
			Status: models.StatusCreated,
			Items:  []models.TransferItemResult{},
		},
	}
}

func (j *Job) ID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.report.ID
}

func (j *Job) Request() TransferRequest {
	return j.request
}

func (j *Job) Status() models.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.report.Status
}

// Snapshot returns a consistent copy of the report as of now. The items
// slice is copied so callers never observe in-flight mutation.
func (j *Job) Snapshot() models.JobReport {
	j.mu.RLock()
	defer j.mu.RUnlock()

	report := j.report
	report.Items = make([]models.TransferItemResult, len(j.report.Items))
	copy(report.Items, j.report.Items)
	report.Tally()
	return report
}

func (j *Job) advance(status models.JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Status = status
}

func (j *Job) setSource(source models.PlaylistRef) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Source = source
}

func (j *Job) setTarget(target *models.PlaylistRef) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Target = target
}

// beginItems sizes the report for one result per source track. Pending
// items carry their source ref and an empty outcome until resolved.
func (j *Job) beginItems(tracks []models.TrackRef) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.report.Items = make([]models.TransferItemResult, len(tracks))
	for i, track := range tracks {
		j.report.Items[i] = models.TransferItemResult{Source: track}
	}
}

func (j *Job) recordItem(index int, item models.TransferItemResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Items[index] = item
}

// clearItems empties the report's item list. Used when a failure before any
// write leaves nothing to partially report.
func (j *Job) clearItems() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Items = []models.TransferItemResult{}
}

// finish moves the job to a terminal status and fixes the final tallies.
func (j *Job) finish(status models.JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report.Status = status
	j.report.Tally()
}
