package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedGateway replays a fixed status sequence and counts calls.
type scriptedGateway struct {
	mu        sync.Mutex
	submitErr error
	jobID     string
	statuses  []StatusResponse
	statusErr error
	calls     int
}

func (g *scriptedGateway) Submit(ctx context.Context, req Request) (string, error) {
	if g.submitErr != nil {
		return "", g.submitErr
	}
	return g.jobID, nil
}

func (g *scriptedGateway) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	idx := g.calls
	g.calls++
	if idx >= len(g.statuses) {
		idx = len(g.statuses) - 1
	}
	s := g.statuses[idx]
	return &s, nil
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestOrchestrator(g Gateway, poll, timeout time.Duration) *Orchestrator {
	return NewOrchestrator(g, poll, timeout, zap.NewNop())
}

func TestSubmit_WrapsGatewayRejection(t *testing.T) {
	gw := &scriptedGateway{submitErr: errors.New("payload rejected")}
	o := newTestOrchestrator(gw, time.Millisecond, time.Second)

	_, err := o.Submit(context.Background(), Request{Kind: model.JobKindTopics})
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "payload rejected")
}

func TestAwaitCompletion_PollsUntilSucceeded(t *testing.T) {
	gw := &scriptedGateway{
		jobID: "job-1",
		statuses: []StatusResponse{
			{Status: model.JobStatusQueued},
			{Status: model.JobStatusRunning},
			{Status: model.JobStatusSucceeded},
		},
	}
	o := newTestOrchestrator(gw, 10*time.Millisecond, time.Second)

	status, err := o.AwaitCompletion(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, status.Status)

	// Exactly one status call per poll tick, none after the terminal one.
	assert.Equal(t, 3, gw.callCount())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, gw.callCount(), "no poll may fire after a terminal result")
}

func TestAwaitCompletion_FailedJobCarriesRemoteMessage(t *testing.T) {
	gw := &scriptedGateway{
		jobID: "job-2",
		statuses: []StatusResponse{
			{Status: model.JobStatusRunning},
			{Status: model.JobStatusFailed, ErrorMessage: "model refused the prompt"},
		},
	}
	o := newTestOrchestrator(gw, 5*time.Millisecond, time.Second)

	_, err := o.AwaitCompletion(context.Background(), "job-2")
	require.ErrorIs(t, err, ErrJobFailed)

	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "model refused the prompt", jobErr.Message)

	calls := gw.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, gw.callCount(), "no poll may fire after a terminal result")
}

func TestAwaitCompletion_Timeout(t *testing.T) {
	gw := &scriptedGateway{
		jobID:    "job-3",
		statuses: []StatusResponse{{Status: model.JobStatusRunning}},
	}
	o := newTestOrchestrator(gw, 5*time.Millisecond, 40*time.Millisecond)

	_, err := o.AwaitCompletion(context.Background(), "job-3")
	require.ErrorIs(t, err, ErrJobTimeout)
	assert.NotErrorIs(t, err, ErrJobFailed)

	// Timeout stops the loop; the remote job is simply no longer observed.
	calls := gw.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, gw.callCount())
}

func TestAwaitCompletion_AbandonedOnContextCancel(t *testing.T) {
	gw := &scriptedGateway{
		jobID:    "job-4",
		statuses: []StatusResponse{{Status: model.JobStatusQueued}},
	}
	o := newTestOrchestrator(gw, 5*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := o.AwaitCompletion(ctx, "job-4")
	require.ErrorIs(t, err, context.Canceled)

	calls := gw.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, gw.callCount(), "abandonment must stop scheduling polls")
}

func TestAwaitCompletion_StatusLookupErrorIsTerminal(t *testing.T) {
	gw := &scriptedGateway{jobID: "job-5", statusErr: errors.New("gateway unreachable")}
	o := newTestOrchestrator(gw, 5*time.Millisecond, time.Second)

	_, err := o.AwaitCompletion(context.Background(), "job-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway unreachable")
}

func TestAwaitCompletion_ConcurrentJobs(t *testing.T) {
	// Independent jobs poll independently; the orchestrator does not
	// serialize them.
	gwA := &scriptedGateway{jobID: "a", statuses: []StatusResponse{
		{Status: model.JobStatusRunning},
		{Status: model.JobStatusSucceeded},
	}}
	gwB := &scriptedGateway{jobID: "b", statuses: []StatusResponse{
		{Status: model.JobStatusSucceeded},
	}}

	oA := newTestOrchestrator(gwA, 5*time.Millisecond, time.Second)
	oB := newTestOrchestrator(gwB, 5*time.Millisecond, time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make([]error, 2)
	go func() {
		defer wg.Done()
		_, errs[0] = oA.AwaitCompletion(context.Background(), "a")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = oB.AwaitCompletion(context.Background(), "b")
	}()
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestJobStatus_TerminalIsMonotonic(t *testing.T) {
	assert.False(t, model.JobStatusQueued.Terminal())
	assert.False(t, model.JobStatusRunning.Terminal())
	assert.True(t, model.JobStatusSucceeded.Terminal())
	assert.True(t, model.JobStatusFailed.Terminal())
}
