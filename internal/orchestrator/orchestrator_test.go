package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eibrahimli/anvil/internal/agent"
	"github.com/eibrahimli/anvil/internal/tool"
	"github.com/eibrahimli/anvil/pkg/types"
)

// fakeDispatcher records dispatched tasks and returns a canned result keyed
// by the prompt (task description).
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*tool.TaskResult
	errs    map[string]error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		results: make(map[string]*tool.TaskResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeDispatcher) ExecuteSubtask(_ context.Context, _ string, agentName string, prompt string, _ tool.TaskOptions) (*tool.TaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	if err, ok := f.errs[prompt]; ok {
		return nil, err
	}
	if r, ok := f.results[prompt]; ok {
		return r, nil
	}
	return &tool.TaskResult{Output: "done: " + prompt, AgentID: agentName}, nil
}

func newTestOrchestrator() (*Orchestrator, *fakeDispatcher) {
	reg := agent.NewRegistry()
	disp := newFakeDispatcher()
	return New("sess-1", reg, disp), disp
}

func TestOrchestrator_SingleTaskNoDeps(t *testing.T) {
	o, disp := newTestOrchestrator()

	task := o.CreateTask("do the thing", nil)
	require.Equal(t, types.TaskPending, task.Status)

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	got, ok := o.GetTask(task.ID)
	require.True(t, ok)
	assert.Equal(t, types.TaskCompleted, got.Status)
	assert.Equal(t, "done: do the thing", got.Result)
	assert.Contains(t, disp.calls, "do the thing")

	result, ok := o.AgentResult(task.ID)
	require.True(t, ok)
	assert.Equal(t, "done: do the thing", result.Output)
}

func TestOrchestrator_DependencyOrdering(t *testing.T) {
	o, disp := newTestOrchestrator()

	first := o.CreateTask("step one", nil)
	second := o.CreateTask("step two", []string{first.ID})

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	gotFirst, _ := o.GetTask(first.ID)
	gotSecond, _ := o.GetTask(second.ID)
	assert.Equal(t, types.TaskCompleted, gotFirst.Status)
	assert.Equal(t, types.TaskCompleted, gotSecond.Status)

	// step one must have been dispatched before step two.
	require.Len(t, disp.calls, 2)
	assert.Equal(t, "step one", disp.calls[0])
	assert.Equal(t, "step two", disp.calls[1])
}

func TestOrchestrator_UnmetDependencyNeverRuns(t *testing.T) {
	o, disp := newTestOrchestrator()

	o.CreateTask("blocked", []string{"never-exists"})

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	tasks := o.AllTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, types.TaskPending, tasks[0].Status)
	assert.Empty(t, disp.calls)
}

func TestOrchestrator_FailedTaskDoesNotUnblockDependents(t *testing.T) {
	o, disp := newTestOrchestrator()
	disp.errs["will fail"] = fmt.Errorf("boom")

	failing := o.CreateTask("will fail", nil)
	dependent := o.CreateTask("depends on failure", []string{failing.ID})

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	gotFailing, _ := o.GetTask(failing.ID)
	gotDependent, _ := o.GetTask(dependent.ID)
	assert.Equal(t, types.TaskFailed, gotFailing.Status)
	assert.Contains(t, gotFailing.Error, "boom")
	assert.Equal(t, types.TaskPending, gotDependent.Status)
}

func TestOrchestrator_AssignedToRoutesToNamedAgent(t *testing.T) {
	o, disp := newTestOrchestrator()

	task := o.CreateTask("assigned work", nil)
	task.AssignedTo = "build"
	// CreateTask returns a pointer into the internal map, so mutating the
	// returned Task before ProcessTasks runs is visible to it.

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	got, _ := o.GetTask(task.ID)
	assert.Equal(t, types.TaskCompleted, got.Status)
	assert.Len(t, disp.calls, 1)
}

func TestOrchestrator_UnknownAssignedAgentFailsTask(t *testing.T) {
	o, _ := newTestOrchestrator()

	task := o.CreateTask("orphaned", nil)
	task.AssignedTo = "does-not-exist"

	err := o.ProcessTasks(context.Background())
	require.NoError(t, err)

	got, _ := o.GetTask(task.ID)
	assert.Equal(t, types.TaskFailed, got.Status)
	assert.Contains(t, got.Error, "unknown agent")
}
