// Package orchestrator implements the multi-agent task queue with
// dependency-DAG resolution: a shared map of agent-id -> Agent and a
// queue of Tasks, processed by repeatedly picking a Pending task whose
// dependencies are all Completed, dispatching it to an agent, and recording
// the result.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/eibrahimli/anvil/internal/agent"
	"github.com/eibrahimli/anvil/internal/event"
	"github.com/eibrahimli/anvil/internal/tool"
	"github.com/eibrahimli/anvil/pkg/types"
)

// Dispatcher runs one task against one agent and returns its result. The
// session executor (internal/executor.SubagentExecutor) already implements
// this exact shape for the Task tool; the orchestrator reuses it rather than
// inventing a second agent-dispatch path.
type Dispatcher interface {
	ExecuteSubtask(ctx context.Context, sessionID string, agentName string, prompt string, opts tool.TaskOptions) (*tool.TaskResult, error)
}

// Orchestrator holds the agent registry and task queue for one run. All
// mutation goes through a single mutex (spec: "single shared context guarded
// by an async lock") — this is a Go sync.Mutex rather than an actor/channel
// design because every operation here is a short map/slice mutation, not a
// blocking call; the dispatch itself happens with the lock released.
type Orchestrator struct {
	mu           sync.Mutex
	agents       *agent.Registry
	dispatcher   Dispatcher
	sessionID    string
	tasks        map[string]*types.Task
	order        []string // insertion order, for deterministic get_all_tasks
	agentResults map[string]*tool.TaskResult
}

// New creates an Orchestrator bound to a session (child sessions are created
// per dispatched task, as with the Task tool) and an agent registry.
func New(sessionID string, agents *agent.Registry, dispatcher Dispatcher) *Orchestrator {
	return &Orchestrator{
		agents:       agents,
		dispatcher:   dispatcher,
		sessionID:    sessionID,
		tasks:        make(map[string]*types.Task),
		agentResults: make(map[string]*tool.TaskResult),
	}
}

// AddAgent registers an agent as available for dispatch. Orchestrator does
// not own agent lifecycle beyond selection; the registry itself is shared
// with the rest of the runtime.
func (o *Orchestrator) AddAgent(a *agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents.Register(a)
}

// CreateTask adds a new Pending task. dependencies may reference task ids
// not yet created; process_tasks simply never selects a task whose
// dependency set is not fully Completed, so forward references just never
// become ready.
func (o *Orchestrator) CreateTask(description string, dependencies []string) *types.Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := &types.Task{
		ID:           uuid.NewString(),
		Description:  description,
		Status:       types.TaskPending,
		Dependencies: append([]string(nil), dependencies...),
	}
	o.tasks[t.ID] = t
	o.order = append(o.order, t.ID)
	o.publish(t)
	return t
}

// GetTask returns a copy of a task by id.
func (o *Orchestrator) GetTask(id string) (types.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[id]
	if !ok {
		return types.Task{}, false
	}
	return *t, true
}

// AllTasks returns a copy of every task in creation order.
func (o *Orchestrator) AllTasks() []types.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]types.Task, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.tasks[id])
	}
	return out
}

// AgentResult returns the recorded result for a completed or failed task.
func (o *Orchestrator) AgentResult(taskID string) (*tool.TaskResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.agentResults[taskID]
	return r, ok
}

// nextReady returns the first Pending task (in creation order) whose
// dependencies are all Completed, marking it InProgress, or nil if none is
// ready. Must be called with o.mu held.
func (o *Orchestrator) nextReady() *types.Task {
	for _, id := range o.order {
		t := o.tasks[id]
		if t.Status != types.TaskPending {
			continue
		}
		if !o.dependenciesCompleted(t) {
			continue
		}
		t.Status = types.TaskInProgress
		return t
	}
	return nil
}

func (o *Orchestrator) dependenciesCompleted(t *types.Task) bool {
	for _, depID := range t.Dependencies {
		dep, ok := o.tasks[depID]
		if !ok || dep.Status != types.TaskCompleted {
			return false
		}
	}
	return true
}

// publish must be called with o.mu held. PublishSync runs every subscriber
// before it returns, so a subscriber that calls back into the Orchestrator
// deadlocks.
func (o *Orchestrator) publish(t *types.Task) {
	event.PublishSync(event.Event{
		Type: event.TaskUpdated,
		Data: event.TaskUpdatedData{Task: *t},
	})
}

// selectAgent dispatches to the task's AssignedTo agent if set and
// registered, otherwise to the first registered agent. Role-aware routing
// is tracked as an Open Question in DESIGN.md.
func (o *Orchestrator) selectAgent(t *types.Task) (string, error) {
	if t.AssignedTo != "" {
		if o.agents.Exists(t.AssignedTo) {
			return t.AssignedTo, nil
		}
		return "", fmt.Errorf("task %s assigned to unknown agent %q", t.ID, t.AssignedTo)
	}
	names := o.agents.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no agents registered")
	}
	return names[0], nil
}

// ProcessTasks repeatedly picks the next ready task, dispatches it, and
// records the outcome, stopping once no task is ready. A task whose
// dispatch errors (agent not found, dispatcher failure) is marked Failed
// rather than aborting the whole run, so independent branches of the
// dependency DAG still complete.
func (o *Orchestrator) ProcessTasks(ctx context.Context) error {
	for {
		o.mu.Lock()
		t := o.nextReady()
		if t == nil {
			o.mu.Unlock()
			return nil
		}
		o.publish(t)
		agentName, selectErr := o.selectAgent(t)
		o.mu.Unlock()

		if selectErr != nil {
			o.finish(t.ID, nil, selectErr)
			continue
		}

		result, err := o.dispatcher.ExecuteSubtask(ctx, o.sessionID, agentName, t.Description, tool.TaskOptions{
			Description: t.Description,
		})
		if err == nil && result != nil && result.Error != "" {
			err = fmt.Errorf("%s", result.Error)
		}
		o.finish(t.ID, result, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// finish marks a task Completed or Failed and records its agent_results
// entry.
func (o *Orchestrator) finish(taskID string, result *tool.TaskResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.tasks[taskID]
	if err != nil {
		t.Status = types.TaskFailed
		t.Error = err.Error()
	} else {
		t.Status = types.TaskCompleted
		if result != nil {
			t.Result = result.Output
		}
	}
	if result != nil {
		o.agentResults[taskID] = result
	}
	o.publish(t)
}
