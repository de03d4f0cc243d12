package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eibrahimli/anvil/internal/orchestrator"
	"github.com/eibrahimli/anvil/pkg/types"
)

// orchestratorFor returns the Orchestrator bound to sessionID, creating one
// on first use. One Orchestrator per session matches the Task tool's own
// one-child-session-per-subtask model, and lets tasks created by an earlier
// request still be visible to a later process/get call against the same
// session.
func (s *Server) orchestratorFor(sessionID string) *orchestrator.Orchestrator {
	s.orchMu.Lock()
	defer s.orchMu.Unlock()

	if o, ok := s.orchestrators[sessionID]; ok {
		return o
	}
	o := orchestrator.New(sessionID, s.agentReg, s.subagentExecutor)
	s.orchestrators[sessionID] = o
	return o
}

// createTaskRequest is the request body for POST .../orchestrator/task.
type createTaskRequest struct {
	Description  string   `json:"description"`
	AssignedTo   string   `json:"assignedTo,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// createOrchestratorTask handles POST /session/{sessionID}/orchestrator/task.
func (s *Server) createOrchestratorTask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "description is required")
		return
	}

	o := s.orchestratorFor(sessionID)
	task := o.CreateTask(req.Description, req.Dependencies)
	if req.AssignedTo != "" {
		task.AssignedTo = req.AssignedTo
	}

	writeJSON(w, http.StatusCreated, task)
}

// listOrchestratorTasks handles GET /session/{sessionID}/orchestrator/task.
func (s *Server) listOrchestratorTasks(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	o := s.orchestratorFor(sessionID)

	tasks := o.AllTasks()
	if tasks == nil {
		tasks = []types.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// getOrchestratorTask handles GET /session/{sessionID}/orchestrator/task/{taskID}.
func (s *Server) getOrchestratorTask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	taskID := chi.URLParam(r, "taskID")

	o := s.orchestratorFor(sessionID)
	task, ok := o.GetTask(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// runOrchestrator handles POST /session/{sessionID}/orchestrator/run: drains
// every currently-ready task to completion (or failure) and returns the
// resulting task list. Tasks added after this call returns need a further
// call to run, mirroring ProcessTasks's "stop once nothing is ready" contract.
func (s *Server) runOrchestrator(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	o := s.orchestratorFor(sessionID)

	if err := o.ProcessTasks(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeOrchestratorError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o.AllTasks())
}
