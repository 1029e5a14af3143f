package pwsdk

import "time"

// WorkflowInfo is a workflow item from GET /api/workflows.
type WorkflowInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Favorite    bool     `json:"favorite"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	User        string   `json:"user,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Directory   string   `json:"directory,omitempty"`
	App         bool     `json:"app,omitempty"`
}

// RunInfo is the run payload returned by submission and status endpoints.
type RunInfo struct {
	ID                  string           `json:"id"`
	Number              int              `json:"number"`
	Status              string           `json:"status"`
	WorkflowName        string           `json:"workflowName"`
	WorkflowID          string           `json:"workflowId"`
	WorkflowDisplayName string           `json:"workflowDisplayName,omitempty"`
	User                string           `json:"user,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	CompletedAt         *time.Time       `json:"completedAt,omitempty"`
	Variables           []map[string]any `json:"variables,omitempty"`
	ExecutedJobs        []map[string]any `json:"executedJobs,omitempty"`
}

// SubmitResponse is returned by POST /api/workflows/{workflow}/runs.
// Redirect carries the session URL for interactive workflows.
type SubmitResponse struct {
	Run      RunInfo `json:"run"`
	Redirect string  `json:"redirect,omitempty"`
}

// WorkflowRunRef links a session back to the run that owns it.
type WorkflowRunRef struct {
	WorkflowName string `json:"workflowName"`
	Number       int    `json:"number"`
}

// SessionInfo is an active session from GET /api/sessions. Host and Port
// describe the endpoint the session exposes on the workspace.
type SessionInfo struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Status      string          `json:"status,omitempty"`
	Host        string          `json:"host,omitempty"`
	Port        int             `json:"port,omitempty"`
	WorkflowRun *WorkflowRunRef `json:"workflowRun,omitempty"`
}
