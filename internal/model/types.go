// Package model defines the data shapes shared across the orchestration
// core: runs, steps, snapshots, executed-step records, and the
// reflection/obstacle value types that flow between packages.
package model

import "time"

// RunStatus is the lifecycle state of a TestRun.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// FailureKind classifies why a TestRun ended in RunFailed.
type FailureKind string

const (
	FailureSecurityRejection FailureKind = "SecurityRejection"
	FailurePlanEmpty         FailureKind = "PlanEmpty"
	FailureIterationCap      FailureKind = "IterationCap"
	FailureTimeout           FailureKind = "Timeout"
	FailureAborted           FailureKind = "Aborted"
	FailureSystemError       FailureKind = "SystemError"
)

// TestRun is the aggregate root driven by the Run Executor.
type TestRun struct {
	RunID         string
	TenantID      string
	TargetURL     string
	Goals         []string
	Persona       string
	Status        RunStatus
	FailureReason string
	Steps         []ExecutedStep
	CreatedAt     time.Time
	StartedAt     time.Time
	EndedAt       time.Time
}

// Action enumerates the atomic browser actions a step may perform.
type Action string

const (
	ActionNavigate            Action = "navigate"
	ActionClick               Action = "click"
	ActionType                Action = "type"
	ActionHover                Action = "hover"
	ActionWait                Action = "wait"
	ActionScreenshot          Action = "screenshot"
	ActionScroll              Action = "scroll"
	ActionMeasurePerformance  Action = "measure_performance"
)

// ActionStep is an atomic, immutable (once issued) planned instruction.
// "Resolving" a step never mutates it in place; it produces a copy with
// Selector filled in (see WithSelector).
type ActionStep struct {
	StepID   string
	Action   Action
	Target   string // natural-language description of the element, may be blank
	Selector string // resolved selector, blank until resolution succeeds
	Value    string
	Params   map[string]string
}

// WithSelector returns a copy of the step with Selector replaced.
// Passing "" clears the selector, forcing re-resolution on next pop.
func (s ActionStep) WithSelector(selector string) ActionStep {
	s.Selector = selector
	return s
}

// WithValue returns a copy of the step with Value replaced.
func (s ActionStep) WithValue(value string) ActionStep {
	s.Value = value
	return s
}

// DomSnapshot is a value object: the page's accessibility-tree text,
// url, and title at a single instant. Never shared across steps.
type DomSnapshot struct {
	Content   string
	URL       string
	Title     string
	CapturedAt time.Time
}

// Disposition is the terminal outcome recorded for an ExecutedStep.
type Disposition string

const (
	DispositionSuccess Disposition = "Success"
	DispositionFailed  Disposition = "Failed"
	DispositionSkipped Disposition = "Skipped"
)

// PerformanceMetrics holds the subset of web-vitals fields the spec names.
type PerformanceMetrics struct {
	LCP float64                `json:"lcp"`
	CLS float64                `json:"cls"`
	Raw map[string]interface{} `json:"-"`
}

// ExecutedStep is the audit record appended to a run's done queue.
type ExecutedStep struct {
	Step          ActionStep
	SelectorUsed  string
	Before        DomSnapshot
	After         *DomSnapshot
	Duration      time.Duration
	RetryCount    int
	Disposition   Disposition
	Suggestion    string
	ConsoleErrors []string
	PageErrors    []string
	Performance   *PerformanceMetrics
	Timestamp     time.Time
}

// ObstacleConfidence is the detector's confidence in an ObstacleInfo guess.
type ObstacleConfidence string

const (
	ConfidenceHigh   ObstacleConfidence = "High"
	ConfidenceMedium ObstacleConfidence = "Medium"
	ConfidenceLow    ObstacleConfidence = "Low"
)

// ObstacleInfo describes a blocking overlay detected on a snapshot.
type ObstacleInfo struct {
	Type           string
	Description    string
	DismissSelector string
	DismissText    string
	Confidence     ObstacleConfidence
}

// VerdictKind discriminates the ReflectionResult tagged variant.
type VerdictKind string

const (
	VerdictSuccess VerdictKind = "Success"
	VerdictRetry   VerdictKind = "Retry"
	VerdictWait    VerdictKind = "Wait"
	VerdictAbort   VerdictKind = "Abort"
	VerdictSkip    VerdictKind = "Skip"
)

// ReflectionResult is a closed tagged variant over the five dispositions
// the Reflector can produce. Only the fields relevant to Kind are set;
// callers must switch on Kind and never read a field the kind doesn't own.
type ReflectionResult struct {
	Kind     VerdictKind
	Selector string        // Success
	Reason   string        // Retry, Wait, Abort, Skip
	Repair   []ActionStep  // Retry: steps to push in place of the original
	WaitMS   int           // Wait
}
