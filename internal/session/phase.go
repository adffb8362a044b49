package session

// Phase is the controller's position in the attempt state machine:
//
//	Loading --fetched--> Active | Empty | LoadFailed
//	LoadFailed --retry--> Loading
//	Active --time up / confirmed--> Submitting
//	Submitting --ok--> Completed
//	Submitting --failed--> Active
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoadFailed
	PhaseEmpty
	PhaseActive
	PhaseSubmitting
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoadFailed:
		return "load_failed"
	case PhaseEmpty:
		return "empty"
	case PhaseActive:
		return "active"
	case PhaseSubmitting:
		return "submitting"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// Trigger is what started a submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)
