package domain

import "time"

// OutcomeStatus is the result of handling one input file
type OutcomeStatus string

const (
	OutcomeWritten OutcomeStatus = "written" // output artifact created
	OutcomeSkipped OutcomeStatus = "skipped" // output already existed
	OutcomeFailed  OutcomeStatus = "failed"  // parse, I/O or data failure
)

// Outcome records what happened to one input file during a run
type Outcome struct {
	Status       OutcomeStatus `json:"status"`
	InputPath    string        `json:"input_path"`
	OutputPath   string        `json:"output_path,omitempty"`
	Message      string        `json:"message,omitempty"`
	EmptyWindows int           `json:"empty_windows,omitempty"`
	SkippedTime  float64       `json:"skipped_time,omitempty"`
	Points       int           `json:"points,omitempty"`
}

// Written creates a successful outcome
func Written(input, output string) Outcome {
	return Outcome{Status: OutcomeWritten, InputPath: input, OutputPath: output}
}

// Skipped creates an outcome for an input whose output already exists
func Skipped(input, output string) Outcome {
	return Outcome{Status: OutcomeSkipped, InputPath: input, OutputPath: output, Message: "already processed"}
}

// Failed creates a failed outcome carrying the error message
func Failed(input, message string) Outcome {
	return Outcome{Status: OutcomeFailed, InputPath: input, Message: message}
}

// RunSummary aggregates the outcomes of one batch run
type RunSummary struct {
	InputDir     string    `json:"input_dir"`
	OutputDir    string    `json:"output_dir"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Outcomes     []Outcome `json:"outcomes"`
	ErrorLogPath string    `json:"error_log_path,omitempty"`
}

// Add appends an outcome in processing order
func (s *RunSummary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// FailedInputs returns the failing input paths in processing order
func (s *RunSummary) FailedInputs() []string {
	var paths []string
	for _, o := range s.Outcomes {
		if o.Status == OutcomeFailed {
			paths = append(paths, o.InputPath)
		}
	}
	return paths
}

// Count returns how many outcomes have the given status
func (s *RunSummary) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
