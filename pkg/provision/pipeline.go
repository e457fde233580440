package provision

import (
	"context"
	"fmt"
	"log/slog"
)

// Severity classifies a stage failure.
type Severity int

const (
	// SeverityFatal aborts the pipeline and fails the run.
	SeverityFatal Severity = iota
	// SeverityRecoverable is logged and skipped over.
	SeverityRecoverable
)

// StageError is a stage failure together with its pipeline disposition.
type StageError struct {
	Stage    string
	Severity Severity
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage is one step of the provisioning pipeline.
type Stage struct {
	Name string
	// BestEffort stages never fail the run; their errors are logged as
	// warnings and the pipeline continues.
	BestEffort bool
	Run        func(ctx context.Context) error
}

// runPipeline executes stages in order. The first failure of a non-BestEffort
// stage aborts the run.
func runPipeline(ctx context.Context, logger *slog.Logger, stages []Stage) error {
	for _, st := range stages {
		logger.Info("Running stage", "stage", st.Name)
		err := st.Run(ctx)
		if err == nil {
			continue
		}
		serr := &StageError{Stage: st.Name, Severity: SeverityFatal, Err: err}
		if st.BestEffort {
			serr.Severity = SeverityRecoverable
			logger.Warn("Stage failed, continuing", "stage", st.Name, "error", serr.Err)
			continue
		}
		return serr
	}
	return nil
}
