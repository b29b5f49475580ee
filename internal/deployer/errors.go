package deployer

import (
	"errors"
	"fmt"
)

// Step identifies the pipeline stage an error came from.
type Step string

// Pipeline steps, in run order.
const (
	// StepIdentity resolves the deploying signer.
	StepIdentity Step = "identity"
	// StepBalance reads the signer's balance.
	StepBalance Step = "balance"
	// StepArtifact resolves the compiled contract into a deployable factory.
	StepArtifact Step = "artifact"
	// StepSubmission covers sending the creation transaction, waiting for
	// confirmation and reading the deployed address.
	StepSubmission Step = "submission"
)

// Sentinel errors, one per step. Match them with errors.Is on a *StepError.
var (
	ErrIdentityResolution = errors.New("deployer: signer identity could not be resolved")
	ErrBalanceQuery       = errors.New("deployer: balance query failed")
	ErrArtifactNotFound   = errors.New("deployer: contract artifact could not be resolved")
	ErrSubmission         = errors.New("deployer: deployment submission failed")
)

// StepError is the failure result of a run: the step that failed and why.
type StepError struct {
	Step Step
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying ledger error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is maps the step onto its sentinel error.
func (e *StepError) Is(target error) bool {
	switch e.Step {
	case StepIdentity:
		return target == ErrIdentityResolution
	case StepBalance:
		return target == ErrBalanceQuery
	case StepArtifact:
		return target == ErrArtifactNotFound
	case StepSubmission:
		return target == ErrSubmission
	default:
		return false
	}
}

func stepError(step Step, err error) *StepError {
	return &StepError{Step: step, Err: err}
}
