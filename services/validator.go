// services/validator.go
package services

import "challenge-platform/models"

// ValidationResult is returned to the client alongside the updated progress.
type ValidationResult struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// SubmissionValidator grades a submission against a challenge. The equality
// validator below is the only implementation for now; a real grading engine
// would plug in behind this interface.
type SubmissionValidator interface {
	Validate(challenge *models.Challenge, submissionCode string) ValidationResult
}

// EqualityValidator passes a submission iff it matches the stored solution
// byte for byte. No normalization, no partial credit. An empty submission is
// just a non-matching string.
type EqualityValidator struct{}

func (EqualityValidator) Validate(challenge *models.Challenge, submissionCode string) ValidationResult {
	if submissionCode == challenge.Solution {
		return ValidationResult{
			Passed:  true,
			Details: "Submission validated successfully",
		}
	}
	return ValidationResult{
		Passed:  false,
		Details: "Solution does not match expected output",
	}
}
