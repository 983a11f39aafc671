package transcriber

import "context"

// Decider is the human in the loop. Every method blocks until the
// operator answers; the automation never guesses past a navigational
// ambiguity or saves without sign-off. Implementations must honor ctx
// cancellation so a stopped batch doesn't leave the worker waiting on
// a prompt forever.
type Decider interface {
	// PickCard shows candidate search results and returns the chosen
	// 0-based index.
	PickCard(ctx context.Context, prompt string, options []string) (int, error)

	// ConfirmPage asks whether the opened detail page is the right
	// family.
	ConfirmPage(ctx context.Context, prompt string) (bool, error)

	// CorrectAddress lets the operator fix the captured address;
	// returning the input unchanged accepts it as-is.
	CorrectAddress(ctx context.Context, current string) (string, error)

	// ConfirmSave is the final review gate before the save click.
	ConfirmSave(ctx context.Context, summary string) (bool, error)

	// Resume blocks until the operator acknowledges a failure that
	// exhausted the automated retries and wants the batch to move on.
	Resume(ctx context.Context, reason string) error

	// SelectCompleted shows the checklist of successfully processed
	// records and returns the 0-based indexes to move into the
	// completed archive.
	SelectCompleted(ctx context.Context, names []string) ([]int, error)
}
