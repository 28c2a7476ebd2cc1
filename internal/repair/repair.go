package repair

import "context"

// Result is a successful repair.
type Result struct {
	FixedText   string
	Explanation string
}

// Repairer fixes diagram markup. priorError is the renderer's message for
// markup, or empty when none is known.
type Repairer interface {
	Repair(ctx context.Context, markup, priorError string) (*Result, error)
}

// RepairerFunc adapts a function to Repairer.
type RepairerFunc func(ctx context.Context, markup, priorError string) (*Result, error)

// Repair calls f.
func (f RepairerFunc) Repair(ctx context.Context, markup, priorError string) (*Result, error) {
	return f(ctx, markup, priorError)
}

// KeyValidator checks whether an API key is accepted by the model
// provider.
type KeyValidator interface {
	ValidateKey(ctx context.Context) error
}

// KeyValidatorFunc adapts a function to KeyValidator.
type KeyValidatorFunc func(ctx context.Context) error

// ValidateKey calls f.
func (f KeyValidatorFunc) ValidateKey(ctx context.Context) error {
	return f(ctx)
}
