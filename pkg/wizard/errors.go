package wizard

import "errors"

var (
	ErrUnknownStep     = errors.New("unknown wizard step")
	ErrUnknownPlanType = errors.New("deep link plan type does not match any plan")
	ErrNothingToLoad   = errors.New("wizard snapshot has no pending deep link")
)
