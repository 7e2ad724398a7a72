package symbolic

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Checker answers "does this candidate satisfy the constraints, and if
// not, what is the closest assignment that does?"
type Checker struct {
	selector *MedianSelector
	refiner  *Refiner
	logger   *zap.Logger
}

// NewChecker combines a selector and a refiner. A nil logger disables logging.
func NewChecker(selector *MedianSelector, refiner *Refiner, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{selector: selector, refiner: refiner, logger: logger}
}

// Check pins the candidate's values into set and asks for one
// representative solution. When one exists it is returned with satisfied
// set. Otherwise the refiner looks for the solution of the original set
// closest to the candidate and returns it with satisfied unset.
//
// An *UnsupportedTypeError from coercing the candidate is returned as is.
// ErrInfeasible is returned only when set itself has no solution.
func (c *Checker) Check(ctx context.Context, set ConstraintSet, env *Environment, candidate RawAssignment, types TypeMap) (sol Assignment, satisfied bool, err error) {
	sols, satisfied, err := c.CheckN(ctx, set, env, candidate, types, 1)
	if err != nil || len(sols) == 0 {
		return nil, satisfied, err
	}
	return sols[0], satisfied, nil
}

// CheckN is Check for up to n diverse solutions. The refined fallback is
// always a single solution.
func (c *Checker) CheckN(ctx context.Context, set ConstraintSet, env *Environment, candidate RawAssignment, types TypeMap, n int) ([]Assignment, bool, error) {
	augmented, augEnv, err := Augment(set, env, candidate, types)
	if err != nil {
		return nil, false, err
	}
	sols, err := c.selector.Select(ctx, augmented, augEnv, n)
	if err != nil {
		return nil, false, err
	}
	if len(sols) > 0 {
		c.logger.Debug("candidate satisfied", zap.Stringer("candidate", candidate))
		return sols, true, nil
	}

	targets, err := Coerce(candidate, types, env)
	if err != nil {
		return nil, false, err
	}
	refined, err := c.refiner.Refine(ctx, set, env, targets)
	if err != nil {
		if errors.Is(err, ErrInfeasible) {
			c.logger.Debug("constraints infeasible without candidate", zap.Stringer("candidate", candidate))
		}
		return nil, false, err
	}
	c.logger.Debug("candidate refined",
		zap.Stringer("candidate", candidate),
		zap.Stringer("refined", refined))
	return []Assignment{refined}, false, nil
}

// Selector returns the selector used for exact checks.
func (c *Checker) Selector() *MedianSelector { return c.selector }
