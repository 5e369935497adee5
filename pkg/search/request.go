package search

import (
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
)

// ResolveScenario picks the scenario a request refers to: a stored one by
// index, or the ad-hoc scenario it carries.
func ResolveScenario(req models.SearchRequest, stored []models.SearchScenario) (models.SearchScenario, error) {
	switch {
	case req.Index != nil && req.Scenario != nil:
		return models.SearchScenario{}, errors.New(errors.ErrCodeInvalidInput, "specify either a scenario index or a scenario, not both")
	case req.Index != nil:
		if *req.Index < 0 || *req.Index >= len(stored) {
			return models.SearchScenario{}, errors.IndexOutOfRange(*req.Index, len(stored))
		}
		return stored[*req.Index], nil
	case req.Scenario != nil:
		sc := *req.Scenario
		if err := sc.Validate(); err != nil {
			return models.SearchScenario{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid scenario")
		}
		return sc, nil
	default:
		return models.SearchScenario{}, errors.New(errors.ErrCodeInvalidInput, "a scenario index or a scenario is required")
	}
}
