// internal/onboarding/step-controller/validation.go
package stepcontroller

import (
	"strings"

	"workshop-onboarding/internal/models"
)

const (
	msgCoordinatesOutOfRange = "Coordinates are out of range"
	msgHalfLocation          = "Latitude and longitude must both be set together"
)

// ValidateStep checks the fields a step owns and returns one message per invalid field.
// The result is empty when the step may be left. It performs no I/O.
func ValidateStep(step int, draft models.Draft, services []models.Service) map[string]string {
	errs := make(map[string]string)

	switch step {
	case 1:
		if strings.TrimSpace(draft.Name) == "" {
			errs[FieldName] = "Workshop name is required"
		}
		if strings.TrimSpace(draft.Address) == "" {
			errs[FieldAddress] = "Address is required"
		}
	case 2:
		// logo and photos are optional
	case 3:
		if !draft.HasLocation() {
			errs[FieldLocation] = "Select your workshop location on the map"
		} else if !models.ValidCoordinates(*draft.Latitude, *draft.Longitude) {
			errs[FieldLocation] = msgCoordinatesOutOfRange
		}
	case 4:
		if draft.CategoryID == "" {
			errs[FieldCategoryID] = "Select a category"
		}
	case 5:
		if len(draft.ServiceIDs) == 0 {
			errs[FieldServiceIDs] = "Select at least one service"
			break
		}
		// recomputed here so a stale selection cannot slip through
		valid := models.ServiceIDSet(services, draft.CategoryID)
		for _, id := range draft.ServiceIDs {
			if _, ok := valid[id]; !ok {
				errs[FieldServiceIDs] = "Some selected services do not belong to the selected category"
				break
			}
		}
	}

	return errs
}

var resumeOrder = []struct {
	tag  models.StepTag
	step int
}{
	{models.StepBasicInfo, 1},
	{models.StepLocation, 3},
	{models.StepCategory, 4},
	{models.StepServices, 5},
}

// ResumeStep maps the first unmet requirement, in fixed priority order, to its step.
// With nothing missing the wizard resumes on the last step for review.
func ResumeStep(missing []models.StepTag) int {
	set := make(map[models.StepTag]struct{}, len(missing))
	for _, tag := range missing {
		set[tag] = struct{}{}
	}
	for _, r := range resumeOrder {
		if _, ok := set[r.tag]; ok {
			return r.step
		}
	}
	return LastStep
}

// MissingSteps derives the server-tracked tags a local draft does not yet satisfy.
func MissingSteps(draft models.Draft, services []models.Service) []models.StepTag {
	var missing []models.StepTag
	for _, r := range resumeOrder {
		if len(ValidateStep(r.step, draft, services)) > 0 {
			missing = append(missing, r.tag)
		}
	}
	return missing
}
