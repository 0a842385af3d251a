// internal/onboarding/step-controller/models.go
package stepcontroller

import (
	"errors"

	"workshop-onboarding/internal/models"
)

// Phase is the lifecycle position of a wizard instance.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseLoadFailed Phase = "load_failed"
	PhaseCompleted  Phase = "completed"
	PhaseClosed     Phase = "closed"
)

const (
	FirstStep = 1
	LastStep  = 5
)

// Field keys used in State.Errors.
const (
	FieldName       = "name"
	FieldAddress    = "address"
	FieldLocation   = "location"
	FieldCategoryID = "categoryId"
	FieldServiceIDs = "serviceIds"
	FieldLogo       = "logo"
	FieldPhotos     = "photos"
)

var (
	ErrBusy     = errors.New("WIZARD_BUSY")
	ErrClosed   = errors.New("WIZARD_CLOSED")
	ErrNotReady = errors.New("WIZARD_NOT_READY")
)

// State is a point-in-time copy of the wizard. Mutating it has no effect on the controller.
type State struct {
	CurrentStep int
	Draft       models.Draft
	Errors      map[string]string

	// GlobalError is the dismissible banner raised by a failed save or completion.
	GlobalError string
	// LoadError is set when bootstrap failed. It is never dismissed.
	LoadError string

	Phase      Phase
	Submitting bool
	Loading    bool
}

// HasErrors reports whether any field error or banner is showing.
func (s State) HasErrors() bool {
	return len(s.Errors) > 0 || s.GlobalError != "" || s.LoadError != ""
}
