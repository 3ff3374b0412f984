package service

import (
	"errors"

	"github.com/noah-isme/gema-multigraders/internal/grading"
)

var (
	// ErrPermissionDenied indicates the viewer may not change the item in its current state.
	ErrPermissionDenied = errors.New("you are not allowed to grade this item")
	// ErrItemNotFound indicates the grading item does not exist.
	ErrItemNotFound = errors.New("grading item not found")
	// ErrInvalidDefinition indicates a definition that cannot be used for grading.
	ErrInvalidDefinition = errors.New("invalid grading definition")
)

// Actor is the authenticated user behind a request.
type Actor struct {
	ID           string
	Role         string
	Capabilities []grading.Capability
}

// Viewer returns the engine view of the actor.
func (a Actor) Viewer() grading.Viewer {
	return grading.Viewer{ID: a.ID, Capabilities: a.Capabilities}
}

// SystemActor is used for changes made by tooling rather than a person.
func SystemActor() Actor {
	return Actor{ID: "system", Role: "system", Capabilities: []grading.Capability{grading.CapManage, grading.CapSiteConfig}}
}

// CapabilitiesForRole maps an authentication role to grading capabilities.
func CapabilitiesForRole(role string) []grading.Capability {
	switch normalizeRole(role) {
	case "admin":
		return []grading.Capability{grading.CapSiteConfig, grading.CapManage, grading.CapGrade, grading.CapViewAll, grading.CapView}
	case "manager":
		return []grading.Capability{grading.CapManage, grading.CapGrade, grading.CapViewAll, grading.CapView}
	case "teacher":
		return []grading.Capability{grading.CapGrade, grading.CapViewAll, grading.CapView}
	case "student":
		return []grading.Capability{grading.CapView}
	default:
		return nil
	}
}

// InvalidDefinitionError carries the field of a definition that was rejected.
type InvalidDefinitionError struct {
	Field   string
	Message string
}

func (e *InvalidDefinitionError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match ErrInvalidDefinition.
func (e *InvalidDefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}
