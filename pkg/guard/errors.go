package guard

import (
	"errors"
	"fmt"

	"fooddelivery/pkg/models"
)

var errNotFound = errors.New("record not found")

// BlockedError reports a deletion refused because of existing references.
// Via is set when the reference hangs off an owned child rather than the
// target itself.
type BlockedError struct {
	Kind     models.Kind
	ID       uint
	Relation Relation
	Count    int64
	Via      *Child
	ViaKind  models.Kind
}

func (e *BlockedError) Error() string {
	if e.Via != nil {
		return fmt.Sprintf("cannot delete %s #%d: %s %q is %s",
			e.Kind, e.ID, e.ViaKind, e.Via.Name, e.Relation.phrase(e.Count))
	}
	return fmt.Sprintf("cannot delete %s #%d: %s", e.Kind, e.ID, e.Relation.phrase(e.Count))
}

type Outcome string

const (
	OutcomeDeleted    Outcome = "deleted"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeBlocked    Outcome = "blocked"
	OutcomeReferenced Outcome = "referenced"
	OutcomeFailed     Outcome = "failed"
)

// Result is what Delete hands back to callers instead of an error.
type Result struct {
	OK      bool    `json:"ok"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
	// Removed lists rows deleted along with the target.
	Removed []Dependent `json:"removed,omitempty"`
	// Err keeps the cause of a refusal or failure for errors.Is/As.
	Err error `json:"-"`
}
