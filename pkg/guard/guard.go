package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"fooddelivery/pkg/models"
)

// Dependent is one (label, count) pair shown before a deletion.
type Dependent struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Guard deletes records only when nothing still depends on them. Orders
// take their items, delivery and review with them.
type Guard struct {
	store     Store
	log       logrus.FieldLogger
	notifiers []Notifier
}

// New returns a guard over store. Notifiers are told about every
// successful deletion.
func New(store Store, log logrus.FieldLogger, notifiers ...Notifier) *Guard {
	return &Guard{store: store, log: log, notifiers: notifiers}
}

// CheckDependents counts rows referencing the target, one entry per
// dependent relation even when the count is zero. It writes nothing.
func (g *Guard) CheckDependents(ctx context.Context, kind models.Kind, id uint) ([]Dependent, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("check dependents: unknown kind %d", int(kind))
	}

	relations := PolicyFor(kind).Dependents
	dependents := make([]Dependent, 0, len(relations))
	for _, rel := range relations {
		n, err := g.store.Count(ctx, rel.Kind, rel.Column, id)
		if err != nil {
			return nil, fmt.Errorf("count %s of %s #%d: %w", rel.Kind.Plural(), kind, id, err)
		}
		dependents = append(dependents, Dependent{Label: rel.Label, Count: n})
	}
	return dependents, nil
}

// Delete removes the target according to its kind's policy. The whole
// sequence runs in one transaction. It never returns an error: every
// failure ends up in the Result.
func (g *Guard) Delete(ctx context.Context, kind models.Kind, id uint) Result {
	entry := g.log.WithFields(logrus.Fields{"kind": kind.String(), "id": id})

	if !kind.Valid() {
		err := fmt.Errorf("unknown kind %d", int(kind))
		return Result{Outcome: OutcomeFailed, Message: "failed to delete record: " + err.Error(), Err: err}
	}

	var removed []Dependent
	err := g.store.Transaction(ctx, func(tx Store) error {
		var err error
		removed, err = g.deleteTx(ctx, tx, kind, id)
		return err
	})

	var blocked *BlockedError
	switch {
	case err == nil:
		entry.Info("record deleted")
		g.notify(ctx, entry, kind, id)
		return Result{
			OK:      true,
			Outcome: OutcomeDeleted,
			Message: deletedMessage(kind, id, removed),
			Removed: removed,
		}
	case errors.Is(err, errNotFound):
		entry.Debug("record already absent")
		return Result{
			OK:      true,
			Outcome: OutcomeNotFound,
			Message: fmt.Sprintf("%s #%d does not exist, nothing deleted", kind, id),
		}
	case errors.As(err, &blocked):
		entry.WithField("relation", blocked.Relation.Label).Warn(blocked.Error())
		return Result{Outcome: OutcomeBlocked, Message: blocked.Error(), Err: err}
	case errors.Is(err, ErrReferenced):
		entry.WithError(err).Warn("deletion hit a foreign-key constraint")
		return Result{
			Outcome: OutcomeReferenced,
			Message: "cannot delete record: it is referenced by other data",
			Err:     err,
		}
	default:
		entry.WithError(err).Error("deletion failed")
		return Result{Outcome: OutcomeFailed, Message: "failed to delete record: " + err.Error(), Err: err}
	}
}

func (g *Guard) deleteTx(ctx context.Context, tx Store, kind models.Kind, id uint) ([]Dependent, error) {
	found, err := tx.Exists(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNotFound
	}

	policy := PolicyFor(kind)

	for _, rel := range policy.Block {
		n, err := tx.Count(ctx, rel.Kind, rel.Column, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, &BlockedError{Kind: kind, ID: id, Relation: rel, Count: n}
		}
	}

	var removed []Dependent

	if own := policy.Owned; own != nil {
		children, err := tx.Children(ctx, own.Children.Kind, own.Children.Column, id)
		if err != nil {
			return nil, err
		}
		for i := range children {
			n, err := tx.Count(ctx, own.Guard.Kind, own.Guard.Column, children[i].ID)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, &BlockedError{
					Kind: kind, ID: id, Relation: own.Guard, Count: n,
					Via: &children[i], ViaKind: own.Children.Kind,
				}
			}
		}
		n, err := tx.DeleteWhere(ctx, own.Children.Kind, own.Children.Column, id)
		if err != nil {
			return nil, err
		}
		removed = append(removed, Dependent{Label: own.Children.Label, Count: n})
	}

	for _, rel := range policy.Cascade {
		n, err := tx.DeleteWhere(ctx, rel.Kind, rel.Column, id)
		if err != nil {
			return nil, err
		}
		removed = append(removed, Dependent{Label: rel.Label, Count: n})
	}

	n, err := tx.DeleteByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	// Someone else removed it between the check and the delete.
	if n == 0 {
		return nil, errNotFound
	}
	return removed, nil
}

func (g *Guard) notify(ctx context.Context, entry logrus.FieldLogger, kind models.Kind, id uint) {
	for _, n := range g.notifiers {
		if err := n.Deleted(ctx, kind, id); err != nil {
			entry.WithError(err).Warn("deletion notifier failed")
		}
	}
}

func deletedMessage(kind models.Kind, id uint, removed []Dependent) string {
	msg := fmt.Sprintf("%s #%d deleted", kind, id)
	if len(removed) == 0 {
		return msg
	}
	parts := make([]string, 0, len(removed))
	for _, d := range removed {
		parts = append(parts, fmt.Sprintf("%s: %d", strings.ToLower(d.Label), d.Count))
	}
	return msg + " with " + strings.Join(parts, ", ")
}
