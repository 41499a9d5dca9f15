package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamwerk/akquise-pilot/internal/admission"
	"github.com/teamwerk/akquise-pilot/internal/opportunity"
)

// SlotController is the database-backed admission controller. Each attempt
// locks the pipeline's counter row with SELECT ... FOR UPDATE, so two
// processes racing for the last slot serialize on the row lock.
type SlotController struct {
	db   *gorm.DB
	caps admission.Caps
}

// Slots returns an admission controller backed by this store.
func (s *Store) Slots(caps admission.Caps) (*SlotController, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}

	return &SlotController{db: s.db, caps: caps}, nil
}

// TryAdmit checks the cap and increments the active count in one transaction.
func (c *SlotController) TryAdmit(ctx context.Context, pipeline opportunity.Pipeline) (admission.Grant, error) {
	cap, err := c.caps.CapFor(pipeline)
	if err != nil {
		return admission.Grant{}, err
	}

	var grant admission.Grant
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		granted, active, err := tryAdmit(tx, string(pipeline), cap)
		if err != nil {
			return err
		}
		grant = admission.Grant{Granted: granted, Active: active, Cap: cap}
		return nil
	})
	if err != nil {
		return admission.Grant{}, err
	}

	return grant, nil
}

// Release frees one slot, failing on a release without a matching admit.
func (c *SlotController) Release(ctx context.Context, pipeline opportunity.Pipeline) error {
	if _, err := c.caps.CapFor(pipeline); err != nil {
		return err
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return releaseSlot(tx, string(pipeline))
	})
}

// Active returns the current count without locking the row.
func (c *SlotController) Active(ctx context.Context, pipeline opportunity.Pipeline) (int, error) {
	var slot AdmissionSlot
	if err := c.db.WithContext(ctx).First(&slot, "pipeline = ?", string(pipeline)).Error; err != nil {
		return 0, fmt.Errorf("load admission slot %s: %w", pipeline, err)
	}

	return slot.ActiveCount, nil
}

// tryAdmit runs inside an open transaction. Returns whether the slot was
// granted and the count after the attempt.
func tryAdmit(tx *gorm.DB, pipeline string, cap int) (bool, int, error) {
	var slot AdmissionSlot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, "pipeline = ?", pipeline).Error
	if err != nil {
		return false, 0, fmt.Errorf("lock admission slot %s: %w", pipeline, err)
	}

	if slot.ActiveCount >= cap {
		return false, slot.ActiveCount, nil
	}

	if err := tx.Model(&AdmissionSlot{}).Where("pipeline = ?", pipeline).
		Update("active_count", slot.ActiveCount+1).Error; err != nil {
		return false, 0, fmt.Errorf("claim admission slot %s: %w", pipeline, err)
	}

	return true, slot.ActiveCount + 1, nil
}

func releaseSlot(tx *gorm.DB, pipeline string) error {
	var slot AdmissionSlot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, "pipeline = ?", pipeline).Error
	if err != nil {
		return fmt.Errorf("lock admission slot %s: %w", pipeline, err)
	}
	if slot.ActiveCount <= 0 {
		return fmt.Errorf("release without matching admit for %s", pipeline)
	}

	if err := tx.Model(&AdmissionSlot{}).Where("pipeline = ?", pipeline).
		Update("active_count", slot.ActiveCount-1).Error; err != nil {
		return fmt.Errorf("free admission slot %s: %w", pipeline, err)
	}

	return nil
}
