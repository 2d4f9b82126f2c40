package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides identity and timestamps. A zero ID means the entity
// has not been persisted.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// IsPersisted reports whether the entity has been assigned an identity
func (e *BaseEntity) IsPersisted() bool {
	return e.ID != uuid.Nil
}

// AssignIdentity gives the entity a fresh ID and stamps both timestamps
func (e *BaseEntity) AssignIdentity(now time.Time) {
	e.ID = uuid.New()
	e.CreatedAt = now
	e.UpdatedAt = now
}

// ClearIdentity reverts AssignIdentity after a failed write
func (e *BaseEntity) ClearIdentity() {
	e.ID = uuid.Nil
	e.CreatedAt = time.Time{}
	e.UpdatedAt = time.Time{}
}

// Touch updates the modification timestamp
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}
