package program

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName          = errors.New("program name cannot be empty")
	ErrNegativePrice      = errors.New("program price cannot be negative")
	ErrNegativeCapacity   = errors.New("max participants cannot be negative")
	ErrNegativeEnrollment = errors.New("current participants cannot be negative")
	ErrOverCapacity       = errors.New("current participants cannot exceed max participants")
	ErrInactive           = errors.New("program is not accepting enrollments")
	ErrFull               = errors.New("program is full")
)

// Program is a paid training offering (e.g. "Elite Youth Football, U12").
type Program struct {
	ID                  string
	Name                string
	Description         string
	Price               float64
	AgeGroup            string
	Duration            string
	MaxParticipants     int
	CurrentParticipants int
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewProgram carries the caller-supplied fields of a program.
type NewProgram struct {
	Name                string
	Description         string
	Price               float64
	AgeGroup            string
	Duration            string
	MaxParticipants     int
	CurrentParticipants int
	IsActive            bool
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name                *string
	Description         *string
	Price               *float64
	AgeGroup            *string
	Duration            *string
	MaxParticipants     *int
	CurrentParticipants *int
	IsActive            *bool
}

// Validate checks if the Program has valid data.
// PRE: Program struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Program) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	if p.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	if p.CurrentParticipants < 0 {
		return ErrNegativeEnrollment
	}
	if p.CurrentParticipants > p.MaxParticipants {
		return ErrOverCapacity
	}
	return nil
}

// Program returns the entity described by n, without identity or timestamps.
func (n NewProgram) Program() Program {
	return Program{
		Name:                n.Name,
		Description:         n.Description,
		Price:               n.Price,
		AgeGroup:            n.AgeGroup,
		Duration:            n.Duration,
		MaxParticipants:     n.MaxParticipants,
		CurrentParticipants: n.CurrentParticipants,
		IsActive:            n.IsActive,
	}
}

// Apply copies every set field of the patch onto p.
// POST: p reflects the patch; the caller re-validates the result
func (pt *Patch) Apply(p *Program) {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.AgeGroup != nil {
		p.AgeGroup = *pt.AgeGroup
	}
	if pt.Duration != nil {
		p.Duration = *pt.Duration
	}
	if pt.MaxParticipants != nil {
		p.MaxParticipants = *pt.MaxParticipants
	}
	if pt.CurrentParticipants != nil {
		p.CurrentParticipants = *pt.CurrentParticipants
	}
	if pt.IsActive != nil {
		p.IsActive = *pt.IsActive
	}
}

// IsEmpty reports whether the patch changes nothing.
func (pt *Patch) IsEmpty() bool {
	return pt.Name == nil && pt.Description == nil && pt.Price == nil && pt.AgeGroup == nil &&
		pt.Duration == nil && pt.MaxParticipants == nil && pt.CurrentParticipants == nil && pt.IsActive == nil
}

// SpotsLeft returns how many more participants fit.
// INVARIANT: Program fields are not mutated
func (p *Program) SpotsLeft() int {
	left := p.MaxParticipants - p.CurrentParticipants
	if left < 0 {
		return 0
	}
	return left
}

// CheckEnrollable returns nil if a new participant may join.
// INVARIANT: Program fields are not mutated
func (p *Program) CheckEnrollable() error {
	if !p.IsActive {
		return ErrInactive
	}
	if p.SpotsLeft() == 0 {
		return ErrFull
	}
	return nil
}

// AdjustParticipants moves CurrentParticipants by delta, keeping the
// capacity invariant.
// PRE: Program is valid
// POST: CurrentParticipants changed by delta, or an error and no change
func (p *Program) AdjustParticipants(delta int) error {
	next := p.CurrentParticipants + delta
	if next < 0 {
		return ErrNegativeEnrollment
	}
	if next > p.MaxParticipants {
		return ErrFull
	}
	p.CurrentParticipants = next
	return nil
}
