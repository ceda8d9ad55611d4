package household

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultName is given to the household created for a user with none.
const DefaultName = "Mi Hogar"

var (
	ErrNotFound      = errors.New("household not found")
	ErrForbidden     = errors.New("only household admins can do that")
	ErrAlreadyMember = errors.New("user is already a member")
)

// Role is a member's role in a household.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Household struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Member struct {
	UserID    uuid.UUID `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Membership is one household a user belongs to, with its size.
type Membership struct {
	HouseholdID uuid.UUID
	MemberCount int
}

//go:generate mockgen -source=household.go -destination=repository_mock.go -package=household
type Repository interface {
	// UserHouseholds returns the user's memberships in the order they joined.
	UserHouseholds(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	GetHousehold(ctx context.Context, id uuid.UUID) (*Household, error)
	// CreateHousehold creates the household and its admin member atomically.
	CreateHousehold(ctx context.Context, name string, admin uuid.UUID) (*Household, error)
	ListMembers(ctx context.Context, householdID uuid.UUID) ([]Member, error)
	AddMember(ctx context.Context, householdID, userID uuid.UUID, role Role) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the household the user works in. A user without one gets a
// new default household; a user in several gets the one with most members,
// the earliest joined on ties.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) (*Household, error) {
	memberships, err := s.repo.UserHouseholds(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}

	if len(memberships) == 0 {
		h, err := s.repo.CreateHousehold(ctx, DefaultName, userID)
		if err != nil {
			return nil, fmt.Errorf("creating default household: %w", err)
		}

		return h, nil
	}

	best := memberships[0]
	for _, m := range memberships[1:] {
		if m.MemberCount > best.MemberCount {
			best = m
		}
	}

	h, err := s.repo.GetHousehold(ctx, best.HouseholdID)
	if err != nil {
		return nil, fmt.Errorf("getting household: %w", err)
	}

	return h, nil
}

func (s *Service) Members(ctx context.Context, householdID uuid.UUID) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	return members, nil
}

// Invite adds userID as a plain member. Only admins of the household may invite.
func (s *Service) Invite(ctx context.Context, actorID, householdID, userID uuid.UUID) error {
	members, err := s.Members(ctx, householdID)
	if err != nil {
		return err
	}

	var isAdmin, isMember bool

	for _, m := range members {
		if m.UserID == actorID && m.Role == RoleAdmin {
			isAdmin = true
		}

		if m.UserID == userID {
			isMember = true
		}
	}

	if !isAdmin {
		return ErrForbidden
	}

	if isMember {
		return ErrAlreadyMember
	}

	if err := s.repo.AddMember(ctx, householdID, userID, RoleMember); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}

	return nil
}
