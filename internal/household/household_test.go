package household_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/gastos/internal/household"
)

func TestService_Resolve(t *testing.T) {
	user := uuid.New()
	small, big, other := uuid.New(), uuid.New(), uuid.New()

	type testCase struct {
		name      string
		setupMock func(m *household.MockRepository)
		wantID    uuid.UUID
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "NoMembershipCreatesDefault",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return(nil, nil)
				m.EXPECT().
					CreateHousehold(gomock.Any(), household.DefaultName, user).
					Return(&household.Household{ID: other, Name: household.DefaultName, CreatedBy: user}, nil)
			},
			wantID: other,
		},
		{
			name: "SingleMembership",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return([]household.Membership{{HouseholdID: small, MemberCount: 1}}, nil)
				m.EXPECT().GetHousehold(gomock.Any(), small).Return(&household.Household{ID: small}, nil)
			},
			wantID: small,
		},
		{
			name: "PicksMostMembers",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return([]household.Membership{
					{HouseholdID: small, MemberCount: 1},
					{HouseholdID: big, MemberCount: 3},
					{HouseholdID: other, MemberCount: 3},
				}, nil)
				m.EXPECT().GetHousehold(gomock.Any(), big).Return(&household.Household{ID: big}, nil)
			},
			wantID: big,
		},
		{
			name: "TieKeepsFirst",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return([]household.Membership{
					{HouseholdID: small, MemberCount: 2},
					{HouseholdID: big, MemberCount: 2},
				}, nil)
				m.EXPECT().GetHousehold(gomock.Any(), small).Return(&household.Household{ID: small}, nil)
			},
			wantID: small,
		},
		{
			name: "LookupError",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "CreateError",
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().UserHouseholds(gomock.Any(), user).Return(nil, nil)
				m.EXPECT().CreateHousehold(gomock.Any(), household.DefaultName, user).Return(nil, errors.New("denied"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := household.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := household.NewService(repo)
			got, err := svc.Resolve(context.Background(), user)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestService_Invite(t *testing.T) {
	hh := uuid.New()
	admin, member, newcomer := uuid.New(), uuid.New(), uuid.New()

	members := []household.Member{
		{UserID: admin, Role: household.RoleAdmin},
		{UserID: member, Role: household.RoleMember},
	}

	tests := []struct {
		name      string
		actor     uuid.UUID
		invitee   uuid.UUID
		setupMock func(m *household.MockRepository)
		wantErr   error
	}{
		{
			name:    "AdminInvites",
			actor:   admin,
			invitee: newcomer,
			setupMock: func(m *household.MockRepository) {
				m.EXPECT().AddMember(gomock.Any(), hh, newcomer, household.RoleMember).Return(nil)
			},
		},
		{
			name:    "MemberCannotInvite",
			actor:   member,
			invitee: newcomer,
			wantErr: household.ErrForbidden,
		},
		{
			name:    "AlreadyMember",
			actor:   admin,
			invitee: member,
			wantErr: household.ErrAlreadyMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := household.NewMockRepository(ctrl)
			repo.EXPECT().ListMembers(gomock.Any(), hh).Return(members, nil)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			err := household.NewService(repo).Invite(context.Background(), tt.actor, hh, tt.invitee)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}
