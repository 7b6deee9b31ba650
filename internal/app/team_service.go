package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

type TeamService struct {
	teamRepo   *repository.TeamRepository
	memberRepo *repository.MemberRepository
	notifier   *NotificationService
	logger     *zap.Logger
}

type TeamDetail struct {
	Team    *model.Team             `json:"team"`
	Role    string                  `json:"role"`
	Members []repository.MemberView `json:"members"`
}

func NewTeamService(
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	notifier *NotificationService,
	logger *zap.Logger,
) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		notifier:   notifier,
		logger:     logging.OrNop(logger),
	}
}

func (s *TeamService) Create(userID uint, name, description string) (*model.Team, error) {
	name, description, err := validateTeamFields(name, description)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	team := &model.Team{Name: name, Description: description, OwnerID: userID}
	if err := s.teamRepo.Create(team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) List(userID uint) ([]repository.TeamSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.teamRepo.ListForUser(userID)
}

func (s *TeamService) Get(userID, teamID uint) (*TeamDetail, error) {
	team, member, err := s.membership(teamID, userID)
	if err != nil {
		return nil, err
	}
	members, err := s.memberRepo.ListByTeam(teamID)
	if err != nil {
		return nil, err
	}
	return &TeamDetail{Team: team, Role: member.Role, Members: members}, nil
}

func (s *TeamService) Update(userID, teamID uint, name, description string) (*model.Team, error) {
	name, description, err := validateTeamFields(name, description)
	if err != nil {
		return nil, err
	}
	team, err := s.authorize(teamID, userID, access.UpdateTeam)
	if err != nil {
		return nil, err
	}
	if err := s.teamRepo.Update(teamID, name, description); err != nil {
		return nil, err
	}
	team.Name, team.Description = name, description
	return team, nil
}

func (s *TeamService) Delete(userID, teamID uint) error {
	if _, err := s.authorize(teamID, userID, access.DeleteTeam); err != nil {
		return err
	}
	return s.teamRepo.Delete(teamID)
}

// RemoveMember removes targetID from the team. A member removing themselves
// leaves the team; the owner has to transfer ownership first.
func (s *TeamService) RemoveMember(actorID, teamID, targetID uint) error {
	team, actor, err := s.membership(teamID, actorID)
	if err != nil {
		return err
	}
	if actorID == targetID {
		if actor.Role == model.RoleOwner {
			return ErrOwnerCannotLeave
		}
		return s.memberRepo.Delete(teamID, actorID)
	}

	target, err := s.memberRepo.Get(teamID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if !access.CanRemoveMember(actor.Role, target.Role) {
		return ErrForbidden
	}
	if err := s.memberRepo.Delete(teamID, targetID); err != nil {
		return err
	}
	s.notifier.Notify(model.Notification{
		UserID: targetID,
		Type:   model.NotifyTeamMemberRemoved,
		Title:  fmt.Sprintf("You were removed from %s", team.Name),
		TeamID: uintPtr(teamID),
	})
	return nil
}

func (s *TeamService) ChangeRole(actorID, teamID, targetID uint, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !access.Assignable(role) {
		return ErrInvalidInput
	}
	team, actor, err := s.membership(teamID, actorID)
	if err != nil {
		return err
	}
	if actorID == targetID {
		return ErrForbidden
	}
	target, err := s.memberRepo.Get(teamID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if !access.CanChangeRole(actor.Role, target.Role, role) {
		return ErrForbidden
	}
	if target.Role == role {
		return nil
	}
	if err := s.memberRepo.UpdateRole(teamID, targetID, role); err != nil {
		return err
	}
	s.notifier.Notify(model.Notification{
		UserID: targetID,
		Type:   model.NotifyTeamRoleChanged,
		Title:  fmt.Sprintf("Your role in %s is now %s", team.Name, role),
		TeamID: uintPtr(teamID),
	})
	return nil
}

func (s *TeamService) TransferOwnership(actorID, teamID, newOwnerID uint) error {
	team, err := s.authorize(teamID, actorID, access.TransferOwnership)
	if err != nil {
		return err
	}
	if newOwnerID == 0 || newOwnerID == actorID {
		return ErrInvalidInput
	}
	target, err := s.memberRepo.Get(teamID, newOwnerID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if err := s.teamRepo.TransferOwnership(teamID, actorID, newOwnerID); err != nil {
		return err
	}
	s.notifier.Notify(model.Notification{
		UserID: newOwnerID,
		Type:   model.NotifyTeamRoleChanged,
		Title:  fmt.Sprintf("You are now the owner of %s", team.Name),
		TeamID: uintPtr(teamID),
	})
	return nil
}

// membership loads the team and userID's membership. Teams the user is not a
// member of are reported as not found.
func (s *TeamService) membership(teamID, userID uint) (*model.Team, *model.TeamMember, error) {
	return teamMembership(s.teamRepo, s.memberRepo, teamID, userID)
}

func (s *TeamService) authorize(teamID, userID uint, action access.Action) (*model.Team, error) {
	team, member, err := s.membership(teamID, userID)
	if err != nil {
		return nil, err
	}
	if !access.Can(member.Role, action) {
		return nil, ErrForbidden
	}
	return team, nil
}

func teamMembership(
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	teamID, userID uint,
) (*model.Team, *model.TeamMember, error) {
	if teamID == 0 || userID == 0 {
		return nil, nil, ErrInvalidInput
	}
	team, err := teamRepo.GetByID(teamID)
	if err != nil {
		return nil, nil, err
	}
	if team == nil {
		return nil, nil, ErrTeamNotFound
	}
	member, err := memberRepo.Get(teamID, userID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, ErrTeamNotFound
	}
	return team, member, nil
}

func validateTeamFields(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || utf8.RuneCountInString(name) > 128 || utf8.RuneCountInString(description) > 512 {
		return "", "", ErrInvalidInput
	}
	return name, description, nil
}
