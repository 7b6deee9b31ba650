package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/logging"
	"legiseye/internal/mail"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

type InvitationServiceConfig struct {
	TTL     time.Duration
	BaseURL string
}

type InvitationService struct {
	teamRepo   *repository.TeamRepository
	memberRepo *repository.MemberRepository
	userRepo   *repository.UserRepository
	inviteRepo *repository.InvitationRepository
	notifier   *NotificationService
	mailer     *Mailer
	cfg        InvitationServiceConfig
	logger     *zap.Logger
	now        func() time.Time
}

// InvitationView is an invitation with its team name and lazily computed status.
type InvitationView struct {
	model.TeamInvitation
	TeamName string `json:"team_name"`
}

func NewInvitationService(
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	userRepo *repository.UserRepository,
	inviteRepo *repository.InvitationRepository,
	notifier *NotificationService,
	mailer *Mailer,
	cfg InvitationServiceConfig,
	logger *zap.Logger,
) *InvitationService {
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	return &InvitationService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		notifier:   notifier,
		mailer:     mailer,
		cfg:        cfg,
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

type InviteInput struct {
	ActorID uint
	TeamID  uint
	Email   string
	Role    string
}

func (s *InvitationService) Invite(ctx context.Context, input InviteInput) (*model.TeamInvitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = model.RoleMember
	}
	if !strings.Contains(email, "@") || !access.Assignable(role) {
		return nil, ErrInvalidInput
	}

	team, actor, err := teamMembership(s.teamRepo, s.memberRepo, input.TeamID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !access.CanInviteAs(actor.Role, role) {
		return nil, ErrForbidden
	}

	invitee, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if invitee != nil {
		member, err := s.memberRepo.Get(team.ID, invitee.ID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			return nil, ErrAlreadyMember
		}
	}
	now := s.now()
	pending, err := s.inviteRepo.FindPending(team.ID, email, now)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrInvitationPending
	}

	inv := &model.TeamInvitation{
		TeamID:      team.ID,
		Email:       email,
		Role:        role,
		Token:       uuid.NewString(),
		Status:      model.InvitationPending,
		InvitedByID: input.ActorID,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}
	if err := s.inviteRepo.Create(inv); err != nil {
		return nil, err
	}

	inviter, err := s.userRepo.GetByID(input.ActorID)
	if err != nil || inviter == nil {
		inviter = &model.User{Username: "A teammate"}
	}
	s.sendInvitationEmail(ctx, team, inviter, inv)
	if invitee != nil {
		s.notifier.Notify(model.Notification{
			UserID: invitee.ID,
			Type:   model.NotifyTeamInvitation,
			Title:  fmt.Sprintf("%s invited you to join %s", displayName(inviter), team.Name),
			Body:   fmt.Sprintf("Role: %s", role),
			TeamID: uintPtr(team.ID),
		})
	}
	return inv, nil
}

func (s *InvitationService) ListTeam(actorID, teamID uint) ([]InvitationView, error) {
	team, actor, err := teamMembership(s.teamRepo, s.memberRepo, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !access.Can(actor.Role, access.ViewTeamInvitations) {
		return nil, ErrForbidden
	}
	list, err := s.inviteRepo.ListByTeam(teamID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]InvitationView, 0, len(list))
	for _, inv := range list {
		inv.Status = inv.EffectiveStatus(now)
		out = append(out, InvitationView{TeamInvitation: inv, TeamName: team.Name})
	}
	return out, nil
}

// ListMine returns the pending invitations addressed to userID's email.
func (s *InvitationService) ListMine(userID uint) ([]InvitationView, error) {
	user, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	list, err := s.inviteRepo.ListPendingByEmail(user.Email, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]InvitationView, 0, len(list))
	for _, inv := range list {
		view := InvitationView{TeamInvitation: inv}
		if team, err := s.teamRepo.GetByID(inv.TeamID); err == nil && team != nil {
			view.TeamName = team.Name
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *InvitationService) Accept(userID uint, token string) (*model.Team, error) {
	user, inv, err := s.respondable(userID, token)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.Get(inv.TeamID, user.ID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		_ = s.inviteRepo.SetStatus(inv.ID, model.InvitationAccepted, s.now())
		return nil, ErrAlreadyMember
	}
	if err := s.inviteRepo.Accept(inv, user.ID, s.now()); err != nil {
		return nil, err
	}
	team, err := s.teamRepo.GetByID(inv.TeamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	s.notifier.Notify(model.Notification{
		UserID: inv.InvitedByID,
		Type:   model.NotifyTeamMemberAdded,
		Title:  fmt.Sprintf("%s joined %s", displayName(user), team.Name),
		TeamID: uintPtr(team.ID),
	})
	return team, nil
}

func (s *InvitationService) Decline(userID uint, token string) error {
	_, inv, err := s.respondable(userID, token)
	if err != nil {
		return err
	}
	return s.inviteRepo.SetStatus(inv.ID, model.InvitationDeclined, s.now())
}

func (s *InvitationService) Revoke(actorID, teamID, invitationID uint) error {
	_, actor, err := teamMembership(s.teamRepo, s.memberRepo, teamID, actorID)
	if err != nil {
		return err
	}
	if !access.Can(actor.Role, access.InviteMembers) {
		return ErrForbidden
	}
	inv, err := s.inviteRepo.GetByID(invitationID)
	if err != nil {
		return err
	}
	if inv == nil || inv.TeamID != teamID {
		return ErrInvitationNotFound
	}
	if inv.EffectiveStatus(s.now()) != model.InvitationPending {
		return ErrInvitationClosed
	}
	return s.inviteRepo.SetStatus(inv.ID, model.InvitationRevoked, s.now())
}

// respondable loads a pending invitation addressed to userID.
func (s *InvitationService) respondable(userID uint, token string) (*model.User, *model.TeamInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrInvalidInput
	}
	user, err := s.user(userID)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.inviteRepo.GetByToken(token)
	if err != nil {
		return nil, nil, err
	}
	if inv == nil {
		return nil, nil, ErrInvitationNotFound
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, nil, ErrInvitationWrongEmail
	}
	switch inv.EffectiveStatus(s.now()) {
	case model.InvitationPending:
		return user, inv, nil
	case model.InvitationExpired:
		return nil, nil, ErrInvitationExpired
	default:
		return nil, nil, ErrInvitationClosed
	}
}

func (s *InvitationService) user(userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *InvitationService) sendInvitationEmail(ctx context.Context, team *model.Team, inviter *model.User, inv *model.TeamInvitation) {
	msg, err := mail.InvitationMessage(mail.InvitationData{
		To:          inv.Email,
		TeamName:    team.Name,
		InviterName: displayName(inviter),
		Role:        inv.Role,
		AcceptURL:   fmt.Sprintf("%s/invitations/%s", strings.TrimRight(s.cfg.BaseURL, "/"), inv.Token),
		ExpiresAt:   inv.ExpiresAt,
	})
	if err != nil {
		s.logger.Warn("render invitation email failed", zap.Uint("invitation_id", inv.ID), zap.Error(err))
		return
	}
	s.mailer.Deliver(ctx, msg)
}
