package app

import (
	"fmt"

	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

type SharingService struct {
	access     documentAccess
	teamRepo   *repository.TeamRepository
	memberRepo *repository.MemberRepository
	shareRepo  *repository.ShareRepository
	notifier   *NotificationService
	logger     *zap.Logger
}

func NewSharingService(
	docRepo *repository.DocumentRepository,
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	shareRepo *repository.ShareRepository,
	notifier *NotificationService,
	logger *zap.Logger,
) *SharingService {
	return &SharingService{
		access:     documentAccess{docRepo: docRepo, shareRepo: shareRepo},
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		shareRepo:  shareRepo,
		notifier:   notifier,
		logger:     logging.OrNop(logger),
	}
}

// Share gives teamID's members access to the document. Only the document
// owner may share, and only with teams where they can share. Sharing twice is
// a no-op.
func (s *SharingService) Share(actorID, documentID, teamID uint) error {
	doc, _, err := s.access.require(documentID, actorID, access.ViewDocument)
	if err != nil {
		return err
	}
	if doc.OwnerID != actorID {
		return ErrForbidden
	}
	team, member, err := teamMembership(s.teamRepo, s.memberRepo, teamID, actorID)
	if err != nil {
		return err
	}
	if !access.Can(member.Role, access.ShareDocument) {
		return ErrForbidden
	}

	created, err := s.shareRepo.Create(&model.DocumentShare{DocumentID: doc.ID, TeamID: team.ID, SharedByID: actorID})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	userIDs, err := s.memberRepo.ListUserIDs(team.ID)
	if err != nil {
		s.logger.Warn("list team members failed", zap.Uint("team_id", team.ID), zap.Error(err))
		return nil
	}
	s.notifier.NotifyAll(userIDs, actorID, model.Notification{
		Type:       model.NotifyDocumentShared,
		Title:      fmt.Sprintf("%q was shared with %s", doc.Name, team.Name),
		DocumentID: uintPtr(doc.ID),
		TeamID:     uintPtr(team.ID),
	})
	return nil
}

// Unshare is allowed for the document owner and admins of the team.
func (s *SharingService) Unshare(actorID, documentID, teamID uint) error {
	doc, _, err := s.access.require(documentID, actorID, access.ViewDocument)
	if err != nil {
		return err
	}
	if doc.OwnerID != actorID {
		member, err := s.memberRepo.Get(teamID, actorID)
		if err != nil {
			return err
		}
		if member == nil || !access.Can(member.Role, access.UnshareFromTeam) {
			return ErrForbidden
		}
	}
	removed, err := s.shareRepo.Delete(doc.ID, teamID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTeamNotFound
	}
	return nil
}

func (s *SharingService) List(actorID, documentID uint) ([]repository.SharedTeam, error) {
	doc, _, err := s.access.require(documentID, actorID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	return s.shareRepo.ListByDocument(doc.ID)
}
