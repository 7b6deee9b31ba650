package app

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"legiseye/internal/access"
	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

const maxCommentRunes = 5000

type CommentService struct {
	access      documentAccess
	commentRepo *repository.CommentRepository
	notifier    *NotificationService
	logger      *zap.Logger
}

type AddCommentInput struct {
	Body     string
	Page     int
	Quote    string
	ParentID *uint
}

// CommentThread is a top level comment with its replies in creation order.
type CommentThread struct {
	model.Comment
	Replies []model.Comment `json:"replies"`
}

func NewCommentService(
	docRepo *repository.DocumentRepository,
	shareRepo *repository.ShareRepository,
	commentRepo *repository.CommentRepository,
	notifier *NotificationService,
	logger *zap.Logger,
) *CommentService {
	return &CommentService{
		access:      documentAccess{docRepo: docRepo, shareRepo: shareRepo},
		commentRepo: commentRepo,
		notifier:    notifier,
		logger:      logging.OrNop(logger),
	}
}

func (s *CommentService) Add(actorID, documentID uint, input AddCommentInput) (*model.Comment, error) {
	body, err := validateCommentBody(input.Body)
	if err != nil {
		return nil, err
	}
	doc, _, err := s.access.require(documentID, actorID, access.CommentDocument)
	if err != nil {
		return nil, err
	}
	if input.Page < 0 || (doc.PageCount > 0 && input.Page > doc.PageCount) {
		return nil, ErrInvalidInput
	}

	var parent *model.Comment
	if input.ParentID != nil && *input.ParentID != 0 {
		parent, err = s.commentRepo.GetByID(*input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.DocumentID != doc.ID {
			return nil, ErrInvalidParent
		}
		// Replies to a reply attach to the thread root.
		if parent.ParentID != nil {
			if parent, err = s.commentRepo.GetByID(*parent.ParentID); err != nil {
				return nil, err
			}
			if parent == nil {
				return nil, ErrInvalidParent
			}
		}
	}

	comment := &model.Comment{
		DocumentID: doc.ID,
		AuthorID:   actorID,
		Page:       input.Page,
		Quote:      truncateRunes(strings.TrimSpace(input.Quote), 1024),
		Body:       body,
	}
	if parent != nil {
		comment.ParentID = uintPtr(parent.ID)
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, err
	}

	notified := map[uint]bool{actorID: true}
	if parent != nil && !notified[parent.AuthorID] {
		notified[parent.AuthorID] = true
		s.notifier.Notify(model.Notification{
			UserID:     parent.AuthorID,
			Type:       model.NotifyCommentReply,
			Title:      fmt.Sprintf("New reply on %q", doc.Name),
			Body:       truncateRunes(body, 200),
			DocumentID: uintPtr(doc.ID),
		})
	}
	if !notified[doc.OwnerID] {
		s.notifier.Notify(model.Notification{
			UserID:     doc.OwnerID,
			Type:       model.NotifyCommentAdded,
			Title:      fmt.Sprintf("New comment on %q", doc.Name),
			Body:       truncateRunes(body, 200),
			DocumentID: uintPtr(doc.ID),
		})
	}
	return comment, nil
}

func (s *CommentService) List(actorID, documentID uint) ([]CommentThread, error) {
	doc, _, err := s.access.require(documentID, actorID, access.ViewDocument)
	if err != nil {
		return nil, err
	}
	list, err := s.commentRepo.ListByDocument(doc.ID)
	if err != nil {
		return nil, err
	}
	return nestComments(list), nil
}

func (s *CommentService) Edit(actorID, commentID uint, body string) (*model.Comment, error) {
	body, err := validateCommentBody(body)
	if err != nil {
		return nil, err
	}
	comment, _, err := s.load(actorID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, ErrForbidden
	}
	if err := s.commentRepo.UpdateBody(comment.ID, body); err != nil {
		return nil, err
	}
	comment.Body = body
	return comment, nil
}

// Delete is allowed for the author and for moderators of the document.
func (s *CommentService) Delete(actorID, commentID uint) error {
	comment, role, err := s.load(actorID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID && !access.Can(role, access.ModerateComment) {
		return ErrForbidden
	}
	return s.commentRepo.Delete(comment.ID)
}

func (s *CommentService) Resolve(actorID, commentID uint, resolved bool) (*model.Comment, error) {
	comment, role, err := s.load(actorID, commentID)
	if err != nil {
		return nil, err
	}
	if !access.Can(role, access.ResolveComment) {
		return nil, ErrForbidden
	}
	if err := s.commentRepo.SetResolved(comment.ID, resolved); err != nil {
		return nil, err
	}
	comment.Resolved = resolved
	return comment, nil
}

// load returns the comment and the actor's role on its document.
func (s *CommentService) load(actorID, commentID uint) (*model.Comment, string, error) {
	if commentID == 0 {
		return nil, "", ErrInvalidInput
	}
	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		return nil, "", err
	}
	if comment == nil {
		return nil, "", ErrCommentNotFound
	}
	_, role, err := s.access.require(comment.DocumentID, actorID, access.ViewDocument)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, "", ErrCommentNotFound
		}
		return nil, "", err
	}
	return comment, role, nil
}

func nestComments(list []model.Comment) []CommentThread {
	threads := make([]CommentThread, 0, len(list))
	index := make(map[uint]int, len(list))
	var replies []model.Comment
	for _, c := range list {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, CommentThread{Comment: c, Replies: []model.Comment{}})
			continue
		}
		replies = append(replies, c)
	}
	for _, c := range replies {
		if i, ok := index[*c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}

func validateCommentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxCommentRunes {
		return "", ErrInvalidInput
	}
	return body, nil
}
