package app

import (
	"legiseye/internal/access"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

// documentAccess resolves a user's effective role on a document. Owners act
// as "owner"; everyone else gets their best role across teams the document
// is shared with.
type documentAccess struct {
	docRepo   *repository.DocumentRepository
	shareRepo *repository.ShareRepository
}

func (a documentAccess) role(doc *model.Document, userID uint) (string, error) {
	if doc.OwnerID == userID {
		return model.RoleOwner, nil
	}
	roles, err := a.shareRepo.RolesForDocument(doc.ID, userID)
	if err != nil {
		return "", err
	}
	return access.Best(roles...), nil
}

// require loads the document and checks action. Documents the user cannot
// see at all are reported as not found.
func (a documentAccess) require(documentID, userID uint, action access.Action) (*model.Document, string, error) {
	if documentID == 0 || userID == 0 {
		return nil, "", ErrInvalidInput
	}
	doc, err := a.docRepo.GetByID(documentID)
	if err != nil {
		return nil, "", err
	}
	if doc == nil {
		return nil, "", ErrDocumentNotFound
	}
	role, err := a.role(doc, userID)
	if err != nil {
		return nil, "", err
	}
	if role == "" {
		return nil, "", ErrDocumentNotFound
	}
	if !access.Can(role, action) {
		return nil, "", ErrForbidden
	}
	return doc, role, nil
}
