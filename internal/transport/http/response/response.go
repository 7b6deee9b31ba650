package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
)

const (
	CodeOK              = 0
	CodeBadRequest      = 40000
	CodeUnauthorized    = 40100
	CodeForbidden       = 40300
	CodeNotFound        = 40400
	CodeConflict        = 40900
	CodeTooLarge        = 41300
	CodeTooManyRequests = 42900
	CodeInternalServer  = 50000
	CodeUnavailable     = 50300

	CodeUsernameExists      = 40001
	CodeEmailExists         = 40002
	CodeUnsupportedFile     = 40003
	CodeEmptyDocument       = 40004
	CodeUnsupportedLanguage = 40005
	CodeInvalidParent       = 40006
	CodeInvalidCredentials  = 40101
	CodeWrongInvitee        = 40301
	CodeDocumentNotFound    = 40401
	CodeTeamNotFound        = 40402
	CodeMemberNotFound      = 40403
	CodeInvitationNotFound  = 40404
	CodeCommentNotFound     = 40405
	CodeNotificationMissing = 40406
	CodeUserNotFound        = 40407
	CodeAlreadyMember       = 40901
	CodeInvitationPending   = 40902
	CodeInvitationClosed    = 40903
	CodeOwnerCannotLeave    = 40904
	CodeAnalysisNotReady    = 40905
	CodeInvitationExpired   = 41001
)

type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

type errorMapping struct {
	target error
	status int
	code   int
}

var errorMappings = []errorMapping{
	{app.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest},
	{app.ErrMessageEmpty, http.StatusBadRequest, CodeBadRequest},
	{app.ErrUnsupportedFile, http.StatusBadRequest, CodeUnsupportedFile},
	{app.ErrEmptyDocument, http.StatusBadRequest, CodeEmptyDocument},
	{app.ErrUnsupportedLanguage, http.StatusBadRequest, CodeUnsupportedLanguage},
	{app.ErrInvalidParent, http.StatusBadRequest, CodeInvalidParent},
	{app.ErrUsernameExists, http.StatusConflict, CodeUsernameExists},
	{app.ErrEmailExists, http.StatusConflict, CodeEmailExists},
	{app.ErrInvalidCredential, http.StatusUnauthorized, CodeInvalidCredentials},
	{app.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{app.ErrInvitationWrongEmail, http.StatusForbidden, CodeWrongInvitee},
	{app.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
	{app.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound},
	{app.ErrTeamNotFound, http.StatusNotFound, CodeTeamNotFound},
	{app.ErrMemberNotFound, http.StatusNotFound, CodeMemberNotFound},
	{app.ErrInvitationNotFound, http.StatusNotFound, CodeInvitationNotFound},
	{app.ErrCommentNotFound, http.StatusNotFound, CodeCommentNotFound},
	{app.ErrNotificationNotFound, http.StatusNotFound, CodeNotificationMissing},
	{app.ErrAlreadyMember, http.StatusConflict, CodeAlreadyMember},
	{app.ErrInvitationPending, http.StatusConflict, CodeInvitationPending},
	{app.ErrInvitationClosed, http.StatusConflict, CodeInvitationClosed},
	{app.ErrOwnerCannotLeave, http.StatusConflict, CodeOwnerCannotLeave},
	{app.ErrAnalysisNotReady, http.StatusConflict, CodeAnalysisNotReady},
	{app.ErrInvitationExpired, http.StatusGone, CodeInvitationExpired},
	{app.ErrFileTooLarge, http.StatusRequestEntityTooLarge, CodeTooLarge},
	{app.ErrAnalysisMalformed, http.StatusBadGateway, CodeUnavailable},
}

// Status resolves a service error to its HTTP status and business code.
// ok is false for errors with no mapping.
func Status(err error) (status, code int, ok bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, CodeInternalServer, false
}

// FromError writes the envelope for err. Unmapped errors are reported with
// fallback so internals do not leak to clients.
func FromError(c *gin.Context, err error, fallback string) {
	status, code, ok := Status(err)
	if !ok {
		_ = c.Error(err)
		Error(c, status, code, fallback)
		return
	}
	Error(c, status, code, err.Error())
}
