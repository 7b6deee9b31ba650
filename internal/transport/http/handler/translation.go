package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

const maxTranslateTexts = 50

type TranslationHandler struct {
	translationService *app.TranslationService
}

type TranslateRequest struct {
	Texts  []string `json:"texts" binding:"required,min=1"`
	Source string   `json:"source"`
	Target string   `json:"target" binding:"required"`
}

func NewTranslationHandler(translationService *app.TranslationService) *TranslationHandler {
	return &TranslationHandler{translationService: translationService}
}

// Analysis returns the document analysis translated to ?lang=xx.
func (h *TranslationHandler) Analysis(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	lang := c.Query("lang")
	if lang == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing lang")
		return
	}

	analysis, err := h.translationService.TranslateAnalysis(c.Request.Context(), userID, docID, lang)
	if err != nil {
		response.FromError(c, err, "translate analysis failed")
		return
	}
	response.OK(c, analysis)
}

func (h *TranslationHandler) Languages(c *gin.Context) {
	response.OK(c, gin.H{"languages": h.translationService.Languages()})
}

func (h *TranslationHandler) Translate(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req TranslateRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Texts) > maxTranslateTexts {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "too many texts")
		return
	}

	out, err := h.translationService.Translate(c.Request.Context(), req.Texts, req.Source, req.Target)
	if err != nil {
		response.FromError(c, err, "translate failed")
		return
	}
	response.OK(c, gin.H{"texts": out})
}
