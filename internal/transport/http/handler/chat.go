package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

const defaultHistoryLimit = 100

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Content  string `json:"content" binding:"required,max=4000"`
	Language string `json:"language" binding:"omitempty,max=8"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) input(c *gin.Context) (app.SendMessageInput, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return app.SendMessageInput{}, false
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return app.SendMessageInput{}, false
	}
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return app.SendMessageInput{}, false
	}
	return app.SendMessageInput{
		UserID:     userID,
		DocumentID: docID,
		Content:    req.Content,
		Language:   req.Language,
	}, true
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	input, ok := h.input(c)
	if !ok {
		return
	}

	reply, err := h.chatService.SendMessage(c.Request.Context(), input)
	if err != nil {
		response.FromError(c, err, "send message failed")
		return
	}
	response.OK(c, reply)
}

// StreamMessage answers over server-sent events: one "data:" frame per model
// chunk, then an "event: done" frame carrying the persisted reply. Errors raised
// before the first chunk are returned as a normal JSON envelope.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	input, ok := h.input(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	reply, err := h.chatService.StreamMessage(c.Request.Context(), input, func(chunk string) error {
		begin()
		if writeErr := writeSSE(c.Writer, "", chunk); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			response.FromError(c, err, "send message failed")
			return
		}
		_ = c.Error(err)
		message := "stream failed"
		if _, _, mapped := response.Status(err); mapped {
			message = err.Error()
		}
		if writeErr := writeSSE(c.Writer, "error", message); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	begin()
	payload, err := json.Marshal(reply)
	if err != nil {
		payload = []byte("{}")
	}
	if writeErr := writeSSE(c.Writer, "done", string(payload)); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID, docID, queryInt(c, "limit", defaultHistoryLimit))
	if err != nil {
		response.FromError(c, err, "get history failed")
		return
	}
	response.OK(c, history)
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.ClearHistory(c.Request.Context(), userID, docID); err != nil {
		response.FromError(c, err, "clear history failed")
		return
	}
	response.OK(c, gin.H{"cleared_document_id": docID})
}

// writeSSE frames data as one event; multi-line data becomes several data lines.
func writeSSE(w gin.ResponseWriter, event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := w.WriteString(b.String())
	return err
}
