package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mentorchat/internal/app"
	"mentorchat/internal/model"
	"mentorchat/internal/transport/http/middleware"
	"mentorchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type AppendMessageRequest struct {
	Role     string `json:"role" binding:"required"`
	Content  string `json:"content" binding:"max=20000"`
	FileURL  string `json:"fileUrl" binding:"omitempty,url,max=1024"`
	FileName string `json:"fileName" binding:"max=255"`
	FileType string `json:"fileType" binding:"max=128"`
	FileSize *int64 `json:"fileSize" binding:"omitempty,gte=0"`
}

func (r AppendMessageRequest) attachment() *model.Attachment {
	if r.FileURL == "" {
		return nil
	}
	a := &model.Attachment{URL: r.FileURL, Name: r.FileName, MimeType: r.FileType}
	if r.FileSize != nil {
		a.SizeBytes = *r.FileSize
	}
	return a
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// AppendMessage stores one turn whose attachment, if any, was uploaded
// beforehand.
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	turn, err := h.chatService.Append(c.Request.Context(), app.AppendInput{
		UserID:     userID,
		Role:       model.Role(req.Role),
		Content:    req.Content,
		Attachment: req.attachment(),
	})
	if err != nil {
		writeServiceError(c, err, nil)
		return
	}

	response.OK(c, gin.H{"message": turn})
}

// SendWithAttachment accepts multipart "content", optional "file" and
// optional "bucket", uploads the file and then stores the user turn.
func (h *ChatHandler) SendWithAttachment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadRequestSize)
	input := app.SendInput{UserID: userID}

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, meta, openErr := openUpload(fh)
		if openErr != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded file")
			return
		}
		defer f.Close()
		input.File = &meta
		input.Body = f
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		writeFormFileError(c, err)
		return
	}
	input.Content = c.PostForm("content")
	input.Bucket = c.PostForm("bucket")

	result, err := h.chatService.SendWithAttachment(c.Request.Context(), input)
	if err != nil {
		var extra gin.H
		if result != nil && result.Upload != nil {
			extra = gin.H{"attachment": result.Upload}
		}
		writeServiceError(c, err, extra)
		return
	}

	fields := gin.H{"message": result.Turn}
	if result.Upload != nil {
		fields["attachment"] = result.Upload
	}
	response.OK(c, fields)
}

// GetHistory answers 200 even when the log cannot be read, with
// success=false and an empty list.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	limit := app.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > app.MaxHistoryLimit {
			response.ErrorWith(c, http.StatusBadRequest, response.CodeBadRequest, app.ErrInvalidLimit.Error(), gin.H{"data": []model.ChatTurn{}})
			return
		}
		limit = parsed
	}

	turns, err := h.chatService.Fetch(c.Request.Context(), userID, limit)
	if err != nil {
		var fetchErr *app.FetchError
		if errors.As(err, &fetchErr) {
			c.JSON(http.StatusOK, gin.H{"success": false, "data": []model.ChatTurn{}})
			return
		}
		writeServiceError(c, err, gin.H{"data": []model.ChatTurn{}})
		return
	}

	response.OK(c, gin.H{"data": turns})
}
