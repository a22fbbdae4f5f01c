package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/encryption"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/store"
)

type unlockRequest struct {
	UserID   string `json:"user_id"  binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
}

type keyRequest struct {
	Password string `json:"password" binding:"required,min=4"`
}

func source(c *gin.Context, resource string) audit.Source {
	return audit.Source{
		Actor:      c.GetHeader(HeaderUserID),
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Resource:   resource,
	}
}

func (s *Server) unlockFolder(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx := c.Request.Context()

	folder, err := s.app.Store.GetFolder(ctx, c.Param("folder"))
	if err != nil {
		s.fail(c, err)

		return
	}

	if !folder.Gate().Protected() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder is not protected"})

		return
	}

	svc, err := s.app.Access()
	if err != nil {
		s.fail(c, err)

		return
	}

	src := source(c, folder.ID)
	src.Actor = req.UserID

	token, err := svc.Issue(ctx, folder.ID, req.UserID, req.Password, folder.PasswordHash, src)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token.Value, "expires_at": token.ExpiresAt})
}

// gatedFile loads the file named in the path and runs the folder gate. On failure it
// writes the response and returns false.
func (s *Server) gatedFile(c *gin.Context) (store.File, bool) {
	ctx := c.Request.Context()

	file, err := s.app.Store.GetFile(ctx, c.Param("file"))
	if err != nil {
		s.fail(c, err)

		return store.File{}, false
	}

	token := c.GetHeader(HeaderFolderToken)
	userID := c.GetHeader(HeaderUserID)

	if err := s.app.Authorize(ctx, file, token, userID, source(c, file.FolderID)); err != nil {
		s.fail(c, err)

		return store.File{}, false
	}

	return file, true
}

func (s *Server) unwrapKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	file, ok := s.gatedFile(c)
	if !ok {
		return
	}

	if file.Mode != envelope.ModeSecure {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is stored in plain mode and has no key"})

		return
	}

	key, err := s.app.Envelope.UnwrapKey(c.Request.Context(), file.KeyBlob, req.Password, file.Salt, source(c, file.ID))
	if err != nil {
		s.fail(c, err)

		return
	}
	defer key.Zero()

	c.JSON(http.StatusOK, gin.H{"key": encryption.EncodeText(key[:]), "mode": file.Mode})
}

func (s *Server) fileBlob(c *gin.Context) {
	file, ok := s.gatedFile(c)
	if !ok {
		return
	}

	blob, err := s.app.ReadBlob(file.ID)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.Header("X-Storage-Mode", string(file.Mode))
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) deleteFile(c *gin.Context) {
	file, ok := s.gatedFile(c)
	if !ok {
		return
	}

	if err := s.app.DeleteFile(c.Request.Context(), file.ID); err != nil {
		s.fail(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

// fail maps an error to a status code. Crypto failures share one message.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, envelope.ErrInvalidPassword), errors.Is(err, access.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
	case errors.Is(err, access.ErrTokenExpiredOrMissing):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, encryption.ErrMalformedBlob):
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("stored key blob is malformed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored key is corrupt"})
	default:
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
