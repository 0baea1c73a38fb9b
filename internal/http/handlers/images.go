package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/shared/apperr"
)

// ImagesHandler redirects image requests to the object storage bucket.
type ImagesHandler struct {
	StorageBaseURL string
}

func NewImagesHandler(storageBaseURL string) *ImagesHandler {
	return &ImagesHandler{StorageBaseURL: storageBaseURL}
}

func (h *ImagesHandler) Redirect(c *gin.Context) {
	imagePath := strings.TrimPrefix(c.Param("path"), "/")
	if imagePath == "" {
		middleware.Fail(c, apperr.InvalidErr("Image path must not be empty.", nil))
		return
	}

	// the bucket nests another images/ directory: images/x.png lives at
	// images/images/x.png
	actualPath := imagePath
	if strings.HasPrefix(imagePath, "images/") {
		actualPath = "images/" + imagePath
	}

	c.Redirect(http.StatusFound, h.StorageBaseURL+"/"+actualPath)
}
