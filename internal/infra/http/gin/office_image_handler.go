package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/dto"
	officeapp "deskhub/internal/app/handlers/offices"
	domainoffices "deskhub/internal/domain/offices"
	domainusers "deskhub/internal/domain/users"
)

const maxImageBytes = 5 << 20

type OfficeImageHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h OfficeImageHandler) Upload(c *gin.Context) {
	p, ok := requireCapability(c, "office.update")
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if file.Size > maxImageBytes {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"image": []string{"image may not be larger than 5 megabytes"}}})
		return
	}

	contentType, fileExt, ok := imageContentType(file.Header.Get("Content-Type"), file.Filename)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"image": []string{"image must be a jpg or png file"}}})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image upload"})
		return
	}
	defer src.Close()

	officeID := c.Param("id")
	cmd := officeapp.UploadOfficeImageCommand{
		Actor:       domainusers.UserID(p.ID),
		OfficeID:    domainoffices.OfficeID(officeID),
		ObjectKey:   fmt.Sprintf("offices/%s/%s%s", officeID, uuid.NewString(), fileExt),
		ContentType: contentType,
		Reader:      src,
	}
	result, err := commands.Dispatch[officeapp.UploadOfficeImageCommand, *dto.ImageEnvelope](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h OfficeImageHandler) Delete(c *gin.Context) {
	p, ok := requireCapability(c, "office.update")
	if !ok {
		return
	}
	cmd := officeapp.DeleteOfficeImageCommand{
		Actor:    domainusers.UserID(p.ID),
		OfficeID: domainoffices.OfficeID(c.Param("id")),
		ImageID:  domainoffices.ImageID(c.Param("imageId")),
	}
	if _, err := commands.Dispatch[officeapp.DeleteOfficeImageCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// imageContentType accepts jpg and png uploads, falling back to the file
// extension when the part carries no usable content type.
func imageContentType(declared, filename string) (contentType, ext string, ok bool) {
	switch strings.ToLower(declared) {
	case "image/jpeg", "image/jpg":
		return "image/jpeg", ".jpg", true
	case "image/png":
		return "image/png", ".png", true
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", ".jpg", true
	case ".png":
		return "image/png", ".png", true
	}
	return "", "", false
}
