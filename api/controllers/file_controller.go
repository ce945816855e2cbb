package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/fileserver-admin/panel"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

// HandleUpload uploads every "files" part of the form, one after another.
// POST /api/self/v1/upload
func (pc *PanelController) HandleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid multipart form: "+err.Error()))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("No files selected"))
		return
	}
	sources := make([]panel.UploadSource, 0, len(headers))
	for _, fh := range headers {
		sources = append(sources, formSource(fh))
	}

	results, err := pc.panel.UploadFiles(c.Request.Context(), sources, c.PostForm("folder"))
	if err != nil {
		respondError(c, err)
		return
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	status := http.StatusOK
	if failed == len(results) {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success": failed == 0,
		"data":    results,
		"failed":  failed,
	})
}

func formSource(fh *multipart.FileHeader) panel.UploadSource {
	return panel.UploadSource{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// HandleDelete deletes a file. The browser asks the user first and says so with confirmed=true.
// DELETE /api/self/v1/files/:fileId?confirmed=true
func (pc *PanelController) HandleDelete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirmed"))
	err := pc.panel.DeleteFile(c.Request.Context(), c.Param("fileId"), func(types.FileRecord) bool {
		return confirmed
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleDownload streams the file back to the browser under its original name.
// GET /api/self/v1/download/:fileId
func (pc *PanelController) HandleDownload(c *gin.Context) {
	dl, err := pc.panel.OpenDownload(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := dl.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close download stream: %v", err)
		}
	}()
	c.DataFromReader(http.StatusOK, dl.Size, dl.MimeType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.FileName),
	})
}

// HandleView sends the browser to the file itself, in the same tab.
// GET /api/self/v1/view?url=
func (pc *PanelController) HandleView(c *gin.Context) {
	target, err := pc.panel.ViewFile(c.Query("url"))
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	c.Redirect(http.StatusFound, target)
}

// HandleFileInfo returns the server metadata of a file.
// GET /api/self/v1/files/:fileId
func (pc *PanelController) HandleFileInfo(c *gin.Context) {
	record, err := pc.panel.FileInfo(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(record))
}
