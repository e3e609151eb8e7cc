package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
)

func (s *Server) UploadReceipt(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "multipart field 'file' is required"))
		return
	}

	// The size ceiling is checked before reading so an oversized upload
	// never gets buffered in full.
	if fileHeader.Size > receiptdomain.MaxFileSize {
		AbortWithError(c, receiptdomain.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, receiptdomain.MaxFileSize+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	receipt, err := s.receiptSvc.Process(c.Request.Context(), receiptdomain.ProcessRequest{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

func (s *Server) GetReceipt(c *gin.Context) {
	receipt, err := s.receiptSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

type listReceiptsQuery struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

func (s *Server) ListReceipts(c *gin.Context) {
	var query listReceiptsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.receiptSvc.List(c.Request.Context(), receiptdomain.ListRequest{
		Category: strings.TrimSpace(query.Category),
		Status:   strings.TrimSpace(query.Status),
		Search:   query.Search,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type updateReceiptRequest struct {
	Category *string  `json:"category"`
	Status   *string  `json:"processing_status"`
	Tags     []string `json:"tags"`
	Notes    *string  `json:"notes"`
}

func (s *Server) UpdateReceipt(c *gin.Context) {
	var req updateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	receipt, err := s.receiptSvc.Update(c.Request.Context(), receiptdomain.UpdateRequest{
		ID:       c.Param("id"),
		Category: req.Category,
		Status:   req.Status,
		Tags:     req.Tags,
		Notes:    req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (s *Server) DeleteReceipt(c *gin.Context) {
	if err := s.receiptSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) ReclassifyReceipt(c *gin.Context) {
	receipt, err := s.receiptSvc.Reclassify(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
