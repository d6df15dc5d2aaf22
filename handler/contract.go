package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/logger"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/service"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contracts   *service.ContractService
	maxBodySize int64
}

func NewContractHandler(contracts *service.ContractService, maxBodyMB int64) *ContractHandler {
	return &ContractHandler{
		contracts:   contracts,
		maxBodySize: maxBodyMB << 20,
	}
}

// Register mounts the contract routes. links guards the retrieval routes.
func (h *ContractHandler) Register(r gin.IRouter, links gin.HandlerFunc) {
	r.POST("/send-contract", h.SendToLabel)
	r.POST("/send-contract-to-label", h.SendToLabel)
	r.POST("/send-contract-to-artist", h.SendToArtist)
	r.POST("/update-contract-status", h.UpdateStatus)

	retrieval := r.Group("/")
	retrieval.Use(links)
	{
		retrieval.GET("/get-contract", h.Get)
		retrieval.GET("/get-contract-file", h.DownloadFile)
		retrieval.GET("/get-contract-pdf", h.ViewPDF)
		retrieval.GET("/contract-response", h.Response)
	}
}

type SendContractRequest struct {
	ContractID    string `json:"contractId"`
	ArtistEmail   string `json:"artistEmail"`
	LabelEmail    string `json:"labelEmail"`
	PDFBase64     string `json:"pdfBase64"`
	FileName      string `json:"fileName"`
	ArtistName    string `json:"artistName"`
	LabelName     string `json:"labelName"`
	ArtistAddress string `json:"artistAddress"`
	LabelAddress  string `json:"labelAddress"`
}

type SendToArtistRequest struct {
	ArtistName         string `json:"artistName"`
	LabelName          string `json:"labelName"`
	ArtistEmail        string `json:"artistEmail"`
	LabelEmail         string `json:"labelEmail"`
	PDFBase64          string `json:"pdfBase64"`
	FileName           string `json:"fileName"`
	IsContractApproved bool   `json:"isContractApproved"`
}

type UpdateStatusRequest struct {
	ContractID string `json:"contractId"`
	Status     string `json:"status"`
}

// SendToLabel stores a new contract and emails it to the label
func (h *ContractHandler) SendToLabel(c *gin.Context) {
	var req SendContractRequest
	if !h.bindJSON(c, &req) {
		return
	}

	contract, err := h.contracts.Submit(c.Request.Context(), service.Submission{
		ContractID:    req.ContractID,
		ArtistEmail:   req.ArtistEmail,
		LabelEmail:    req.LabelEmail,
		PDFBase64:     req.PDFBase64,
		FileName:      req.FileName,
		ArtistName:    req.ArtistName,
		LabelName:     req.LabelName,
		ArtistAddress: req.ArtistAddress,
		LabelAddress:  req.LabelAddress,
	})
	if err != nil {
		h.fail(c, "send_contract", req.ContractID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Email sent successfully",
		"contractId": contract.ID,
	})
}

// SendToArtist relays the label's decision to the artist
func (h *ContractHandler) SendToArtist(c *gin.Context) {
	var req SendToArtistRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.contracts.SendToArtist(c.Request.Context(), service.Decision{
		ArtistName:  req.ArtistName,
		LabelName:   req.LabelName,
		ArtistEmail: req.ArtistEmail,
		LabelEmail:  req.LabelEmail,
		PDFBase64:   req.PDFBase64,
		FileName:    req.FileName,
		Approved:    req.IsContractApproved,
	})
	if err != nil {
		h.fail(c, "send_contract_to_artist", "", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}

// Get returns the contract record
func (h *ContractHandler) Get(c *gin.Context) {
	id := c.Query("contractId")

	contract, err := h.contracts.Metadata(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get_contract", id, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// DownloadFile streams the current PDF as a download
func (h *ContractHandler) DownloadFile(c *gin.Context) {
	h.servePDF(c, "get_contract_file", "attachment")
}

// ViewPDF streams the current PDF for display in the browser
func (h *ContractHandler) ViewPDF(c *gin.Context) {
	h.servePDF(c, "get_contract_pdf", "inline")
}

func (h *ContractHandler) servePDF(c *gin.Context, op, disposition string) {
	id := c.Query("contractId")

	contract, data, err := h.contracts.File(c.Request.Context(), id)
	if err != nil {
		h.fail(c, op, id, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(disposition, contract.FileName))
	c.Data(http.StatusOK, "application/pdf", data)
}

// UpdateStatus stamps the decision onto the contract and returns the new PDF
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	data, err := h.contracts.UpdateStatus(c.Request.Context(), req.ContractID, req.Status)
	if err != nil {
		h.fail(c, "update_contract_status", req.ContractID, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", data)
}

// Response returns a URL the label can download the contract from
func (h *ContractHandler) Response(c *gin.Context) {
	id := c.Query("contractId")

	url, err := h.contracts.FileURL(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "contract_response", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fileUrl": url})
}

func (h *ContractHandler) bindJSON(c *gin.Context, dst any) bool {
	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	return true
}

// fail maps service errors onto status codes. Clients only see generic
// messages, except for validation errors which describe the bad input.
func (h *ContractHandler) fail(c *gin.Context, op, contractID string, err error) {
	ctx := c.Request.Context()
	if contractID != "" {
		ctx = logger.WithContractID(ctx, contractID)
	}

	var invalid *model.ValidationError
	switch {
	case errors.As(err, &invalid):
		logger.Warn(ctx, "request rejected", "operation", op, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
	case errors.Is(err, model.ErrDelivery):
		logger.Error(ctx, "request failed", "operation", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
	default:
		logger.Error(ctx, "request failed", "operation", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func contentDisposition(kind, fileName string) string {
	safe := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(fileName)
	return fmt.Sprintf(`%s; filename="%s"`, kind, safe)
}
