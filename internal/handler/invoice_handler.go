package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"pos-backend/internal/middleware"
	"pos-backend/internal/model"
	"pos-backend/internal/service"
	"pos-backend/pkg/pagination"
	"pos-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type InvoiceHandler struct {
	purchaseService service.PurchaseService
}

func NewInvoiceHandler(purchaseService service.PurchaseService) *InvoiceHandler {
	return &InvoiceHandler{purchaseService: purchaseService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBodega), h.ProcessInvoice)
		invoices.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBodega), h.GetInvoices)
		invoices.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBodega), h.GetInvoice)
	}
}

// ProcessInvoice ingests a purchase invoice
// @Summary      Process purchase invoice
// @Description  Ingests a supplier invoice: upserts the supplier, matches or creates products, increments stock and records the invoice. Accepts plain JSON, or multipart/form-data with a "payload" JSON field and an optional "file" document.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Param        payload  body      service.ProcessInvoiceRequest  true  "Invoice Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) ProcessInvoice(c *gin.Context) {
	var req service.ProcessInvoiceRequest
	var document io.Reader

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		payload := c.PostForm("payload")
		if payload == "" {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing 'payload' form field"))
			return
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid payload JSON: "+err.Error()))
			return
		}
		if err := binding.Validator.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}

		if fileHeader, err := c.FormFile("file"); err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded file"))
				return
			}
			defer f.Close()
			document = f
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	userID := c.GetString("userID")

	invoice, err := h.purchaseService.ProcessInvoice(c.Request.Context(), userID, req, document)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// GetInvoices retrieves paginated purchase invoices
// @Summary      Get purchase invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.PurchaseInvoiceResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	p := pagination.Parse(c)

	invoices, total, err := h.purchaseService.ListInvoices(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, invoices, p.Page, p.Limit, total))
}

// GetInvoice retrieves a single purchase invoice with its lines
// @Summary      Get purchase invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.PurchaseInvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.purchaseService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
