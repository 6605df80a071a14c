package handler

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/application/admin"
	"github.com/xerocraft/backend/internal/domain/shared"
	"github.com/xerocraft/backend/internal/infrastructure/logger"
	"github.com/xerocraft/backend/internal/infrastructure/persistence/models"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
	"github.com/xerocraft/backend/internal/interfaces/http/middleware"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	recentSales     = 5
)

//go:embed templates/*.html
var templateFS embed.FS

// AdminHandler serves the admin pages
type AdminHandler struct {
	BaseHandler
	svc      *admin.Service
	siteName string
	urls     *router.URLs
	index    *template.Template
}

// NewAdminHandler creates a new AdminHandler. Templates are parsed when the
// routes are registered, once the URL registry is known.
func NewAdminHandler(svc *admin.Service, siteName string) *AdminHandler {
	return &AdminHandler{svc: svc, siteName: siteName}
}

// RegisterRoutes implements router.RouteRegistrar. Besides the static routes
// every registered model gets named changelist and change routes.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, urls *router.URLs) {
	h.urls = urls

	funcs := admin.FuncMap(urls)
	funcs["changelist_url"] = func(e *admin.ModelEntry) (string, error) {
		return urls.Reverse(admin.ChangelistRouteName(e.App, e.Name))
	}
	h.index = template.Must(template.New("admin_index.html").Funcs(funcs).ParseFS(templateFS, "templates/admin_index.html"))

	g := router.NewDomainGroup("admin", "/admin")
	g.GET("/", h.Index).As("admin:index")
	g.GET("/:app/:model/", h.Changelist)
	g.GET("/:app/:model/:id/change/", h.Change)
	g.POST("/books/sale/add/", h.AddSale).As(admin.AddRouteName("books", "sale"))
	g.RegisterRoutes(rg, urls)

	base := router.JoinPaths(rg.BasePath(), g.Prefix())
	for _, e := range h.svc.Site().Models() {
		modelPath := router.JoinPaths(base, e.App+"/"+e.Name+"/")
		urls.Add(admin.ChangelistRouteName(e.App, e.Name), modelPath)
		urls.Add(admin.ChangeRouteName(e.App, e.Name), router.JoinPaths(modelPath, ":id/change/"))
	}
}

type indexPage struct {
	SiteName string
	Apps     []admin.AppEntry
	Recent   []admin.Record
}

// Index renders the list of apps and models
func (h *AdminHandler) Index(c *gin.Context) {
	page := indexPage{SiteName: h.siteName, Apps: h.svc.Site().Apps()}

	if _, err := h.svc.Site().Lookup("books", "sale"); err == nil {
		filter := shared.Filter{Page: 1, PageSize: recentSales, Ordering: []string{"-sale_date"}}
		// The index still renders while books_sale is not migrated yet.
		if cl, err := h.svc.Changelist(c.Request.Context(), "books", "sale", filter); err != nil {
			logger.GetGinLogger(c).Warn("Recent sales unavailable", zap.Error(err))
		} else {
			page.Recent = cl.Page.Items
		}
	}

	c.Render(http.StatusOK, render.HTML{Template: h.index, Name: "admin_index.html", Data: page})
}

// Changelist returns one page of a model's rows, or the same page as a
// spreadsheet with ?format=xlsx
//
//	@Summary		List a model's rows
//	@Tags			admin
//	@Produce		json
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param			app			path		string	true	"App label"	example(books)
//	@Param			model		path		string	true	"Model name"	example(sale)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Rows per page"	default(100)	maximum(500)
//	@Param			order_by	query		string	false	"Column to order by"
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)
//	@Param			format		query		string	false	"Response format"	Enums(json, xlsx)
//	@Success		200			{object}	dto.Response{data=dto.ChangelistResponse,meta=dto.Meta}
//	@Failure		404			{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/admin/{app}/{model}/ [get]
func (h *AdminHandler) Changelist(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	app, model := c.Param("app"), c.Param("model")
	filter := shared.Filter{Page: req.Page, PageSize: req.PageSize, Ordering: req.Ordering()}

	if req.Format == "xlsx" {
		h.export(c, app, model, filter)
		return
	}

	cl, err := h.svc.Changelist(c.Request.Context(), app, model, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	results := make([]dto.RecordResponse, 0, len(cl.Page.Items))
	for _, r := range cl.Page.Items {
		rec, err := h.record(r)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		results = append(results, rec)
	}

	modelResp, err := h.model(cl.Entry)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ChangelistResponse{Model: modelResp, Results: results},
		cl.Page.Total, cl.Page.Page, cl.Page.PageSize)
}

func (h *AdminHandler) export(c *gin.Context, app, model string, filter shared.Filter) {
	data, err := h.svc.Export(c.Request.Context(), app, model, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.xlsx"`, app, model))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Change returns a single row
//
//	@Summary		Show one row
//	@Tags			admin
//	@Produce		json
//	@Param			app		path		string	true	"App label"
//	@Param			model	path		string	true	"Model name"
//	@Param			id		path		int		true	"Primary key"
//	@Success		200		{object}	dto.Response{data=dto.RecordResponse}
//	@Failure		404		{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/admin/{app}/{model}/{id}/change/ [get]
func (h *AdminHandler) Change(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	r, err := h.svc.Change(c.Request.Context(), c.Param("app"), c.Param("model"), req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rec, err := h.record(*r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// AddSale records a sale entered by hand
//
//	@Summary		Record a sale
//	@Tags			books
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			sale_date				formData	string	true	"Day of the sale, not in the future"	format(date)
//	@Param			payer_name				formData	string	false	"Payer name"
//	@Param			payer_email				formData	string	false	"Payer email"
//	@Param			payer_acct				formData	int		false	"Payer account id"
//	@Param			payment_method			formData	string	true	"Payment method"	Enums($, C, S, 2, W, P)
//	@Param			method_detail			formData	string	false	"Check number or similar"
//	@Param			total_paid_by_customer	formData	number	true	"Amount paid"
//	@Param			processing_fee			formData	number	false	"Fee kept by the processor"
//	@Param			ctrlid					formData	string	false	"Import control id"
//	@Param			protected				formData	bool	false	"Protect from automatic updates"
//	@Param			deposit_date			formData	string	false	"Day of the deposit, not before the sale"	format(date)
//	@Success		201						{object}	dto.Response{data=dto.RecordResponse}
//	@Header			201						{string}	Location	"Change page of the new sale"
//	@Failure		400						{object}	dto.Response{error=dto.ErrorInfo}
//	@Router			/admin/books/sale/add/ [post]
func (h *AdminHandler) AddSale(c *gin.Context) {
	var form dto.SaleForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sale, err := form.ToDomain(h.svc.Today().Location())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.svc.AddSale(ctx, sale); err != nil {
		h.HandleError(c, err)
		return
	}

	location, err := admin.GetURLStr(h.urls, models.SaleFromDomain(sale))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rec, err := h.added(ctx, sale.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Sale recorded", zap.Uint("id", sale.ID), zap.String("url", location))
	c.Header("Location", location)
	h.Created(c, rec)
}

func (h *AdminHandler) added(ctx context.Context, id uint) (dto.RecordResponse, error) {
	r, err := h.svc.Change(ctx, "books", "sale", id)
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return h.record(*r)
}

func (h *AdminHandler) record(r admin.Record) (dto.RecordResponse, error) {
	u, err := admin.GetURLStr(h.urls, r)
	if err != nil {
		return dto.RecordResponse{}, err
	}
	return dto.RecordResponse{
		ID:          r.GetID(),
		VerboseName: admin.VerboseName(r),
		URL:         u,
		Values:      jsonValues(r.Values),
	}, nil
}

func (h *AdminHandler) model(e *admin.ModelEntry) (dto.ModelResponse, error) {
	u, err := h.urls.Reverse(admin.ChangelistRouteName(e.App, e.Name))
	if err != nil {
		return dto.ModelResponse{}, err
	}
	return dto.ModelResponse{
		App:               e.App,
		Model:             e.Name,
		VerboseName:       e.VerboseName,
		VerboseNamePlural: e.VerboseNamePlural,
		ChangelistURL:     u,
	}, nil
}

// jsonValues turns raw text columns into strings so they do not encode as
// base64.
func jsonValues(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}
