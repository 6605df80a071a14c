package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/application/admin"
	"github.com/xerocraft/backend/internal/infrastructure/migration"
	"github.com/xerocraft/backend/internal/infrastructure/persistence"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
	"github.com/xerocraft/backend/internal/interfaces/http/middleware"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
	"github.com/xerocraft/backend/internal/migrations"
	"github.com/xerocraft/backend/tests/testutil"
)

type adminFixture struct {
	engine *gin.Engine
	urls   *router.URLs
	db     *gorm.DB
}

// At 21:00 in Chicago on May 14th it is already the 15th in UTC.
func chicagoToday(t *testing.T) func() time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return func() time.Time { return time.Date(2016, time.May, 14, 21, 0, 0, 0, loc) }
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewSQLiteDB(t)
	g, err := migrations.Graph()
	require.NoError(t, err)
	exec, err := migration.NewExecutor(db, g, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, exec.Migrate(ctx))
	state, err := exec.State(ctx)
	require.NoError(t, err)

	site, err := admin.NewSite(state)
	require.NoError(t, err)

	today := chicagoToday(t)
	require.NoError(t, middleware.SetupValidator(today))
	svc := admin.NewService(site, persistence.NewAdminRepository(db), persistence.NewGormSaleRepository(db), today, zap.NewNop())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	r.Register(NewAdminHandler(svc, "Xerocraft"))
	r.Setup()

	return &adminFixture{engine: engine, urls: r.URLs(), db: db}
}

func (f *adminFixture) addSale(t *testing.T, form url.Values) *http.Response {
	t.Helper()
	w := testutil.Do(t, f.engine, testutil.Request{Method: http.MethodPost, Path: "/admin/books/sale/add/", Form: form})
	return w.Result()
}

func saleForm(overrides map[string]string) url.Values {
	form := url.Values{
		"sale_date":              {"2016-05-14"},
		"payer_name":             {"Ada"},
		"payment_method":         {"$"},
		"total_paid_by_customer": {"25.00"},
	}
	for k, v := range overrides {
		form.Set(k, v)
	}
	return form
}

func TestAdminHandler_RouteNames(t *testing.T) {
	f := newAdminFixture(t)

	u, err := f.urls.Reverse("admin:books_sale_change", 12)
	require.NoError(t, err)
	assert.Equal(t, "/admin/books/sale/12/change/", u)

	u, err = f.urls.Reverse("admin:books_account_changelist")
	require.NoError(t, err)
	assert.Equal(t, "/admin/books/account/", u)

	u, err = f.urls.Reverse("admin:books_sale_add")
	require.NoError(t, err)
	assert.Equal(t, "/admin/books/sale/add/", u)

	_, err = f.urls.Reverse("admin:books_invoice_change", 1)
	assert.ErrorIs(t, err, router.ErrNoReverseMatch)
}

func TestAdminHandler_Index(t *testing.T) {
	f := newAdminFixture(t)
	f.addSale(t, saleForm(nil))

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "Site administration | Xerocraft")
	assert.Contains(t, body, `<caption>Books</caption>`)
	assert.Contains(t, body, `href="/admin/books/sale/"`)
	assert.Contains(t, body, `>Income transactions</a>`)
	assert.Contains(t, body, `title="Sale"`)
	assert.Contains(t, body, `href="/admin/books/sale/1/change/">Sale 1</a>`)
}

func TestAdminHandler_IndexWithoutSalesTable(t *testing.T) {
	f := newAdminFixture(t)
	require.NoError(t, f.db.Exec(`DROP TABLE "books_sale"`).Error)

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/admin/books/sale/"`)
	assert.NotContains(t, w.Body.String(), "/change/")
}

func TestAdminHandler_AddSale(t *testing.T) {
	f := newAdminFixture(t)

	resp := f.addSale(t, saleForm(map[string]string{"deposit_date": "2016-05-16"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/admin/books/sale/1/change/", resp.Header.Get("Location"))

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/books/sale/1/change/"})
	data := testutil.AssertSuccessResponse(t, w).(map[string]any)
	assert.Equal(t, float64(1), data["id"])
	assert.Equal(t, "Sale", data["verbose_name"])
	assert.Equal(t, "/admin/books/sale/1/change/", data["url"])
	values := data["values"].(map[string]any)
	assert.Equal(t, "000000", values["ctrlid"])
	assert.Equal(t, "Ada", values["payer_name"])
}

func TestAdminHandler_AddSale_GeneratesSequence(t *testing.T) {
	f := newAdminFixture(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, f.addSale(t, saleForm(map[string]string{"payment_method": "C"})).StatusCode)
	}
	// Electronic sales carry their processor's id and do not advance the sequence
	require.Equal(t, http.StatusCreated, f.addSale(t, saleForm(map[string]string{"payment_method": "S", "ctrlid": "sq-99"})).StatusCode)

	var ctrlids []string
	require.NoError(t, f.db.Table("books_sale").Order("id").Pluck("ctrlid", &ctrlids).Error)
	assert.Equal(t, []string{"000000", "000001", "000002", "sq-99"}, ctrlids)
}

func TestAdminHandler_AddSale_Rejects(t *testing.T) {
	f := newAdminFixture(t)

	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		// Today in Chicago even though UTC has moved on
		{"tomorrow", saleForm(map[string]string{"sale_date": "2016-05-15"}), "sale_date"},
		{"missing date", saleForm(map[string]string{"sale_date": ""}), "sale_date"},
		{"unknown method", saleForm(map[string]string{"payment_method": "X"}), "payment_method"},
		{"not a number", saleForm(map[string]string{"total_paid_by_customer": "lots"}), "total_paid_by_customer"},
		{"electronic without id", saleForm(map[string]string{"payment_method": "P"}), "ctrlid"},
		{"deposit before sale", saleForm(map[string]string{"deposit_date": "2016-05-01"}), "deposit_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Do(t, f.engine, testutil.Request{Method: http.MethodPost, Path: "/admin/books/sale/add/", Form: tt.form})
			assert.Equal(t, http.StatusBadRequest, w.Code)

			errInfo := testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
			details := errInfo["details"].([]any)
			require.NotEmpty(t, details)
			assert.Equal(t, tt.field, details[0].(map[string]any)["field"])
		})
	}
}

func TestAdminHandler_AddSale_DuplicateCtrlid(t *testing.T) {
	f := newAdminFixture(t)
	form := saleForm(map[string]string{"payment_method": "W", "ctrlid": "wp-1"})

	require.Equal(t, http.StatusCreated, f.addSale(t, form).StatusCode)

	w := testutil.Do(t, f.engine, testutil.Request{Method: http.MethodPost, Path: "/admin/books/sale/add/", Form: form})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errInfo := testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
	assert.Equal(t, "ctrlid", errInfo["details"].([]any)[0].(map[string]any)["field"])
}

func TestAdminHandler_Changelist(t *testing.T) {
	f := newAdminFixture(t)
	for _, name := range []string{"Ada", "Grace", "Edsger"} {
		require.Equal(t, http.StatusCreated, f.addSale(t, saleForm(map[string]string{"payer_name": name})).StatusCode)
	}

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/books/sale/?order_by=payer_name&order_dir=desc&page_size=2"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := testutil.JSONResponseAs[struct {
		Data dto.ChangelistResponse `json:"data"`
		Meta dto.Meta               `json:"meta"`
	}](t, w)

	assert.Equal(t, dto.ModelResponse{
		App:               "books",
		Model:             "sale",
		VerboseName:       "Income transaction",
		VerboseNamePlural: "Income transactions",
		ChangelistURL:     "/admin/books/sale/",
	}, resp.Data.Model)
	assert.Equal(t, dto.Meta{Total: 3, Page: 1, PageSize: 2, TotalPages: 2}, resp.Meta)
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "Grace", resp.Data.Results[0].Values["payer_name"])
	assert.Equal(t, "Edsger", resp.Data.Results[1].Values["payer_name"])
	assert.Equal(t, "/admin/books/sale/2/change/", resp.Data.Results[0].URL)
}

func TestAdminHandler_Changelist_BadQuery(t *testing.T) {
	f := newAdminFixture(t)

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/books/sale/?order_dir=sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
}

func TestAdminHandler_NotRegistered(t *testing.T) {
	f := newAdminFixture(t)

	for _, path := range []string{"/admin/books/invoice/", "/admin/books/invoice/1/change/", "/admin/books/sale/9/change/"} {
		w := testutil.Do(t, f.engine, testutil.Request{Path: path})
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		testutil.AssertErrorResponse(t, w, dto.ErrCodeNotFound)
	}
}

func TestAdminHandler_Export(t *testing.T) {
	f := newAdminFixture(t)
	require.Equal(t, http.StatusCreated, f.addSale(t, saleForm(nil)).StatusCode)

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/books/sale/?format=xlsx"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="books_sale.xlsx"`)

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Income transactions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "ctrlid")
	assert.Contains(t, rows[1], "Ada")
}

func TestAdminHandler_ExportFollowsPage(t *testing.T) {
	f := newAdminFixture(t)
	for _, payer := range []string{"Ada", "Grace", "Linus"} {
		require.Equal(t, http.StatusCreated, f.addSale(t, saleForm(map[string]string{"payer_name": payer})).StatusCode)
	}

	w := testutil.Do(t, f.engine, testutil.Request{Path: "/admin/books/sale/?format=xlsx&page=1&page_size=2&order_by=id&order_dir=desc"})
	require.Equal(t, http.StatusOK, w.Code)

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Income transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1], "Linus")
	assert.Contains(t, rows[2], "Grace")
}
