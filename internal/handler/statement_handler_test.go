package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/dafibh/gehalt/gehalt-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consistentStatementJSON = `{
	"month": 3, "year": 2024,
	"brutto_tax": 3000, "brutto_av": 3000, "brutto_pv": 3000, "brutto_rv": 3000, "brutto_kv": 3000,
	"payout_netto": "2.100,50",
	"incomes": [{"name": "Grundgehalt", "identifier": "1000", "value": 3000}]
}`

type statementHandlerFixture struct {
	repo      *testutil.MockStatementRepository
	documents *testutil.MockDocumentRepository
	publisher *testutil.MockEventPublisher
	service   *service.StatementService
	handler   *StatementHandler
	userID    uuid.UUID
}

func newStatementHandlerFixture() *statementHandlerFixture {
	f := &statementHandlerFixture{
		repo:      testutil.NewMockStatementRepository(),
		documents: testutil.NewMockDocumentRepository(),
		publisher: &testutil.MockEventPublisher{},
		userID:    uuid.New(),
	}
	f.service = service.NewStatementService(f.repo)
	f.service.SetEventPublisher(f.publisher)
	f.service.SetDocumentStorage(f.documents)
	f.handler = NewStatementHandler(f.service)
	return f
}

func (f *statementHandlerFixture) request(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		c.SetParamNames("id")
		c.SetParamValues(params[0])
	}
	setupUserContext(c, f.userID)
	return c, rec
}

func (f *statementHandlerFixture) store(year, month int, gross string) *domain.Statement {
	st := domain.NewStatement(year, month)
	st.UserID = f.userID
	st.BruttoTax = domain.Amount{Value: decimal.RequireFromString(gross), Valid: true}
	return f.repo.AddStatement(st)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateStatement_Success(t *testing.T) {
	f := newStatementHandlerFixture()
	c, rec := f.request(http.MethodPost, "/api/v1/statements", consistentStatementJSON)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, float64(3), body["month"])
	assert.Equal(t, 2100.5, body["payout_netto"])
	assert.Equal(t, float64(0), body["social_kv"], "missing fields are stored as zero")
	assert.Equal(t, false, body["hasDocument"])
	assert.NotContains(t, body, "warnings")
	assert.NotContains(t, body, "document_path")

	assert.Equal(t, 1, f.repo.Count(f.userID))
	assert.Equal(t, []string{"statement.created"}, f.publisher.Types())
}

func TestCreateStatement_ReturnsWarnings(t *testing.T) {
	f := newStatementHandlerFixture()
	body := strings.Replace(consistentStatementJSON, `"brutto_av": 3000`, `"brutto_av": 2500`, 1)
	c, rec := f.request(http.MethodPost, "/api/v1/statements", body)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	warnings, ok := decodeBody(t, rec)["warnings"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings["brutto_av"], "500.00")
}

func TestCreateStatement_DuplicatePeriod(t *testing.T) {
	f := newStatementHandlerFixture()
	f.store(2024, 3, "1000")
	c, rec := f.request(http.MethodPost, "/api/v1/statements", consistentStatementJSON)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrorTypeConflict, decodeProblem(t, rec).Type)
}

func TestCreateStatement_InvalidPeriod(t *testing.T) {
	f := newStatementHandlerFixture()
	c, rec := f.request(http.MethodPost, "/api/v1/statements", `{"month": 13, "year": 2024}`)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.repo.Count(f.userID))
}

func TestCreateStatement_AmountBeyondColumnRange(t *testing.T) {
	f := newStatementHandlerFixture()
	c, rec := f.request(http.MethodPost, "/api/v1/statements", `{"month": 3, "year": 2024, "brutto_tax": 10000000000}`)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "brutto_tax")
	assert.Equal(t, 0, f.repo.Count(f.userID))
}

func TestCreateStatement_HugeExponentIsIgnored(t *testing.T) {
	f := newStatementHandlerFixture()
	c, rec := f.request(http.MethodPost, "/api/v1/statements", `{"month": 3, "year": 2024, "brutto_tax": 1e30000000}`)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.repo.Count(f.userID))
}

func TestCreateStatement_MalformedBody(t *testing.T) {
	f := newStatementHandlerFixture()
	c, rec := f.request(http.MethodPost, "/api/v1/statements", `[1, 2`)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStatement_Unauthenticated(t *testing.T) {
	f := newStatementHandlerFixture()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/statements", strings.NewReader(consistentStatementJSON))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, f.handler.CreateStatement(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListStatements_FilterByYear(t *testing.T) {
	f := newStatementHandlerFixture()
	f.store(2023, 12, "1000")
	f.store(2024, 1, "1100")
	f.store(2024, 2, "1200")

	c, rec := f.request(http.MethodGet, "/api/v1/statements?year=2024", "")
	require.NoError(t, f.handler.ListStatements(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, float64(2), list[0]["month"], "newest first")
	assert.Equal(t, float64(1), list[1]["month"])
}

func TestListStatements_Empty(t *testing.T) {
	f := newStatementHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/statements", "")
	require.NoError(t, f.handler.ListStatements(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListStatements_InvalidYear(t *testing.T) {
	f := newStatementHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/statements?year=abc", "")
	require.NoError(t, f.handler.ListStatements(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatement_OtherUser(t *testing.T) {
	f := newStatementHandlerFixture()
	other := domain.NewStatement(2024, 1)
	other.UserID = uuid.New()
	stored := f.repo.AddStatement(other)

	c, rec := f.request(http.MethodGet, "/api/v1/statements/"+stored.ID.String(), "", stored.ID.String())
	require.NoError(t, f.handler.GetStatement(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatement_InvalidID(t *testing.T) {
	f := newStatementHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/statements/nope", "", "nope")
	require.NoError(t, f.handler.GetStatement(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatement_PartialPatch(t *testing.T) {
	f := newStatementHandlerFixture()
	stored := f.store(2024, 5, "1000")

	c, rec := f.request(http.MethodPatch, "/api/v1/statements/"+stored.ID.String(),
		`{"payout_netto": "-700,25", "note": "ignored"}`, stored.ID.String())
	require.NoError(t, f.handler.UpdateStatement(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 700.25, body["payout_netto"])
	assert.Equal(t, float64(1000), body["brutto_tax"], "untouched fields are kept")
	assert.NotContains(t, body, "note")
	assert.Equal(t, []string{"statement.updated"}, f.publisher.Types())
}

func TestUpdateStatement_EmptyPatch(t *testing.T) {
	f := newStatementHandlerFixture()
	stored := f.store(2024, 5, "1000")

	c, rec := f.request(http.MethodPatch, "/api/v1/statements/"+stored.ID.String(), `{}`, stored.ID.String())
	require.NoError(t, f.handler.UpdateStatement(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.publisher.Events)
}

func TestReplaceStatement_Success(t *testing.T) {
	f := newStatementHandlerFixture()
	stored := f.store(2024, 3, "1000")

	c, rec := f.request(http.MethodPut, "/api/v1/statements/"+stored.ID.String(), consistentStatementJSON, stored.ID.String())
	require.NoError(t, f.handler.ReplaceStatement(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, stored.ID.String(), body["id"])
	assert.Equal(t, float64(3000), body["brutto_tax"])
}

func TestDeleteStatement_Success(t *testing.T) {
	f := newStatementHandlerFixture()
	stored := f.store(2024, 3, "1000")

	c, rec := f.request(http.MethodDelete, "/api/v1/statements/"+stored.ID.String(), "", stored.ID.String())
	require.NoError(t, f.handler.DeleteStatement(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.repo.Count(f.userID))
}

func TestDeleteStatement_NotFound(t *testing.T) {
	f := newStatementHandlerFixture()
	id := uuid.New().String()

	c, rec := f.request(http.MethodDelete, "/api/v1/statements/"+id, "", id)
	require.NoError(t, f.handler.DeleteStatement(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAllStatements(t *testing.T) {
	f := newStatementHandlerFixture()
	f.store(2024, 1, "1000")
	f.store(2024, 2, "1000")

	c, rec := f.request(http.MethodDelete, "/api/v1/statements", "")
	require.NoError(t, f.handler.DeleteAllStatements(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response DeleteAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int64(2), response.Deleted)
}

func TestValidateStatement(t *testing.T) {
	f := newStatementHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/statements/validate", consistentStatementJSON)
	require.NoError(t, f.handler.ValidateStatement(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Valid)
	assert.NotNil(t, response.Warnings)
	assert.Equal(t, 0, f.repo.Count(f.userID), "validation never stores")

	mismatch := strings.Replace(consistentStatementJSON, `"brutto_tax": 3000`, `"brutto_tax": 3001.01`, 1)
	c, rec = f.request(http.MethodPost, "/api/v1/statements/validate", mismatch)
	require.NoError(t, f.handler.ValidateStatement(c))

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Valid)
	assert.Equal(t, "Steuer-Brutto weicht um 1.01 € von der Summe der Bezüge ab", response.Warnings[domain.FieldBruttoTax])
}

func TestGetDocument(t *testing.T) {
	f := newStatementHandlerFixture()
	st := domain.NewStatement(2024, 4)
	st.UserID = f.userID
	st.DocumentPath = f.userID.String() + "/statements/doc.pdf"
	withDoc := f.repo.AddStatement(st)
	withoutDoc := f.store(2024, 5, "1000")

	c, rec := f.request(http.MethodGet, "/", "", withDoc.ID.String())
	require.NoError(t, f.handler.GetDocument(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	var response DocumentURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, strings.HasPrefix(response.URL, "https://documents.test/"+st.DocumentPath))

	c, rec = f.request(http.MethodGet, "/", "", withoutDoc.ID.String())
	require.NoError(t, f.handler.GetDocument(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocument_StorageDisabled(t *testing.T) {
	f := newStatementHandlerFixture()
	f.handler = NewStatementHandler(service.NewStatementService(f.repo))
	stored := f.store(2024, 5, "1000")

	c, rec := f.request(http.MethodGet, "/", "", stored.ID.String())
	require.NoError(t, f.handler.GetDocument(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrorTypeUnavailable, decodeProblem(t, rec).Type)
}
