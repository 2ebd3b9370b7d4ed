package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"grouping-server-go/db"
	"grouping-server-go/models"
)

const classroomCSV = "Roll,Name,Email\n" +
	"22CS001,A,a@example.edu\n" +
	"22ME001,B,b@example.edu\n" +
	"22EE001,C,c@example.edu\n" +
	"22CS002,D,d@example.edu\n" +
	"22ME002,E,e@example.edu\n" +
	"22CS003,F,f@example.edu\n" +
	"22EE002,G,g@example.edu\n" +
	"22EE003,H,h@example.edu\n" +
	"22ME003,I,i@example.edu\n" +
	"22CS004,J,j@example.edu\n"

type memoryStore struct {
	mu        sync.Mutex
	archives  map[string][]byte
	summaries map[string]models.Summary
	pingErr   error
	saveErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		archives:  make(map[string][]byte),
		summaries: make(map[string]models.Summary),
	}
}

func (m *memoryStore) SaveArchive(_ context.Context, archive []byte, summary models.Summary) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	token := fmt.Sprintf("token-%d", len(m.archives)+1)
	m.archives[token] = archive
	m.summaries[token] = summary
	return token, nil
}

func (m *memoryStore) LoadArchive(_ context.Context, token string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.archives[token]
	if !ok {
		return nil, db.ErrArchiveNotFound
	}
	return data, nil
}

func (m *memoryStore) LoadSummary(_ context.Context, token string) (*models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary, ok := m.summaries[token]
	if !ok {
		return nil, db.ErrArchiveNotFound
	}
	return &summary, nil
}

func (m *memoryStore) Ping(context.Context) error {
	return m.pingErr
}

func newRouter(store ArchiveStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAPIHandler(store, Limits{DefaultGroups: 3, MaxGroups: 50, MaxUploadBytes: 1 << 20})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func uploadRequest(t *testing.T, path, filename string, content []byte, groups string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if groups != "" {
		require.NoError(t, mw.WriteField("groups", groups))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestBuildArchive(t *testing.T) {
	r := newRouter(nil)
	w := serve(r, uploadRequest(t, "/api/groupings/archive", "class.csv", []byte(classroomCSV), "3"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=student_groups.zip", w.Header().Get("Content-Disposition"))

	names := zipNames(t, w.Body.Bytes())
	assert.Len(t, names, 10)
	assert.Contains(t, names, "branches/CS.csv")
	assert.Contains(t, names, "round_robin/group_3.csv")
	assert.Contains(t, names, "uniform/group_1.csv")
	assert.Contains(t, names, "grouping_summary.csv")
}

func TestBuildArchiveDefaultGroups(t *testing.T) {
	r := newRouter(nil)
	w := serve(r, uploadRequest(t, "/api/groupings/archive", "class.csv", []byte(classroomCSV), ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, zipNames(t, w.Body.Bytes()), "uniform/group_3.csv")
	assert.NotContains(t, zipNames(t, w.Body.Bytes()), "uniform/group_4.csv")
}

func TestBuildArchiveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		groups   string
		errPart  string
	}{
		{"single group", "class.csv", classroomCSV, "1", "invalid group count"},
		{"too many groups", "class.csv", classroomCSV, "51", "invalid group count"},
		{"non numeric groups", "class.csv", classroomCSV, "three", "must be an integer"},
		{"missing columns", "class.csv", "Roll,Name\n22CS001,A\n", "3", "Roll, Name, Email"},
		{"unsupported format", "class.txt", classroomCSV, "3", "unsupported roster format"},
		{"no file", "", "", "3", "Error retrieving uploaded file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(nil)
			w := serve(r, uploadRequest(t, "/api/groupings/archive", tt.filename, []byte(tt.content), tt.groups))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.errPart)
		})
	}
}

func TestCreateGroupingWithoutStore(t *testing.T) {
	r := newRouter(nil)
	w := serve(r, uploadRequest(t, "/api/groupings", "class.csv", []byte(classroomCSV), "3"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp GroupingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Token)
	assert.Equal(t, 10, resp.Students)
	assert.Equal(t, 3, resp.Groups)
	assert.Equal(t, []string{"CS", "EE", "ME"}, resp.Branches)
	require.Len(t, resp.Summary.Uniform.Rows, 3)
	assert.Equal(t, 4, resp.Summary.Uniform.Rows[0].Total)
	assert.Len(t, resp.RoundRobin, 3)
	assert.Len(t, resp.Uniform[1].Students, 3)
}

func TestCreateGroupingThenDownload(t *testing.T) {
	store := newMemoryStore()
	r := newRouter(store)

	w := serve(r, uploadRequest(t, "/api/groupings", "class.csv", []byte(classroomCSV), "2"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp GroupingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "token-1", resp.Token)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/groupings/token-1/archive", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, zipNames(t, w.Body.Bytes()), "round_robin/group_2.csv")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/groupings/token-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Token   string         `json:"token"`
		Summary models.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, resp.Summary, got.Summary)
}

func TestCreateGroupingStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("connection refused")
	r := newRouter(store)

	w := serve(r, uploadRequest(t, "/api/groupings", "class.csv", []byte(classroomCSV), "2"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestDownloadUnknownToken(t *testing.T) {
	r := newRouter(newMemoryStore())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/groupings/missing/archive", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/groupings/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadWithoutStore(t *testing.T) {
	r := newRouter(nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/groupings/token-1/archive", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBuildSummaryWorkbook(t *testing.T) {
	r := newRouter(nil)
	w := serve(r, uploadRequest(t, "/api/groupings/summary.xlsx", "class.csv", []byte(classroomCSV), "3"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=grouping_summary.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Round Robin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Group", "CS", "EE", "ME", "Total"}, rows[0])
	assert.Equal(t, []string{"G1", "2", "1", "1", "4"}, rows[1])
}

func TestBuildArchiveFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, line := range strings.Split(strings.TrimSpace(classroomCSV), "\n") {
		cells := strings.Split(line, ",")
		row := []interface{}{cells[0], cells[1], cells[2]}
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	r := newRouter(nil)
	w := serve(r, uploadRequest(t, "/api/groupings/archive", "class.xlsx", buf.Bytes(), "3"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, zipNames(t, w.Body.Bytes()), "branches/EE.csv")
}

func TestPing(t *testing.T) {
	w := serve(newRouter(nil), httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Pong!"}`, w.Body.String())

	store := newMemoryStore()
	store.pingErr = errors.New("down")
	w = serve(newRouter(store), httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
