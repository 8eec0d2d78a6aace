package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"greencloud/models"
	"greencloud/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

// withUser mimics the identity middleware for handler tests.
func withUser(id uint, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		h(c)
	}
}

type fakeFileService struct {
	services.FileService
	ingested services.IngestInput
	body     string
	query    string
	limit    int
	err      error
}

func (f *fakeFileService) SearchFiles(_ context.Context, userID uint, query string) ([]models.File, error) {
	f.query = query
	return []models.File{{ID: 3, UserID: userID, OriginalFilename: "report.pdf"}}, nil
}

func (f *fakeFileService) ListRecent(_ context.Context, userID uint, limit int) ([]models.File, error) {
	f.limit = limit
	return []models.File{{ID: 4, UserID: userID, OriginalFilename: "notes.txt"}}, nil
}

func (f *fakeFileService) Ingest(_ context.Context, in services.IngestInput) (services.IngestOutput, error) {
	if f.err != nil {
		return services.IngestOutput{}, f.err
	}
	data, _ := io.ReadAll(in.Content)
	f.ingested = in
	f.body = string(data)
	return services.IngestOutput{File: models.File{ID: 1, UserID: in.UserID, OriginalFilename: in.Filename, Size: int64(len(data))}}, nil
}

func (f *fakeFileService) Open(_ context.Context, userID uint, fileID uint) (models.File, io.ReadCloser, error) {
	if f.err != nil {
		return models.File{}, nil, f.err
	}
	return models.File{ID: fileID, UserID: userID, OriginalFilename: "notes.txt", Size: 5, MimeType: "text/plain"},
		io.NopCloser(strings.NewReader("hello")), nil
}

type fakeRecycleBinService struct {
	services.RecycleBinService
	report services.PurgeReport
}

func (f *fakeRecycleBinService) HardDeleteFile(context.Context, uint, uint) (services.PurgeReport, error) {
	return f.report, nil
}

type fakeGreenOpsService struct {
	services.GreenOpsService
	snapshot services.EnvironmentSnapshot
}

func (f *fakeGreenOpsService) EnergyReport(ctx context.Context, _ uint, sampler services.EnvironmentSampler) (services.EnergyReport, error) {
	snap, err := sampler.Sample(ctx)
	if err != nil {
		return services.EnergyReport{}, err
	}
	f.snapshot = snap
	return services.EnergyReport{Level: "green", Score: 100, Snapshot: snap}, nil
}

func TestRespondServiceErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"quota", &services.AppError{Kind: services.KindQuotaExceeded, HTTPCode: http.StatusRequestEntityTooLarge, Message: "quota exceeded"}, http.StatusRequestEntityTooLarge},
		{"wrapped", errors.Join(errors.New("ctx"), &services.AppError{Kind: services.KindNotFound, HTTPCode: http.StatusNotFound}), http.StatusNotFound},
		{"canceled", context.Canceled, statusClientClosedRequest},
		{"deadline", context.DeadlineExceeded, http.StatusRequestTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		if !respondServiceError(c, tc.err) {
			t.Fatalf("%s: expected error to be handled", tc.name)
		}
		if w.Code != tc.want {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.want, w.Code)
		}
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if respondServiceError(c, nil) {
		t.Fatalf("expected nil error to be ignored")
	}
}

func TestUploadFilePassesMultipartToIngest(t *testing.T) {
	files := &fakeFileService{}
	SetServices(&services.Container{File: files})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("folder_id", "7")
	part, _ := mw.CreateFormFile("file", "report.pdf")
	_, _ = part.Write([]byte("pdf-bytes"))
	_ = mw.Close()

	r := gin.New()
	r.POST("/files/upload", withUser(3, UploadFile))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	in := files.ingested
	if in.UserID != 3 || in.Filename != "report.pdf" || in.FolderID == nil || *in.FolderID != 7 || in.VersionOf != nil {
		t.Fatalf("unexpected ingest input %+v", in)
	}
	if in.DeclaredSize != int64(len("pdf-bytes")) || files.body != "pdf-bytes" {
		t.Fatalf("expected declared size and body to match, got %d %q", in.DeclaredSize, files.body)
	}
}

func TestUploadFileQuotaErrorCarriesData(t *testing.T) {
	quotaErr := &services.AppError{
		Kind:     services.KindQuotaExceeded,
		HTTPCode: http.StatusRequestEntityTooLarge,
		Message:  "storage quota exceeded",
		Data:     gin.H{"available_space": 100},
	}
	SetServices(&services.Container{File: &fakeFileService{err: quotaErr}})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "big.txt")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()

	r := gin.New()
	r.POST("/files/upload", withUser(1, UploadFile))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	env := decode(t, w)
	if env.Message != "storage quota exceeded" || !strings.Contains(string(env.Data), "available_space") {
		t.Fatalf("unexpected body %+v", env)
	}
}

func TestUploadFileRejectsBadFolderID(t *testing.T) {
	SetServices(&services.Container{File: &fakeFileService{}})
	r := gin.New()
	r.POST("/files/upload", withUser(1, UploadFile))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", strings.NewReader("folder_id=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSearchFilesPassesQuery(t *testing.T) {
	files := &fakeFileService{}
	SetServices(&services.Container{File: files})
	r := gin.New()
	r.GET("/files/search", withUser(5, SearchFiles))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/search?q=report", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if files.query != "report" {
		t.Fatalf("expected query report, got %q", files.query)
	}
	var data struct {
		Files []models.File `json:"files"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 1 || data.Files[0].OriginalFilename != "report.pdf" {
		t.Fatalf("unexpected search payload %+v", data)
	}
}

func TestListRecentFilesParsesLimit(t *testing.T) {
	files := &fakeFileService{}
	SetServices(&services.Container{File: files})
	r := gin.New()
	r.GET("/files/recent", withUser(5, ListRecentFiles))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/recent?limit=25", nil))
	if w.Code != http.StatusOK || files.limit != 25 {
		t.Fatalf("expected 200 with limit 25, got %d and %d", w.Code, files.limit)
	}

	files.limit = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/recent", nil))
	if w.Code != http.StatusOK || files.limit != 0 {
		t.Fatalf("expected default limit 0 to reach the service, got %d and %d", w.Code, files.limit)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/recent?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", w.Code)
	}
}

func TestDownloadFileStreamsContent(t *testing.T) {
	SetServices(&services.Container{File: &fakeFileService{}})
	r := gin.New()
	r.GET("/files/:id/download", withUser(1, DownloadFile))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/9/download", nil))

	if w.Code != http.StatusOK || w.Body.String() != "hello" {
		t.Fatalf("unexpected download %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain" {
		t.Fatalf("expected text/plain, got %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "notes.txt") {
		t.Fatalf("expected attachment header, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/abc/download", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", w.Code)
	}
}

func TestPurgeFileReportsWarnings(t *testing.T) {
	bin := &fakeRecycleBinService{report: services.PurgeReport{
		FilesPurged: 2,
		BytesFreed:  30,
		Warnings:    []error{errors.New("remove 1/a.txt: permission denied")},
	}}
	SetServices(&services.Container{RecycleBin: bin})

	r := gin.New()
	r.DELETE("/files/:id/purge", withUser(1, PurgeFile))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/files/4/purge", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		FilesPurged int      `json:"files_purged"`
		BytesFreed  int64    `json:"bytes_freed"`
		Warnings    []string `json:"warnings"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.FilesPurged != 2 || data.BytesFreed != 30 || len(data.Warnings) != 1 {
		t.Fatalf("unexpected purge data %+v", data)
	}
}

func TestPostEnergyReportUsesPostedSnapshot(t *testing.T) {
	green := &fakeGreenOpsService{}
	SetServices(&services.Container{GreenOps: green})

	r := gin.New()
	r.POST("/greenops/energy", withUser(1, PostEnergyReport))
	body := `{"cpu_percent":12.5,"memory_percent":40,"disk_percent":30,"power_plugged":true,"uptime_seconds":120}`
	req := httptest.NewRequest(http.MethodPost, "/greenops/energy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if green.snapshot.CPUPercent != 12.5 || !green.snapshot.PowerPlugged || green.snapshot.Uptime.Seconds() != 120 {
		t.Fatalf("unexpected snapshot %+v", green.snapshot)
	}

	req = httptest.NewRequest(http.MethodPost, "/greenops/energy", strings.NewReader(`{"cpu_percent":150}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an out of range reading, got %d", w.Code)
	}
}

func TestParseOptionalID(t *testing.T) {
	if id, err := parseOptionalID(""); err != nil || id != nil {
		t.Fatalf("expected nil for empty, got %v (%v)", id, err)
	}
	if id, err := parseOptionalID("0"); err != nil || id != nil {
		t.Fatalf("expected nil for 0, got %v (%v)", id, err)
	}
	if id, err := parseOptionalID("12"); err != nil || id == nil || *id != 12 {
		t.Fatalf("expected 12, got %v (%v)", id, err)
	}
	if _, err := parseOptionalID("-1"); err == nil {
		t.Fatalf("expected error for a negative id")
	}
}
