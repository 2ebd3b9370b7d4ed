package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"grouping-server-go/archive"
	"grouping-server-go/db"
	"grouping-server-go/grouping"
	"grouping-server-go/models"
	"grouping-server-go/roster"
)

// ArchiveStore keeps built archives available for later download
type ArchiveStore interface {
	SaveArchive(ctx context.Context, archive []byte, summary models.Summary) (string, error)
	LoadArchive(ctx context.Context, token string) ([]byte, error)
	LoadSummary(ctx context.Context, token string) (*models.Summary, error)
	Ping(ctx context.Context) error
}

// Limits bounds what clients may request
type Limits struct {
	DefaultGroups  int
	MaxGroups      int
	MaxUploadBytes int64
}

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Store  ArchiveStore // nil when archives are not cached
	Limits Limits
}

// NewAPIHandler creates a new APIHandler. store may be nil.
func NewAPIHandler(store ArchiveStore, limits Limits) *APIHandler {
	return &APIHandler{
		Store:  store,
		Limits: limits,
	}
}

// GroupingResponse is returned by POST /api/groupings
type GroupingResponse struct {
	Token      string         `json:"token,omitempty"`
	Students   int            `json:"students"`
	Groups     int            `json:"groups"`
	Branches   []string       `json:"branches"`
	Summary    models.Summary `json:"summary"`
	RoundRobin []models.Group `json:"roundRobin"`
	Uniform    []models.Group `json:"uniform"`
}

// RegisterRoutes mounts the API on r
func (h *APIHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ping", h.Ping)

	r.POST("/groupings", h.CreateGrouping)
	r.POST("/groupings/archive", h.BuildArchive)
	r.POST("/groupings/summary.xlsx", h.BuildSummaryWorkbook)
	r.GET("/groupings/:token", h.GetGrouping)
	r.GET("/groupings/:token/archive", h.DownloadArchive)
}

// --- Upload Handlers ---

// BuildArchive handles POST /api/groupings/archive
func (h *APIHandler) BuildArchive(c *gin.Context) {
	students, n, ok := h.readUpload(c)
	if !ok {
		return
	}

	data, err := archive.Build(students, n)
	if err != nil {
		slog.Error("Error building archive", "students", len(students), "groups", n, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build archive"})
		return
	}

	slog.Info("Built archive", "students", len(students), "groups", n, "bytes", len(data))
	sendAttachment(c, archive.FileName, "application/zip", data)
}

// CreateGrouping handles POST /api/groupings
func (h *APIHandler) CreateGrouping(c *gin.Context) {
	students, n, ok := h.readUpload(c)
	if !ok {
		return
	}

	res := grouping.Allocate(students, n)
	resp := GroupingResponse{
		Students:   len(students),
		Groups:     n,
		Branches:   res.Branches,
		Summary:    res.Summary,
		RoundRobin: res.RoundRobin,
		Uniform:    res.Uniform,
	}

	if h.Store != nil {
		data, err := archive.Encode(res)
		if err != nil {
			slog.Error("Error building archive", "students", len(students), "groups", n, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build archive"})
			return
		}
		token, err := h.Store.SaveArchive(c.Request.Context(), data, res.Summary)
		if err != nil {
			slog.Error("Error caching archive", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store archive"})
			return
		}
		resp.Token = token
	}

	c.JSON(http.StatusCreated, resp)
}

// BuildSummaryWorkbook handles POST /api/groupings/summary.xlsx
func (h *APIHandler) BuildSummaryWorkbook(c *gin.Context) {
	students, n, ok := h.readUpload(c)
	if !ok {
		return
	}

	res := grouping.Allocate(students, n)
	data, err := archive.SummaryWorkbook(res.Summary)
	if err != nil {
		slog.Error("Error building summary workbook", "groups", n, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summary workbook"})
		return
	}

	sendAttachment(c, archive.WorkbookFileName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// --- Download Handlers ---

// GetGrouping handles GET /api/groupings/:token
func (h *APIHandler) GetGrouping(c *gin.Context) {
	if !h.storeAvailable(c) {
		return
	}
	token := c.Param("token")

	summary, err := h.Store.LoadSummary(c.Request.Context(), token)
	if err != nil {
		h.storeError(c, token, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "summary": summary})
}

// DownloadArchive handles GET /api/groupings/:token/archive
func (h *APIHandler) DownloadArchive(c *gin.Context) {
	if !h.storeAvailable(c) {
		return
	}
	token := c.Param("token")

	data, err := h.Store.LoadArchive(c.Request.Context(), token)
	if err != nil {
		h.storeError(c, token, err)
		return
	}
	sendAttachment(c, archive.FileName, "application/zip", data)
}

// --- Ping Handler ---

// Ping handles GET /api/ping
func (h *APIHandler) Ping(c *gin.Context) {
	if h.Store != nil {
		if err := h.Store.Ping(c.Request.Context()); err != nil {
			slog.Warn("Archive store ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Archive store unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}

// --- Helpers ---

// readUpload validates the multipart form (file + groups) and decodes the
// roster. It writes the error response itself and reports false on failure.
func (h *APIHandler) readUpload(c *gin.Context) ([]models.Student, int, bool) {
	if h.Limits.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Limits.MaxUploadBytes)
	}

	n := h.Limits.DefaultGroups
	if raw := strings.TrimSpace(c.PostForm("groups")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'groups' must be an integer"})
			return nil, 0, false
		}
		n = parsed
	}
	if err := grouping.ValidateGroupCount(n, h.Limits.MaxGroups); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}

	header, err := c.FormFile("file")
	if err != nil {
		slog.Warn("Error getting form file", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return nil, 0, false
	}
	file, err := header.Open()
	if err != nil {
		slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return nil, 0, false
	}
	defer file.Close()

	slog.Info("Received roster upload", "filename", header.Filename, "groups", n)

	students, err := roster.Read(file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrMissingColumns),
			errors.Is(err, roster.ErrUnsupportedFormat),
			errors.Is(err, roster.ErrEmptyRoster):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.Warn("Error decoding roster", "filename", header.Filename, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read roster: " + err.Error()})
		}
		return nil, 0, false
	}
	return students, n, true
}

func (h *APIHandler) storeAvailable(c *gin.Context) bool {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archive store is not configured"})
		return false
	}
	return true
}

func (h *APIHandler) storeError(c *gin.Context, token string, err error) {
	if errors.Is(err, db.ErrArchiveNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found or expired"})
		return
	}
	slog.Error("Error reading archive store", "token", token, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve archive"})
}

func sendAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}
