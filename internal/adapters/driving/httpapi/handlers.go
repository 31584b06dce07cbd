package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
)

// Ports aggregates the driving ports the API calls.
type Ports struct {
	Discovery driving.DiscoveryService
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
}

type handler struct {
	ports Ports
}

type syncResponse struct {
	Status  string              `json:"status"`
	Summary *domain.SyncSummary `json:"summary"`
}

type filesResponse struct {
	Files []domain.FileRecord `json:"files"`
}

type retryResponse struct {
	Message    string            `json:"message"`
	FileID     string            `json:"fileId"`
	RetryPhase domain.RetryStage `json:"retryPhase"`
}

type retrieveRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"topK"`
}

// sync handles POST /drive/sync[?limit=N].
func (h *handler) sync(c *gin.Context) {
	opts := domain.SyncOptions{}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			opts.Limit = n
		}
	}

	summary, err := h.ports.Discovery.Sync(c.Request.Context(), userID(c), opts)
	if err != nil {
		writeError(c, err, "Failed to sync Google Drive files.")
		return
	}
	c.JSON(http.StatusOK, syncResponse{Status: "Sync completed successfully.", Summary: summary})
}

// listFiles handles GET /drive/files.
func (h *handler) listFiles(c *gin.Context) {
	files, err := h.ports.Ingestion.ListFiles(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err, "Internal Server Error")
		return
	}
	if files == nil {
		files = []domain.FileRecord{}
	}
	c.JSON(http.StatusOK, filesResponse{Files: files})
}

// progress handles GET /drive/progress.
func (h *handler) progress(c *gin.Context) {
	progress, err := h.ports.Ingestion.Progress(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err, "Internal Server Error")
		return
	}
	if progress.Files == nil {
		progress.Files = []domain.FileRecord{}
	}
	c.JSON(http.StatusOK, progress)
}

// retryFile handles POST /drive/files/:fileId/retry.
func (h *handler) retryFile(c *gin.Context) {
	fileID := c.Param("fileId")
	stage, err := h.ports.Ingestion.RetryFile(c.Request.Context(), userID(c), fileID)
	if err != nil {
		writeError(c, err, "Internal server error")
		return
	}

	message := "Fetch job re-enqueued"
	if stage == domain.RetryStageVectorize {
		message = "Vectorize job re-enqueued (raw text preserved)"
	}
	c.JSON(http.StatusOK, retryResponse{Message: message, FileID: fileID, RetryPhase: stage})
}

// chunk handles GET /drive/chunk/:chunkId.
func (h *handler) chunk(c *gin.Context) {
	chunk, err := h.ports.Retrieval.ChunkContext(c.Request.Context(), userID(c), c.Param("chunkId"))
	if err != nil {
		writeError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, chunk)
}

// retrieve handles POST /drive/retrieve.
func (h *handler) retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.ports.Retrieval.Retrieve(c.Request.Context(), domain.RetrieveRequest{
		Query:  req.Query,
		UserID: userID(c),
		TopK:   req.TopK,
	})
	if err != nil {
		writeError(c, err, "Retrieval failed.")
		return
	}
	if result.Citations == nil {
		result.Citations = []domain.Citation{}
	}
	c.JSON(http.StatusOK, result)
}

// health handles GET /healthz.
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
