package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Linjx520074913/qiaoqiao/constants"
	"github.com/Linjx520074913/qiaoqiao/internal/common"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
	"github.com/Linjx520074913/qiaoqiao/internal/export"
	"github.com/Linjx520074913/qiaoqiao/internal/ocr"
	"github.com/Linjx520074913/qiaoqiao/internal/pipeline"
)

const version = "1.0.0"

// Handler holds the wired pipeline behind the HTTP routes.
type Handler struct {
	ocr       ocr.Engine
	processor *pipeline.Processor
	exporter  *export.Service
	cfg       *common.Config
	logger    *slog.Logger
}

func NewHandler(engine ocr.Engine, processor *pipeline.Processor, exporter *export.Service, cfg *common.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ocr: engine, processor: processor, exporter: exporter, cfg: cfg, logger: logger}
}

// scanFlags are the per-request pipeline switches, shared by the image and
// text endpoints.
type scanFlags struct {
	SkipItems  bool `form:"skip_items" json:"skip_items"`
	CleanText  bool `form:"clean_text" json:"clean_text"`
	FormatText bool `form:"format_text" json:"format_text"`
	Concurrent bool `form:"concurrent" json:"concurrent"`
}

type scanTextRequest struct {
	Text string `json:"text" binding:"required"`
	scanFlags
}

type scanResponse struct {
	Success     bool               `json:"success"`
	Data        *entity.ScanResult `json:"data,omitempty"`
	Error       string             `json:"error,omitempty"`
	Performance map[string]int64   `json:"performance,omitempty"`
}

// ScanImage accepts a multipart image upload, runs OCR and the extraction
// pipeline, and returns the structured result with per-stage timings.
func (h *Handler) ScanImage(c *gin.Context) {
	reqID := uuid.NewString()
	start := time.Now()
	stages := pipeline.StageTimer{}

	imagePath, cleanup, err := h.receiveUpload(c)
	if err != nil {
		h.logger.Warn("server.scan.bad_upload", "req_id", reqID, "error", err)
		c.JSON(http.StatusBadRequest, scanResponse{Success: false, Error: err.Error()})
		return
	}
	defer cleanup()

	var flags scanFlags
	_ = c.ShouldBind(&flags)

	ocrStart := time.Now()
	recognized, err := h.ocr.Recognize(c.Request.Context(), imagePath)
	stages.Observe("ocr", ocrStart)
	if err != nil || !recognized.Success {
		msg := "OCR failed"
		if err != nil {
			msg = fmt.Sprintf("OCR failed: %v", err)
		} else if recognized.Error != "" {
			msg = "OCR failed: " + recognized.Error
		}
		h.logger.Error("server.scan.ocr_failed", "req_id", reqID, "error", msg)
		c.JSON(http.StatusUnprocessableEntity, scanResponse{Success: false, Error: msg, Performance: stages})
		return
	}

	text := recognized.Text
	if flags.CleanText || flags.FormatText {
		cleanStart := time.Now()
		text = ocr.Cleaner{FormatText: flags.FormatText}.Clean(text)
		stages.Observe("clean", cleanStart)
	}

	h.respondScan(c, reqID, text, flags, stages, start)
}

// ScanText runs the pipeline on caller-provided text, skipping OCR.
func (h *Handler) ScanText(c *gin.Context) {
	reqID := uuid.NewString()
	start := time.Now()
	stages := pipeline.StageTimer{}

	var req scanTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, scanResponse{Success: false, Error: "invalid request: " + err.Error()})
		return
	}

	text := req.Text
	if req.CleanText || req.FormatText {
		cleanStart := time.Now()
		text = ocr.Cleaner{FormatText: req.FormatText}.Clean(text)
		stages.Observe("clean", cleanStart)
	}

	h.respondScan(c, reqID, text, req.scanFlags, stages, start)
}

func (h *Handler) respondScan(c *gin.Context, reqID, text string, flags scanFlags, stages pipeline.StageTimer, start time.Time) {
	result := h.processor.Process(c.Request.Context(), text, pipeline.Options{
		Concurrent:   flags.Concurrent,
		SkipItems:    flags.SkipItems,
		BlockTimeout: h.cfg.Pipeline.BlockTimeout,
		Stages:       stages,
	})
	stages.Observe("total", start)

	h.logger.Info("server.scan.done",
		"req_id", reqID,
		"is_list", result.IsList,
		"bill_type", string(result.BillType),
		"elapsed_ms", time.Since(start).Milliseconds())

	resp := scanResponse{Success: result.Success, Data: &result, Performance: stages}
	if !result.Success {
		resp.Error = result.Error
	}
	body, err := sonic.Marshal(resp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, scanResponse{Success: false, Error: "encode response"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Classify reports the detected bill type and recommended strategy for
// caller-provided text without running extraction.
func (h *Handler) Classify(c *gin.Context) {
	var req scanTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, scanResponse{Success: false, Error: "invalid request: " + err.Error()})
		return
	}

	billType, conf, mode, isList := h.processor.DetectType(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"bill_type":  string(billType),
		"confidence": conf,
		"parse_mode": string(mode),
		"is_list":    isList,
	})
}

// Export scans like ScanImage but answers with an XLSX workbook.
func (h *Handler) Export(c *gin.Context) {
	reqID := uuid.NewString()

	imagePath, cleanup, err := h.receiveUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, scanResponse{Success: false, Error: err.Error()})
		return
	}
	defer cleanup()

	var flags scanFlags
	_ = c.ShouldBind(&flags)

	recognized, err := h.ocr.Recognize(c.Request.Context(), imagePath)
	if err != nil || !recognized.Success {
		c.JSON(http.StatusUnprocessableEntity, scanResponse{Success: false, Error: "OCR failed"})
		return
	}

	text := recognized.Text
	if flags.CleanText || flags.FormatText {
		text = ocr.Cleaner{FormatText: flags.FormatText}.Clean(text)
	}

	result := h.processor.Process(c.Request.Context(), text, pipeline.Options{
		Concurrent:   flags.Concurrent,
		SkipItems:    flags.SkipItems,
		BlockTimeout: h.cfg.Pipeline.BlockTimeout,
	})
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, scanResponse{Success: false, Error: result.Error})
		return
	}

	book, err := h.exporter.ExportScanXLSX(result)
	if err != nil {
		h.logger.Error("server.export.failed", "req_id", reqID, "error", err)
		c.JSON(http.StatusInternalServerError, scanResponse{Success: false, Error: "export failed"})
		return
	}

	filename := "bills-" + time.Now().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}

// Health reports component readiness.
func (h *Handler) Health(c *gin.Context) {
	components := gin.H{
		"ocr": h.ocr != nil,
		"llm": h.processor != nil,
	}
	status := "healthy"
	if h.ocr == nil || h.processor == nil {
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"version":    version,
		"components": components,
	})
}

// receiveUpload validates and stages the uploaded image in a temp file.
// The returned cleanup removes it.
func (h *Handler) receiveUpload(c *gin.Context) (string, func(), error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file: %w", err)
	}
	if fileHeader.Size > constants.MaxUploadSize {
		return "", nil, fmt.Errorf("file too large: %d bytes", fileHeader.Size)
	}
	ext := filepath.Ext(fileHeader.Filename)
	if !constants.IsAllowedExt(ext) {
		return "", nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	dst := filepath.Join(os.TempDir(), "qiaoqiao-"+uuid.NewString()+"."+constants.NormalizeExt(ext))
	if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
		return "", nil, fmt.Errorf("save upload: %w", err)
	}
	return dst, func() { _ = os.Remove(dst) }, nil
}
