package server

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/Linjx520074913/qiaoqiao/internal/classify"
	"github.com/Linjx520074913/qiaoqiao/internal/common"
	"github.com/Linjx520074913/qiaoqiao/internal/entity"
	"github.com/Linjx520074913/qiaoqiao/internal/export"
	"github.com/Linjx520074913/qiaoqiao/internal/ocr"
	"github.com/Linjx520074913/qiaoqiao/internal/parse"
	"github.com/Linjx520074913/qiaoqiao/internal/pipeline"
	"github.com/Linjx520074913/qiaoqiao/internal/segment"
)

// engineFunc adapts a function to llm.Engine.
type engineFunc func(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)

func (f engineFunc) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	return f(ctx, prompt, temperature, maxTokens)
}

// ocrFunc adapts a function to ocr.Engine.
type ocrFunc func(ctx context.Context, imagePath string) (ocr.Result, error)

func (f ocrFunc) Recognize(ctx context.Context, imagePath string) (ocr.Result, error) {
	return f(ctx, imagePath)
}

func newTestServer(t *testing.T, engine engineFunc, ocrEngine ocr.Engine) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	bank := parse.NewBankParser(logger)
	generative := parse.NewGenerativeParser(engine, logger)
	hybrid := parse.NewHybridParser(engine, logger)
	router := parse.NewRouter(bank, generative, hybrid, logger)
	processor := pipeline.NewProcessor(
		classify.NewClassifier(logger),
		segment.NewSegmenter(logger),
		router, bank, generative, 2, logger)

	cfg := &common.Config{}
	cfg.Server.Addr = ":0"
	cfg.Pipeline.MaxWorkers = 2

	handler := NewHandler(ocrEngine, processor, export.NewService(logger), cfg, logger)
	return New(cfg, handler, logger)
}

const foodOrderJSON = `{"seller_name":"麦当劳","total_amount":45.5,"items":[{"name":"板烧鸡腿堡","quantity":1,"amount":17.5}]}`

func TestScanText(t *testing.T) {
	engine := engineFunc(func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		return foodOrderJSON, nil
	})
	srv := newTestServer(t, engine, nil)

	body := `{"text": "美团外卖 订单详情\n麦当劳\n板烧鸡腿堡 1份 ￥17.5\n实付 ¥45.5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/text", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success     bool               `json:"success"`
		Data        *entity.ScanResult `json:"data"`
		Performance map[string]int64   `json:"performance"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false, body = %s", w.Body.String())
	}
	if resp.Data == nil || resp.Data.Invoice == nil {
		t.Fatal("missing invoice in response")
	}
	if resp.Data.Invoice.SellerName != "麦当劳" {
		t.Errorf("seller = %q", resp.Data.Invoice.SellerName)
	}
	if resp.Data.Invoice.TotalAmount == nil || *resp.Data.Invoice.TotalAmount != 45.5 {
		t.Errorf("total = %v, want 45.5 from payment section", resp.Data.Invoice.TotalAmount)
	}
	if _, ok := resp.Performance["total"]; !ok {
		t.Errorf("performance missing total stage: %v", resp.Performance)
	}
	if _, ok := resp.Performance["detect"]; !ok {
		t.Errorf("performance missing detect stage: %v", resp.Performance)
	}
}

func TestScanTextMissingText(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		t.Error("engine should not be called on invalid request")
		return "", nil
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func multipartImage(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("not-a-real-image")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestScanImage(t *testing.T) {
	engine := engineFunc(func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		return foodOrderJSON, nil
	})
	recognizer := ocrFunc(func(_ context.Context, imagePath string) (ocr.Result, error) {
		if !strings.Contains(imagePath, "qiaoqiao-") {
			t.Errorf("imagePath = %q, want staged temp file", imagePath)
		}
		return ocr.Result{Text: "美团外卖 订单详情\n麦当劳\n实付 ¥45.5", Success: true}, nil
	})
	srv := newTestServer(t, engine, recognizer)

	body, ct := multipartImage(t, "bill.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "麦当劳") {
		t.Errorf("body missing seller: %s", w.Body.String())
	}
}

func TestScanImageRejectsExtension(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		return "", nil
	}, ocrFunc(func(_ context.Context, _ string) (ocr.Result, error) {
		t.Error("OCR should not run for rejected uploads")
		return ocr.Result{}, nil
	}))

	body, ct := multipartImage(t, "bill.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestScanImageOCRFailure(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		return "", nil
	}, ocrFunc(func(_ context.Context, _ string) (ocr.Result, error) {
		return ocr.Result{Success: false, Error: "tesseract exited 1"}, nil
	}))

	body, ct := multipartImage(t, "bill.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tesseract exited 1") {
		t.Errorf("body = %s, want OCR error message", w.Body.String())
	}
}

func TestClassify(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		t.Error("classification must not call the engine")
		return "", nil
	}, nil)

	body := `{"text": "【中国银行】您尾号1234的账户于3月5日支取人民币100.00元，交易后余额900.00元"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"bill_type":"bank_statement"`) {
		t.Errorf("body = %s, want bank_statement", got)
	}
	if !strings.Contains(got, `"parse_mode":"hybrid"`) {
		t.Errorf("body = %s, want hybrid mode", got)
	}
	if !strings.Contains(got, `"is_list":false`) {
		t.Errorf("body = %s, want is_list false", got)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, _ string, _ float32, _ int) (string, error) {
		return "", nil
	}, ocrFunc(func(_ context.Context, _ string) (ocr.Result, error) {
		return ocr.Result{}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
