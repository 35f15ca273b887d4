package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeRunner struct {
	stdout  string
	err     error
	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.gotName = name
	f.gotArgs = args
	return []byte(f.stdout), nil, f.err
}

// two lines: "麦当劳 订单" at conf (90+80)/2, "实付￥17.5" at conf 95
const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t20\t90\t麦当劳\n" +
	"5\t1\t1\t1\t1\t2\t60\t10\t40\t20\t80\t订单\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t80\t20\t95\t实付￥17.5\n"

func TestRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: sampleTSV}
	e := NewExtractor(Config{Tesseract: "tesseract", Language: "chi_sim", PSM: 6}, nil)
	e.runner = runner

	got, err := e.Recognize(context.Background(), "/tmp/bill.png")
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	if !got.Success {
		t.Fatalf("Recognize() not successful: %s", got.Error)
	}
	if got.Text != "麦当劳 订单\n实付￥17.5" {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Lines) != 2 || len(got.Scores) != 2 {
		t.Fatalf("lines/scores = %d/%d, want 2/2", len(got.Lines), len(got.Scores))
	}
	if got.Scores[0] != 0.85 || got.Scores[1] != 0.95 {
		t.Errorf("scores = %v, want [0.85 0.95]", got.Scores)
	}
	if avg := got.AvgScore(); avg != 0.9 {
		t.Errorf("AvgScore() = %.2f, want 0.90", avg)
	}

	if runner.gotName != "tesseract" {
		t.Errorf("binary = %q", runner.gotName)
	}
	joined := strings.Join(runner.gotArgs, " ")
	for _, part := range []string{"/tmp/bill.png", "-l chi_sim", "--psm 6", "tsv"} {
		if !strings.Contains(joined, part) {
			t.Errorf("args %q missing %q", joined, part)
		}
	}
}

func TestRecognizeUnsupportedExtension(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	e.runner = &fakeRunner{}

	got, err := e.Recognize(context.Background(), "/tmp/bill.pdf")
	if err == nil {
		t.Fatal("Recognize() = nil error, want unsupported-format error")
	}
	if got.Success {
		t.Error("result marked successful on rejected input")
	}
}

func TestRecognizeRunnerFailure(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	e.runner = &fakeRunner{err: errors.New("exec: not found")}

	got, err := e.Recognize(context.Background(), "/tmp/bill.jpg")
	if err == nil {
		t.Fatal("Recognize() = nil error, want runner error")
	}
	if got.Success {
		t.Error("result marked successful on runner failure")
	}
}

func TestFoldTSVSkipsMalformedRows(t *testing.T) {
	tsv := "header\n" +
		"not\tenough\tcolumns\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t70\t只有一行\n"
	lines, scores := foldTSV(tsv)
	if len(lines) != 1 || lines[0] != "只有一行" {
		t.Fatalf("lines = %v, want the single valid row", lines)
	}
	if len(scores) != 1 || scores[0] != 0.7 {
		t.Fatalf("scores = %v, want [0.7]", scores)
	}
}

func TestAvgScoreEmpty(t *testing.T) {
	if got := (Result{}).AvgScore(); got != 0 {
		t.Fatalf("AvgScore() = %.2f, want 0", got)
	}
}
