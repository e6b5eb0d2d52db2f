package draw

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

func TestParseBatch(t *testing.T) {
	data := []byte(`[
		{"type": "set_color", "color": [1, 2, 3, 4]},
		{"type": "draw_pixel", "frame": 1, "x": 3, "y": 4, "color": [255, 0, 0, 255]},
		{"type": "draw_line", "frame": 0, "start": {"x": 0, "y": 0}, "end": {"x": 5, "y": 2}, "line_type": "curved", "color": "#00ff00"},
		{"type": "draw_shape", "frame": 0, "shape": "oval", "position": {"x": 1, "y": 1}, "size": {"width": 4, "height": 2}, "filled": true, "color": [0, 0, 255, 255]},
		{"type": "draw_polygon", "frame": 0, "points": [{"x": 0, "y": 0}, {"x": 3, "y": 0}, {"x": 0, "y": 3}], "filled": false, "color": [9, 9, 9, 255]},
		{"type": "fill_area", "frame": 2, "x": 7, "y": 8, "color": [10, 20, 30, 40]}
	]`)

	got, err := ParseBatch(data)
	if err != nil {
		t.Fatalf("ParseBatch() error: %v", err)
	}

	want := Batch{
		SetColor{Color: book.RGBA(1, 2, 3, 4)},
		DrawPixel{Frame: 1, X: 3, Y: 4, Color: book.RGBA(255, 0, 0, 255)},
		DrawLine{End: Point{5, 2}, LineType: Curved, Color: book.RGBA(0, 255, 0, 255)},
		DrawShape{Shape: Oval, Position: Point{1, 1}, Size: Size{4, 2}, Filled: true, Color: book.RGBA(0, 0, 255, 255)},
		DrawPolygon{Points: []Point{{0, 0}, {3, 0}, {0, 3}}, Color: book.RGBA(9, 9, 9, 255)},
		FillArea{Frame: 2, X: 7, Y: 8, Color: book.RGBA(10, 20, 30, 40)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseBatch() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	data, err := json.Marshal(Wrap(DrawPixel{X: 3, Y: 4, Color: book.RGBA(255, 0, 0, 255)}))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := map[string]any{
		"type":  "draw_pixel",
		"frame": 0.0,
		"x":     3.0,
		"y":     4.0,
		"color": []any{255.0, 0.0, 0.0, 255.0},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("marshalled fields mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchRoundTrip(t *testing.T) {
	in := Batch{
		DrawShape{Frame: 1, Shape: Triangle, Position: Point{2, 3}, Size: Size{5, 6}, Color: book.RGBA(1, 1, 1, 1)},
		FillArea{X: 1, Y: 1, Color: book.RGBA(2, 2, 2, 2)},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out, err := ParseBatch(data)
	if err != nil {
		t.Fatalf("ParseBatch() error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBatchErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"not an array", `{"type": "draw_pixel"}`, "JSON array"},
		{"unknown type", `[{"type": "erase"}]`, `unknown operation type "erase"`},
		{"missing type", `[{"x": 1}]`, "missing"},
		{"unknown shape", `[{"type": "draw_shape", "shape": "star"}]`, `unknown shape "star"`},
		{"unknown line type", `[{"type": "draw_line", "line_type": "zigzag"}]`, `unknown line type "zigzag"`},
		{"bad color", `[{"type": "draw_pixel", "color": [256, 0, 0, 0]}]`, "operation 0"},
		{"coordinate overflow", `[{"type": "fill_area", "x": 70000}]`, "fill_area"},
		{"index reported", `[{"type": "set_color", "color": [0, 0, 0, 0]}, {"type": "nope"}]`, "operation 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatch([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseBatch() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseBatchErrorCode(t *testing.T) {
	_, err := ParseBatch([]byte(`[{"type": "erase"}]`))
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("error code = %q, want %q", perrors.GetCode(err), perrors.ErrCodeInvalidInput)
	}
}

func TestMarshalEmptyEnvelope(t *testing.T) {
	if _, err := json.Marshal(Envelope{}); err == nil {
		t.Error("Marshal(Envelope{}) expected error")
	}
}
