package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/pixlkit/pixl/pkg/api"
	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/codec"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/library"
)

type fixture struct {
	srv *httptest.Server
	lib *library.Service
	bus *events.MemoryBus
	dir string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	bus := events.NewMemoryBus(0)
	logger := log.New(io.Discard)
	lib := library.New(codec.NewFileService(dir), bus, logger)
	srv := httptest.NewServer(New(lib, nil, logger, opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		bus.Close()
	})
	return &fixture{srv: srv, lib: lib, bus: bus, dir: dir}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, code perrors.Code) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("status = %d, want %d", resp.StatusCode, status)
	}
	body := decodeBody[api.Error](t, resp)
	if body.Code != code {
		t.Errorf("code = %q, want %q (message %q)", body.Code, code, body.Message)
	}
	if body.Message == "" {
		t.Error("error message is empty")
	}
}

func (f *fixture) create(t *testing.T, name string, w, h, frames int) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/books", api.CreateBook{Filename: name, Width: w, Height: h, Frames: frames})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create %s: status %d", name, resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeBody[api.Health](t, resp)
	if got.Status != "healthy" || got.Service != "pixl-server" {
		t.Errorf("health = %+v", got)
	}
}

func TestCreateListGet(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/books", api.CreateBook{Filename: "art.pxl", Width: 4, Height: 2, Frames: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[api.Created](t, resp)
	want := api.Created{Success: true, Filename: "art.pxl", Path: f.lib.Location("art.pxl")}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("create response mismatch (-want +got):\n%s", diff)
	}

	list := decodeBody[api.Books](t, f.do(t, http.MethodGet, "/books", nil))
	if len(list.Books) != 1 || list.Books[0].Filename != "art.pxl" || list.Books[0].Frames != 2 {
		t.Errorf("list = %+v", list.Books)
	}

	b := decodeBody[book.Book](t, f.do(t, http.MethodGet, "/books/art.pxl", nil))
	if b.Width != 4 || b.Height != 2 || len(b.Frames) != 2 {
		t.Fatalf("book = %dx%d with %d frames", b.Width, b.Height, len(b.Frames))
	}
	if len(b.Frames[1].Pix) != 4*2*4 || b.Frames[1].Index != 1 {
		t.Errorf("frame 1 = index %d with %d bytes", b.Frames[1].Index, len(b.Frames[1].Pix))
	}
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/books", nil)
	data, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(data)); got != `{"books":[]}` {
		t.Errorf("body = %s, want an empty array", got)
	}
}

func TestCreateDefaultsToOneFrame(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/books", `{"filename":"a.pxl","width":2,"height":2}`)

	b, err := f.lib.Get(context.Background(), "a.pxl")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if b.FrameCount() != 1 {
		t.Errorf("frames = %d, want 1", b.FrameCount())
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code perrors.Code
	}{
		{"bad filename", `{"filename":"a.png","width":2,"height":2,"frames":1}`, perrors.ErrCodeInvalidFilename},
		{"zero width", `{"filename":"a.pxl","width":0,"height":2,"frames":1}`, perrors.ErrCodeInvalidDimensions},
		{"too many frames", `{"filename":"a.pxl","width":2,"height":2,"frames":1001}`, perrors.ErrCodeInvalidDimensions},
		{"malformed", `{"filename":`, perrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			expectError(t, f.do(t, http.MethodPost, "/books", tt.body), http.StatusBadRequest, tt.code)
		})
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	expectError(t, f.do(t, http.MethodGet, "/books/nope.pxl", nil), http.StatusNotFound, perrors.ErrCodeNotFound)
	expectError(t, f.do(t, http.MethodGet, "/books/nope.txt", nil), http.StatusBadRequest, perrors.ErrCodeInvalidFilename)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.create(t, "art.pxl", 8, 8, 1)

	body := `{"operations":[
		{"type":"set_color","color":[255,0,0,255]},
		{"type":"draw_shape","shape":"rectangle","position":{"x":1,"y":1},"size":{"width":3,"height":3},"filled":true,"color":[255,0,0,255]}
	]}`
	resp := f.do(t, http.MethodPut, "/books/art.pxl", body)
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	got := decodeBody[api.Updated](t, resp)
	if diff := cmp.Diff(api.Updated{Success: true, OperationsApplied: 2, Filename: "art.pxl"}, got); diff != "" {
		t.Errorf("update response mismatch (-want +got):\n%s", diff)
	}

	b, _ := f.lib.Get(context.Background(), "art.pxl")
	if p, _ := b.Pixel(0, 3, 3); p != book.RGBA(255, 0, 0, 255) {
		t.Errorf("pixel (3, 3) = %v, want red", p)
	}
}

func TestUpdateErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   perrors.Code
	}{
		{
			"out of bounds", "/books/art.pxl",
			`{"operations":[{"type":"draw_pixel","x":9,"y":0,"color":[1,1,1,255]}]}`,
			http.StatusBadRequest, perrors.ErrCodeInvalidCoordinates,
		},
		{
			"unknown operation", "/books/art.pxl",
			`{"operations":[{"type":"spray"}]}`,
			http.StatusBadRequest, perrors.ErrCodeInvalidInput,
		},
		{
			"missing book", "/books/other.pxl",
			`{"operations":[]}`,
			http.StatusNotFound, perrors.ErrCodeNotFound,
		},
		{
			"bad filename", "/books/art.gif",
			`{"operations":[]}`,
			http.StatusBadRequest, perrors.ErrCodeInvalidFilename,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.create(t, "art.pxl", 4, 4, 1)
			expectError(t, f.do(t, http.MethodPut, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestPath(t *testing.T) {
	f := newFixture(t)

	got := decodeBody[api.Path](t, f.do(t, http.MethodGet, "/path", nil))
	if got.Path != f.dir {
		t.Errorf("path = %q, want %q", got.Path, f.dir)
	}

	other := t.TempDir()
	resp := f.do(t, http.MethodPut, "/path", api.Path{Path: other})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set path status = %d", resp.StatusCode)
	}
	if got, _ := f.lib.Path(); got != other {
		t.Errorf("library path = %q, want %q", got, other)
	}

	expectError(t, f.do(t, http.MethodPut, "/path", api.Path{Path: other + "/missing"}), http.StatusBadRequest, perrors.ErrCodeInvalidPath)
}

func TestExportFrame(t *testing.T) {
	f := newFixture(t)
	f.create(t, "art.pxl", 4, 3, 2)

	resp := f.do(t, http.MethodGet, "/books/art.pxl/frames/1?scale=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("size = %dx%d, want 8x6", b.Dx(), b.Dy())
	}

	resp = f.do(t, http.MethodGet, "/books/art.pxl/frames/0?format=bmp", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "image/bmp" {
		t.Errorf("Content-Type = %q, want image/bmp", ct)
	}
}

func TestExportErrors(t *testing.T) {
	f := newFixture(t)
	f.create(t, "art.pxl", 4, 4, 1)
	f.create(t, "big.pxl", 1024, 1024, 1)

	tests := []struct {
		name string
		path string
		code perrors.Code
	}{
		{"output too large", "/books/big.pxl/frames/0?scale=64", perrors.ErrCodeInvalidInput},
		{"frame out of range", "/books/art.pxl/frames/3", perrors.ErrCodeInvalidCoordinates},
		{"frame not a number", "/books/art.pxl/frames/x", perrors.ErrCodeInvalidInput},
		{"bad format", "/books/art.pxl/frames/0?format=gif", perrors.ErrCodeInvalidInput},
		{"bad scale", "/books/art.pxl/frames/0?scale=65", perrors.ErrCodeInvalidInput},
		{"bad raw", "/books/art.pxl/frames/0?raw=maybe", perrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, f.do(t, http.MethodGet, tt.path, nil), http.StatusBadRequest, tt.code)
		})
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.create(t, "art.pxl", 4, 4, 1)
	f.do(t, http.MethodPut, "/books/art.pxl", `{"operations":[{"type":"draw_pixel","x":0,"y":0,"color":[1,2,3,255]}]}`)

	got := decodeBody[api.History](t, f.do(t, http.MethodGet, "/books/art.pxl/history", nil))
	var types []events.Type
	for _, e := range got.Events {
		types = append(types, e.Type)
	}
	want := []events.Type{events.DrawingOperation, events.BookSaved}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	since := got.Events[0].Timestamp.Format(time.RFC3339Nano)
	later := decodeBody[api.History](t, f.do(t, http.MethodGet, "/books/art.pxl/history?since="+since, nil))
	if len(later.Events) != 1 || later.Events[0].Type != events.BookSaved {
		t.Errorf("history since first = %+v, want only book_saved", later.Events)
	}

	expectError(t, f.do(t, http.MethodGet, "/books/art.pxl/history?since=yesterday", nil), http.StatusBadRequest, perrors.ErrCodeInvalidInput)
}

func TestEventsDisabled(t *testing.T) {
	logger := log.New(io.Discard)
	lib := library.New(codec.NewFileService(t.TempDir()), nil, logger)
	srv := httptest.NewServer(New(lib, nil, logger).Handler())
	defer srv.Close()

	for _, path := range []string{"/books/a.pxl/events", "/books/a.pxl/history"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		expectError(t, resp, http.StatusNotImplemented, perrors.ErrCodeUnsupported)
		resp.Body.Close()
	}
}

// sseEvent is one parsed Server-Sent Event.
type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, sc *bufio.Scanner) sseEvent {
	t.Helper()
	var e sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if e.name != "" {
				return e
			}
		case strings.HasPrefix(line, "event: "):
			e.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			e.data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return e
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, WithHeartbeat(50*time.Millisecond))
	f.create(t, "art.pxl", 4, 4, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/books/art.pxl/events", nil)
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	if !sc.Scan() || sc.Text() != ": connected" {
		t.Fatalf("first line = %q, want the connected comment", sc.Text())
	}

	if _, err := f.lib.Update(ctx, "art.pxl", nil); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	var saw events.Event
	for {
		e := readEvent(t, sc)
		if e.name == string(events.Heartbeat) {
			continue
		}
		if err := json.Unmarshal([]byte(e.data), &saw); err != nil {
			t.Fatalf("event data: %v", err)
		}
		break
	}
	if saw.Type != events.BookSaved || saw.Filename != "art.pxl" {
		t.Errorf("event = %+v, want book_saved for art.pxl", saw)
	}

	if e := readEvent(t, sc); e.name != string(events.Heartbeat) {
		t.Errorf("idle stream sent %q, want heartbeat", e.name)
	}
}

func TestEventStreamReplay(t *testing.T) {
	f := newFixture(t)
	f.create(t, "art.pxl", 4, 4, 1)
	f.lib.Update(context.Background(), "art.pxl", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	since := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/books/art.pxl/events?since="+since, nil)
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	if e := readEvent(t, sc); e.name != string(events.BookSaved) {
		t.Errorf("replayed %q, want book_saved", e.name)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	expectError(t, f.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound, perrors.ErrCodeNotFound)

	resp := f.do(t, http.MethodDelete, "/books", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /books status = %d, want 405", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[perrors.Code]int{
		perrors.ErrCodeInvalidColor:  http.StatusBadRequest,
		perrors.ErrCodeInvalidFormat: http.StatusInternalServerError,
		perrors.ErrCodeNotFound:      http.StatusNotFound,
		perrors.ErrCodeUnsupported:   http.StatusNotImplemented,
		perrors.ErrCodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
