// Package api defines the JSON bodies exchanged by the pixl HTTP server
// and its client.
package api

import (
	"github.com/pixlkit/pixl/pkg/codec"
	"github.com/pixlkit/pixl/pkg/draw"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "pixl-server"

// Health is the body of GET /.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// Path is the body of GET and PUT /path.
type Path struct {
	Path string `json:"path"`
}

// Books is the body of GET /books.
type Books struct {
	Books []codec.Info `json:"books"`
}

// CreateBook is the request body of POST /books.
type CreateBook struct {
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Frames   int    `json:"frames"`
}

// Created is the response body of POST /books.
type Created struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// UpdateBook is the request body of PUT /books/{filename}.
type UpdateBook struct {
	Operations draw.Batch `json:"operations"`
}

// Updated is the response body of PUT /books/{filename}.
type Updated struct {
	Success           bool   `json:"success"`
	OperationsApplied int    `json:"operations_applied"`
	Filename          string `json:"filename"`
}

// History is the body of GET /books/{filename}/history.
type History struct {
	Events []events.Event `json:"events"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Message string       `json:"error"`
	Code    perrors.Code `json:"code"`
}

// Err converts the body back into a coded error.
func (e Error) Err() error {
	code := e.Code
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	return &perrors.Error{Code: code, Message: e.Message}
}
