package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/geom"
	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/optim"
)

// Request is a client packet. The only tag is "Edit", whose contents carry
// a description under "program".
type Request struct {
	Tag      string      `json:"tag"`
	Contents EditRequest `json:"contents"`
}

type EditRequest struct {
	Program json.RawMessage `json:"program"`
}

// Packet is a server reply: either {"type":"shapes"} with a snapshot or
// {"type":"error"} with an ErrorContents.
type Packet struct {
	Type     string `json:"type"`
	Contents any    `json:"contents"`
}

type ErrorContents struct {
	Tag      string `json:"tag"`
	Contents string `json:"contents"`
}

// ShapesContents is a snapshot plus the warning, if any, from the last run.
type ShapesContents struct {
	layout.Snapshot
	Warning string `json:"warning,omitempty"`
}

const (
	TagStateDecode       = "StateDecodeError"
	TagUnknownTerm       = "UnknownTermError"
	TagUnsupportedPair   = "UnsupportedShapePairError"
	TagShapeField        = "ShapeFieldError"
	TagArity             = "ArityError"
	TagNumericDivergence = "NumericDivergenceError"
	TagBadRequest        = "BadRequest"
	TagNotFound          = "NotFound"
	TagBusy              = "Busy"
	TagTooManySessions   = "TooManySessions"
	TagCanceled          = "Canceled"
	TagInternal          = "InternalError"
)

func shapesPacket(snap layout.Snapshot, warn error) Packet {
	c := ShapesContents{Snapshot: snap}
	if warn != nil {
		c.Warning = warn.Error()
	}
	return Packet{Type: "shapes", Contents: c}
}

func errorPacket(tag string, err error) Packet {
	return Packet{Type: "error", Contents: ErrorContents{Tag: tag, Contents: err.Error()}}
}

// errorTag names the kind of err for clients.
func errorTag(err error) string {
	var (
		pairErr  *constraint.UnsupportedShapePairError
		fieldErr *geom.ShapeFieldError
		divErr   *optim.NumericDivergenceError
	)
	switch {
	case errors.As(err, &pairErr):
		return TagUnsupportedPair
	case errors.As(err, &fieldErr):
		return TagShapeField
	case errors.As(err, &divErr):
		return TagNumericDivergence
	case errors.Is(err, layout.ErrStateDecode):
		return TagStateDecode
	case errors.Is(err, constraint.ErrUnknownTerm):
		return TagUnknownTerm
	case errors.Is(err, constraint.ErrArity):
		return TagArity
	case errors.Is(err, errBusy):
		return TagBusy
	case errors.Is(err, errNotFound):
		return TagNotFound
	case errors.Is(err, errTooMany):
		return TagTooManySessions
	case errors.Is(err, errBadRequest):
		return TagBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return TagCanceled
	}
	return TagInternal
}
