package draw

import (
	"encoding/json"
	"fmt"

	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Envelope carries one Operation in its JSON form: the operation's fields
// plus a "type" tag.
//
//	{"type": "draw_pixel", "frame": 0, "x": 3, "y": 4, "color": [255, 0, 0, 255]}
type Envelope struct {
	Op Operation
}

// Wrap returns an Envelope for op.
func Wrap(op Operation) Envelope {
	return Envelope{Op: op}
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Op == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "cannot marshal empty operation")
	}
	body, err := json.Marshal(e.Op)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(e.Op.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown tags and unknown
// shape or line type names fail with INVALID_INPUT.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid operation")
	}

	var op Operation
	var err error
	switch head.Type {
	case KindDrawPixel:
		op, err = decode[DrawPixel](data)
	case KindSetColor:
		op, err = decode[SetColor](data)
	case KindDrawLine:
		var l DrawLine
		if l, err = decode[DrawLine](data); err == nil {
			err = checkLineType(l.LineType)
		}
		op = l
	case KindDrawShape:
		var s DrawShape
		if s, err = decode[DrawShape](data); err == nil {
			err = checkShape(s.Shape)
		}
		op = s
	case KindDrawPolygon:
		op, err = decode[DrawPolygon](data)
	case KindFillArea:
		op, err = decode[FillArea](data)
	case "":
		return perrors.New(perrors.ErrCodeInvalidInput, "operation is missing its \"type\"")
	default:
		return perrors.New(perrors.ErrCodeInvalidInput, "unknown operation type %q", head.Type)
	}
	if err != nil {
		return err
	}
	e.Op = op
	return nil
}

func decode[T Operation](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		if perrors.GetCode(err) != "" {
			return v, err
		}
		return v, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid %s operation", v.Kind())
	}
	return v, nil
}

func checkLineType(t LineType) error {
	switch t {
	case Straight, Curved:
		return nil
	}
	return perrors.New(perrors.ErrCodeInvalidInput, "unknown line type %q", t)
}

func checkShape(s Shape) error {
	switch s {
	case Rectangle, Circle, Oval, Triangle:
		return nil
	}
	return perrors.New(perrors.ErrCodeInvalidInput, "unknown shape %q", s)
}

// Batch is an ordered list of operations with a JSON array form.
type Batch []Operation

// MarshalJSON implements json.Marshaler.
func (b Batch) MarshalJSON() ([]byte, error) {
	envs := make([]Envelope, len(b))
	for i, op := range b {
		envs[i] = Envelope{Op: op}
	}
	return json.Marshal(envs)
}

// UnmarshalJSON implements json.Unmarshaler. The error names the index of
// the first operation that fails to decode.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "operations must be a JSON array")
	}
	ops := make(Batch, len(raws))
	for i, raw := range raws {
		var e Envelope
		if err := e.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = e.Op
	}
	*b = ops
	return nil
}

// ParseBatch decodes a JSON array of operations.
func ParseBatch(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b, nil
}
