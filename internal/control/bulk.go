package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/smarthome-app/smarthome-core/internal/device"
)

// BulkItem is one entry of a bulk update. Value is nil when the caller
// omitted it.
type BulkItem struct {
	Room  string
	Type  string
	Value *string
}

// BulkFailure reports an item that was rejected or could not be stored.
type BulkFailure struct {
	Index int    `json:"index"`
	Room  string `json:"room"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`

	Err error `json:"-"`
}

// BulkResult summarizes a bulk update.
type BulkResult struct {
	Applied  int            `json:"applied"`
	Results  []*WriteResult `json:"results"`
	Failures []BulkFailure  `json:"failures,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// BulkSet applies items one by one.
//
// The batch is first checked for shape: any item missing room, type or value
// rejects the whole request with ErrMalformedRequest before anything is
// written. An empty batch is well formed and applies nothing. After that each
// item succeeds or fails on its own. Items whose history append failed count
// as applied and add a warning.
func (s *Service) BulkSet(ctx context.Context, items []BulkItem) (*BulkResult, error) {
	if err := checkBulkShape(items); err != nil {
		return nil, err
	}

	res := &BulkResult{Results: make([]*WriteResult, 0, len(items))}
	for i, item := range items {
		wr, err := s.SetValue(ctx, item.Room, item.Type, *item.Value)

		var partial *PartialWriteError
		switch {
		case err == nil:
		case errors.As(err, &partial):
			res.Warnings = append(res.Warnings, fmt.Sprintf("sensors[%d]: %v", i, err))
		default:
			res.Failures = append(res.Failures, BulkFailure{
				Index: i,
				Room:  item.Room,
				Type:  item.Type,
				Field: device.FieldOf(err),
				Error: err.Error(),
				Err:   err,
			})
			continue
		}
		res.Applied++
		res.Results = append(res.Results, wr)
	}
	return res, nil
}

func checkBulkShape(items []BulkItem) error {
	for i, item := range items {
		var missing string
		switch {
		case item.Room == "":
			missing = "room"
		case item.Type == "":
			missing = "type"
		case item.Value == nil:
			missing = "value"
		default:
			continue
		}
		return &device.ValidationError{
			Field:  fmt.Sprintf("sensors[%d].%s", i, missing),
			Err:    device.ErrMalformedRequest,
			Detail: missing + " is required",
		}
	}
	return nil
}
