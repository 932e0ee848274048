package emulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/store"
)

const (
	kindReceipt = "receipt"
	kindWorker  = "worker"

	cursorDomain = "tcf/lookup-cursor/v1"
)

type lookupJSON struct {
	TotalCount int      `json:"totalCount"`
	LookupTag  string   `json:"lookupTag"`
	IDs        []string `json:"ids"`
}

// lookupPage answers a lookup for filter starting at position.
func (s *Service) lookupPage(ctx context.Context, kind string, filter any, position int) (any, *jrpc.RPCError) {
	data, err := json.Marshal(filter)
	if err != nil {
		return nil, &jrpc.RPCError{Code: jrpc.CodeInternalError, Message: err.Error()}
	}
	return s.page(ctx, kind, data, position)
}

// resumeLookup continues from the cursor stored under tag. The cursor's
// own filter is used, not the one sent with the request.
func (s *Service) resumeLookup(ctx context.Context, kind, tag string) (any, *jrpc.RPCError) {
	c, err := s.store.GetCursor(ctx, tag)
	if err != nil {
		return nil, storeError(err)
	}
	if c.Kind != kind {
		return nil, &jrpc.RPCError{
			Code:    int(jrpc.StatusInvalidParameterOrValue),
			Message: fmt.Sprintf("lookup tag %s belongs to a %s lookup", tag, c.Kind),
		}
	}
	return s.page(ctx, kind, []byte(c.Filter), c.Position)
}

func (s *Service) page(ctx context.Context, kind string, filter []byte, position int) (any, *jrpc.RPCError) {
	ids, err := s.matchIDs(ctx, kind, filter)
	if err != nil {
		return nil, storeError(err)
	}

	position = min(position, len(ids))
	end := min(position+s.pageSize, len(ids))
	out := lookupJSON{TotalCount: len(ids), IDs: ids[position:end]}

	if end < len(ids) {
		tag, err := s.saveCursor(ctx, kind, filter, end)
		if err != nil {
			return nil, &jrpc.RPCError{Code: jrpc.CodeInternalError, Message: err.Error()}
		}
		out.LookupTag = tag
	}
	return out, nil
}

func (s *Service) matchIDs(ctx context.Context, kind string, filter []byte) ([]string, error) {
	switch kind {
	case kindReceipt:
		var f receiptFilterJSON
		if err := json.Unmarshal(filter, &f); err != nil {
			return nil, fmt.Errorf("decode receipt filter: %w", err)
		}
		return s.store.LookupReceipts(ctx, f.toStore())
	case kindWorker:
		var f workerFilterJSON
		if err := json.Unmarshal(filter, &f); err != nil {
			return nil, fmt.Errorf("decode worker filter: %w", err)
		}
		return s.store.LookupWorkers(ctx, f.toStore())
	default:
		return nil, fmt.Errorf("unknown lookup kind %q", kind)
	}
}

// saveCursor stores the continuation state and returns its tag, the
// canonical hash of kind, filter and position.
func (s *Service) saveCursor(ctx context.Context, kind string, filter []byte, position int) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(filter))
	dec.UseNumber()
	var f map[string]any
	if err := dec.Decode(&f); err != nil {
		return "", fmt.Errorf("decode filter: %w", err)
	}

	canonical, err := jrpc.MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("canonical filter: %w", err)
	}
	tag, err := jrpc.CanonicalHash(cursorDomain, map[string]any{
		"kind":     kind,
		"filter":   f,
		"position": position,
	})
	if err != nil {
		return "", err
	}

	err = s.store.PutCursor(ctx, store.Cursor{
		Tag:      tag,
		Kind:     kind,
		Filter:   string(canonical),
		Position: position,
	})
	if err != nil {
		return "", err
	}
	return tag, nil
}
