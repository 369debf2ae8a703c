package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
)

// cursorTimeLayout is ISO-8601 truncated to whole seconds. Feed rows are
// written with second granularity, so the encoding is lossless.
const cursorTimeLayout = "2006-01-02T15:04:05"

const cursorDelimiter = "_"

// Cursor is the decoded keyset position: the (createdAt, id) of the last item
// delivered on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// EncodeCursor renders an opaque pagination token for the given keyset pair.
func EncodeCursor(createdAt time.Time, id int64) string {
	return createdAt.UTC().Format(cursorTimeLayout) + cursorDelimiter + strconv.FormatInt(id, 10)
}

// DecodeCursor parses a client-supplied token. An empty string or the literal
// "null" means "first page" and yields a nil cursor; legacy clients send the
// sentinel instead of omitting the parameter. Anything else must decode
// exactly or the request is rejected with ErrInvalidCursor.
func DecodeCursor(raw string) (*Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil, nil
	}
	ts, idPart, found := strings.Cut(raw, cursorDelimiter)
	if !found {
		return nil, fmt.Errorf("%w: missing delimiter in %q", apperrors.ErrInvalidCursor, raw)
	}
	// Tolerate trailing sub-second precision by truncation.
	if len(ts) > len(cursorTimeLayout) {
		ts = ts[:len(cursorTimeLayout)]
	}
	createdAt, err := time.ParseInLocation(cursorTimeLayout, ts, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp in %q", apperrors.ErrInvalidCursor, raw)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id in %q", apperrors.ErrInvalidCursor, raw)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
