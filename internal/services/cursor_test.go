package services

import (
	"errors"
	"testing"
	"time"

	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
)

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	raw := EncodeCursor(createdAt, 42)
	if raw != "2025-03-14T09:26:53_42" {
		t.Fatalf("EncodeCursor=%q, want %q", raw, "2025-03-14T09:26:53_42")
	}

	cur, err := DecodeCursor(raw)
	if err != nil {
		t.Fatalf("DecodeCursor(%q) error: %v", raw, err)
	}
	if !cur.CreatedAt.Equal(createdAt) {
		t.Fatalf("decoded createdAt=%v, want %v", cur.CreatedAt, createdAt)
	}
	if cur.ID != 42 {
		t.Fatalf("decoded id=%d, want 42", cur.ID)
	}
}

func TestDecodeCursorFirstPageSentinels(t *testing.T) {
	for _, raw := range []string{"", "null", "NULL", "  null  "} {
		cur, err := DecodeCursor(raw)
		if err != nil {
			t.Fatalf("DecodeCursor(%q) error: %v", raw, err)
		}
		if cur != nil {
			t.Fatalf("DecodeCursor(%q)=%+v, want nil", raw, cur)
		}
	}
}

func TestDecodeCursorTruncatesSubSeconds(t *testing.T) {
	cur, err := DecodeCursor("2025-03-14T09:26:53.123456_7")
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	want := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if !cur.CreatedAt.Equal(want) {
		t.Fatalf("createdAt=%v, want %v", cur.CreatedAt, want)
	}
	if cur.ID != 7 {
		t.Fatalf("id=%d, want 7", cur.ID)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "missing_delimiter", raw: "2025-03-14T09:26:53"},
		{name: "bad_timestamp", raw: "not-a-time_42"},
		{name: "non_numeric_id", raw: "2025-03-14T09:26:53_abc"},
		{name: "empty_id", raw: "2025-03-14T09:26:53_"},
		{name: "garbage", raw: "zzzz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCursor(tc.raw)
			if !errors.Is(err, apperrors.ErrInvalidCursor) {
				t.Fatalf("DecodeCursor(%q) err=%v, want ErrInvalidCursor", tc.raw, err)
			}
		})
	}
}

func TestEncodeCursorNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	createdAt := time.Date(2025, 3, 14, 18, 26, 53, 0, loc)
	raw := EncodeCursor(createdAt, 1)
	if raw != "2025-03-14T09:26:53_1" {
		t.Fatalf("EncodeCursor=%q, want UTC-normalized token", raw)
	}
}
