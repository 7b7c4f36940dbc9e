package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidToken = errors.New("invalid_page_token")

// Pagination is bound from the page_token and page_size query parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Size returns the page size clamped to [1, MaxPageSize]. Zero or negative
// values fall back to DefaultPageSize.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor is the keyset position of the last row on a page. Rows are ordered
// by created_at desc, id desc.
type Cursor struct {
	ID        snowflake.ID `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a page token. An empty token yields a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, ErrInvalidToken
	}
	if c.ID == 0 || c.CreatedAt.IsZero() {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// Page trims rows fetched with limit size+1 down to size and reports whether
// another page exists.
func Page[T any](rows []T, size int, cursorOf func(T) Cursor) ([]T, PageInfo) {
	if len(rows) <= size {
		return rows, PageInfo{}
	}

	rows = rows[:size]
	return rows, PageInfo{
		HasMore:       true,
		NextPageToken: EncodeCursor(cursorOf(rows[len(rows)-1])),
	}
}
