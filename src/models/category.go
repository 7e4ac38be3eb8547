package models

import (
	"strings"
	"time"
)

type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Keywords  string    `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeywordList splits the comma-separated keywords, dropping blanks.
func (c Category) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(c.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
