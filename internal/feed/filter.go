// Package feed holds the pure rules behind the public feed: which posts a
// filter keeps and what each post offers the viewer.
package feed

import (
	"strings"

	"lostfound/internal/model"
)

// TypeFacet narrows the feed by post type.
type TypeFacet string

const (
	TypeAll   TypeFacet = "all"
	TypeLost  TypeFacet = "lost"
	TypeFound TypeFacet = "found"
)

// ParseTypeFacet maps a query value to a facet. Unknown values mean all.
func ParseTypeFacet(s string) TypeFacet {
	switch TypeFacet(strings.ToLower(strings.TrimSpace(s))) {
	case TypeLost:
		return TypeLost
	case TypeFound:
		return TypeFound
	default:
		return TypeAll
	}
}

// Filter is the viewer's current narrowing. The zero value keeps everything.
type Filter struct {
	Type     TypeFacet `json:"type"`
	Category string    `json:"category,omitempty"`
	Query    string    `json:"q,omitempty"`
}

// Apply runs the stages in order: type, category, free-text search. Each stage
// only removes posts, and input order is kept.
func (f Filter) Apply(posts []model.Post) []model.Post {
	return Search(ByCategory(ByType(posts, f.Type), f.Category), f.Query)
}

// ByType keeps posts matching the facet.
func ByType(posts []model.Post, facet TypeFacet) []model.Post {
	if facet == "" || facet == TypeAll {
		return posts
	}
	return keep(posts, func(p *model.Post) bool {
		return string(p.Type) == string(facet)
	})
}

// ByCategory keeps posts in the given category. Empty keeps all.
func ByCategory(posts []model.Post, category string) []model.Post {
	if category == "" {
		return posts
	}
	return keep(posts, func(p *model.Post) bool {
		return p.Category == category
	})
}

// Search keeps posts whose title, description, location or category contains
// the query, ignoring case. A blank query keeps all.
func Search(posts []model.Post, query string) []model.Post {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return posts
	}
	return keep(posts, func(p *model.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Location), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	})
}

func keep(posts []model.Post, pred func(*model.Post) bool) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for i := range posts {
		if pred(&posts[i]) {
			out = append(out, posts[i])
		}
	}
	return out
}
