package filters

import (
	"strconv"
	"strings"
)

const (
	DefaultPage = 1
	// MaxPage is the highest page the catalog API serves.
	MaxPage = 500
)

// CatalogQuery identifies one page of catalog results.
// An empty Query selects the popular list instead of a text search.
type CatalogQuery struct {
	Query string `schema:"query" json:"query"`
	Page  int    `schema:"page" json:"page" validate:"omitempty,min=1,max=500"`
}

func New(query string, page int) CatalogQuery {
	q := CatalogQuery{Query: query, Page: page}
	q.Normalize()
	return q
}

func (q *CatalogQuery) Normalize() {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page < 1 {
		q.Page = DefaultPage
	}
}

func (q CatalogQuery) IsPopular() bool {
	return strings.TrimSpace(q.Query) == ""
}

// CacheKey is stable for equal (query, page) pairs.
func (q CatalogQuery) CacheKey() string {
	if q.IsPopular() {
		return "movies:popular:" + strconv.Itoa(q.Page)
	}
	return "movies:search:" + strconv.Itoa(q.Page) + ":" + strings.TrimSpace(q.Query)
}

func DetailsCacheKey(id int) string {
	return "movie:" + strconv.Itoa(id)
}
