package domain

import (
	"math"

	"github.com/samber/lo"
)

const DefaultPageSize = 10

// MessagePage is the paging envelope expected by the HTTP history collaborator.
type MessagePage struct {
	Docs          []Message `json:"docs"`
	TotalDocs     int       `json:"totalDocs"`
	Limit         int       `json:"limit"`
	TotalPages    int       `json:"totalPages"`
	Page          int       `json:"page"`
	PagingCounter int       `json:"pagingCounter"`
	HasPrevPage   bool      `json:"hasPrevPage"`
	HasNextPage   bool      `json:"hasNextPage"`
	PrevPage      *int      `json:"prevPage"`
	NextPage      *int      `json:"nextPage"`
}

// MaxPage is the last page number whose offset fits in an int for limit.
func MaxPage(limit int) int {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return math.MaxInt / limit
}

// NewMessagePage computes the envelope around one page of docs.
// An empty collection still reports one page.
func NewMessagePage(docs []Message, totalDocs, page, limit int) MessagePage {
	if docs == nil {
		docs = []Message{}
	}
	totalPages := 1
	if totalDocs > 0 {
		totalPages = (totalDocs + limit - 1) / limit
	}
	p := MessagePage{
		Docs:          docs,
		TotalDocs:     totalDocs,
		Limit:         limit,
		TotalPages:    totalPages,
		Page:          page,
		PagingCounter: (page-1)*limit + 1,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
	}
	if p.HasPrevPage {
		p.PrevPage = lo.ToPtr(page - 1)
	}
	if p.HasNextPage {
		p.NextPage = lo.ToPtr(page + 1)
	}
	return p
}
