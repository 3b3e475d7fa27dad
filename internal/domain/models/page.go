package models

// PageRequest - номер страницы (с 1) и её размер.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Normalize подставляет значения по умолчанию и ограничивает размер страницы.
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultSize
	}
	if maxSize > 0 && p.PerPage > maxSize {
		p.PerPage = maxSize
	}

	return p
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}

	lastPage := 1
	if req.PerPage > 0 && total > 0 {
		lastPage = (total + req.PerPage - 1) / req.PerPage
	}

	return Page[T]{
		Items:    items,
		Page:     req.Page,
		PerPage:  req.PerPage,
		Total:    total,
		LastPage: lastPage,
	}
}
