package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 20

// Page — одна страница списка в ответе API.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasNext  bool  `json:"has_next"`
	HasPrev  bool  `json:"has_prev"`
}

// NewPage собирает метаданные страницы по total из БД.
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  int64(page*pageSize) < total,
		HasPrev:  page > 1,
	}
}

// pageParams читает ?page и ?page_size, нумерация страниц с 1.
func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
