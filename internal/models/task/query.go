package task

import "strings"

type OrderBy string

const (
	OrderByCreatedDate OrderBy = "CreatedDate"
	OrderByPriority    OrderBy = "Priority"
	OrderByDueDate     OrderBy = "DueDate"
)

// ParseOrderBy возвращает CreatedDate для пустого и неизвестного значения
func ParseOrderBy(raw string) OrderBy {
	switch {
	case strings.EqualFold(raw, string(OrderByPriority)):
		return OrderByPriority
	case strings.EqualFold(raw, string(OrderByDueDate)):
		return OrderByDueDate
	default:
		return OrderByCreatedDate
	}
}

type ListQuery struct {
	Page     int
	PageSize int
	OrderBy  OrderBy
}

// SearchFilter - параметры процедуры поиска, nil и пустые строки означают "без фильтра"
type SearchFilter struct {
	Title    string
	Status   *Status
	Priority *Priority
	OwnerID  string
}
