package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/shared"
)

// applyFilter applies pagination and ordering from a shared.Filter to the
// query. defaultOrder is used when the filter does not name a column.
func applyFilter(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		return query.Order(filter.OrderBy + " " + orderDir)
	}
	return query.Order(defaultOrder)
}
