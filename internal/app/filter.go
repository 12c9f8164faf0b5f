package app

import (
	"strings"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

func (f TransactionFilter) matches(tx domain.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Source != "" && tx.Source != f.Source {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.Notes), needle) {
			return false
		}
	}
	return true
}
