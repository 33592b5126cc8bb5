package space

import (
	"sort"
	"strings"
)

type CatalogSort string

const (
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByNewest    CatalogSort = "newest"
	SortByUpdated   CatalogSort = "updated"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Owner    OwnerID
	Query    string
	Types    []PricingType
	PriceMin int64
	PriceMax int64
	Sort     CatalogSort
	Limit    int
	Offset   int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Query = strings.TrimSpace(strings.ToLower(normalized.Query))
	normalized.Types = normalizeTypes(normalized.Types)
	if normalized.PriceMin < 0 {
		normalized.PriceMin = 0
	}
	if normalized.PriceMax > 0 && normalized.PriceMax < normalized.PriceMin {
		normalized.PriceMax = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByNewest, SortByUpdated:
	default:
		normalized.Sort = SortByNewest
	}
	return normalized
}

func normalizeTypes(values []PricingType) []PricingType {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[PricingType]struct{}, len(values))
	out := make([]PricingType, 0, len(values))
	for _, value := range values {
		t := PricingType(strings.TrimSpace(strings.ToLower(string(value))))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Matches applies every filter of normalized params to s.
func (p SearchParams) Matches(s *Space) bool {
	if p.Owner != "" && s.OwnerID != p.Owner {
		return false
	}
	if p.Query != "" {
		haystack := strings.ToLower(s.Name + " " + s.Description)
		if !strings.Contains(haystack, p.Query) {
			return false
		}
	}
	if len(p.Types) > 0 {
		found := false
		for _, t := range p.Types {
			if s.Pricing.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.Pricing.BasePrice < p.PriceMin {
		return false
	}
	if p.PriceMax > 0 && s.Pricing.BasePrice > p.PriceMax {
		return false
	}
	return true
}

// SortSpaces orders items in place according to the catalog sort.
func SortSpaces(items []*Space, by CatalogSort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case SortByPriceAsc:
			return a.Pricing.BasePrice < b.Pricing.BasePrice
		case SortByPriceDesc:
			return a.Pricing.BasePrice > b.Pricing.BasePrice
		case SortByUpdated:
			return a.UpdatedAt.After(b.UpdatedAt)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Space
	Total int
}
