package leads

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Sortable columns for the admin listing.
const (
	SortCreatedAt = "created_at"
	SortFullName  = "full_name"
	SortEmail     = "email"
)

// MaxListLimit caps a single admin page.
const MaxListLimit = 500

// ListFilter narrows and orders the admin listing. A zero Limit means no limit.
type ListFilter struct {
	Search string
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// DefaultListFilter is every lead, newest first.
func DefaultListFilter() ListFilter {
	return ListFilter{SortBy: SortCreatedAt, Desc: true}
}

// ParseListFilter reads q, sort, order, limit and offset. Unknown or
// out-of-range values fall back to the defaults instead of failing.
func ParseListFilter(q url.Values) ListFilter {
	filter := DefaultListFilter()
	filter.Search = strings.TrimSpace(q.Get("q"))

	switch q.Get("sort") {
	case SortFullName, SortEmail, SortCreatedAt:
		filter.SortBy = q.Get("sort")
	}
	switch strings.ToLower(q.Get("order")) {
	case "asc":
		filter.Desc = false
	case "desc":
		filter.Desc = true
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= MaxListLimit {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter
}

// Matches reports whether lead contains the search term (case-insensitive)
// in its name, email, Instagram username or phone.
func (f ListFilter) Matches(lead *Lead) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, hay := range []string{lead.FullName, lead.Email, Value(lead.IGUsername), Value(lead.Phone)} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Apply filters, sorts and pages an in-memory slice. The input is not modified.
func (f ListFilter) Apply(all []*Lead) []*Lead {
	out := make([]*Lead, 0, len(all))
	for _, lead := range all {
		if f.Matches(lead) {
			out = append(out, lead)
		}
	}

	less := func(a, b *Lead) int {
		switch f.SortBy {
		case SortFullName:
			return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
		case SortEmail:
			return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if f.Desc {
			return c > 0
		}
		return c < 0
	})

	if f.Offset >= len(out) {
		return []*Lead{}
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}
