package convo

// Page is one slice of a paginated result set.
type Page struct {
	// IDs are the result ids for this page, in original order.
	IDs []int64
	// NewOffset is the cursor position after this page. The caller is
	// responsible for persisting it back into the context — NextPage never
	// mutates state, which is what keeps it trivially testable.
	NewOffset int
	// HasMore reports whether another page exists beyond this one.
	HasMore bool
}

// NextPage slices the next page out of the context's pagination state.
// Returns nil when no pagination exists or the cursor is already at the
// end. Invariants: successive pages are pairwise disjoint, their union is
// ResultIDs, and ⌈TotalCount/PageSize⌉ calls exhaust the set (assuming the
// caller persists NewOffset between calls).
func NextPage(c *Context) *Page {
	if c == nil || c.Pagination == nil {
		return nil
	}
	pg := c.Pagination
	if pg.PageSize <= 0 || pg.CurrentOffset >= pg.TotalCount {
		return nil
	}

	end := pg.CurrentOffset + pg.PageSize
	if end > len(pg.ResultIDs) {
		end = len(pg.ResultIDs)
	}
	ids := make([]int64, end-pg.CurrentOffset)
	copy(ids, pg.ResultIDs[pg.CurrentOffset:end])

	return &Page{
		IDs:       ids,
		NewOffset: end,
		HasMore:   end < pg.TotalCount,
	}
}

// Remaining reports how many results are left beyond the current offset.
func Remaining(c *Context) int {
	if c == nil || c.Pagination == nil {
		return 0
	}
	rem := c.Pagination.TotalCount - c.Pagination.CurrentOffset
	if rem < 0 {
		return 0
	}
	return rem
}
