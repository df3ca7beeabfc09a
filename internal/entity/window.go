package entity

// ControlKind identifies one element of a pagination bar.
type ControlKind int

const (
	First ControlKind = iota
	Prev
	PageNumber
	Ellipsis
	Next
	Last
)

// Control is one button or separator of a pagination bar. Page is the page
// the control navigates to; zero for ellipses.
type Control struct {
	Kind    ControlKind
	Page    int
	Current bool
}

// DefaultSpan is how many page numbers are shown on each side of the current page.
const DefaultSpan = 3

// Window lays out a pagination bar: First (when past page 2), Prev, page 1
// and an ellipsis when the window starts later, up to span pages each side of
// current, an ellipsis and the last page when the window ends earlier, Next,
// and Last (when there are more than two pages).
func Window(current, total, span int) []Control {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}
	if span < 0 {
		span = DefaultSpan
	}

	var out []Control
	if current > 2 {
		out = append(out, Control{Kind: First, Page: 1})
	}
	if current > 1 {
		out = append(out, Control{Kind: Prev, Page: current - 1})
	}

	start := max(1, current-span)
	end := min(total, current+span)

	if start > 1 {
		out = append(out, Control{Kind: PageNumber, Page: 1})
		if start > 2 {
			out = append(out, Control{Kind: Ellipsis})
		}
	}
	for p := start; p <= end; p++ {
		out = append(out, Control{Kind: PageNumber, Page: p, Current: p == current})
	}
	if end < total {
		if end < total-1 {
			out = append(out, Control{Kind: Ellipsis})
		}
		out = append(out, Control{Kind: PageNumber, Page: total})
	}

	if current < total {
		out = append(out, Control{Kind: Next, Page: current + 1})
	}
	if total > 2 {
		out = append(out, Control{Kind: Last, Page: total})
	}
	return out
}
