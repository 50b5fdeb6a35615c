package projection

// Selection is the set of displayed columns over a fixed universe. Selected
// columns are always reported in universe order.
type Selection struct {
	universe []string
	selected map[string]bool
}

// NewSelection selects requested columns that exist in universe. Unknown
// names are ignored.
func NewSelection(universe []string, requested ...string) *Selection {
	s := &Selection{
		universe: append([]string(nil), universe...),
		selected: map[string]bool{},
	}
	for _, name := range requested {
		if s.contains(name) {
			s.selected[name] = true
		}
	}
	return s
}

// DefaultSelection selects DefaultFields that exist in universe.
func DefaultSelection(universe []string) *Selection {
	return NewSelection(universe, DefaultFields...)
}

func (s *Selection) contains(name string) bool {
	for _, u := range s.universe {
		if u == name {
			return true
		}
	}
	return false
}

// Universe returns every selectable column.
func (s *Selection) Universe() []string {
	return append([]string(nil), s.universe...)
}

// Fields returns the selected columns in universe order.
func (s *Selection) Fields() []string {
	out := make([]string, 0, len(s.selected))
	for _, u := range s.universe {
		if s.selected[u] {
			out = append(out, u)
		}
	}
	return out
}

// IsSelected reports whether name is displayed.
func (s *Selection) IsSelected(name string) bool { return s.selected[name] }

// AllSelected reports whether the selection equals the universe.
// An empty universe is never considered fully selected.
func (s *Selection) AllSelected() bool {
	if len(s.universe) == 0 {
		return false
	}
	return len(s.selected) == len(s.universe)
}

// Toggle flips one column. Unknown names are ignored.
func (s *Selection) Toggle(name string) {
	if !s.contains(name) {
		return
	}
	if s.selected[name] {
		delete(s.selected, name)
		return
	}
	s.selected[name] = true
}

// SelectAll selects the whole universe.
func (s *Selection) SelectAll() {
	for _, u := range s.universe {
		s.selected[u] = true
	}
}

// SelectNone clears the selection.
func (s *Selection) SelectNone() {
	s.selected = map[string]bool{}
}

// ToggleAll selects the universe, or collapses to {MinimalField} (empty if
// absent) when everything is already selected.
func (s *Selection) ToggleAll() {
	if !s.AllSelected() {
		s.SelectAll()
		return
	}
	s.SelectNone()
	if s.contains(MinimalField) {
		s.selected[MinimalField] = true
	}
}
