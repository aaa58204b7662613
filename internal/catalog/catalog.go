// Package catalog holds the read-only reference lists the wizard offers as
// buttons: ledger categories grouped by budget group, ledger accounts and the
// sharing service's categories. Catalogs are loaded once at startup.
package catalog

import (
	"sort"
	"strings"
)

// OthersGroup collects categories that are not listed under any group.
const OthersGroup = "Others"

// Group is a named budget group and its ordered categories.
type Group struct {
	Name       string
	Categories []string
}

// Categories is the ordered list of ledger category groups.
type Categories struct {
	Groups []Group
}

// NewCategories builds the category catalog from grouped categories and the
// flat transaction-category list. Names present in exactly one of the two
// sources end up in the synthetic Others group, which is only added when it
// is non-empty.
func NewCategories(groups []Group, flat []string) Categories {
	grouped := make(map[string]bool)
	out := make([]Group, 0, len(groups)+1)
	for _, g := range groups {
		cats := make([]string, 0, len(g.Categories))
		for _, c := range g.Categories {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			grouped[c] = true
			cats = append(cats, c)
		}
		out = append(out, Group{Name: g.Name, Categories: cats})
	}

	listed := make(map[string]bool)
	for _, c := range flat {
		c = strings.TrimSpace(c)
		if c != "" {
			listed[c] = true
		}
	}

	var others []string
	for c := range listed {
		if !grouped[c] {
			others = append(others, c)
		}
	}
	for c := range grouped {
		if !listed[c] {
			others = append(others, c)
		}
	}
	sort.Strings(others)

	if len(others) > 0 {
		out = append(out, Group{Name: OthersGroup, Categories: others})
	}
	return Categories{Groups: out}
}

// GroupNames returns group names in display order.
func (c Categories) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Group looks up a group by name.
func (c Categories) Group(name string) (Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// GroupAt returns the i-th group in display order.
func (c Categories) GroupAt(i int) (Group, bool) {
	if i < 0 || i >= len(c.Groups) {
		return Group{}, false
	}
	return c.Groups[i], true
}

// CategoryAt returns the i-th category of the group.
func (g Group) CategoryAt(i int) (string, bool) {
	if i < 0 || i >= len(g.Categories) {
		return "", false
	}
	return g.Categories[i], true
}

// Contains reports whether category is listed under group.
func (c Categories) Contains(group, category string) bool {
	g, ok := c.Group(group)
	if !ok {
		return false
	}
	for _, name := range g.Categories {
		if name == category {
			return true
		}
	}
	return false
}

// Len returns the total number of categories across all groups.
func (c Categories) Len() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Categories)
	}
	return n
}

// Accounts is the sorted list of ledger accounts, cards included.
type Accounts []string

// NewAccounts concatenates account lists, drops blanks and sorts the result.
func NewAccounts(lists ...[]string) Accounts {
	var out Accounts
	for _, list := range lists {
		for _, name := range list {
			name = strings.TrimSpace(name)
			if name != "" {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Contains reports whether name is a known account.
func (a Accounts) Contains(name string) bool {
	for _, acc := range a {
		if acc == name {
			return true
		}
	}
	return false
}

// At returns the i-th account.
func (a Accounts) At(i int) (string, bool) {
	if i < 0 || i >= len(a) {
		return "", false
	}
	return a[i], true
}

// Pages returns the number of pages of the given size. An empty catalog has one page.
func (a Accounts) Pages(size int) int {
	if size <= 0 || len(a) == 0 {
		return 1
	}
	return (len(a) + size - 1) / size
}

// Page returns the accounts on page n (zero based). Out-of-range pages are empty.
func (a Accounts) Page(n, size int) []string {
	if size <= 0 {
		return a
	}
	start := n * size
	if n < 0 || start >= len(a) {
		return nil
	}
	end := start + size
	if end > len(a) {
		end = len(a)
	}
	return a[start:end]
}

// PageOf returns the page that contains name, or 0 when it is not listed.
func (a Accounts) PageOf(name string, size int) int {
	if size <= 0 {
		return 0
	}
	for i, acc := range a {
		if acc == name {
			return i / size
		}
	}
	return 0
}

// SharedCategory is a sharing-service category with its subcategories.
type SharedCategory struct {
	ID            int64
	Name          string
	Subcategories []SharedCategory
}

// SharedCategories is the sharing-service category tree, sorted by name.
type SharedCategories []SharedCategory

// NewSharedCategories sorts top-level categories by name.
func NewSharedCategories(in []SharedCategory) SharedCategories {
	out := make(SharedCategories, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns top-level category names.
func (s SharedCategories) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

// At returns the i-th top-level category.
func (s SharedCategories) At(i int) (SharedCategory, bool) {
	if i < 0 || i >= len(s) {
		return SharedCategory{}, false
	}
	return s[i], true
}

// SubAt returns the i-th subcategory.
func (c SharedCategory) SubAt(i int) (SharedCategory, bool) {
	if i < 0 || i >= len(c.Subcategories) {
		return SharedCategory{}, false
	}
	return c.Subcategories[i], true
}

// Find looks up a top-level category by name.
func (s SharedCategories) Find(name string) (SharedCategory, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return SharedCategory{}, false
}

// FindSub looks up a subcategory of parent by name.
func (s SharedCategories) FindSub(parent, name string) (SharedCategory, bool) {
	p, ok := s.Find(parent)
	if !ok {
		return SharedCategory{}, false
	}
	for _, sub := range p.Subcategories {
		if sub.Name == name {
			return sub, true
		}
	}
	return SharedCategory{}, false
}

// Catalogs bundles every catalog the wizard renders.
type Catalogs struct {
	Categories Categories
	Accounts   Accounts
	Shared     SharedCategories
}
