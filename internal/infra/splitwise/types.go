package splitwise

// User is a Splitwise user or friend.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// FullName joins first and last name, skipping a missing last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Group is a Splitwise group.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Currency is a currency Splitwise accepts.
type Currency struct {
	Code string `json:"currency_code"`
	Unit string `json:"unit"`
}

// Category is an expense category with its subcategories.
type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Subcategories []Category `json:"subcategories,omitempty"`
}

// Expense is a created expense as returned by the API.
type Expense struct {
	ID           int64  `json:"id"`
	GroupID      int64  `json:"group_id"`
	Description  string `json:"description"`
	Cost         string `json:"cost"`
	CurrencyCode string `json:"currency_code"`
	Date         string `json:"date"`
}
