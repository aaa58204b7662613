package splitwise

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/wizard"
)

// CurrentUser returns the user owning the API key.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "/get_current_user", &resp); err != nil {
		return User{}, fmt.Errorf("CurrentUser: %w", err)
	}
	return resp.User, nil
}

// FetchFriends returns the current user's friends.
func (c *Client) FetchFriends(ctx context.Context) ([]User, error) {
	var resp struct {
		Friends []User `json:"friends"`
	}
	if err := c.get(ctx, "/get_friends", &resp); err != nil {
		return nil, fmt.Errorf("FetchFriends: %w", err)
	}
	return resp.Friends, nil
}

// FetchGroups returns the current user's groups.
func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	var resp struct {
		Groups []Group `json:"groups"`
	}
	if err := c.get(ctx, "/get_groups", &resp); err != nil {
		return nil, fmt.Errorf("FetchGroups: %w", err)
	}
	return resp.Groups, nil
}

// FindGroup looks up a group by id among the current user's groups.
func (c *Client) FindGroup(ctx context.Context, id int64) (Group, bool, error) {
	groups, err := c.FetchGroups(ctx)
	if err != nil {
		return Group{}, false, err
	}
	for _, g := range groups {
		if g.ID == id {
			return g, true, nil
		}
	}
	return Group{}, false, nil
}

// FetchCurrencies returns every supported currency.
func (c *Client) FetchCurrencies(ctx context.Context) ([]Currency, error) {
	var resp struct {
		Currencies []Currency `json:"currencies"`
	}
	if err := c.get(ctx, "/get_currencies", &resp); err != nil {
		return nil, fmt.Errorf("FetchCurrencies: %w", err)
	}
	return resp.Currencies, nil
}

// SupportsCurrency reports whether code is a supported currency code.
func (c *Client) SupportsCurrency(ctx context.Context, code string) (bool, error) {
	currencies, err := c.FetchCurrencies(ctx)
	if err != nil {
		return false, err
	}
	for _, cur := range currencies {
		if strings.EqualFold(cur.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

// FetchCategories implements the wizard.SharingGateway interface.
// Subcategories keep the API's order; top-level categories are sorted by name.
func (c *Client) FetchCategories(ctx context.Context) (catalog.SharedCategories, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "/get_categories", &resp); err != nil {
		return nil, fmt.Errorf("FetchCategories: %w", err)
	}

	out := make([]catalog.SharedCategory, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		sc := catalog.SharedCategory{ID: cat.ID, Name: cat.Name}
		for _, sub := range cat.Subcategories {
			sc.Subcategories = append(sc.Subcategories, catalog.SharedCategory{ID: sub.ID, Name: sub.Name})
		}
		out = append(out, sc)
	}
	return catalog.NewSharedCategories(out), nil
}

// CreateExpense posts a shared expense and returns what Splitwise stored.
// The payer paid the whole cost and the payee owes all of it.
func (c *Client) CreateExpense(ctx context.Context, exp domain.SharedExpense) (*Expense, error) {
	var resp struct {
		Expenses []Expense      `json:"expenses"`
		Errors   json.RawMessage `json:"errors"`
	}
	if err := c.postForm(ctx, "/create_expense", expenseForm(exp), &resp); err != nil {
		return nil, fmt.Errorf("CreateExpense: %w", err)
	}
	if hasErrors(resp.Errors) {
		return nil, fmt.Errorf("CreateExpense: %w", &APIError{Status: http.StatusOK, Body: string(resp.Errors)})
	}
	if len(resp.Expenses) == 0 {
		return nil, fmt.Errorf("CreateExpense: empty response")
	}

	created := resp.Expenses[0]
	log := logger.FromContext(ctx)
	log.Info().
		Int64("expense_id", created.ID).
		Int64("group_id", exp.GroupID).
		Str("cost", created.Cost).
		Msg("Created shared expense")
	return &created, nil
}

// CreateSharedExpense implements the wizard.SharingGateway interface.
func (c *Client) CreateSharedExpense(ctx context.Context, exp domain.SharedExpense) (int64, error) {
	created, err := c.CreateExpense(ctx, exp)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func expenseForm(exp domain.SharedExpense) url.Values {
	cost := exp.Amount.StringFixed(2)
	form := url.Values{}
	form.Set("cost", cost)
	form.Set("description", exp.Memo)
	form.Set("currency_code", exp.Currency)
	form.Set("group_id", strconv.FormatInt(exp.GroupID, 10))
	if exp.CategoryID != 0 {
		form.Set("category_id", strconv.FormatInt(exp.CategoryID, 10))
	}
	if !exp.Date.IsZero() {
		form.Set("date", exp.Date.In(time.UTC).Format(time.RFC3339))
	}

	shares := []struct {
		id         int64
		paid, owed string
	}{
		{exp.PayerID, cost, "0.00"},
		{exp.PayeeID, "0.00", cost},
	}
	for i, s := range shares {
		prefix := fmt.Sprintf("users__%d__", i)
		form.Set(prefix+"user_id", strconv.FormatInt(s.id, 10))
		form.Set(prefix+"paid_share", s.paid)
		form.Set(prefix+"owed_share", s.owed)
	}
	return form
}

// hasErrors reports whether an "errors" member carries anything. Splitwise
// sends an empty object or array on success.
func hasErrors(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "{}", "[]":
		return false
	}
	return true
}

// SortedNames renders users as "Full Name (id)", sorted.
func SortedNames(users []User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, fmt.Sprintf("%s (%d)", u.FullName(), u.ID))
	}
	sort.Strings(names)
	return names
}

// Ensure Client implements wizard.SharingGateway interface.
var _ wizard.SharingGateway = (*Client)(nil)
