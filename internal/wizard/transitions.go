package wizard

import (
	"context"
	"errors"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/domain"
)

// transitionTable lists, per step, the event kinds the step accepts.
// Anything missing from the table is ignored.
func (m *Machine) transitionTable() map[Step]map[EventKind]handler {
	return map[Step]map[EventKind]handler{
		StepReviewMenu: {
			EventClick: m.onReviewClick,
		},
		StepAwaitingDate: {
			EventClick: m.onDateClick,
		},
		StepAwaitingOutflow: {
			EventText:  m.onAmountText,
			EventClick: m.onTextFieldClick,
		},
		StepAwaitingInflow: {
			EventText:  m.onAmountText,
			EventClick: m.onTextFieldClick,
		},
		StepAwaitingMemo: {
			EventText:  m.onMemoText,
			EventClick: m.onTextFieldClick,
		},
		StepAwaitingCategoryGroup: {
			EventClick: m.onGroupClick,
		},
		StepAwaitingCategory: {
			EventClick: m.onCategoryClick,
		},
		StepAwaitingAccount: {
			EventClick: m.onAccountClick,
		},
		StepQuickReview: {
			EventClick: m.onQuickReviewClick,
		},
		StepAwaitingSharedCategory: {
			EventClick: m.onSharedCategoryClick,
		},
		StepAwaitingSharedSubcategory: {
			EventClick: m.onSharedSubcategoryClick,
		},
	}
}

func (m *Machine) onReviewClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionField:
		return m.editField(ctx, s, ev.Action.Field)
	case ActionDone:
		return m.commit(ctx, s)
	}
	return errStale
}

func (m *Machine) editField(ctx context.Context, s *Session, f Field) error {
	switch f {
	case FieldDate:
		month := s.Draft.Date
		if month.IsZero() {
			month = m.today()
		}
		s.CalendarMonth = firstOfMonth(month)
	case FieldAccount:
		s.AccountPage = m.cfg.Catalogs.Accounts.PageOf(s.Draft.Account, m.render.pageSize())
	case FieldCategory:
		s.CategoryGroup = ""
	}
	s.Step = f.step()
	return m.show(ctx, s)
}

func (m *Machine) backToReview(ctx context.Context, s *Session) error {
	s.Step = StepReviewMenu
	return m.show(ctx, s)
}

func (m *Machine) onTextFieldClick(ctx context.Context, s *Session, ev Event) error {
	if ev.Action.Kind == ActionBack {
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onAmountText(ctx context.Context, s *Session, ev Event) error {
	amount, err := domain.ParseAmount(ev.Text)
	if errors.Is(err, domain.ErrNegativeAmount) {
		return inputError("Please enter a positive number")
	}
	if err != nil {
		return inputError("Please enter a number")
	}

	if s.Step == StepAwaitingInflow {
		err = s.Draft.SetInflow(amount)
	} else {
		err = s.Draft.SetOutflow(amount)
	}
	if err != nil {
		return inputError("Please enter a positive number")
	}
	return m.backToReview(ctx, s)
}

func (m *Machine) onMemoText(ctx context.Context, s *Session, ev Event) error {
	s.Draft.Memo = strings.TrimSpace(ev.Text)
	return m.backToReview(ctx, s)
}

func (m *Machine) onDateClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionCalendarDay:
		if !ev.Action.Date.IsValid() {
			return errStale
		}
		s.Draft.Date = ev.Action.Date
		return m.backToReview(ctx, s)
	case ActionCalendarMonth:
		s.CalendarMonth = firstOfMonth(ev.Action.Date)
		return m.show(ctx, s)
	case ActionBack:
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onGroupClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionGroup:
		g, ok := m.cfg.Catalogs.Categories.GroupAt(ev.Action.Index)
		if !ok {
			return errStale
		}
		s.CategoryGroup = g.Name
		s.Step = StepAwaitingCategory
		return m.show(ctx, s)
	case ActionBack:
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onCategoryClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionCategory:
		g, _ := m.cfg.Catalogs.Categories.Group(s.CategoryGroup)
		category, ok := g.CategoryAt(ev.Action.Index)
		if !ok {
			return errStale
		}
		s.Draft.Category = category
		return m.backToReview(ctx, s)
	case ActionGroups:
		s.Step = StepAwaitingCategoryGroup
		return m.show(ctx, s)
	case ActionBack:
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onAccountClick(ctx context.Context, s *Session, ev Event) error {
	accounts := m.cfg.Catalogs.Accounts
	switch ev.Action.Kind {
	case ActionAccount:
		account, ok := accounts.At(ev.Action.Index)
		if !ok {
			return errStale
		}
		s.Draft.Account = account
		return m.backToReview(ctx, s)
	case ActionAccountPage:
		if ev.Action.Page >= accounts.Pages(m.render.pageSize()) {
			return errStale
		}
		s.AccountPage = ev.Action.Page
		return m.show(ctx, s)
	case ActionBack:
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onQuickReviewClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionQuickSave:
		return m.commit(ctx, s)
	case ActionEdit:
		return m.backToReview(ctx, s)
	}
	return errStale
}

func (m *Machine) onSharedCategoryClick(ctx context.Context, s *Session, ev Event) error {
	if ev.Action.Kind != ActionSharedCategory {
		return errStale
	}
	cat, ok := m.cfg.Catalogs.Shared.At(ev.Action.Index)
	if !ok {
		return errStale
	}
	s.SharedCategory = cat.Name
	s.Step = StepAwaitingSharedSubcategory
	return m.show(ctx, s)
}

func (m *Machine) onSharedSubcategoryClick(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action.Kind {
	case ActionSharedSubcategory:
		cat, _ := m.cfg.Catalogs.Shared.Find(s.SharedCategory)
		sub, ok := cat.SubAt(ev.Action.Index)
		if !ok {
			return errStale
		}
		return m.commitShared(ctx, s, sub.ID, sub.Name)
	case ActionSharedBack:
		s.Step = StepAwaitingSharedCategory
		return m.show(ctx, s)
	}
	return errStale
}
