package transcriber

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"formfiller-backend/services/family"
)

// openForm clicks through the tab → edit → add-record affordances of
// the detail page. Each step waits for the next affordance so the
// ASP.NET postbacks have settled before the next click.
func (s *Service) openForm(ctx context.Context) error {
	err := s.session.Click(ctx, s.cfg.Form.TabSel)
	if err != nil {
		return fmt.Errorf("tab: %w", err)
	}
	err = s.session.WaitVisible(ctx, s.cfg.Form.EditSel, s.cfg.Form.postbackTimeout())
	if err != nil {
		return fmt.Errorf("edit affordance never appeared: %w", err)
	}

	err = s.session.Click(ctx, s.cfg.Form.EditSel)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	err = s.session.WaitVisible(ctx, s.cfg.Form.AddRecordSel, s.cfg.Form.postbackTimeout())
	if err != nil {
		return fmt.Errorf("add-record affordance never appeared: %w", err)
	}

	err = s.session.Click(ctx, s.cfg.Form.AddRecordSel)
	if err != nil {
		return fmt.Errorf("add-record: %w", err)
	}
	return s.session.WaitVisible(ctx, s.cfg.Form.TableSel, s.cfg.Form.postbackTimeout())
}

// fillForm writes the whole record into the additional-information
// form: checkboxes first, then the free-text area, then the labeled
// fields at their dynamically resolved positions, then the date
// pickers when the alarm device is present.
func (s *Service) fillForm(ctx context.Context, rec *family.Record) error {
	for _, sel := range s.cfg.Form.CheckboxSels {
		err := s.session.SetCheckbox(ctx, sel)
		if err != nil {
			return err
		}
	}
	asserted := append([]string{}, s.cfg.Form.CheckboxSels...)
	if rec.Alarm.Installed {
		for _, sel := range s.cfg.Form.AlarmCheckboxSels {
			err := s.session.SetCheckbox(ctx, sel)
			if err != nil {
				return err
			}
		}
		asserted = append(asserted, s.cfg.Form.AlarmCheckboxSels...)
	}
	// final sweep, the page sometimes reverts checkboxes on postback
	err := s.session.AssertCheckboxes(ctx, asserted)
	if err != nil {
		return err
	}

	if s.cfg.Form.CommentSel != "" {
		err = s.session.FillText(ctx, s.cfg.Form.CommentSel, recordSummary(rec))
		if err != nil {
			return err
		}
	}

	html, err := s.session.PageHTML(ctx)
	if err != nil {
		return err
	}
	fields := ResolveFields(ctx, html, s.cfg.Form.TableSel, rec.Alarm.Installed)

	values := map[Field]string{
		FieldPhone:             rec.Phone,
		FieldCategory:          s.category(rec),
		FieldAddress:           rec.Address,
		FieldHousingConditions: housingText(rec.Housing),
		FieldLivingConditions:  rec.Housing.Amenities,
	}
	for _, field := range []Field{
		FieldPhone, FieldCategory, FieldAddress,
		FieldHousingConditions, FieldLivingConditions,
	} {
		value := values[field]
		if value == "" {
			continue
		}
		sel := fmt.Sprintf(s.cfg.Form.RowControlPattern, fields[field])
		err = s.session.FillText(ctx, sel, value)
		if err != nil {
			return err
		}
	}

	if rec.Alarm.Installed {
		for field, value := range map[Field]string{
			FieldAlarmInstallDate: rec.Alarm.InstallDate,
			FieldAlarmCheckDate:   rec.Alarm.CheckDate,
		} {
			if value == "" {
				continue
			}
			sel := fmt.Sprintf(s.cfg.Form.RowControlPattern, fields[field])
			err = s.session.FillDate(ctx, sel, value)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// saveAndReturn clicks save, waits for the navigation back to the
// search page and leaves the session ready for the next record.
func (s *Service) saveAndReturn(ctx context.Context) error {
	err := s.session.Click(ctx, s.cfg.Form.SaveSel)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	err = s.session.WaitVisible(ctx, s.cfg.Search.InputSel, s.cfg.Form.postbackTimeout())
	if err != nil {
		return fmt.Errorf("search page never came back after save: %w", err)
	}
	return nil
}

func (s *Service) category(rec *family.Record) string {
	if rec.SingleParent() {
		return s.cfg.Form.CategorySingleParent
	}
	return s.cfg.Form.CategoryTwoParent
}

func housingText(h family.Housing) string {
	var parts []string
	if h.Rooms > 0 {
		parts = append(parts, fmt.Sprintf("%d комн.", h.Rooms))
	}
	if h.Area != "" {
		parts = append(parts, h.Area+" кв.м")
	}
	if h.Ownership != "" {
		parts = append(parts, h.Ownership)
	}
	return strings.Join(parts, ", ")
}

// recordSummary builds the free-text area content and the final
// review shown to the operator.
func recordSummary(rec *family.Record) string {
	var sb strings.Builder

	if rec.Mother.Name != "" {
		fmt.Fprintf(&sb, "Мать: %s", rec.Mother.Name)
		if rec.Mother.Workplace != "" {
			fmt.Fprintf(&sb, ", %s", rec.Mother.Workplace)
		}
		sb.WriteString(". ")
	}
	if rec.Father.Name != "" {
		fmt.Fprintf(&sb, "Отец: %s", rec.Father.Name)
		if rec.Father.Workplace != "" {
			fmt.Fprintf(&sb, ", %s", rec.Father.Workplace)
		}
		sb.WriteString(". ")
	}

	if len(rec.Children) > 0 {
		fmt.Fprintf(&sb, "Детей: %d (", len(rec.Children))
		for i, c := range rec.Children {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(c.Name)
			if c.BirthDate != "" {
				fmt.Fprintf(&sb, " %s", c.BirthDate)
			}
			if c.HomeSchooled {
				sb.WriteString(", домашнее обучение")
			}
		}
		sb.WriteString("). ")
	}

	if len(rec.Income) > 0 {
		keys := make([]string, 0, len(rec.Income))
		for k := range rec.Income {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Доход: ")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s %s", k, rec.Income[k])
		}
		sb.WriteString(". ")
	}

	if rec.Alarm.Installed {
		sb.WriteString("АДПИ установлен")
		if rec.Alarm.InstallDate != "" {
			fmt.Fprintf(&sb, " %s", rec.Alarm.InstallDate)
		}
		sb.WriteString(".")
	}

	return strings.TrimSpace(sb.String())
}
