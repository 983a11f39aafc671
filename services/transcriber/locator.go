package transcriber

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"formfiller-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// Field names a semantic control on the additional-information form.
type Field string

const (
	FieldPhone             Field = "phone"
	FieldCategory          Field = "category"
	FieldAddress           Field = "address"
	FieldHousingConditions Field = "housing-conditions"
	FieldLivingConditions  Field = "living-conditions"
	FieldAlarmInstallDate  Field = "alarm-install-date"
	FieldAlarmCheckDate    Field = "alarm-check-date"
)

// fieldKeywords maps each field to the label fragments that identify
// its table row on the target page.
var fieldKeywords = map[Field][]string{
	FieldPhone:             {"номер телефона", "телефон"},
	FieldCategory:          {"категория"},
	FieldAddress:           {"адрес"},
	FieldHousingConditions: {"жилищные условия"},
	FieldLivingConditions:  {"условия проживания"},
	FieldAlarmInstallDate:  {"дата установки"},
	FieldAlarmCheckDate:    {"дата последней проверки", "дата проверки"},
}

// The row order of the form table shifts by two when the fire-alarm
// sub-fields are rendered. These static maps are the last-resort
// fallback when the label scan cannot find a required field, keeping
// the system best-effort instead of failing outright.
var staticIndexWithAlarm = map[Field]string{
	FieldPhone:             "2",
	FieldCategory:          "3",
	FieldAddress:           "4",
	FieldAlarmInstallDate:  "5",
	FieldAlarmCheckDate:    "6",
	FieldHousingConditions: "7",
	FieldLivingConditions:  "8",
}

var staticIndexWithoutAlarm = map[Field]string{
	FieldPhone:             "2",
	FieldCategory:          "3",
	FieldAddress:           "4",
	FieldHousingConditions: "5",
	FieldLivingConditions:  "6",
}

// requiredFields lists what must resolve for a given form variant.
func requiredFields(withAlarm bool) []Field {
	fields := []Field{
		FieldPhone, FieldCategory, FieldAddress,
		FieldHousingConditions, FieldLivingConditions,
	}
	if withAlarm {
		fields = append(fields, FieldAlarmInstallDate, FieldAlarmCheckDate)
	}
	return fields
}

// scanFieldRows walks the form table's rows and matches each row's
// label text against the keyword table, producing field → row-index.
func scanFieldRows(html string, tableSel string) (map[Field]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	out := map[Field]string{}
	doc.Find(tableSel).First().Find("tr").Each(func(row int, tr *goquery.Selection) {
		label := textutil.NormalizeName(tr.Find("td, th").First().Text())
		if label == "" {
			return
		}
		for field, keywords := range fieldKeywords {
			if _, taken := out[field]; taken {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(label, kw) {
					out[field] = strconv.Itoa(row)
					return
				}
			}
		}
	})
	return out, nil
}

// ResolveFields translates semantic field names into row indexes,
// preferring the live label scan and degrading to the static maps for
// anything the scan missed.
func ResolveFields(ctx context.Context, html, tableSel string, withAlarm bool) map[Field]string {
	resolved, err := scanFieldRows(html, tableSel)
	if err != nil {
		slog.WarnContext(ctx, "form table scan failed, using static field indexes", "err", err)
		resolved = map[Field]string{}
	}

	static := staticIndexWithoutAlarm
	if withAlarm {
		static = staticIndexWithAlarm
	}
	for _, field := range requiredFields(withAlarm) {
		if _, ok := resolved[field]; ok {
			continue
		}
		slog.WarnContext(ctx, "field label not found, falling back to static index",
			"field", string(field), "index", static[field])
		resolved[field] = static[field]
	}
	return resolved
}
