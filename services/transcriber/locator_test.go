package transcriber

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const formTableHTML = `<html><body>
<table id="info">
	<tr><td>ФИО</td><td><input/></td></tr>
	<tr><td>Дата рождения</td><td><input/></td></tr>
	<tr><td>Номер телефона</td><td><input/></td></tr>
	<tr><td>Категория</td><td><input/></td></tr>
	<tr><td>Адрес проживания</td><td><input/></td></tr>
	<tr><td>Дата установки АДПИ</td><td><input/></td></tr>
	<tr><td>Дата последней проверки</td><td><input/></td></tr>
	<tr><td>Жилищные условия</td><td><input/></td></tr>
	<tr><td>Условия проживания</td><td><input/></td></tr>
</table>
</body></html>`

func TestScanFieldRows(t *testing.T) {
	rows, err := scanFieldRows(formTableHTML, "#info")
	require.NoError(t, err)

	require.Equal(t, "2", rows[FieldPhone])
	require.Equal(t, "3", rows[FieldCategory])
	require.Equal(t, "4", rows[FieldAddress])
	require.Equal(t, "5", rows[FieldAlarmInstallDate])
	require.Equal(t, "6", rows[FieldAlarmCheckDate])
	require.Equal(t, "7", rows[FieldHousingConditions])
	require.Equal(t, "8", rows[FieldLivingConditions])
}

func TestScanFieldRowsTracksShiftedLayout(t *testing.T) {
	// an extra header row above the table pushes everything down: the
	// label scan must report the shifted positions
	shifted := `<table id="info">
		<tr><th>Дополнительные сведения</th></tr>
		<tr><td>ФИО</td><td><input/></td></tr>
		<tr><td>Номер телефона</td><td><input/></td></tr>
		<tr><td>Адрес</td><td><input/></td></tr>
	</table>`

	rows, err := scanFieldRows(shifted, "#info")
	require.NoError(t, err)
	require.Equal(t, "2", rows[FieldPhone])
	require.Equal(t, "3", rows[FieldAddress])
}

func TestResolveFieldsStaticFallback(t *testing.T) {
	ctx := context.Background()

	// no recognizable labels at all: everything comes from the static
	// layout of the active form variant
	fields := ResolveFields(ctx, "<table id='info'><tr><td>x</td></tr></table>", "#info", true)
	require.Equal(t, "2", fields[FieldPhone])
	require.Equal(t, "5", fields[FieldAlarmInstallDate])
	require.Equal(t, "7", fields[FieldHousingConditions])

	fields = ResolveFields(ctx, "<table id='info'><tr><td>x</td></tr></table>", "#info", false)
	require.Equal(t, "5", fields[FieldHousingConditions])
	require.Equal(t, "6", fields[FieldLivingConditions])
	require.NotContains(t, fields, FieldAlarmInstallDate)
}

func TestResolveFieldsPrefersScanOverStatic(t *testing.T) {
	// only the phone row carries a label; it resolves dynamically
	// while the rest degrade to the static map
	html := `<table id="info">
		<tr><td>шапка</td></tr>
		<tr><td>шапка</td></tr>
		<tr><td>шапка</td></tr>
		<tr><td>Телефон</td><td><input/></td></tr>
	</table>`

	fields := ResolveFields(context.Background(), html, "#info", false)
	require.Equal(t, "3", fields[FieldPhone])
	require.Equal(t, "3", fields[FieldCategory])
}
