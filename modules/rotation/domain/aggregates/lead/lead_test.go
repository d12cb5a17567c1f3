package lead

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
)

func validDraft() Draft {
	return Draft{
		AccountID:     " ACC-1 ",
		UnitCount:     1200,
		PropertyTypes: []string{"HOA", "hoa", " condo "},
		Year:          2025,
		Month:         3,
		Day:           14,
		URL:           "https://crm.example.com/acc-1",
	}
}

func TestDraft_Ok(t *testing.T) {
	d := validDraft()
	errs, ok := d.Ok()
	require.True(t, ok, errs)
	require.Equal(t, "ACC-1", d.AccountID)
	require.Equal(t, []string{"condo", "hoa"}, d.PropertyTypes)
}

func TestDraft_OkRejectsBadInput(t *testing.T) {
	d := validDraft()
	d.AccountID = ""
	d.Month = 13
	d.URL = "not a url"
	errs, ok := d.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "AccountID")
	require.Contains(t, errs, "Month")
	require.Contains(t, errs, "URL")
}

func TestDraft_OkRejectsDayOutsidePeriod(t *testing.T) {
	d := validDraft()
	d.Month = 2
	d.Day = 30
	errs, ok := d.Ok()
	require.False(t, ok)
	require.Contains(t, errs, "Day")
}

func TestDraft_ToLead(t *testing.T) {
	d := validDraft()
	_, ok := d.Ok()
	require.True(t, ok)

	repID := uuid.New()
	l := d.ToLead(repID)
	require.Equal(t, repID, l.RepID())
	require.Equal(t, lane.Over1k, l.Lane())
	require.Equal(t, 1, l.Weight())
	_, isReplacement := l.ReplacementOf()
	require.False(t, isReplacement)

	absorbed := d.ToLead(repID, WithCushionAbsorbed(true))
	require.Equal(t, 0, absorbed.Weight())
}
