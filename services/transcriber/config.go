package transcriber

import "time"

// Config describes the one target application this tool drives. Every
// selector mirrors the target's ASP.NET control naming (ctl00_cph_...)
// and breaks if the target markup changes; the dynamic field locator
// is the only defense against that.
type Config struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`

	Login  LoginConfig  `json:"login"`
	Search SearchConfig `json:"search"`
	Form   FormConfig   `json:"form"`

	// PriorityPhrases are the address substrings used to rank search
	// result cards, most specific first: the exact regional-district
	// phrase, the district name, the city name. These encode one
	// municipality's naming conventions and are deployment-specific,
	// hence configuration rather than code.
	PriorityPhrases []string `json:"priority_phrases"`
}

type LoginConfig struct {
	Path        string `json:"path"`
	UsernameSel string `json:"username_sel"`
	PasswordSel string `json:"password_sel"`
	SubmitSel   string `json:"submit_sel"`
	// ReadySel appears only on the post-login page.
	ReadySel string `json:"ready_sel"`
}

type SearchConfig struct {
	Path      string `json:"path"`
	InputSel  string `json:"input_sel"`
	SubmitSel string `json:"submit_sel"`
	// CardSel matches one result card; name, address and the
	// detail-view link are found inside each card.
	CardSel        string `json:"card_sel"`
	CardNameSel    string `json:"card_name_sel"`
	CardAddressSel string `json:"card_address_sel"`
	CardLinkSel    string `json:"card_link_sel"`
	// TimeoutSecs bounds the wait for result cards. Defaults to 10.
	TimeoutSecs int `json:"timeout_secs"`
}

func (c SearchConfig) timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

type FormConfig struct {
	// Affordances clicked in order to reach the additional-information
	// form: tab, then edit, then add-record.
	TabSel       string `json:"tab_sel"`
	EditSel      string `json:"edit_sel"`
	AddRecordSel string `json:"add_record_sel"`
	SaveSel      string `json:"save_sel"`

	// TableSel matches the labeled-field table whose row order shifts
	// depending on the alarm-device sub-fields.
	TableSel string `json:"table_sel"`
	// RowControlPattern turns a row index into the input control's
	// CSS selector, e.g. "#ctl00_cph_info_f%s_tb".
	RowControlPattern string `json:"row_control_pattern"`

	CommentSel string `json:"comment_sel"`
	// CheckboxSels is the fixed set ticked for every record;
	// AlarmCheckboxSels are the two extra ones ticked when the
	// fire-alarm device is marked present.
	CheckboxSels      []string `json:"checkbox_sels"`
	AlarmCheckboxSels []string `json:"alarm_checkbox_sels"`

	// Values written into the category field depending on family
	// shape. The legacy form expects its own wording, so these are
	// configured, not derived.
	CategorySingleParent string `json:"category_single_parent"`
	CategoryTwoParent    string `json:"category_two_parent"`

	// PostbackTimeoutSecs bounds the save postback and the return to
	// the search page. Defaults to 30.
	PostbackTimeoutSecs int `json:"postback_timeout_secs"`
}

func (c FormConfig) postbackTimeout() time.Duration {
	if c.PostbackTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PostbackTimeoutSecs) * time.Second
}
