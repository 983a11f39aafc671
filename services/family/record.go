package family

import (
	"strings"

	"formfiller-backend/lib/textutil"
)

// Status tracks a record through the batch pipeline.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in-progress"
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
	StatusSkipped     Status = "skipped"
	StatusNeedsManual Status = "needs-manual"
)

type Person struct {
	Name       string `json:"name"`
	BirthDate  string `json:"birth_date"`
	Workplace  string `json:"workplace"`
	Employment string `json:"employment"`
}

type Child struct {
	Name         string `json:"name"`
	BirthDate    string `json:"birth_date"`
	School       string `json:"school"`
	HomeSchooled bool   `json:"home_schooled"`
}

type Housing struct {
	Rooms     int    `json:"rooms"`
	Area      string `json:"area"`
	Amenities string `json:"amenities"`
	Ownership string `json:"ownership"`
}

// Alarm describes the home fire-alarm device (ADPI) sub-record.
type Alarm struct {
	Installed   bool   `json:"installed"`
	InstallDate string `json:"install_date"`
	CheckDate   string `json:"check_date"`
}

// Record is the flat family unit exchanged between the registries, the
// working JSON set and the transcription pipeline. All dates are
// free-text strings normalized to DD.MM.YYYY by Clean.
type Record struct {
	Mother   Person            `json:"mother"`
	Father   Person            `json:"father"`
	Children []Child           `json:"children"`
	Income   map[string]string `json:"income"`
	Housing  Housing           `json:"housing"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Alarm    Alarm             `json:"alarm"`
	Status   Status            `json:"status"`
}

// PrimaryName is the name the record is searched and archived under:
// the mother's, falling back to the father's.
func (r *Record) PrimaryName() string {
	if strings.TrimSpace(r.Mother.Name) != "" {
		return strings.TrimSpace(r.Mother.Name)
	}
	return strings.TrimSpace(r.Father.Name)
}

// Key is the normalized identity used to match records against
// registries and the completed archive.
func (r *Record) Key() string {
	return textutil.NormalizeName(r.PrimaryName())
}

func (r *Record) HasParentName() bool {
	return strings.TrimSpace(r.Mother.Name) != "" ||
		strings.TrimSpace(r.Father.Name) != ""
}

// SingleParent reports whether exactly one parent is present.
func (r *Record) SingleParent() bool {
	mother := strings.TrimSpace(r.Mother.Name) != ""
	father := strings.TrimSpace(r.Father.Name) != ""
	return mother != father
}
