package models

// SurveyState is the current step of a guided intake survey. The states
// are strictly sequential; transitions are driven one step at a time by
// the survey flow, with no skipping.
type SurveyState string

const (
	// SurveyStateNone means no survey is active for the user.
	SurveyStateNone SurveyState = ""
	// SurveyStateLevel asks kindergarten vs school.
	SurveyStateLevel SurveyState = "level"
	// SurveyStateOrgNumber asks the school/kindergarten number.
	SurveyStateOrgNumber SurveyState = "org_number"
	// SurveyStateAlbumType asks common vs individual album.
	SurveyStateAlbumType SurveyState = "album_type"
	// SurveyStateCountChildren asks how many children take albums.
	SurveyStateCountChildren SurveyState = "count_children"
	// SurveyStateContactMethod asks VK vs WhatsApp.
	SurveyStateContactMethod SurveyState = "contact_method"
	// SurveyStateContactValue asks for the link or phone number.
	SurveyStateContactValue SurveyState = "contact_value"
	// SurveyStateConfirm shows the summary and asks to submit or cancel.
	SurveyStateConfirm SurveyState = "confirm"
)

// LeadDraft is the accumulating partial lead of an in-progress survey.
// Zero values mean "not collected yet".
type LeadDraft struct {
	Level         Level
	OrgNumber     string
	AlbumType     AlbumType
	CountChildren int
	ContactMethod ContactMethod
	Contact       string
}
