// Package models defines the core data structures for the concierge bot.
//
// It includes types for leads, user profiles, conversation history and
// inbound transport events, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Level identifies the institution kind a lead is for.
type Level string

const (
	// LevelKindergarten is a kindergarten photo shoot.
	LevelKindergarten Level = "детский сад"
	// LevelSchool is a school photo shoot.
	LevelSchool Level = "школа"
)

// AlbumType identifies the album layout kind.
type AlbumType string

const (
	// AlbumCommon is a shared layout, one design for the whole group.
	AlbumCommon AlbumType = "общий"
	// AlbumIndividual is a personal layout per child.
	AlbumIndividual AlbumType = "индивидуальный"
)

// ContactMethod identifies the channel the client prefers for follow-up.
type ContactMethod string

const (
	ContactVK       ContactMethod = "VK"
	ContactWhatsApp ContactMethod = "WhatsApp"
)

// Count limits for the children count survey step.
const (
	MinCountChildren = 1
	MaxCountChildren = 1000
)

// DefaultHistoryCap is the bounded length of the per-user chat transcript.
const DefaultHistoryCap = 50

// History message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Main menu button labels. The dispatcher routes on these exact strings.
const (
	MenuButtonSurvey = "📝 Пройти опрос"
	MenuButtonAsk    = "ℹ️ Задать вопрос"
)

// Error variables for lead validation.
var (
	ErrLeadMissingUser    = errors.New("lead user id is required")
	ErrLeadMissingLevel   = errors.New("lead level is required")
	ErrLeadMissingAlbum   = errors.New("lead album type is required")
	ErrLeadMissingContact = errors.New("lead contact is required")
	ErrLeadBadCount       = errors.New("lead children count out of range")
)

// Lead is one completed booking intake. Immutable once appended to the
// lead log; never updated or deleted.
type Lead struct {
	SubmittedAt   time.Time     `json:"submitted_at"`
	UserID        int64         `json:"user_id"`
	Level         Level         `json:"level"`
	OrgNumber     string        `json:"org_number"`
	AlbumType     AlbumType     `json:"album_type"`
	CountChildren int           `json:"count_children"`
	ContactMethod ContactMethod `json:"contact_method"`
	Contact       string        `json:"contact"`
	Username      string        `json:"username,omitempty"`
	FullName      string        `json:"full_name,omitempty"`
}

// Validate performs basic completeness checks on a Lead.
func (l *Lead) Validate() error {
	if l.UserID == 0 {
		return ErrLeadMissingUser
	}
	if l.Level == "" {
		return ErrLeadMissingLevel
	}
	if l.AlbumType == "" {
		return ErrLeadMissingAlbum
	}
	if l.CountChildren < MinCountChildren || l.CountChildren > MaxCountChildren {
		return ErrLeadBadCount
	}
	if l.Contact == "" {
		return ErrLeadMissingContact
	}
	return nil
}

// Profile is the durable per-user accumulated field mapping. Values are
// stored as strings; merge semantics are overwrite-on-non-empty.
type Profile map[string]string

// Merge overwrites fields of p with non-empty values from other.
func (p Profile) Merge(other Profile) {
	for k, v := range other {
		if v != "" {
			p[k] = v
		}
	}
}

// HistoryMessage is one entry of the durable conversation transcript.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is a quick-reply button: a visible label plus the opaque data
// the transport reports back when the button is pressed.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// FAQResult is the outcome of a knowledge base lookup. Answer is empty
// when only disambiguation suggestions (or nothing) matched.
type FAQResult struct {
	Answer      string   `json:"answer,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Update is one inbound transport event: either a text message (Text set)
// or a button press (Callback set), tagged with the user identity.
type Update struct {
	UserID    int64  `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Text      string `json:"text,omitempty"`
	Callback  string `json:"callback,omitempty"`
}

// FullName returns the display name of the sender, first plus last,
// with surrounding whitespace trimmed.
func (u Update) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
