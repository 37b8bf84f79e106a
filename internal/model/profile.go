// Package model defines domain entities for the application.
package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxEmailLength is the maximum length of an address (RFC 5321 path limit).
	MaxEmailLength = 254

	// MaxSkillLength is the maximum number of characters in a skill label.
	MaxSkillLength = 100
)

// Validation errors.
var (
	ErrEmailRequired   = errors.New("email is required")
	ErrEmailInvalid    = errors.New("email is not a valid address")
	ErrEmailTooLong    = errors.New("email exceeds maximum length")
	ErrSkillRequired   = errors.New("skill is required")
	ErrSkillTooLong    = errors.New("skill exceeds maximum length")
	ErrSkillControlChr = errors.New("skill contains control characters")
)

// Profile is a registered user: one skill offered, one skill wanted.
// Profiles are immutable once stored and several may share an email.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	TeachSkill string    `json:"teach_skill"`
	LearnSkill string    `json:"learn_skill"`
	CreatedAt  time.Time `json:"created_at"`
}

// Normalize trims surrounding whitespace from all user-supplied fields.
func (p *Profile) Normalize() {
	p.Email = strings.TrimSpace(p.Email)
	p.TeachSkill = strings.TrimSpace(p.TeachSkill)
	p.LearnSkill = strings.TrimSpace(p.LearnSkill)
}

// Validate checks the email and both skill labels.
func (p *Profile) Validate() error {
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}
	if err := ValidateSkill(p.TeachSkill); err != nil {
		return err
	}
	return ValidateSkill(p.LearnSkill)
}

// ValidateEmail accepts a single bare address such as "ana@example.com".
// Display names ("Ana <ana@example.com>") are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return ErrEmailInvalid
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return ErrEmailInvalid
	}

	return nil
}

// ValidateSkill checks a free-text skill label.
func ValidateSkill(skill string) error {
	if strings.TrimSpace(skill) == "" {
		return ErrSkillRequired
	}
	if utf8.RuneCountInString(skill) > MaxSkillLength {
		return ErrSkillTooLong
	}
	for _, r := range skill {
		if unicode.IsControl(r) {
			return ErrSkillControlChr
		}
	}
	return nil
}

// SameEmail reports whether two addresses refer to the same mailbox,
// ignoring case and surrounding whitespace.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
