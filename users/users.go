package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleCode is the user classification code carried in the userSeCd claim
type RoleCode string

const (
	RoleManager   RoleCode = "MG" // Manages projects and users
	RoleTester    RoleCode = "QA" // Reports and verifies defects
	RoleDeveloper RoleCode = "DV" // Fixes defects assigned to them
)

func (r RoleCode) Valid() bool {
	switch r {
	case RoleManager, RoleTester, RoleDeveloper:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"userId"`               // Login identifier
	Name         string    `json:"userName,omitempty"`   // Display name
	Email        string    `json:"email,omitempty"`      // Contact address
	PasswordHash string    `json:"-"`                    // Hashed password - never serialize
	RoleCode     RoleCode  `json:"userSeCd"`             // Classification code
	Authorities  []string  `json:"authorities"`          // Extra authority tags beyond the role code
	DateJoined   time.Time `json:"dateJoined,omitempty"` // When the user registered
	LastLogin    time.Time `json:"lastLogin,omitempty"`  // Last successful sign-in
	Blocked      bool      `json:"blocked,omitempty"`    // Blocked users cannot sign in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword reports whether password matches the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// HeldAuthorities returns the role code followed by the explicit authorities, without duplicates
func (u *User) HeldAuthorities() []string {
	return MergeAuthorities(u.RoleCode, u.Authorities)
}

// MergeAuthorities combines a role code with an authority list, dropping blanks and duplicates
func MergeAuthorities(role RoleCode, authorities []string) []string {
	held := make([]string, 0, len(authorities)+1)
	seen := make(map[string]struct{}, len(authorities)+1)
	add := func(a string) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		held = append(held, a)
	}

	add(string(role))
	for _, a := range authorities {
		add(a)
	}
	return held
}
