// Package model defines the core chain data types.
package model

// ID is the stable identity of a (role, text) pair in the lexicon.
type ID int64

// Reserved identities. The end sentinel is inserted first, then the start
// sentinel, so a fresh lexicon always assigns them 1 and 2.
const (
	EndID   ID = 1
	StartID ID = 2
)

// Role tags where in an utterance a token occurred.
type Role string

const (
	RoleStart  Role = "start"
	RoleFirst  Role = "first"
	RoleMiddle Role = "middle"
	RoleLast   Role = "last"
	RoleEnd    Role = "end"
)

// ValidRoles are the allowed role tags.
var ValidRoles = map[Role]bool{
	RoleStart:  true,
	RoleFirst:  true,
	RoleMiddle: true,
	RoleLast:   true,
	RoleEnd:    true,
}

// IsSentinel reports whether r marks a chain boundary.
func (r Role) IsSentinel() bool {
	return r == RoleStart || r == RoleEnd
}

// Token is a lexicon entry.
type Token struct {
	ID   ID     `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Candidate is one weighted choice of a sampling step.
type Candidate struct {
	ID     ID    `json:"id"`
	Weight int64 `json:"weight"`
}

// Transition is a weighted edge over three consecutive identities.
type Transition struct {
	Prev        ID    `json:"prev"`
	Curr        ID    `json:"curr"`
	Next        ID    `json:"next"`
	Occurrences int64 `json:"occurrences"`
}

// RoleAt returns the positional role of the token at index i (0-based) of an
// utterance of length n. The last position wins, so a one-token utterance is
// tagged last.
func RoleAt(i, n int) Role {
	switch {
	case i == n-1:
		return RoleLast
	case i == 0:
		return RoleFirst
	default:
		return RoleMiddle
	}
}
