// Package token implements the compact action-encoding protocol carried
// in callback payloads. A token is "verb:id" or "verb:id:param"; the
// platform caps the payload at 64 bytes, which bounds how much state a
// button press can carry.
package token

import (
	"fmt"
	"strings"
)

// MaxLen is the platform's callback payload limit in bytes.
const MaxLen = 64

type Verb string

const (
	VerbDone       Verb = "done"  // mark entry done
	VerbRecat      Verb = "recat" // archive + recreate under a new category
	VerbSnoozePick Verb = "snzp"  // offer snooze durations
	VerbSnooze     Verb = "snz"   // apply snooze, param = days
	VerbEditPick   Verb = "edtp"  // offer status options
	VerbEditStatus Verb = "est"   // apply status, param = status name
)

var verbs = map[Verb]struct{}{
	VerbDone:       {},
	VerbRecat:      {},
	VerbSnoozePick: {},
	VerbSnooze:     {},
	VerbEditPick:   {},
	VerbEditStatus: {},
}

// Token is a decoded callback action.
type Token struct {
	Verb  Verb
	ID    string
	Param string
}

// Encode builds the wire form of a token. Params may not contain the
// delimiter: decoding splits into at most three parts and would silently
// truncate anything after a second colon in the param.
func Encode(verb Verb, id, param string) (string, error) {
	if _, ok := verbs[verb]; !ok {
		return "", fmt.Errorf("unknown verb %q", verb)
	}
	if id == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("invalid entry id %q", id)
	}
	if strings.Contains(param, ":") {
		return "", fmt.Errorf("param %q contains delimiter", param)
	}
	s := string(verb) + ":" + id
	if param != "" {
		s += ":" + param
	}
	if len(s) > MaxLen {
		return "", fmt.Errorf("token %q exceeds %d bytes", s, MaxLen)
	}
	return s, nil
}

// Decode parses a wire token. It splits on ':' into at most three
// parts, so a param never gets re-split.
func Decode(s string) (Token, error) {
	if len(s) > MaxLen {
		return Token{}, fmt.Errorf("token exceeds %d bytes", MaxLen)
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Token{}, fmt.Errorf("malformed token %q", s)
	}
	verb := Verb(parts[0])
	if _, ok := verbs[verb]; !ok {
		return Token{}, fmt.Errorf("unknown verb %q", parts[0])
	}
	t := Token{Verb: verb, ID: parts[1]}
	if len(parts) == 3 {
		t.Param = parts[2]
	}
	return t, nil
}
