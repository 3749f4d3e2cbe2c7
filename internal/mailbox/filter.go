package mailbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mail2pdf/internal/model"
)

// FlagDirective is the (flag, desired-state) pair applied to a message
// after it has been processed. It also determines the derived search
// filter: each run selects messages that have not yet reached the
// directive's target state.
type FlagDirective struct {
	Flag imap.Flag
	Set  bool
}

// ParseFlagDirective maps the configured flag name to a directive.
// Unrecognized names fall back to marking messages seen.
func ParseFlagDirective(name string) FlagDirective {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ANSWERED":
		return FlagDirective{Flag: imap.FlagAnswered, Set: true}
	case "FLAGGED":
		return FlagDirective{Flag: imap.FlagFlagged, Set: true}
	case "UNFLAGGED":
		return FlagDirective{Flag: imap.FlagFlagged, Set: false}
	case "DELETED":
		return FlagDirective{Flag: imap.FlagDeleted, Set: true}
	default:
		return FlagDirective{Flag: imap.FlagSeen, Set: true}
	}
}

// Recognized reports whether the directive's flag is one of the four
// kinds this tool knows how to apply.
func (d FlagDirective) Recognized() bool {
	switch d.Flag {
	case imap.FlagSeen, imap.FlagAnswered, imap.FlagFlagged, imap.FlagDeleted:
		return true
	}
	return false
}

// DeriveFilter computes the search criteria selecting messages that
// have not yet reached the directive's target state, so repeated runs
// only pick up unprocessed backlog. Deriving a filter for clearing
// \Deleted is invalid: "not deleted" is not a usable predicate here.
func DeriveFilter(d FlagDirective) (*imap.SearchCriteria, error) {
	switch d.Flag {
	case imap.FlagSeen, imap.FlagAnswered, imap.FlagFlagged:
		if d.Set {
			return &imap.SearchCriteria{NotFlag: []imap.Flag{d.Flag}}, nil
		}
		return &imap.SearchCriteria{Flag: []imap.Flag{d.Flag}}, nil
	case imap.FlagDeleted:
		if d.Set {
			// Marking deleted: every message qualifies.
			return &imap.SearchCriteria{}, nil
		}
		return nil, &model.ConfigError{
			Setting: "flag",
			Message: "cannot derive a search filter for clearing \\Deleted; set filter explicitly",
		}
	default:
		return nil, &model.ConfigError{
			Setting: "flag",
			Message: fmt.Sprintf("cannot derive a search filter for flag %q", d.Flag),
		}
	}
}

// searchDateLayout is the RFC 3501 date form used by SINCE and BEFORE.
const searchDateLayout = "02-Jan-2006"

// flagAtoms maps bare search atoms to the (flag, negated) pair they
// assert about candidate messages.
var flagAtoms = map[string]struct {
	flag    imap.Flag
	negated bool
}{
	"SEEN":       {imap.FlagSeen, false},
	"UNSEEN":     {imap.FlagSeen, true},
	"ANSWERED":   {imap.FlagAnswered, false},
	"UNANSWERED": {imap.FlagAnswered, true},
	"FLAGGED":    {imap.FlagFlagged, false},
	"UNFLAGGED":  {imap.FlagFlagged, true},
	"DELETED":    {imap.FlagDeleted, false},
	"UNDELETED":  {imap.FlagDeleted, true},
	"DRAFT":      {imap.FlagDraft, false},
	"UNDRAFT":    {imap.FlagDraft, true},
}

// headerAtoms maps argument-taking atoms to the header they match.
var headerAtoms = map[string]string{
	"FROM":    "From",
	"TO":      "To",
	"CC":      "Cc",
	"BCC":     "Bcc",
	"SUBJECT": "Subject",
}

// ParseCriteria parses a raw filter override into search criteria. It
// understands the subset of IMAP SEARCH syntax useful for selecting a
// processing backlog: flag atoms, header matches, TEXT/BODY, and
// SINCE/BEFORE dates. Anything else is a configuration error, surfaced
// before the run connects.
func ParseCriteria(raw string) (*imap.SearchCriteria, error) {
	tokens, err := tokenizeCriteria(raw)
	if err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{}

	for i := 0; i < len(tokens); i++ {
		atom := strings.ToUpper(tokens[i])

		if atom == "ALL" {
			continue
		}

		if fa, ok := flagAtoms[atom]; ok {
			if fa.negated {
				criteria.NotFlag = append(criteria.NotFlag, fa.flag)
			} else {
				criteria.Flag = append(criteria.Flag, fa.flag)
			}
			continue
		}

		arg := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", &model.ConfigError{
					Setting: "filter",
					Message: fmt.Sprintf("%s requires an argument", atom),
				}
			}
			i++
			return tokens[i], nil
		}

		if header, ok := headerAtoms[atom]; ok {
			value, err := arg()
			if err != nil {
				return nil, err
			}
			criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
				Key:   header,
				Value: value,
			})
			continue
		}

		switch atom {
		case "TEXT":
			value, err := arg()
			if err != nil {
				return nil, err
			}
			criteria.Text = append(criteria.Text, value)
		case "BODY":
			value, err := arg()
			if err != nil {
				return nil, err
			}
			criteria.Body = append(criteria.Body, value)
		case "SINCE", "BEFORE":
			value, err := arg()
			if err != nil {
				return nil, err
			}
			date, err := time.Parse(searchDateLayout, value)
			if err != nil {
				return nil, &model.ConfigError{
					Setting: "filter",
					Message: fmt.Sprintf("invalid %s date %q (want DD-Mon-YYYY)", atom, value),
				}
			}
			if atom == "SINCE" {
				criteria.Since = date
			} else {
				criteria.Before = date
			}
		default:
			return nil, &model.ConfigError{
				Setting: "filter",
				Message: fmt.Sprintf("unsupported search atom %q", tokens[i]),
			}
		}
	}

	return criteria, nil
}

// tokenizeCriteria splits a raw filter into atoms, honoring
// double-quoted arguments.
func tokenizeCriteria(raw string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuote := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			if inQuote {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, &model.ConfigError{
			Setting: "filter",
			Message: "unterminated quote in filter",
		}
	}
	flush()

	return tokens, nil
}
