package coach

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var updatePlanTag = regexp.MustCompile(`\[UPDATE_PLAN:\s*(.*?)\]`)

type DirectiveKind string

const DirectiveUpdatePlan DirectiveKind = "update_plan"

// Directive is a command the model embedded in its reply.
type Directive struct {
	Kind    DirectiveKind
	Payload string
}

// Reply is a model answer split into what the user sees and what the
// system must act on. DisplayText never contains a directive tag.
type Reply struct {
	DisplayText string
	Directive   *Directive
}

// ParseReply extracts the first [UPDATE_PLAN: ...] tag. When a tag is found
// it is cut out and the remaining text is trimmed of outer whitespace only;
// otherwise the reply is returned untouched.
func ParseReply(raw string) Reply {
	m := updatePlanTag.FindStringSubmatchIndex(raw)
	if m == nil {
		return Reply{DisplayText: raw}
	}
	return Reply{
		DisplayText: strings.TrimSpace(raw[:m[0]] + raw[m[1]:]),
		Directive: &Directive{
			Kind:    DirectiveUpdatePlan,
			Payload: strings.TrimSpace(raw[m[2]:m[3]]),
		},
	}
}

// DetectAlarm looks for an alarm keyword followed later in the same message
// by a H:MM, HH:MM or H.MM time. It returns the zero padded HH:MM.
func DetectAlarm(text string, keywords []string) (string, bool) {
	re := alarmPattern(keywords)
	if re == nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func alarmPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	// The time must not be glued to other digits.
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `).*?\D(\d{1,2})[:.](\d{2})(?:\D|$)`)
}
