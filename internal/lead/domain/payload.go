package domain

import (
	"strconv"
	"strings"
)

// Candidate field names for display fields, in priority order. First non-empty
// match wins. These cover the form platforms seen in production payloads.
var (
	emailKeys    = []string{"email", "mail", "email_address", "e_mail"}
	phoneKeys    = []string{"phone", "telefon", "phone_number", "mobile", "tlf"}
	clubNameKeys = []string{"klubnavn", "clubName", "club_name", "club"}
	clubIDKeys   = []string{"club_id", "clubId", "klub_id"}
)

// DisplayFields are best-effort presentation values extracted from a raw payload.
type DisplayFields struct {
	Email    string
	Phone    string
	ClubID   string
	ClubName string
}

// DeriveDisplayFields extracts best-effort email/phone/club values from a payload.
// Missing fields stay empty; callers persist them as NULL.
func DeriveDisplayFields(payload map[string]any) DisplayFields {
	f := DisplayFields{
		Email:    FirstField(payload, emailKeys),
		Phone:    FirstField(payload, phoneKeys),
		ClubID:   FirstField(payload, clubIDKeys),
		ClubName: FirstField(payload, clubNameKeys),
	}
	if f.ClubName == "" {
		// A bare club id still beats an empty name in lists.
		f.ClubName = f.ClubID
	}
	return f
}

// FirstField returns the first non-empty candidate value from payload, trimmed.
// Keys containing a dot are also tried as a path into nested objects when no
// literal key matches (e.g. "submission.sid").
func FirstField(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := payload[key]; ok {
			if s := Stringify(v); s != "" {
				return s
			}
			continue
		}
		if !strings.Contains(key, ".") {
			continue
		}
		if s := Stringify(lookupPath(payload, key)); s != "" {
			return s
		}
	}
	return ""
}

func lookupPath(payload map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = payload
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// Stringify renders a scalar payload value as a trimmed string. Non-scalar
// values (objects, arrays) yield "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
