package dedupe

import (
	"strings"

	"github.com/staffline/boond-sync/internal/normalize"
	"github.com/staffline/boond-sync/pkg/boond"
)

// ContactOf extracts the raw comparison fields of a record.
//
// Candidates and resources: first and last name, the first valid email
// among email1..email3, the first non-empty of phone1, mobile, phone2, and
// the company attribute or related company. Projects: reference (or title)
// and the related company; they carry no email or phone.
func ContactOf(rt boond.ResourceType, rec boond.Record, included []boond.Record) Contact {
	switch rt {
	case boond.Projects:
		return Contact{
			Name:    first(rec.Attr("reference"), rec.Attr("title"), rec.Attr("name")),
			Company: companyOf(rec, included),
		}
	default:
		name := strings.TrimSpace(rec.Attr("firstName") + " " + rec.Attr("lastName"))
		return Contact{
			Name:    first(name, rec.Attr("fullName"), rec.Attr("name")),
			Email:   emailOf(rec),
			Phone:   first(rec.Attr("phone1"), rec.Attr("mobile"), rec.Attr("phone2")),
			Company: companyOf(rec, included),
		}
	}
}

func emailOf(rec boond.Record) string {
	var fallback string
	for _, attr := range []string{"email1", "email2", "email3", "email"} {
		v := strings.TrimSpace(rec.Attr(attr))
		if v == "" {
			continue
		}
		if normalize.IsValidEmail(v) {
			return v
		}
		if fallback == "" {
			fallback = v
		}
	}
	return fallback
}

// companyOf prefers an inline company name, then the included company
// record the "company" relationship points to.
func companyOf(rec boond.Record, included []boond.Record) string {
	inline, _ := rec.Attributes["company"].(string)
	if v := first(rec.Attr("companyName"), inline); v != "" {
		return v
	}
	for _, link := range rec.Related("company") {
		for _, inc := range included {
			if inc.ID == link.ID && (inc.Type == "" || inc.Type == "company") {
				return first(inc.Attr("name"), inc.Attr("title"))
			}
		}
	}
	return ""
}

func first(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
