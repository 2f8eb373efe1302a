// Package quality flags incomplete, malformed and duplicated records.
// Analysis is read-only and never drops a record.
package quality

import (
	"time"

	"github.com/staffline/boond-sync/internal/dedupe"
	"github.com/staffline/boond-sync/internal/normalize"
	"github.com/staffline/boond-sync/pkg/boond"
)

// Issue is one quality finding on a record.
type Issue string

const (
	MissingName    Issue = "missing_name"
	MissingContact Issue = "missing_contact"
	InvalidEmail   Issue = "invalid_email"
	InvalidPhone   Issue = "invalid_phone"
	Duplicate      Issue = "duplicate"
)

// RecordIssues lists the findings on one record.
type RecordIssues struct {
	Ref     boond.Ref      `json:"ref"`
	Contact dedupe.Contact `json:"contact"`
	Issues  []Issue        `json:"issues"`
}

// Has reports whether the record carries the issue.
func (r RecordIssues) Has(issue Issue) bool {
	for _, i := range r.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// Report summarizes one resource type of one environment.
type Report struct {
	Environment boond.Environment  `json:"environment"`
	Type        boond.ResourceType `json:"type"`

	Total      int `json:"total"`
	Complete   int `json:"complete"`
	Incomplete int `json:"incomplete"`

	MissingName    int `json:"missingName"`
	MissingContact int `json:"missingContact"`
	InvalidEmail   int `json:"invalidEmail"`
	InvalidPhone   int `json:"invalidPhone"`
	Duplicated     int `json:"duplicated"`

	Groups  []dedupe.Group `json:"groups"`
	Records []RecordIssues `json:"records"`
}

// CompletenessRate is the share of complete records, 1 for an empty type.
func (r Report) CompletenessRate() float64 {
	if r.Total == 0 {
		return 1
	}
	return float64(r.Complete) / float64(r.Total)
}

// EnvironmentReport aggregates the reports of every listable type.
type EnvironmentReport struct {
	Environment boond.Environment `json:"environment"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Reports     []Report          `json:"reports"`
	// FetchErrors holds types that could not be fully listed.
	FetchErrors map[boond.ResourceType]string `json:"fetchErrors,omitempty"`
}

// requiresContact reports whether records of rt need an email or phone.
func requiresContact(rt boond.ResourceType) bool {
	return rt == boond.Candidates || rt == boond.Resources
}

// Analyzer computes reports. The zero value is ready to use.
type Analyzer struct {
	Detector dedupe.Detector
}

// Analyze builds the report of one resource type.
func (a Analyzer) Analyze(env boond.Environment, rt boond.ResourceType, records []boond.Record, included []boond.Record) Report {
	rep := Report{
		Environment: env,
		Type:        rt,
		Total:       len(records),
		Groups:      a.Detector.FindDuplicates(env, rt, records, included),
		Records:     []RecordIssues{},
	}

	grouped := make(map[boond.ID]bool)
	for _, g := range rep.Groups {
		for _, m := range g.Members {
			grouped[m.ID] = true
		}
	}
	rep.Duplicated = len(grouped)

	for _, rec := range records {
		c := dedupe.ContactOf(rt, rec, included)
		var issues []Issue
		incomplete := false

		if normalize.Name(c.Name) == "" {
			issues = append(issues, MissingName)
			rep.MissingName++
			incomplete = true
		}
		emailOK := normalize.IsValidEmail(c.Email)
		phoneOK := normalize.IsValidPhone(c.Phone)
		if requiresContact(rt) && !emailOK && !phoneOK {
			issues = append(issues, MissingContact)
			rep.MissingContact++
			incomplete = true
		}
		if c.Email != "" && !emailOK {
			issues = append(issues, InvalidEmail)
			rep.InvalidEmail++
		}
		if c.Phone != "" && !phoneOK {
			issues = append(issues, InvalidPhone)
			rep.InvalidPhone++
		}
		if grouped[rec.ID] {
			issues = append(issues, Duplicate)
		}

		if incomplete {
			rep.Incomplete++
		} else {
			rep.Complete++
		}
		if len(issues) > 0 {
			rep.Records = append(rep.Records, RecordIssues{
				Ref:     boond.Ref{Environment: env, Type: rt, ID: rec.ID},
				Contact: c,
				Issues:  issues,
			})
		}
	}
	return rep
}

// AnalyzeDataQuality is Analyzer{}.Analyze.
func AnalyzeDataQuality(env boond.Environment, rt boond.ResourceType, records []boond.Record, included []boond.Record) Report {
	return Analyzer{}.Analyze(env, rt, records, included)
}
