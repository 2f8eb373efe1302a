// Package dedupe groups records of one environment and resource type that
// share a normalized contact key.
package dedupe

import (
	"strings"

	"github.com/staffline/boond-sync/internal/normalize"
	"github.com/staffline/boond-sync/pkg/boond"
)

// Contact holds the raw comparison fields extracted from a record.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

// Key is the normalized comparison tuple of a record. It is derived on
// demand and never stored.
type Key struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

// IsEmpty reports whether the key carries no identifying contact data.
// Company alone does not identify a person or a project.
func (k Key) IsEmpty() bool {
	return k.Name == "" && k.Email == "" && k.Phone == ""
}

func (k Key) String() string {
	return strings.Join([]string{k.Name, k.Email, k.Phone, k.Company}, "|")
}

// Group is a set of at least two records sharing a key.
type Group struct {
	Environment boond.Environment  `json:"environment"`
	Type        boond.ResourceType `json:"type"`
	Key         Key                `json:"key"`
	Members     []boond.Ref        `json:"members"`
}

// Detector builds keys and groups. The zero value uses
// normalize.DefaultCountryCode.
type Detector struct {
	CountryCode string
}

func (d Detector) countryCode() string {
	if d.CountryCode == "" {
		return normalize.DefaultCountryCode
	}
	return d.CountryCode
}

// KeyOf normalizes the contact fields of rec.
func (d Detector) KeyOf(rt boond.ResourceType, rec boond.Record, included []boond.Record) Key {
	c := ContactOf(rt, rec, included)
	return Key{
		Name:    normalize.Name(c.Name),
		Email:   normalize.Email(c.Email),
		Phone:   normalize.PhoneWithCountry(c.Phone, d.countryCode()),
		Company: normalize.CompanyName(c.Company),
	}
}

// FindDuplicates groups records by key. Groups come in order of first
// appearance and members in input order; records with an empty key are
// never grouped.
func (d Detector) FindDuplicates(env boond.Environment, rt boond.ResourceType, records []boond.Record, included []boond.Record) []Group {
	index := make(map[Key]int)
	var buckets [][]boond.Ref
	var keys []Key

	for _, rec := range records {
		k := d.KeyOf(rt, rec, included)
		if k.IsEmpty() {
			continue
		}
		ref := boond.Ref{Environment: env, Type: rt, ID: rec.ID}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, nil)
			keys = append(keys, k)
		}
		buckets[i] = append(buckets[i], ref)
	}

	groups := []Group{}
	for i, members := range buckets {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group{Environment: env, Type: rt, Key: keys[i], Members: members})
	}
	return groups
}

// KeyOf is Detector{}.KeyOf.
func KeyOf(rt boond.ResourceType, rec boond.Record, included []boond.Record) Key {
	return Detector{}.KeyOf(rt, rec, included)
}

// FindDuplicates is Detector{}.FindDuplicates.
func FindDuplicates(env boond.Environment, rt boond.ResourceType, records []boond.Record, included []boond.Record) []Group {
	return Detector{}.FindDuplicates(env, rt, records, included)
}
