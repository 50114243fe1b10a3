// Package reconcile maps the facts, media, content and summary gathered by
// the research stages onto the output record for the entity type.
package reconcile

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/entity-research/agent/contract"
)

// fieldRule maps a set of fact keys onto one record field. Rules are
// evaluated in order; the first match wins.
type fieldRule struct {
	field    string
	synonyms []string
}

var personRules = []fieldRule{
	{field: "full_name", synonyms: []string{"name", "fullname", "full_legal_name", "birth_name"}},
	{field: "date_of_birth", synonyms: []string{"birth_date", "dob", "born", "birthdate", "birthday"}},
	{field: "place_of_birth", synonyms: []string{"birth_place", "birthplace", "born_in", "hometown"}},
	{field: "date_of_death", synonyms: []string{"death_date", "died", "dod", "deathdate"}},
	{field: "nationality", synonyms: []string{"citizenship", "country"}},
	{field: "profession", synonyms: []string{"occupation", "job_title", "job", "career", "role"}},
	{field: "education", synonyms: []string{"alma_mater", "schooling", "degrees"}},
	{field: "known_for", synonyms: []string{"famous_for", "notable_for", "achievements"}},
	{field: "awards", synonyms: []string{"honors", "honours", "prizes", "awards_and_honors"}},
	{field: "spouse", synonyms: []string{"spouses", "husband", "wife", "partner"}},
	{field: "children", synonyms: []string{"kids", "offspring"}},
	{field: "notable_works", synonyms: []string{"works", "publications", "major_works"}},
}

var companyRules = []fieldRule{
	{field: "name", synonyms: []string{"company_name", "legal_name", "full_name"}},
	{field: "founded", synonyms: []string{"founding_date", "foundation_date", "founded_date", "year_founded", "date_founded", "established"}},
	{field: "founders", synonyms: []string{"founder", "founded_by", "co_founders"}},
	{field: "headquarters", synonyms: []string{"hq", "headquartered", "head_office", "location"}},
	{field: "industry", synonyms: []string{"sector", "industries"}},
	{field: "ceo", synonyms: []string{"chief_executive", "chief_executive_officer", "leader"}},
	{field: "employees", synonyms: []string{"employee_count", "number_of_employees", "headcount", "staff"}},
	{field: "revenue", synonyms: []string{"annual_revenue", "sales", "turnover"}},
	{field: "products", synonyms: []string{"product", "services", "products_and_services", "offerings"}},
	{field: "website", synonyms: []string{"url", "homepage", "site", "web_site"}},
}

var otherRules = []fieldRule{
	{field: "name", synonyms: []string{"title", "full_name"}},
	{field: "category", synonyms: []string{"type", "kind", "classification"}},
	{field: "description", synonyms: []string{"overview", "about", "definition"}},
	{field: "location", synonyms: []string{"place", "region", "country", "coordinates"}},
	{field: "date", synonyms: []string{"year", "time_period", "period", "release_date"}},
}

var (
	imageKeys   = []string{"images", "image", "photos", "pictures"}
	reviewKeys  = []string{"reviews", "opinions", "critiques"}
	summaryKeys = []string{"detailed_summary", "summary", "short_summary"}
)

func rulesFor(et contractx.EntityType) []fieldRule {
	switch et {
	case contractx.EntityCompany:
		return companyRules
	case contractx.EntityOther:
		return otherRules
	default:
		return personRules
	}
}

// Reconcile builds the record for pc.EntityType. It never fails: facts that
// do not map to a field end up in AdditionalInfo.
func Reconcile(pc *contractx.PipelineContext) contractx.Record {
	if pc == nil {
		pc = &contractx.PipelineContext{}
	}
	et := contractx.ParseEntityType(string(pc.EntityType))
	fields, extra := matchFacts(rulesFor(et), pc.Facts)

	images := firstPresent(pc.Media, imageKeys)
	reviews := firstPresent(pc.Content, reviewKeys)
	summary := firstPresent(pc.Summary, summaryKeys)

	switch et {
	case contractx.EntityCompany:
		return contractx.CompanyRecord{
			Name:            fields["name"],
			Founded:         fields["founded"],
			Founders:        fields["founders"],
			Headquarters:    fields["headquarters"],
			Industry:        fields["industry"],
			CEO:             fields["ceo"],
			Employees:       fields["employees"],
			Revenue:         fields["revenue"],
			Products:        fields["products"],
			Website:         fields["website"],
			RelatedImages:   images,
			ReviewsOpinions: reviews,
			Summary:         summary,
			AdditionalInfo:  extra,
		}
	case contractx.EntityOther:
		return contractx.OtherRecord{
			Name:            fields["name"],
			Category:        fields["category"],
			Description:     fields["description"],
			Location:        fields["location"],
			Date:            fields["date"],
			RelatedImages:   images,
			OpinionsReviews: reviews,
			Summary:         summary,
			AdditionalInfo:  extra,
		}
	default:
		return contractx.PersonRecord{
			FullName:        fields["full_name"],
			DateOfBirth:     fields["date_of_birth"],
			PlaceOfBirth:    fields["place_of_birth"],
			DateOfDeath:     fields["date_of_death"],
			Nationality:     fields["nationality"],
			Profession:      fields["profession"],
			Education:       fields["education"],
			KnownFor:        fields["known_for"],
			Awards:          fields["awards"],
			Spouse:          fields["spouse"],
			Children:        fields["children"],
			NotableWorks:    fields["notable_works"],
			RelatedImages:   images,
			OpinionsReviews: reviews,
			Summary:         summary,
			AdditionalInfo:  extra,
		}
	}
}

// matchFacts assigns facts to fields. A key equal to the field name beats a
// synonym; among synonyms the first key in sorted order wins.
func matchFacts(rules []fieldRule, facts contractx.Section) (map[string]*contractx.DataPoint, map[string]contractx.DataPoint) {
	fields := make(map[string]*contractx.DataPoint, len(rules))
	extra := make(map[string]contractx.DataPoint)

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonical := make(map[string]bool, len(rules))
	for _, r := range rules {
		canonical[r.field] = true
	}

	matched := make(map[string]bool, len(keys))
	for _, key := range keys {
		norm := normalizeKey(key)
		if canonical[norm] && fields[norm] == nil {
			dp := facts[key]
			fields[norm] = &dp
			matched[key] = true
		}
	}

	for _, key := range keys {
		if matched[key] {
			continue
		}
		field := synonymField(rules, normalizeKey(key))
		if field != "" && fields[field] == nil {
			dp := facts[key]
			fields[field] = &dp
			continue
		}
		if field != "" {
			log.Debug().Str("key", key).Str("field", field).Msg("reconcile: field already set, keeping fact as additional info")
		}
		extra[key] = facts[key]
	}
	return fields, extra
}

func synonymField(rules []fieldRule, norm string) string {
	for _, r := range rules {
		if norm == r.field {
			return r.field
		}
		for _, s := range r.synonyms {
			if norm == s {
				return r.field
			}
		}
	}
	return ""
}

// firstPresent returns the entry for the first name in order that the
// section holds, matching keys after normalization.
func firstPresent(sec contractx.Section, names []string) *contractx.DataPoint {
	if len(sec) == 0 {
		return nil
	}
	byNorm := make(map[string]string, len(sec))
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		norm := normalizeKey(k)
		if _, seen := byNorm[norm]; !seen {
			byNorm[norm] = k
		}
	}
	for _, name := range names {
		if k, ok := byNorm[name]; ok {
			dp := sec[k]
			return &dp
		}
	}
	return nil
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return k
}
