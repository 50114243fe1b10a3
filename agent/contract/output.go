package contract

import (
	"encoding/json"
	"fmt"
)

// Record is the reconciled, schema-specific view of one entity.
type Record interface {
	Kind() EntityType
}

type PersonRecord struct {
	FullName        *DataPoint           `json:"full_name,omitempty"`
	DateOfBirth     *DataPoint           `json:"date_of_birth,omitempty"`
	PlaceOfBirth    *DataPoint           `json:"place_of_birth,omitempty"`
	DateOfDeath     *DataPoint           `json:"date_of_death,omitempty"`
	Nationality     *DataPoint           `json:"nationality,omitempty"`
	Profession      *DataPoint           `json:"profession,omitempty"`
	Education       *DataPoint           `json:"education,omitempty"`
	KnownFor        *DataPoint           `json:"known_for,omitempty"`
	Awards          *DataPoint           `json:"awards,omitempty"`
	Spouse          *DataPoint           `json:"spouse,omitempty"`
	Children        *DataPoint           `json:"children,omitempty"`
	NotableWorks    *DataPoint           `json:"notable_works,omitempty"`
	RelatedImages   *DataPoint           `json:"related_images,omitempty"`
	OpinionsReviews *DataPoint           `json:"opinions_reviews,omitempty"`
	Summary         *DataPoint           `json:"summary,omitempty"`
	AdditionalInfo  map[string]DataPoint `json:"additional_info"`
}

func (PersonRecord) Kind() EntityType { return EntityPerson }

type CompanyRecord struct {
	Name            *DataPoint           `json:"name,omitempty"`
	Founded         *DataPoint           `json:"founded,omitempty"`
	Founders        *DataPoint           `json:"founders,omitempty"`
	Headquarters    *DataPoint           `json:"headquarters,omitempty"`
	Industry        *DataPoint           `json:"industry,omitempty"`
	CEO             *DataPoint           `json:"ceo,omitempty"`
	Employees       *DataPoint           `json:"employees,omitempty"`
	Revenue         *DataPoint           `json:"revenue,omitempty"`
	Products        *DataPoint           `json:"products,omitempty"`
	Website         *DataPoint           `json:"website,omitempty"`
	RelatedImages   *DataPoint           `json:"related_images,omitempty"`
	ReviewsOpinions *DataPoint           `json:"reviews_opinions,omitempty"`
	Summary         *DataPoint           `json:"summary,omitempty"`
	AdditionalInfo  map[string]DataPoint `json:"additional_info"`
}

func (CompanyRecord) Kind() EntityType { return EntityCompany }

type OtherRecord struct {
	Name            *DataPoint           `json:"name,omitempty"`
	Category        *DataPoint           `json:"category,omitempty"`
	Description     *DataPoint           `json:"description,omitempty"`
	Location        *DataPoint           `json:"location,omitempty"`
	Date            *DataPoint           `json:"date,omitempty"`
	RelatedImages   *DataPoint           `json:"related_images,omitempty"`
	OpinionsReviews *DataPoint           `json:"opinions_reviews,omitempty"`
	Summary         *DataPoint           `json:"summary,omitempty"`
	AdditionalInfo  map[string]DataPoint `json:"additional_info"`
}

func (OtherRecord) Kind() EntityType { return EntityOther }

// EntityOutput is the final product of one pipeline run.
type EntityOutput struct {
	EntityType            EntityType `json:"entity_type"`
	Data                  Record     `json:"data"`
	QueryTimestamp        string     `json:"query_timestamp"`
	ProcessingTimeSeconds float64    `json:"processing_time_seconds"`
}

func (o *EntityOutput) UnmarshalJSON(b []byte) error {
	var raw struct {
		EntityType            EntityType      `json:"entity_type"`
		Data                  json.RawMessage `json:"data"`
		QueryTimestamp        string          `json:"query_timestamp"`
		ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var (
		rec Record
		err error
	)
	switch raw.EntityType {
	case EntityPerson:
		var r PersonRecord
		err = decodeRecord(raw.Data, &r)
		rec = r
	case EntityCompany:
		var r CompanyRecord
		err = decodeRecord(raw.Data, &r)
		rec = r
	case EntityOther:
		var r OtherRecord
		err = decodeRecord(raw.Data, &r)
		rec = r
	default:
		return fmt.Errorf("%w: unknown entity_type=%q", ErrSchemaViolation, raw.EntityType)
	}
	if err != nil {
		return fmt.Errorf("decode %s record: %w", raw.EntityType, err)
	}

	o.EntityType = raw.EntityType
	o.Data = rec
	o.QueryTimestamp = raw.QueryTimestamp
	o.ProcessingTimeSeconds = raw.ProcessingTimeSeconds
	return nil
}

func decodeRecord(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}
