package models

import (
	"encoding/json"
	"time"
)

// SampleOutputType defines the set of allowed sample output kinds.
type SampleOutputType string

const (
	SampleOutputText  SampleOutputType = "TEXT"
	SampleOutputImage SampleOutputType = "IMAGE"
	SampleOutputFile  SampleOutputType = "FILE"
)

// Prompt is read-only from the export's point of view; exports join it live.
type Prompt struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Instructions  string         `json:"instructions,omitempty"`
	PromptType    string         `json:"promptType"`
	Category      *Category      `json:"category,omitempty"`
	Tags          []Tag          `json:"tags"`
	SampleOutputs []SampleOutput `json:"sampleOutputs"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type Category struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Tag struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SampleOutput is an example result attached to a prompt.
type SampleOutput struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title,omitempty"`
	Content         string           `json:"content,omitempty"`
	OutputType      SampleOutputType `json:"outputType"`
	FilePath        string           `json:"filePath,omitempty"`
	IncludeInExport bool             `json:"includeInExport"`
}

// UnmarshalJSON defaults IncludeInExport to true when the key is absent.
// The database column carries the same default, so both ingress paths agree.
func (s *SampleOutput) UnmarshalJSON(data []byte) error {
	type alias SampleOutput
	aux := struct {
		*alias
		IncludeInExport *bool `json:"includeInExport"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.IncludeInExport = aux.IncludeInExport == nil || *aux.IncludeInExport
	return nil
}

// SampleInclusionUpdate toggles whether a sample output is printed in exports.
type SampleInclusionUpdate struct {
	IncludeInExport *bool `json:"includeInExport" validate:"required"`
}
