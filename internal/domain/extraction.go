package domain

import "time"

// Confidence is a coarse label on how trustworthy an automatically
// extracted field is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ExtractionMethod records which path produced an ExtractionResult.
type ExtractionMethod string

const (
	// MethodKeyword means the local deterministic engine produced the result.
	MethodKeyword ExtractionMethod = "keyword"
	// MethodDelegate means the remote reasoning service produced the result.
	MethodDelegate ExtractionMethod = "delegate"
	// MethodDefault means nothing matched and documented defaults were used.
	MethodDefault ExtractionMethod = "default"
)

// ExtractionResult is the structured interpretation of one free-text item.
// It is never mutated after creation; a miss on any field is represented as
// the field's zero/nil value, not an error.
type ExtractionResult struct {
	Amount             *MonetaryAmount  `json:"amount,omitempty"`
	Date               *time.Time       `json:"date,omitempty"`
	Category           string           `json:"category,omitempty"`
	CleanedDescription string           `json:"cleaned_description"`
	Confidence         Confidence       `json:"confidence"`
	Method             ExtractionMethod `json:"method"`
}
