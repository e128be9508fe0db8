package domain

import (
	"github.com/google/uuid"
)

// RecognitionOutcome tags the result of a recognize call. None of these are
// errors: an empty registry, a probe without a face or a probe above the
// matching tolerance are all defined outcomes of the pipeline.
type RecognitionOutcome string

const (
	OutcomeRecorded        RecognitionOutcome = "recorded"
	OutcomeAlreadyRecorded RecognitionOutcome = "already_recorded"
	OutcomeNoFaceDetected  RecognitionOutcome = "no_face_detected"
	OutcomeNoCandidates    RecognitionOutcome = "no_candidates"
	OutcomeNotRecognized   RecognitionOutcome = "not_recognized"
)

// Human-readable messages carried in recognize responses.
const (
	MsgRecorded        = "Attendance recorded"
	MsgAlreadyRecorded = "Attendance already recorded today"
	MsgNoFaceDetected  = "No face detected in the image"
	MsgNoCandidates    = "No registered faces available for recognition"
	MsgNotRecognized   = "User not recognized"
)

// Message returns the response message for the outcome.
func (o RecognitionOutcome) Message() string {
	switch o {
	case OutcomeRecorded:
		return MsgRecorded
	case OutcomeAlreadyRecorded:
		return MsgAlreadyRecorded
	case OutcomeNoFaceDetected:
		return MsgNoFaceDetected
	case OutcomeNoCandidates:
		return MsgNoCandidates
	case OutcomeNotRecognized:
		return MsgNotRecognized
	}
	return ""
}

// RecognitionResult é o resultado de uma tentativa de reconhecimento.
// ID, Name, Distance and AttendanceDates are only set when Recognized.
// Distance is meaningful on acceptance even at exactly 0, so its field
// never drops out of a serialized accepted result.
type RecognitionResult struct {
	EventID         uuid.UUID          `json:"-"`
	Recognized      bool               `json:"recognized"`
	Outcome         RecognitionOutcome `json:"-"`
	Message         string             `json:"message"`
	ID              string             `json:"user_id,omitempty"`
	Name            string             `json:"user_name,omitempty"`
	Distance        float64            `json:"distance"`
	AttendanceDates []string           `json:"attendance_dates,omitempty"`
}
