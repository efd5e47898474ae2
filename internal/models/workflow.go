// internal/models/workflow.go
package models

import "time"

// Stage names a workflow state. Intake and Reopen are history markers, not stages.
type Stage string

const (
	StageIntake               Stage = "Intake"
	StageIdentityVerification Stage = "IdentityVerification"
	StageDocumentProcessing   Stage = "DocumentProcessing"
	StageEligibilityDecision  Stage = "EligibilityDecision"
	StageQualityReview        Stage = "QualityReview"
	StageHumanReview          Stage = "HumanReview"
	StageExecution            Stage = "Execution"
	StageReopen               Stage = "Reopen"
	StageDone                 Stage = "Done"
)

// IsMarker reports whether s is a history marker rather than a processed stage.
func (s Stage) IsMarker() bool {
	return s == StageIntake || s == StageReopen
}

// IsCollaborator reports whether s is served by an external collaborator.
func (s Stage) IsCollaborator() bool {
	switch s {
	case StageEligibilityDecision, StageQualityReview, StageHumanReview, StageExecution:
		return true
	}
	return false
}

// ParseStage accepts the canonical stage names.
func ParseStage(s string) (Stage, bool) {
	switch st := Stage(s); st {
	case StageIntake, StageIdentityVerification, StageDocumentProcessing, StageEligibilityDecision,
		StageQualityReview, StageHumanReview, StageExecution, StageReopen, StageDone:
		return st, true
	}
	return "", false
}

type Outcome string

const (
	OutcomeApproved  Outcome = "Approved"
	OutcomeDeclined  Outcome = "Declined"
	OutcomePending   Outcome = "Pending"
	OutcomeNeedsInfo Outcome = "NeedsInfo"
)

// IsFinal reports whether the outcome is a final decision marker.
func (o Outcome) IsFinal() bool {
	return o == OutcomeApproved || o == OutcomeDeclined
}

type ResponseKind string

const (
	ResponseAgree   ResponseKind = "Agree"
	ResponseCorrect ResponseKind = "Correct"
	ResponseClarify ResponseKind = "Clarify"
)

var responsePrecedence = map[ResponseKind]int{
	ResponseCorrect: 3,
	ResponseClarify: 2,
	ResponseAgree:   1,
}

// HumanResponse is the classified reviewer reply. Candidates holds every tag
// the classifier considered plausible; Resolve picks one.
type HumanResponse struct {
	Kind       ResponseKind   `json:"kind"`
	Candidates []ResponseKind `json:"candidates,omitempty"`
	Text       string         `json:"text,omitempty"`
	Note       string         `json:"note,omitempty"`
	Identity   *IdentityQuery `json:"identity,omitempty"`
}

// Resolve returns the effective tag: the highest-precedence candidate,
// Correct over Clarify over Agree. With no usable tag it yields Clarify.
func (h *HumanResponse) Resolve() ResponseKind {
	if h == nil {
		return ResponseClarify
	}
	best, bestRank := h.Kind, responsePrecedence[h.Kind]
	for _, c := range h.Candidates {
		if r := responsePrecedence[c]; r > bestRank {
			best, bestRank = c, r
		}
	}
	if bestRank == 0 {
		return ResponseClarify
	}
	return best
}

// DocumentRequest asks for a DocumentProcessing call that returns to the requester.
type DocumentRequest struct {
	DocumentIDs []string `json:"documentIds"`
	Reason      string   `json:"reason,omitempty"`
}

// StageResult is the typed output every stage produces.
type StageResult struct {
	Stage           Stage                  `json:"stage"`
	Outcome         Outcome                `json:"outcome"`
	Summary         string                 `json:"summary,omitempty"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	DocumentRequest *DocumentRequest       `json:"documentRequest,omitempty"`
	HumanResponse   *HumanResponse         `json:"humanResponse,omitempty"`
}

// Event is one append-only history entry.
type Event struct {
	Seq       int          `json:"seq"`
	Stage     Stage        `json:"stage"`
	Result    *StageResult `json:"result,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Outcome returns the result outcome or "" for markers without one.
func (e Event) Outcome() Outcome {
	if e.Result == nil {
		return ""
	}
	return e.Result.Outcome
}

type History []Event

// StageCount counts processed stages, excluding markers.
func (h History) StageCount() int {
	n := 0
	for _, e := range h {
		if !e.Stage.IsMarker() {
			n++
		}
	}
	return n
}

// Last returns the final event.
func (h History) Last() (Event, bool) {
	if len(h) == 0 {
		return Event{}, false
	}
	return h[len(h)-1], true
}

// Contains reports whether any event has stage s.
func (h History) Contains(s Stage) bool {
	for _, e := range h {
		if e.Stage == s {
			return true
		}
	}
	return false
}

// SinceLast returns the suffix after the last event with stage s, or all of h.
func (h History) SinceLast(s Stage) History {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Stage == s {
			return h[i+1:]
		}
	}
	return h
}

// Count returns how many events have stage s.
func (h History) Count(s Stage) int {
	n := 0
	for _, e := range h {
		if e.Stage == s {
			n++
		}
	}
	return n
}

// CaseSnapshot returns the payload recorded by the latest Intake marker.
func (h History) CaseSnapshot() map[string]interface{} {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Stage == StageIntake && h[i].Result != nil {
			return h[i].Result.Payload
		}
	}
	return nil
}

// RoutingDecision is the Router's answer for one history.
type RoutingDecision struct {
	Next           Stage                  `json:"next"`
	Rule           int                    `json:"rule"`
	RequestContext map[string]interface{} `json:"requestContext,omitempty"`
	Instructions   string                 `json:"instructions,omitempty"`
	Summary        string                 `json:"summary,omitempty"`
	ReturnTo       Stage                  `json:"returnTo,omitempty"`
	DocumentIDs    []string               `json:"documentIds,omitempty"`
	Blocked        bool                   `json:"blocked,omitempty"`
	BlockReason    string                 `json:"blockReason,omitempty"`
	Escalate       bool                   `json:"escalate,omitempty"`
	Anomaly        bool                   `json:"anomaly,omitempty"`
	ErrorCode      string                 `json:"errorCode,omitempty"`
}

// Terminal reports whether the decision ends the case.
func (d RoutingDecision) Terminal() bool {
	return d.Next == StageDone
}
