package model

import "strings"

// Wizard step bounds.
const (
	DraftFirstStep = 1
	DraftLastStep  = 3
)

// PostDraft is the three-step submission form.
//
//	step 1: type, title, category
//	step 2: location, description
//	step 3: optional image, then submit
//
// Going forward requires the current step's fields; going back never
// re-validates.
type PostDraft struct {
	Type        PostType `json:"type"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Step        int      `json:"step"`
}

// NewPostDraft returns an empty draft on step 1 with type lost.
func NewPostDraft() *PostDraft {
	return &PostDraft{Type: PostTypeLost, Step: DraftFirstStep}
}

// DraftStepResult is the draft after a navigation attempt. Blocker names
// what keeps the current step from advancing.
type DraftStepResult struct {
	Draft      *PostDraft `json:"draft"`
	Moved      bool       `json:"moved"`
	CanAdvance bool       `json:"can_advance"`
	Blocker    string     `json:"blocker,omitempty"`
}

// StepErr returns what blocks leaving the current step. The last step ends
// in submission and has nothing to check.
func (d *PostDraft) StepErr() error {
	switch d.clampedStep() {
	case 1:
		return d.stepOneErr()
	case 2:
		return d.stepTwoErr()
	default:
		return nil
	}
}

// CanAdvance reports whether the current step is complete.
func (d *PostDraft) CanAdvance() bool {
	return d.clampedStep() < DraftLastStep && d.StepErr() == nil
}

// Next moves one step forward if the current step is complete.
func (d *PostDraft) Next() bool {
	if !d.CanAdvance() {
		return false
	}
	d.Step = min(d.clampedStep()+1, DraftLastStep)
	return true
}

// Prev moves one step back.
func (d *PostDraft) Prev() {
	d.Step = max(d.clampedStep()-1, DraftFirstStep)
}

// Normalize trims text fields and defaults the type.
func (d *PostDraft) Normalize() {
	if d.Type == "" {
		d.Type = PostTypeLost
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Category = strings.TrimSpace(d.Category)
	d.Location = strings.TrimSpace(d.Location)
	d.Description = strings.TrimSpace(d.Description)
	d.Step = d.clampedStep()
}

// Validate checks everything a submission needs. The image is never required.
func (d *PostDraft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidPostType
	}
	if err := d.stepOneErr(); err != nil {
		return err
	}
	return d.stepTwoErr()
}

func (d *PostDraft) stepOneErr() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if !IsValidCategory(strings.TrimSpace(d.Category)) {
		return ErrInvalidCategory
	}
	return nil
}

func (d *PostDraft) stepTwoErr() error {
	if strings.TrimSpace(d.Location) == "" {
		return ErrLocationRequired
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrDescriptionRequired
	}
	return nil
}

func (d *PostDraft) clampedStep() int {
	return min(max(d.Step, DraftFirstStep), DraftLastStep)
}
