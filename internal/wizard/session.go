// Package wizard holds the server-side state of the guided visual creation
// flow. A session walks through four steps; each step gates on the data the
// previous ones collected so a client can never jump ahead of its inputs.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"piktor/internal/model"
	"piktor/internal/prompt"
)

type Step int

const (
	StepInput Step = iota + 1
	StepContext
	StepSettings
	StepGenerate
)

func (s Step) String() string {
	switch s {
	case StepInput:
		return "input"
	case StepContext:
		return "context"
	case StepSettings:
		return "settings"
	case StepGenerate:
		return "generate"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrStepIncomplete = errors.New("wizard: current step is incomplete")
	ErrAtFirstStep    = errors.New("wizard: already at the first step")
	ErrAtLastStep     = errors.New("wizard: already at the last step")
)

// Session is one user's in-progress wizard. Config accumulates as steps
// complete; Step is the furthest the user may currently act on.
type Session struct {
	ID        string
	UserID    string
	ProjectID string
	Step      Step
	Config    model.ProductConfiguration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// stepComplete reports whether the data required by the given step has been
// provided. It checks data, not navigation history, so restoring a session
// from a fuller config unlocks the same steps again.
func (s *Session) stepComplete(step Step) bool {
	switch step {
	case StepInput:
		specs := s.Config.ProductInput.Specs
		return specs.ProductName != "" && specs.ProductType != "" && len(s.Config.ProductInput.Images) > 0
	case StepContext:
		_, ok := presetKnown(s.Config.UISettings.ContextPreset)
		return ok
	case StepSettings:
		// Settings start from defaults, so the step is complete as soon as
		// the context is chosen and whatever the user set still validates.
		return s.stepComplete(StepContext) && prompt.ValidateSettings(s.Config.UISettings) == nil
	case StepGenerate:
		return false
	default:
		return false
	}
}

func presetKnown(p model.ContextPreset) (model.ContextPreset, bool) {
	switch p {
	case model.PresetPackshot, model.PresetInstagram, model.PresetStory,
		model.PresetHero, model.PresetLifestyle, model.PresetDetail:
		return p, true
	default:
		return "", false
	}
}

// Advance moves to the next step if the current one is complete.
func (s *Session) Advance() error {
	if s.Step >= StepGenerate {
		return ErrAtLastStep
	}
	if !s.stepComplete(s.Step) {
		return fmt.Errorf("%w: %s", ErrStepIncomplete, s.Step)
	}
	s.Step++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Back moves to the previous step. Collected data is kept.
func (s *Session) Back() error {
	if s.Step <= StepInput {
		return ErrAtFirstStep
	}
	s.Step--
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reset clears everything and returns to the first step.
func (s *Session) Reset() {
	s.Config = model.ProductConfiguration{ID: s.Config.ID, UISettings: defaultSettings()}
	s.Step = StepInput
	s.UpdatedAt = time.Now().UTC()
}

// defaultSettings is the baseline a session starts from. Only the context
// preset is left for the user, so picking one is enough to generate.
func defaultSettings() model.UISettings {
	return model.UISettings{
		BackgroundStyle: model.BackgroundPlain,
		ProductPosition: model.PositionCenter,
		Lighting:        model.LightingStudioSoftbox,
	}
}

// SetInput replaces the product input and stamps the config.
func (s *Session) SetInput(input model.ProductInput) {
	s.Config.ProductInput = input
	s.touch()
}

// SetContext picks the scene preset without touching the other settings.
func (s *Session) SetContext(preset model.ContextPreset) {
	s.Config.UISettings.ContextPreset = preset
	s.touch()
}

// SetSettings replaces the generation settings. Enum fields left empty fall
// back to the defaults so a partial payload never wedges the session.
func (s *Session) SetSettings(settings model.UISettings) {
	d := defaultSettings()
	if settings.BackgroundStyle == "" {
		settings.BackgroundStyle = d.BackgroundStyle
	}
	if settings.ProductPosition == "" {
		settings.ProductPosition = d.ProductPosition
	}
	if settings.Lighting == "" {
		settings.Lighting = d.Lighting
	}
	s.Config.UISettings = settings
	s.touch()
}

func (s *Session) touch() {
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.Config.UpdatedAt = now
}
